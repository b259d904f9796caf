// Package control wires configuration into running clients and owns the
// application lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhdao/shield/internal/core/config"
	"github.com/minhdao/shield/internal/health"
	"github.com/minhdao/shield/internal/infra/redis"
	"github.com/minhdao/shield/internal/infra/storage/postgres"
	"github.com/minhdao/shield/internal/metrics"
	"github.com/minhdao/shield/internal/resilience"
	"github.com/minhdao/shield/internal/rpc"
	"github.com/minhdao/shield/internal/rpc/provider"
)

// App holds every long-lived component of the gateway.
type App struct {
	cfg          *config.AppConfig
	clients      map[string]*rpc.Client
	journals     map[string]*redis.FailureJournal
	archivers    []*postgres.Archiver
	healthServer *health.Server
	redisClient  *redis.Client
	db           *postgres.DB
	archiveRepo  *postgres.ArchiveRepo
	log          *slog.Logger

	cancel context.CancelFunc
}

// NewApp builds clients, sinks and the health server from config.
// Redis and Postgres are optional; they are skipped when unconfigured.
func NewApp(cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	app := &App{
		cfg:      cfg,
		clients:  make(map[string]*rpc.Client),
		journals: make(map[string]*redis.FailureJournal),
		log:      log,
	}

	if cfg.Redis.URL != "" {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.redisClient = rc
		log.Info("Failure journal enabled", "redis", cfg.Redis.URL)
	}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		app.db = db
		app.archiveRepo = postgres.NewArchiveRepo(db)
		log.Info("Attempt archive enabled")
	}

	var checkers []health.Checker
	for _, chain := range cfg.Chains {
		client, archiver, err := app.buildClient(chain)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chain.ID, err)
		}
		app.clients[chain.ID] = client
		if archiver != nil {
			app.archivers = append(app.archivers, archiver)
		}
		checkers = append(checkers, client)

		log.Info("Chain client ready",
			"chain", chain.ID,
			"provider", chain.Provider.Name,
			"protocol", chain.Provider.Protocol,
		)
	}

	app.healthServer = health.NewServer(checkers, cfg.Server.Port)
	if len(app.journals) > 0 || app.archiveRepo != nil {
		app.healthServer.Handle("/admin/", newAdminHandler(app.journals, app.archiveRepo, log))
	}

	return app, nil
}

func (a *App) buildClient(chain config.ChainConfig) (*rpc.Client, *postgres.Archiver, error) {
	var p provider.Provider
	switch chain.Provider.Protocol {
	case "grpc":
		gp, err := provider.NewGRPCProvider(chain.Provider.Name, chain.Provider.URL)
		if err != nil {
			return nil, nil, err
		}
		p = gp
	case "http", "":
		p = provider.NewHTTPProvider(chain.Provider.Name, chain.Provider.URL, chain.Provider.Timeout.Std())
	default:
		return nil, nil, fmt.Errorf("unknown provider protocol %q", chain.Provider.Protocol)
	}

	opts := []resilience.Option{
		resilience.WithLogger(a.log.With("chain", chain.ID)),
		resilience.WithBreaker(breakerConfig(a.cfg.Breaker, chain.ID)),
		resilience.WithSink(metrics.NewSink(chain.ID)),
	}

	if a.redisClient != nil {
		journal := redis.NewFailureJournal(a.redisClient, chain.ID)
		a.journals[chain.ID] = journal
		opts = append(opts, resilience.WithSink(newJournalSink(journal, a.log)))
	}

	var archiver *postgres.Archiver
	if a.archiveRepo != nil {
		archiver = postgres.NewArchiver(a.archiveRepo, chain.ID, a.log)
		opts = append(opts, resilience.WithSink(archiver))
	}

	retryCfg := a.cfg.Retry
	if chain.Retry != nil {
		retryCfg = *chain.Retry
	}

	exec := resilience.NewExecutor(retryPolicy(retryCfg), opts...)
	client := rpc.NewClient(chain.ID, p, exec)
	if archiver != nil {
		archiver.BindStats(client.AllStats)
	}
	return client, archiver, nil
}

// Start launches the archivers, the circuit-state gauge updater and the
// health server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	for _, archiver := range a.archivers {
		go archiver.Run(ctx)
	}

	go a.updateCircuitGauges(ctx)

	go func() {
		a.log.Info("Health server listening", "port", a.cfg.Server.Port)
		if err := a.healthServer.Start(); err != nil && ctx.Err() == nil {
			a.log.Error("Health server stopped", "error", err)
		}
	}()

	return nil
}

// Stop shuts everything down, honoring ctx as the deadline.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.healthServer.Stop(ctx); err != nil {
		a.log.Warn("Health server shutdown failed", "error", err)
	}

	for id, client := range a.clients {
		if err := client.Dispose(); err != nil {
			a.log.Warn("Client dispose failed", "chain", id, "error", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Redis close failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("DB close failed", "error", err)
		}
	}

	return nil
}

// Client returns the client for one chain, if configured.
func (a *App) Client(chainID string) (*rpc.Client, bool) {
	c, ok := a.clients[chainID]
	return c, ok
}

func (a *App) updateCircuitGauges(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for id, client := range a.clients {
				metrics.CircuitState.WithLabelValues(id).Set(float64(client.CircuitSnapshot().State))
			}
		}
	}
}

func retryPolicy(cfg config.RetryConfig) resilience.RetryPolicy {
	p := resilience.RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialDelay:    cfg.InitialDelay.Std(),
		MaxDelay:        cfg.MaxDelay.Std(),
		BackoffMultiple: cfg.BackoffMultiple,
		Jitter:          true,
		RequestTimeout:  cfg.RequestTimeout.Std(),
	}
	if cfg.Jitter != nil {
		p.Jitter = *cfg.Jitter
	}
	return p
}

func breakerConfig(cfg config.BreakerConfig, chainID string) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold:            cfg.FailureThreshold,
		ConsecutiveFailureThreshold: cfg.ConsecutiveFailureThreshold,
		ResetTimeout:                cfg.ResetTimeout.Std(),
		SuccessThreshold:            cfg.SuccessThreshold,
		OnStateChange: func(from, to resilience.CircuitState) {
			metrics.CircuitTransitions.WithLabelValues(chainID, from.String(), to.String()).Inc()
			metrics.CircuitState.WithLabelValues(chainID).Set(float64(to))
		},
	}
}
