package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/minhdao/shield/internal/resilience"
)

const (
	archiveBatchSize     = 100
	archiveFlushInterval = 5 * time.Second
	statsFlushInterval   = 30 * time.Second
)

// archiveStore is the subset of ArchiveRepo the archiver writes through.
type archiveStore interface {
	SaveAttempts(ctx context.Context, chain string, recs []resilience.AttemptRecord) error
	SaveStats(ctx context.Context, chain, operation string, stats resilience.OperationStats) error
}

// Archiver buffers attempt records and writes them to the archive in
// batches, and periodically rolls the executor's per-operation stats into
// their upsert rows. It implements resilience.AttemptSink; ObserveAttempt
// never blocks the retry loop — records are dropped if the buffer is full.
type Archiver struct {
	store archiveStore
	chain string
	in    chan resilience.AttemptRecord
	stats func() map[string]resilience.OperationStats
	log   *slog.Logger
}

// NewArchiver creates an archiver for one chain.
func NewArchiver(store archiveStore, chain string, log *slog.Logger) *Archiver {
	return &Archiver{
		store: store,
		chain: chain,
		in:    make(chan resilience.AttemptRecord, 1024),
		log:   log,
	}
}

// BindStats sets the source of per-operation stats to roll up, typically the
// owning client's AllStats. Must be called before Run.
func (a *Archiver) BindStats(source func() map[string]resilience.OperationStats) {
	a.stats = source
}

// ObserveAttempt queues one record for archival.
func (a *Archiver) ObserveAttempt(rec resilience.AttemptRecord) {
	select {
	case a.in <- rec:
	default:
		a.log.Warn("attempt archive buffer full, dropping record",
			"chain", a.chain, "operation", rec.Operation)
	}
}

// Run drains the buffer until ctx is cancelled, flushing on batch size or
// the flush interval, whichever comes first. Stats roll up on their own
// slower interval. Both get a final flush on shutdown.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(archiveFlushInterval)
	defer ticker.Stop()
	statsTicker := time.NewTicker(statsFlushInterval)
	defer statsTicker.Stop()

	batch := make([]resilience.AttemptRecord, 0, archiveBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Shutdown-safe: the write uses its own deadline, not ctx.
		writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.store.SaveAttempts(writeCtx, a.chain, batch); err != nil {
			a.log.Error("failed to archive attempts", "chain", a.chain, "error", err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			a.flushStats()
			return
		case rec := <-a.in:
			batch = append(batch, rec)
			if len(batch) >= archiveBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-statsTicker.C:
			a.flushStats()
		}
	}
}

func (a *Archiver) flushStats() {
	if a.stats == nil {
		return
	}
	all := a.stats()
	if len(all) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for operation, stats := range all {
		if err := a.store.SaveStats(ctx, a.chain, operation, stats); err != nil {
			a.log.Error("failed to upsert operation stats",
				"chain", a.chain, "operation", operation, "error", err)
			return
		}
	}
}
