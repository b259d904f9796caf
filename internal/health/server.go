package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	checkers []Checker
	mux      *http.ServeMux
	server   *http.Server
}

// NewServer creates a new health server over the given checkers.
func NewServer(checkers []Checker, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checkers: checkers,
		mux:      mux,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handle registers an extra route (admin endpoints, pprof). Must be called
// before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the server's handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) report() []ChainReport {
	reports := make([]ChainReport, 0, len(s.checkers))
	for _, c := range s.checkers {
		snap := c.CircuitSnapshot()
		reports = append(reports, ChainReport{
			Chain:    c.ChainID(),
			Provider: c.ProviderName(),
			Status:   statusOf(snap.State),
			Circuit:  snap,
			Stats:    c.AllStats(),
		})
	}
	return reports
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := StatusHealthy

	// Aggregate status (worst case wins)
	for _, chain := range s.report() {
		if chain.Status == StatusCritical {
			status = StatusCritical
			break
		}
		if chain.Status == StatusDegraded {
			status = StatusDegraded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.report())
}
