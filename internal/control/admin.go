package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/minhdao/shield/internal/infra/redis"
	"github.com/minhdao/shield/internal/infra/storage/postgres"
)

// failureJournal is the journal surface the admin endpoints expose.
// *redis.FailureJournal satisfies it.
type failureJournal interface {
	Recent(ctx context.Context, limit int64) ([]*redis.FailedCall, error)
	Resolve(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// failureArchive is the archive surface the admin endpoints expose.
// *postgres.ArchiveRepo satisfies it.
type failureArchive interface {
	RecentFailures(ctx context.Context, chain string, limit int) ([]postgres.AttemptRow, error)
}

// adminHandler serves the operational endpoints mounted under /admin/ on the
// health server: listing, counting and resolving journaled failures, and
// querying archived failed attempts.
type adminHandler struct {
	journals map[string]failureJournal
	archive  failureArchive
	log      *slog.Logger
}

func newAdminHandler(
	journals map[string]*redis.FailureJournal,
	archive *postgres.ArchiveRepo,
	log *slog.Logger,
) *adminHandler {
	h := &adminHandler{
		journals: make(map[string]failureJournal, len(journals)),
		log:      log,
	}
	for id, j := range journals {
		h.journals[id] = j
	}
	if archive != nil {
		h.archive = archive
	}
	return h
}

func (h *adminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/admin/failures":
		switch r.Method {
		case http.MethodGet:
			h.listFailures(w, r)
		case http.MethodDelete:
			h.resolveFailure(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "/admin/failures/count":
		h.countFailures(w, r)
	case "/admin/archive/failures":
		h.archivedFailures(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *adminHandler) journalFor(w http.ResponseWriter, r *http.Request) (failureJournal, bool) {
	chain := r.URL.Query().Get("chain")
	if chain == "" {
		http.Error(w, "missing chain parameter", http.StatusBadRequest)
		return nil, false
	}
	j, ok := h.journals[chain]
	if !ok {
		http.Error(w, "no journal for chain "+chain, http.StatusNotFound)
		return nil, false
	}
	return j, true
}

func (h *adminHandler) listFailures(w http.ResponseWriter, r *http.Request) {
	j, ok := h.journalFor(w, r)
	if !ok {
		return
	}

	limit := queryLimit(r, 50)
	entries, err := j.Recent(r.Context(), int64(limit))
	if err != nil {
		h.log.Error("failed to list journaled failures", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, entries)
}

func (h *adminHandler) resolveFailure(w http.ResponseWriter, r *http.Request) {
	j, ok := h.journalFor(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id parameter", http.StatusBadRequest)
		return
	}
	if err := j.Resolve(r.Context(), id); err != nil {
		h.log.Error("failed to resolve journaled failure", "id", id, "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"resolved": id})
}

func (h *adminHandler) countFailures(w http.ResponseWriter, r *http.Request) {
	j, ok := h.journalFor(w, r)
	if !ok {
		return
	}

	count, err := j.Count(r.Context())
	if err != nil {
		h.log.Error("failed to count journaled failures", "error", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]int{"count": count})
}

func (h *adminHandler) archivedFailures(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "attempt archive not configured", http.StatusNotFound)
		return
	}
	chain := r.URL.Query().Get("chain")
	if chain == "" {
		http.Error(w, "missing chain parameter", http.StatusBadRequest)
		return
	}

	rows, err := h.archive.RecentFailures(r.Context(), chain, queryLimit(r, 50))
	if err != nil {
		h.log.Error("failed to query archived failures", "chain", chain, "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
