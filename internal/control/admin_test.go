package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minhdao/shield/internal/infra/redis"
	"github.com/minhdao/shield/internal/infra/storage/postgres"
)

type fakeJournal struct {
	entries  []*redis.FailedCall
	resolved []string
}

func (f *fakeJournal) Recent(ctx context.Context, limit int64) ([]*redis.FailedCall, error) {
	if limit > 0 && int64(len(f.entries)) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeJournal) Resolve(ctx context.Context, id string) error {
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeJournal) Count(ctx context.Context) (int, error) {
	return len(f.entries), nil
}

type fakeArchive struct {
	rows []postgres.AttemptRow
}

func (f *fakeArchive) RecentFailures(ctx context.Context, chain string, limit int) ([]postgres.AttemptRow, error) {
	return f.rows, nil
}

func testAdminHandler(j *fakeJournal, a *fakeArchive) *adminHandler {
	h := &adminHandler{
		journals: map[string]failureJournal{"ethereum": j},
		log:      slog.Default(),
	}
	if a != nil {
		h.archive = a
	}
	return h
}

func TestAdminListFailures(t *testing.T) {
	journal := &fakeJournal{entries: []*redis.FailedCall{
		{ID: "a1", Chain: "ethereum", Operation: "eth_blockNumber", Attempts: 3, LastError: "timeout", FailedAt: time.Now()},
		{ID: "a2", Chain: "ethereum", Operation: "eth_getBalance", Attempts: 1, LastError: "invalid params", FailedAt: time.Now()},
	}}
	h := testAdminHandler(journal, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/failures?chain=ethereum", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []redis.FailedCall
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestAdminListFailuresUnknownChain(t *testing.T) {
	h := testAdminHandler(&fakeJournal{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/failures?chain=solana", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/failures", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status without chain = %d, want 400", rec.Code)
	}
}

func TestAdminResolveFailure(t *testing.T) {
	journal := &fakeJournal{}
	h := testAdminHandler(journal, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/failures?chain=ethereum&id=a1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(journal.resolved) != 1 || journal.resolved[0] != "a1" {
		t.Fatalf("resolved = %v, want [a1]", journal.resolved)
	}
}

func TestAdminCountFailures(t *testing.T) {
	journal := &fakeJournal{entries: []*redis.FailedCall{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}}
	h := testAdminHandler(journal, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/failures/count?chain=ethereum", nil))

	var got map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["count"] != 3 {
		t.Fatalf("count = %d, want 3", got["count"])
	}
}

func TestAdminArchivedFailures(t *testing.T) {
	archive := &fakeArchive{rows: []postgres.AttemptRow{
		{Chain: "ethereum", Operation: "eth_blockNumber", Attempt: 2, Error: "502 Bad Gateway"},
	}}
	h := testAdminHandler(&fakeJournal{}, archive)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/archive/failures?chain=ethereum&limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []postgres.AttemptRow
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].Error != "502 Bad Gateway" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestAdminArchivedFailuresUnconfigured(t *testing.T) {
	h := testAdminHandler(&fakeJournal{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/archive/failures?chain=ethereum", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
