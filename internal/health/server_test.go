package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minhdao/shield/internal/resilience"
)

type fakeChecker struct {
	chain string
	state resilience.CircuitState
}

func (f *fakeChecker) ChainID() string      { return f.chain }
func (f *fakeChecker) ProviderName() string { return "fake" }

func (f *fakeChecker) CircuitSnapshot() resilience.BreakerSnapshot {
	return resilience.BreakerSnapshot{State: f.state}
}

func (f *fakeChecker) AllStats() map[string]resilience.OperationStats {
	return map[string]resilience.OperationStats{
		"eth_blockNumber": {TotalAttempts: 3, SuccessfulAttempts: 3},
	}
}

func TestHealthEndpointAggregation(t *testing.T) {
	tests := []struct {
		name       string
		states     []resilience.CircuitState
		wantStatus Status
		wantCode   int
	}{
		{"all closed", []resilience.CircuitState{resilience.StateClosed, resilience.StateClosed}, StatusHealthy, http.StatusOK},
		{"one half-open", []resilience.CircuitState{resilience.StateClosed, resilience.StateHalfOpen}, StatusDegraded, http.StatusOK},
		{"one open", []resilience.CircuitState{resilience.StateHalfOpen, resilience.StateOpen}, StatusCritical, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var checkers []Checker
			for i, st := range tt.states {
				checkers = append(checkers, &fakeChecker{chain: string(rune('a' + i)), state: st})
			}
			s := NewServer(checkers, 0)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if body["status"] != string(tt.wantStatus) {
				t.Fatalf("status = %q, want %q", body["status"], tt.wantStatus)
			}
		})
	}
}

func TestHandleRegistersExtraRoute(t *testing.T) {
	s := NewServer(nil, 0)
	s.Handle("/admin/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/admin/failures", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestDetailedEndpoint(t *testing.T) {
	s := NewServer([]Checker{&fakeChecker{chain: "ethereum", state: resilience.StateClosed}}, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health/detailed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var reports []ChainReport
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(reports) != 1 || reports[0].Chain != "ethereum" {
		t.Fatalf("unexpected reports: %+v", reports)
	}
	if reports[0].Stats["eth_blockNumber"].TotalAttempts != 3 {
		t.Fatalf("stats not included: %+v", reports[0].Stats)
	}
}
