package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minhdao/shield/internal/resilience"
)

// fakeProvider fails a configured number of times before succeeding.
type fakeProvider struct {
	failures int
	calls    int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	return "0x1", nil
}

func (f *fakeProvider) Close() error { return nil }

func testExecutor(maxAttempts int) *resilience.Executor {
	return resilience.NewExecutor(resilience.RetryPolicy{
		MaxAttempts:     maxAttempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
		RequestTimeout:  time.Second,
	})
}

func TestClientRetriesThroughExecutor(t *testing.T) {
	p := &fakeProvider{failures: 2}
	c := NewClient("ethereum", p, testExecutor(3))
	defer c.Dispose()

	result, err := c.Call(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0x1" {
		t.Fatalf("result = %v, want 0x1", result)
	}
	if p.calls != 3 {
		t.Fatalf("provider called %d times, want 3", p.calls)
	}

	stats, ok := c.Stats("eth_blockNumber")
	if !ok || stats.FailedAttempts != 2 || stats.SuccessfulAttempts != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestClientCircuitAdministration(t *testing.T) {
	p := &fakeProvider{failures: 100}
	c := NewClient("ethereum", p, testExecutor(5))
	defer c.Dispose()

	_, err := c.Call(context.Background(), "eth_getLogs", nil)
	if err == nil {
		t.Fatal("expected exhausted retries")
	}

	// Five straight failures trip the default breaker.
	if got := c.CircuitSnapshot().State; got != resilience.StateOpen {
		t.Fatalf("circuit state = %v, want %v", got, resilience.StateOpen)
	}

	c.ResetCircuit()
	if got := c.CircuitSnapshot().State; got != resilience.StateClosed {
		t.Fatalf("circuit state after reset = %v, want %v", got, resilience.StateClosed)
	}

	if len(c.History(0)) == 0 {
		t.Fatal("history should record the failed attempts")
	}
	c.ClearStats()
	if len(c.AllStats()) != 0 {
		t.Fatal("stats should be empty after clear")
	}
}
