// Package resilience bundles the circuit breaker and retry executor behind a
// single import.
//
// # Quick Start
//
//	exec := resilience.NewExecutor(resilience.DefaultRetryPolicy)
//	defer exec.Dispose()
//
//	result, err := exec.Execute(ctx, "eth_blockNumber", func(ctx context.Context) (any, error) {
//	    return provider.Call(ctx, "eth_blockNumber", nil)
//	})
//
// # Package Structure
//
//   - breaker/  - circuit breaker state machine
//   - executor/ - retry loop, backoff, error classification, stats/history
//
// Most types are re-exported here for convenience.
package resilience

import (
	"github.com/minhdao/shield/internal/resilience/breaker"
	"github.com/minhdao/shield/internal/resilience/executor"
)

// Breaker is the circuit breaker state machine.
type Breaker = breaker.Breaker

// BreakerConfig holds breaker thresholds.
type BreakerConfig = breaker.Config

// BreakerSnapshot is a point-in-time view of breaker counters.
type BreakerSnapshot = breaker.Snapshot

// CircuitState represents the breaker's state.
type CircuitState = breaker.State

// Breaker state constants
const (
	StateClosed   = breaker.StateClosed
	StateOpen     = breaker.StateOpen
	StateHalfOpen = breaker.StateHalfOpen
)

// Executor runs operations under retry, timeout and breaker protection.
type Executor = executor.Executor

// RetryPolicy defines retry behavior.
type RetryPolicy = executor.RetryPolicy

// Operation is a caller-supplied remote call.
type Operation = executor.Operation

// Classifier maps a failure to an ErrorType.
type Classifier = executor.Classifier

// ErrorType classifies a failure for retry purposes.
type ErrorType = executor.ErrorType

// AttemptRecord describes one physical attempt.
type AttemptRecord = executor.AttemptRecord

// OperationStats aggregates attempts made under one operation name.
type OperationStats = executor.OperationStats

// AttemptSink receives one record per attempt.
type AttemptSink = executor.AttemptSink

// Error type constants
const (
	ErrorTransient   = executor.ErrorTransient
	ErrorPermanent   = executor.ErrorPermanent
	ErrorCircuitOpen = executor.ErrorCircuitOpen
)

// ErrCircuitOpen is returned when the breaker rejects an attempt.
var ErrCircuitOpen = executor.ErrCircuitOpen

// DefaultRetryPolicy provides sensible retry defaults.
var DefaultRetryPolicy = executor.DefaultRetryPolicy

// DefaultBreakerConfig provides sensible breaker defaults.
var DefaultBreakerConfig = breaker.DefaultConfig

// NewBreaker creates a circuit breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return breaker.New(cfg)
}

// Option configures an Executor.
type Option = executor.Option

// NewExecutor creates a retry executor.
func NewExecutor(policy RetryPolicy, opts ...Option) *Executor {
	return executor.New(policy, opts...)
}

// WithBreaker overrides the executor's breaker config.
var WithBreaker = executor.WithBreaker

// WithLogger attaches a per-attempt logger.
var WithLogger = executor.WithLogger

// WithSink registers an attempt sink.
var WithSink = executor.WithSink

// ClassifyError is the default heuristic classifier.
var ClassifyError executor.Classifier = executor.ClassifyError
