// Package metrics exposes Prometheus metrics for the resilience layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks attempts per operation and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_attempts_total",
			Help: "Total number of RPC attempts",
		},
		[]string{"chain", "operation", "outcome"},
	)

	// ErrorsTotal tracks failed attempts per operation and error type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_errors_total",
			Help: "Total number of failed RPC attempts",
		},
		[]string{"chain", "operation", "error_type"},
	)

	// AttemptDuration tracks per-attempt response time
	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shield_attempt_duration_seconds",
			Help:    "RPC attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "operation"},
	)

	// RetryDelay tracks scheduled backoff delays
	RetryDelay = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shield_retry_delay_seconds",
			Help:    "Scheduled backoff delay before the next attempt",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"chain"},
	)

	// CircuitTransitions counts breaker state changes per chain
	CircuitTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_circuit_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"chain", "from", "to"},
	)

	// CircuitState tracks the breaker state per chain (0=closed, 1=open, 2=half-open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shield_circuit_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"chain"},
	)
)
