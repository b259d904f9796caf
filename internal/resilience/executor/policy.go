package executor

import "time"

// RetryPolicy defines retry behavior for an executor.
// A policy is immutable for the lifetime of an executor; swap the executor to
// change it.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
	Jitter          bool
	RequestTimeout  time.Duration
}

// DefaultRetryPolicy provides sensible defaults.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     5,
	InitialDelay:    1 * time.Second,
	MaxDelay:        60 * time.Second,
	BackoffMultiple: 2.0,
	Jitter:          true,
	RequestTimeout:  30 * time.Second,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if p.BackoffMultiple <= 0 {
		p.BackoffMultiple = DefaultRetryPolicy.BackoffMultiple
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = DefaultRetryPolicy.RequestTimeout
	}
	return p
}
