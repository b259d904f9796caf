// Package executor runs remote operations under retry, timeout and
// circuit-breaker protection.
//
// An Executor owns one circuit breaker, one per-operation stats map and one
// bounded attempt history. Concurrent Execute calls share all three.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minhdao/shield/internal/resilience/breaker"
)

// Operation is a caller-supplied remote call. It is opaque to the executor:
// it may be a JSON-RPC request, a gRPC call, or anything else that returns a
// result or fails. Implementations should honor ctx so timed-out attempts
// are actually abandoned.
type Operation func(ctx context.Context) (any, error)

// AttemptSink receives one record per physical attempt. Sinks are
// pass-through collaborators (logging, metrics, persistence); they must not
// block for long.
type AttemptSink interface {
	ObserveAttempt(rec AttemptRecord)
}

// Executor composes the breaker, backoff and classifier into a retry loop.
type Executor struct {
	policy  RetryPolicy
	breaker *breaker.Breaker
	rec     *recorder
	log     *slog.Logger
	sinks   []AttemptSink
}

// Option configures an Executor.
type Option func(*Executor)

// WithBreaker overrides the default breaker config.
func WithBreaker(cfg breaker.Config) Option {
	return func(e *Executor) {
		e.breaker = breaker.New(cfg)
	}
}

// WithLogger attaches a logger that gets one line per attempt.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		e.log = log
	}
}

// WithSink registers an attempt sink. May be given multiple times.
func WithSink(s AttemptSink) Option {
	return func(e *Executor) {
		e.sinks = append(e.sinks, s)
	}
}

// New creates an executor with the given policy. Zero policy fields fall
// back to DefaultRetryPolicy values.
func New(policy RetryPolicy, opts ...Option) *Executor {
	e := &Executor{
		policy:  policy.withDefaults(),
		breaker: breaker.New(breaker.DefaultConfig),
		rec:     newRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs op under the given operation name using the default
// classifier.
func (e *Executor) Execute(ctx context.Context, name string, op Operation) (any, error) {
	return e.ExecuteWith(ctx, name, op, nil)
}

// ExecuteWith runs op with a caller-supplied classifier.
//
// The operation is attempted up to MaxAttempts times. Each attempt races
// against RequestTimeout; transient failures back off exponentially before
// the next attempt, permanent and circuit-open failures surface immediately.
// Intermediate failures are never returned, only accumulated into stats and
// history; the caller sees a single terminal outcome.
func (e *Executor) ExecuteWith(
	ctx context.Context,
	name string,
	op Operation,
	classify Classifier,
) (any, error) {
	if classify == nil {
		classify = ClassifyError
	}

	if !e.breaker.Gate() {
		err := fmt.Errorf("%s rejected: %w", name, ErrCircuitOpen)
		// No underlying call was made; record a zero-duration attempt. The
		// denial itself is not scored as a breaker failure.
		e.observe(AttemptRecord{
			Operation: name,
			Attempt:   1,
			Error:     err.Error(),
			At:        time.Now(),
		})
		return nil, err
	}

	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		result, elapsed, err := e.runAttempt(ctx, op)

		if err == nil {
			e.breaker.RecordSuccess()
			e.observe(AttemptRecord{
				Operation:    name,
				Attempt:      attempt,
				Succeeded:    true,
				ResponseTime: elapsed,
				At:           time.Now(),
			})
			return result, nil
		}

		lastErr = err
		e.breaker.RecordFailure()

		kind := classify(err)
		if kind != ErrorTransient {
			e.observe(AttemptRecord{
				Operation:    name,
				Attempt:      attempt,
				Error:        err.Error(),
				ResponseTime: elapsed,
				At:           time.Now(),
			})
			return nil, err
		}

		if attempt == e.policy.MaxAttempts {
			e.observe(AttemptRecord{
				Operation:    name,
				Attempt:      attempt,
				Error:        err.Error(),
				ResponseTime: elapsed,
				At:           time.Now(),
			})
			break
		}

		delay := Backoff(attempt, e.policy)
		e.observe(AttemptRecord{
			Operation:      name,
			Attempt:        attempt,
			Error:          err.Error(),
			ResponseTime:   elapsed,
			NextRetryDelay: delay,
			At:             time.Now(),
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%s failed after %d attempts: %w", name, e.policy.MaxAttempts, lastErr)
}

// runAttempt races op against the per-attempt timeout. The timeout is
// propagated through ctx so transports that honor cancellation abandon the
// call; a settlement arriving after the deadline is discarded either way.
func (e *Executor) runAttempt(ctx context.Context, op Operation) (any, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.policy.RequestTimeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		result, err := op(attemptCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, time.Since(start),
				fmt.Errorf("request timed out after %s", e.policy.RequestTimeout)
		}
		return o.result, time.Since(start), o.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, time.Since(start), ctx.Err()
		}
		return nil, time.Since(start),
			fmt.Errorf("request timed out after %s", e.policy.RequestTimeout)
	}
}

func (e *Executor) observe(rec AttemptRecord) {
	e.rec.record(rec)

	if e.log != nil {
		e.log.Debug("attempt finished",
			"operation", rec.Operation,
			"attempt", rec.Attempt,
			"succeeded", rec.Succeeded,
			"response_time", rec.ResponseTime,
			"next_retry_delay", rec.NextRetryDelay,
			"error", rec.Error,
		)
	}

	for _, s := range e.sinks {
		s.ObserveAttempt(rec)
	}
}

// Snapshot returns the breaker's current counters.
func (e *Executor) Snapshot() breaker.Snapshot {
	return e.breaker.Snapshot()
}

// ResetBreaker forces the breaker closed.
func (e *Executor) ResetBreaker() {
	e.breaker.Reset()
}

// Stats returns stats for one operation name.
func (e *Executor) Stats(name string) (OperationStats, bool) {
	return e.rec.operationStats(name)
}

// AllStats returns stats for every operation seen so far.
func (e *Executor) AllStats() map[string]OperationStats {
	return e.rec.allStats()
}

// ClearStats drops all per-operation stats.
func (e *Executor) ClearStats() {
	e.rec.clear()
}

// History returns up to limit attempt records, most recent last.
func (e *Executor) History(limit int) []AttemptRecord {
	return e.rec.recent(limit)
}

// Dispose releases the breaker's cooldown timer. Safe to call repeatedly.
func (e *Executor) Dispose() {
	e.breaker.Dispose()
}
