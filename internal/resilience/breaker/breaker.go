// Package breaker implements a three-state circuit breaker for RPC targets.
//
// The breaker gates whether an attempt may be sent to a target that has been
// failing. It is Closed while the target is healthy, trips Open once failure
// thresholds are crossed, and probes the target again through HalfOpen after
// a cooldown.
package breaker

import (
	"sync"
	"time"
)

// State represents the breaker's position in its state machine.
type State int

const (
	StateClosed   State = iota // Attempts allowed, failures counted
	StateOpen                  // Attempts rejected until cooldown elapses
	StateHalfOpen              // Probe attempts allowed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold trips the breaker on total failures since the last
	// close, regardless of ordering.
	FailureThreshold int

	// ConsecutiveFailureThreshold trips the breaker on an unbroken failure
	// streak.
	ConsecutiveFailureThreshold int

	// ResetTimeout is how long the breaker stays Open before allowing a
	// half-open probe.
	ResetTimeout time.Duration

	// SuccessThreshold is how many half-open probes must succeed before the
	// breaker closes again.
	SuccessThreshold int

	// OnStateChange, when set, is invoked on every state transition. It runs
	// synchronously with the breaker's lock held: keep it fast and never call
	// back into the Breaker.
	OnStateChange func(from, to State)
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	FailureThreshold:            5,
	ConsecutiveFailureThreshold: 3,
	ResetTimeout:                60 * time.Second,
	SuccessThreshold:            2,
}

// Snapshot is a point-in-time view of the breaker's counters.
type Snapshot struct {
	State               State     `json:"state"`
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at,omitempty"`
	LastSuccessAt       time.Time `json:"last_success_at,omitempty"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
	TotalRequests       int       `json:"total_requests"`
}

// Breaker is a mutex-guarded circuit breaker.
// All methods are safe for concurrent use.
type Breaker struct {
	mu  sync.Mutex
	cfg Config

	state               State
	successCount        int
	failureCount        int
	consecutiveFailures int
	lastFailureAt       time.Time
	lastSuccessAt       time.Time
	openedAt            time.Time

	resetTimer *time.Timer
	disposed   bool

	now func() time.Time
}

// New creates a breaker with the given config. Zero fields fall back to
// DefaultConfig values.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if cfg.ConsecutiveFailureThreshold <= 0 {
		cfg.ConsecutiveFailureThreshold = DefaultConfig.ConsecutiveFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig.ResetTimeout
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultConfig.SuccessThreshold
	}

	return &Breaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// Gate reports whether an attempt may proceed.
//
// While Open, the check itself performs the lazy Open->HalfOpen transition
// once ResetTimeout has elapsed, so recovery happens via the earlier of the
// cooldown timer or the next probe.
func (b *Breaker) Gate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
			b.toHalfOpenLocked()
			return true
		}
		return false
	}
	return false
}

// RecordSuccess records a successful attempt.
// A success always resets the consecutive-failure streak. While half-open,
// enough successes close the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.consecutiveFailures = 0
	b.lastSuccessAt = b.now()

	if b.state == StateHalfOpen && b.successCount >= b.cfg.SuccessThreshold {
		b.toClosedLocked()
	}
}

// RecordFailure records a failed attempt, tripping the breaker when a
// threshold is crossed. A failed half-open probe trips immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.consecutiveFailures++
	b.lastFailureAt = b.now()

	if b.state == StateHalfOpen {
		b.toOpenLocked()
		return
	}

	if b.state == StateClosed &&
		(b.consecutiveFailures >= b.cfg.ConsecutiveFailureThreshold ||
			b.failureCount >= b.cfg.FailureThreshold) {
		b.toOpenLocked()
	}
}

// Snapshot returns the current counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:               b.state,
		SuccessCount:        b.successCount,
		FailureCount:        b.failureCount,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailureAt:       b.lastFailureAt,
		LastSuccessAt:       b.lastSuccessAt,
		OpenedAt:            b.openedAt,
		TotalRequests:       b.successCount + b.failureCount,
	}
}

// Reset forces the breaker Closed and zeroes all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toClosedLocked()
}

// Dispose cancels the pending cooldown timer. Safe to call multiple times.
func (b *Breaker) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.disposed = true
	b.stopTimerLocked()
}

func (b *Breaker) setStateLocked(next State) {
	prev := b.state
	b.state = next
	if b.cfg.OnStateChange != nil && prev != next {
		b.cfg.OnStateChange(prev, next)
	}
}

func (b *Breaker) toOpenLocked() {
	b.setStateLocked(StateOpen)
	b.openedAt = b.now()
	b.successCount = 0

	b.stopTimerLocked()
	if !b.disposed {
		b.resetTimer = time.AfterFunc(b.cfg.ResetTimeout, b.onResetTimeout)
	}
}

func (b *Breaker) toHalfOpenLocked() {
	b.setStateLocked(StateHalfOpen)
	b.successCount = 0
	// Clear failure counters so closed-state thresholds start fresh once the
	// breaker closes; a failed probe re-opens directly regardless.
	b.failureCount = 0
	b.consecutiveFailures = 0
	b.stopTimerLocked()
}

func (b *Breaker) toClosedLocked() {
	b.setStateLocked(StateClosed)
	b.successCount = 0
	b.failureCount = 0
	b.consecutiveFailures = 0
	b.openedAt = time.Time{}
	b.stopTimerLocked()
}

func (b *Breaker) onResetTimeout() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed || b.state != StateOpen {
		return
	}
	b.toHalfOpenLocked()
}

func (b *Breaker) stopTimerLocked() {
	if b.resetTimer != nil {
		b.resetTimer.Stop()
		b.resetTimer = nil
	}
}
