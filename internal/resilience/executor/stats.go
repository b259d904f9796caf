package executor

import (
	"sync"
	"time"
)

// historyLimit bounds the shared attempt log. Oldest entries drop first.
const historyLimit = 1000

// AttemptRecord describes one physical attempt, success or failure.
type AttemptRecord struct {
	Operation      string        `json:"operation"`
	Attempt        int           `json:"attempt"`
	Succeeded      bool          `json:"succeeded"`
	Error          string        `json:"error,omitempty"`
	ResponseTime   time.Duration `json:"response_time"`
	NextRetryDelay time.Duration `json:"next_retry_delay,omitempty"`
	At             time.Time     `json:"at"`
}

// OperationStats aggregates attempts made under one operation name.
type OperationStats struct {
	TotalAttempts       int           `json:"total_attempts"`
	SuccessfulAttempts  int           `json:"successful_attempts"`
	FailedAttempts      int           `json:"failed_attempts"`
	TotalDelay          time.Duration `json:"total_delay"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	LastAttemptAt       time.Time     `json:"last_attempt_at"`

	totalResponseTime time.Duration
}

// recorder owns the stats map and attempt history. It is the single mutation
// point for state shared across concurrent Execute calls.
type recorder struct {
	mu      sync.Mutex
	stats   map[string]*OperationStats
	history []AttemptRecord
}

func newRecorder() *recorder {
	return &recorder{
		stats: make(map[string]*OperationStats),
	}
}

// record appends one attempt and folds it into the operation's stats.
// The average response time is a cumulative running average over the
// operation's lifetime, not just the current Execute call.
func (r *recorder) record(rec AttemptRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, rec)
	if len(r.history) > historyLimit {
		r.history = r.history[len(r.history)-historyLimit:]
	}

	s, ok := r.stats[rec.Operation]
	if !ok {
		s = &OperationStats{}
		r.stats[rec.Operation] = s
	}

	s.TotalAttempts++
	if rec.Succeeded {
		s.SuccessfulAttempts++
	} else {
		s.FailedAttempts++
	}
	s.TotalDelay += rec.NextRetryDelay
	s.totalResponseTime += rec.ResponseTime
	s.AverageResponseTime = s.totalResponseTime / time.Duration(s.TotalAttempts)
	s.LastAttemptAt = rec.At
}

// operationStats returns a copy of the named operation's stats.
func (r *recorder) operationStats(name string) (OperationStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[name]
	if !ok {
		return OperationStats{}, false
	}
	return *s, true
}

// allStats returns a copy of every operation's stats.
func (r *recorder) allStats() map[string]OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]OperationStats, len(r.stats))
	for name, s := range r.stats {
		out[name] = *s
	}
	return out
}

// clear drops all stats. History is unaffected.
func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = make(map[string]*OperationStats)
}

// recent returns up to limit records, most recent last. A non-positive limit
// returns the whole retained history.
func (r *recorder) recent(limit int) []AttemptRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.history)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]AttemptRecord, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}
