package executor

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before the retry that follows the given 1-based
// attempt: min(initial * multiple^(attempt-1), max), plus up to 10% uniform
// jitter when enabled. The result is floored to a whole millisecond.
func Backoff(attempt int, p RetryPolicy) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiple, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		delay += rand.Float64() * delay * 0.10
	}

	return time.Duration(delay).Truncate(time.Millisecond)
}
