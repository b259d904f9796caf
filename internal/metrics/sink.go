package metrics

import (
	"github.com/minhdao/shield/internal/resilience"
)

// Sink feeds executor attempt records into the Prometheus vectors.
// It implements resilience.AttemptSink.
type Sink struct {
	chain    string
	classify resilience.Classifier
}

// NewSink creates a metrics sink for one chain.
func NewSink(chain string) *Sink {
	return &Sink{
		chain:    chain,
		classify: resilience.ClassifyError,
	}
}

// ObserveAttempt records one attempt.
func (s *Sink) ObserveAttempt(rec resilience.AttemptRecord) {
	outcome := "failure"
	if rec.Succeeded {
		outcome = "success"
	}
	AttemptsTotal.WithLabelValues(s.chain, rec.Operation, outcome).Inc()
	AttemptDuration.WithLabelValues(s.chain, rec.Operation).Observe(rec.ResponseTime.Seconds())

	if !rec.Succeeded {
		kind := classifyText(rec.Error, s.classify)
		ErrorsTotal.WithLabelValues(s.chain, rec.Operation, kind).Inc()
	}
	if rec.NextRetryDelay > 0 {
		RetryDelay.WithLabelValues(s.chain).Observe(rec.NextRetryDelay.Seconds())
	}
}

// classifyText re-runs the classifier over the recorded error text. Records
// carry the message, not the original error value.
func classifyText(msg string, classify resilience.Classifier) string {
	if msg == "" {
		return "unknown"
	}
	return classify(textError(msg)).String()
}

type textError string

func (e textError) Error() string { return string(e) }
