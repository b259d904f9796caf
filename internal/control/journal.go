package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/minhdao/shield/internal/infra/redis"
	"github.com/minhdao/shield/internal/resilience"
)

// journalSink writes terminal failures to the Redis failure journal.
//
// A record is terminal when it failed and no retry is scheduled: the last
// transient attempt, a permanent failure, or a circuit-open denial.
type journalSink struct {
	journal *redis.FailureJournal
	log     *slog.Logger
}

func newJournalSink(journal *redis.FailureJournal, log *slog.Logger) *journalSink {
	return &journalSink{journal: journal, log: log}
}

func (s *journalSink) ObserveAttempt(rec resilience.AttemptRecord) {
	if rec.Succeeded || rec.NextRetryDelay > 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.journal.Record(ctx, redis.FailedCall{
		Operation: rec.Operation,
		Attempts:  rec.Attempt,
		LastError: rec.Error,
		FailedAt:  rec.At,
	})
	if err != nil {
		s.log.Warn("failed to journal call failure", "operation", rec.Operation, "error", err)
	}
}
