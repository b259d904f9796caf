package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/minhdao/shield/internal/resilience"
)

// AttemptRow is one archived attempt. It doubles as the admin API response
// shape, hence the json tags.
type AttemptRow struct {
	ID             int64     `db:"id"               json:"id"`
	Chain          string    `db:"chain"            json:"chain"`
	Operation      string    `db:"operation"        json:"operation"`
	Attempt        int       `db:"attempt"          json:"attempt"`
	Succeeded      bool      `db:"succeeded"        json:"succeeded"`
	Error          string    `db:"error"            json:"error,omitempty"`
	ResponseTimeMs int64     `db:"response_time_ms" json:"response_time_ms"`
	RetryDelayMs   int64     `db:"retry_delay_ms"   json:"retry_delay_ms"`
	AttemptedAt    time.Time `db:"attempted_at"     json:"attempted_at"`
}

// ArchiveRepo persists attempt records and per-operation stat rollups.
type ArchiveRepo struct {
	db *DB
}

// NewArchiveRepo creates an archive repository.
func NewArchiveRepo(db *DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// SaveAttempts batch-inserts attempt records for one chain.
func (r *ArchiveRepo) SaveAttempts(ctx context.Context, chain string, recs []resilience.AttemptRecord) error {
	if len(recs) == 0 {
		return nil
	}

	rows := make([]AttemptRow, len(recs))
	for i, rec := range recs {
		rows[i] = AttemptRow{
			Chain:          chain,
			Operation:      rec.Operation,
			Attempt:        rec.Attempt,
			Succeeded:      rec.Succeeded,
			Error:          rec.Error,
			ResponseTimeMs: rec.ResponseTime.Milliseconds(),
			RetryDelayMs:   rec.NextRetryDelay.Milliseconds(),
			AttemptedAt:    rec.At,
		}
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO shield_attempts
			(chain, operation, attempt, succeeded, error, response_time_ms, retry_delay_ms, attempted_at)
		VALUES
			(:chain, :operation, :attempt, :succeeded, :error, :response_time_ms, :retry_delay_ms, :attempted_at)`,
		rows)
	if err != nil {
		return fmt.Errorf("failed to insert attempts: %w", err)
	}
	return nil
}

// SaveStats upserts the rollup row for one operation.
func (r *ArchiveRepo) SaveStats(
	ctx context.Context,
	chain, operation string,
	stats resilience.OperationStats,
) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shield_operation_stats
			(chain, operation, total_attempts, successful_attempts, failed_attempts,
			 total_delay_ms, avg_response_time_ms, last_attempt_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (chain, operation) DO UPDATE SET
			total_attempts       = EXCLUDED.total_attempts,
			successful_attempts  = EXCLUDED.successful_attempts,
			failed_attempts      = EXCLUDED.failed_attempts,
			total_delay_ms       = EXCLUDED.total_delay_ms,
			avg_response_time_ms = EXCLUDED.avg_response_time_ms,
			last_attempt_at      = EXCLUDED.last_attempt_at,
			updated_at           = now()`,
		chain, operation,
		stats.TotalAttempts, stats.SuccessfulAttempts, stats.FailedAttempts,
		stats.TotalDelay.Milliseconds(), stats.AverageResponseTime.Milliseconds(),
		stats.LastAttemptAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats: %w", err)
	}
	return nil
}

// RecentFailures returns the most recent failed attempts for one chain.
func (r *ArchiveRepo) RecentFailures(ctx context.Context, chain string, limit int) ([]AttemptRow, error) {
	var rows []AttemptRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, chain, operation, attempt, succeeded, error,
		       response_time_ms, retry_delay_ms, attempted_at
		FROM shield_attempts
		WHERE chain = $1 AND succeeded = false
		ORDER BY attempted_at DESC
		LIMIT $2`,
		chain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	return rows, nil
}
