package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// entryTTL bounds how long journal payloads are retained.
const entryTTL = 24 * time.Hour

// FailedCall is one terminal failure persisted for later inspection.
type FailedCall struct {
	ID        string    `json:"id"`
	Chain     string    `json:"chain"`
	Operation string    `json:"operation"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}

// FailureJournal persists terminal call failures to Redis, keyed per chain.
// Entries live in a sorted set ordered by failure time, with the payload
// stored separately under a TTL.
type FailureJournal struct {
	rdb   *redis.Client
	chain string
}

// NewFailureJournal creates a journal for one chain.
func NewFailureJournal(client *Client, chain string) *FailureJournal {
	return &FailureJournal{
		rdb:   client.rdb,
		chain: chain,
	}
}

func (j *FailureJournal) queueKey() string {
	return fmt.Sprintf("failed_calls:%s", j.chain)
}

func (j *FailureJournal) entryKey(id string) string {
	return fmt.Sprintf("failed_call:%s:%s", j.chain, id)
}

// Record appends a terminal failure to the journal.
func (j *FailureJournal) Record(ctx context.Context, fc FailedCall) error {
	if fc.ID == "" {
		fc.ID = uuid.NewString()
	}
	if fc.FailedAt.IsZero() {
		fc.FailedAt = time.Now()
	}
	fc.Chain = j.chain

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if err := j.rdb.Set(ctx, j.entryKey(fc.ID), data, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set journal entry: %w", err)
	}

	if err := j.rdb.ZAdd(ctx, j.queueKey(), redis.Z{
		Score:  float64(fc.FailedAt.Unix()),
		Member: fc.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to journal index: %w", err)
	}

	return nil
}

// Recent returns up to limit entries, oldest first.
func (j *FailureJournal) Recent(ctx context.Context, limit int64) ([]*FailedCall, error) {
	if limit <= 0 {
		limit = -1
	} else {
		limit--
	}

	ids, err := j.rdb.ZRange(ctx, j.queueKey(), 0, limit).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	entries := make([]*FailedCall, 0, len(ids))
	for _, id := range ids {
		data, err := j.rdb.Get(ctx, j.entryKey(id)).Bytes()
		if err == redis.Nil {
			// Payload expired but the index entry lingers; drop it.
			j.rdb.ZRem(ctx, j.queueKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get journal entry: %w", err)
		}

		var fc FailedCall
		if err := json.Unmarshal(data, &fc); err != nil {
			continue
		}
		entries = append(entries, &fc)
	}

	return entries, nil
}

// Resolve removes an entry that has been handled.
func (j *FailureJournal) Resolve(ctx context.Context, id string) error {
	if err := j.rdb.ZRem(ctx, j.queueKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from journal index: %w", err)
	}
	if err := j.rdb.Del(ctx, j.entryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return nil
}

// Count returns the number of journaled failures.
func (j *FailureJournal) Count(ctx context.Context) (int, error) {
	count, err := j.rdb.ZCard(ctx, j.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

// Clear drops the whole journal for this chain.
func (j *FailureJournal) Clear(ctx context.Context) error {
	ids, err := j.rdb.ZRange(ctx, j.queueKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}
	for _, id := range ids {
		if err := j.rdb.Del(ctx, j.entryKey(id)).Err(); err != nil {
			return fmt.Errorf("failed to delete journal entry: %w", err)
		}
	}
	return j.rdb.Del(ctx, j.queueKey()).Err()
}
