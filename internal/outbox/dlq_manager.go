package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQManager retries failed outbox messages and quarantines exhausted entries.
type DLQManager struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
}

// NewDLQManager constructs a DLQManager with the provided pool and retry configuration.
func NewDLQManager(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration) *DLQManager {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &DLQManager{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay}
}

// RunOnce processes a batch of due DLQ entries and returns how many were
// re-queued into the outbox.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (int, error) {
	const query = `SELECT dlq_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, partition_key, retry_count
        FROM outbox_dlq
        WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at
        LIMIT $1`

	rows, err := m.pool.Query(ctx, query, batchSize)
	if err != nil {
		return 0, err
	}
	entries, err := pgx.CollectRows(rows, scanDLQEntry)
	if err != nil {
		return 0, err
	}
	defer m.refreshBacklog(ctx)

	processed := 0
	for _, entry := range entries {
		requeued, procErr := m.handleEntry(ctx, entry)
		if procErr != nil {
			err = errors.Join(err, procErr)
			continue
		}
		if requeued {
			processed++
		}
	}
	return processed, err
}

// handleEntry applies retry or quarantine logic for a single DLQ entry.
func (m *DLQManager) handleEntry(ctx context.Context, entry dlqEntry) (bool, error) {
	requeued := false
	err := pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if entry.RetryCount >= m.maxRetries {
			_, err := tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`, "retry limit reached", entry.ID)
			if err == nil {
				recordDLQOutcome(entry, outcomeQuarantined)
			}
			return err
		}

		if insertErr := requeueOutbox(ctx, tx, entry); insertErr != nil {
			delay := m.backoffDelay(entry.RetryCount + 1)
			_, err := tx.Exec(ctx,
				`UPDATE outbox_dlq
                    SET retry_count = retry_count + 1,
                        last_attempt_at = NOW(),
                        next_retry_at = NOW() + $1::interval,
                        reason = $2
                  WHERE dlq_id = $3`,
				delay, insertErr.Error(), entry.ID,
			)
			if err == nil {
				recordDLQOutcome(entry, outcomeRetryScheduled)
			}
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID); err != nil {
			return err
		}
		requeued = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if requeued {
		recordDLQOutcome(entry, outcomeRequeued)
	}
	return requeued, nil
}

func (m *DLQManager) refreshBacklog(ctx context.Context) {
	var count int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklog.Set(float64(count))
}

// backoffDelay calculates exponential backoff capped at one hour.
func (m *DLQManager) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt-1)) * m.baseDelay
	if delay > time.Hour || delay <= 0 {
		delay = time.Hour
	}
	return delay
}

// requeueOutbox reinserts the payload into the primary outbox table for replay.
// The dedupe key is left empty so the replay does not collide with the original row.
func requeueOutbox(ctx context.Context, tx pgx.Tx, entry dlqEntry) error {
	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := tx.Exec(ctx, stmt,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Topic,
		entry.PartitionKey,
		entry.Payload,
	)
	return err
}

// dlqEntry represents an outbox_dlq row selected for processing.
type dlqEntry struct {
	ID            int64
	EventID       int64
	EventType     string
	Topic         string
	Payload       []byte
	Reason        string
	AggregateType string
	AggregateID   string
	PartitionKey  string
	RetryCount    int
}

func scanDLQEntry(row pgx.CollectableRow) (dlqEntry, error) {
	var entry dlqEntry
	err := row.Scan(&entry.ID, &entry.EventID, &entry.EventType, &entry.Topic, &entry.Payload, &entry.Reason, &entry.AggregateType, &entry.AggregateID, &entry.PartitionKey, &entry.RetryCount)
	return entry, err
}
