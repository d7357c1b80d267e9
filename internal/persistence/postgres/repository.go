package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultActivityTopic = "activity_events"

// Repository provides Postgres-backed persistence for users, activities,
// reduction targets, weekly summaries and outbox events.
type Repository struct {
	pool          *pgxpool.Pool
	activityTopic string
}

// NewRepository constructs a Repository. activityTopic is the Kafka topic
// recorded on activity outbox rows.
func NewRepository(pool *pgxpool.Pool, activityTopic string) *Repository {
	if activityTopic == "" {
		activityTopic = defaultActivityTopic
	}
	return &Repository{pool: pool, activityTopic: activityTopic}
}

// Ping verifies the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type outboxEvent struct {
	aggregateType string
	aggregateID   string
	eventType     string
	topic         string
	partitionKey  string
	payload       any
}

func insertOutbox(ctx context.Context, tx pgx.Tx, event outboxEvent) error {
	body, err := json.Marshal(event.payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		event.aggregateType,
		event.aggregateID,
		event.eventType,
		event.topic,
		event.partitionKey,
		body,
		fmt.Sprintf("%s:%s", event.aggregateID, event.eventType),
	)
	return err
}
