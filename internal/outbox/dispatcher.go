// Package outbox delivers events written alongside domain rows to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

// MessageWriter writes records to a named topic.
type MessageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClaimTimeout sets how long a claimed row stays invisible to other
// dispatchers before it is considered abandoned and claimed again.
func WithClaimTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.claimTimeout = timeout
		}
	}
}

const defaultClaimTimeout = 5 * time.Minute

// Dispatcher drains the outbox table and delivers events to Kafka as JSON.
type Dispatcher struct {
	pool             *pgxpool.Pool
	producer         MessageWriter
	dlq              *DLQWriter
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	claimTimeout     time.Duration
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, producer MessageWriter, pollInterval time.Duration, batchSize int, opts ...Option) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 25
	}
	d := &Dispatcher{
		pool:             pool,
		producer:         producer,
		dlq:              NewDLQWriter(pool),
		logger:           slog.Default().With("component", "outbox"),
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		claimTimeout:     defaultClaimTimeout,
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("outbox batch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the dispatcher loop has stopped.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	start := time.Now()

	messages, err := d.fetchAndClaim(ctx)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()
	batchEvents.Observe(float64(len(messages)))

	if err := d.deliver(ctx, messages); err != nil {
		d.logger.Warn("outbox delivery failed, routing batch to dlq", "events", len(messages), "error", err)
		countByEventType(failedEvents, messages)
		if dlqErr := d.moveToDLQ(ctx, messages, err.Error()); dlqErr != nil {
			return dlqErr
		}
		return d.markPublished(ctx, messages)
	}

	countByEventType(publishedEvents, messages)
	return d.markPublished(ctx, messages)
}

func (d *Dispatcher) fetchAndClaim(ctx context.Context) ([]Message, error) {
	var messages []Message
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		// Rows claimed by another dispatcher are skipped until the claim expires.
		const query = `SELECT event_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload
            FROM outbox
            WHERE published_at IS NULL
              AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
            ORDER BY event_id
            LIMIT $1
            FOR UPDATE SKIP LOCKED`

		rows, err := tx.Query(ctx, query, d.batchSize, d.claimTimeout)
		if err != nil {
			return err
		}
		messages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
			var msg Message
			err := row.Scan(&msg.EventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Topic, &msg.PartitionKey, &msg.Payload)
			return msg, err
		})
		if err != nil || len(messages) == 0 {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, eventIDs(messages))
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (d *Dispatcher) deliver(ctx context.Context, messages []Message) error {
	batches := make(map[string][]kafka.Message)
	order := make([]string, 0, 1)

	for _, msg := range messages {
		if !json.Valid(msg.Payload) {
			return fmt.Errorf("event %d has an invalid payload", msg.EventID)
		}
		if _, seen := batches[msg.Topic]; !seen {
			order = append(order, msg.Topic)
		}
		batches[msg.Topic] = append(batches[msg.Topic], msg.Record())
	}

	for _, topic := range order {
		if err := d.producer.WriteMessages(ctx, topic, batches[topic]...); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) markPublished(ctx context.Context, messages []Message) error {
	_, err := d.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, eventIDs(messages))
	return err
}

func (d *Dispatcher) moveToDLQ(ctx context.Context, messages []Message, reason string) error {
	for _, msg := range messages {
		entryReason := fmt.Sprintf("%s (topic=%s)", reason, msg.Topic)
		if err := d.dlq.Write(ctx, msg, entryReason); err != nil {
			return err
		}
		deadLetteredEvents.WithLabelValues(msg.Topic, msg.EventType).Inc()
	}
	return nil
}

// Message represents a row fetched from outbox.
type Message struct {
	EventID       int64
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	PartitionKey  string
	Payload       json.RawMessage
}

// Record converts the row into the Kafka record consumed downstream. The
// partition key doubles as the user_id header since events are keyed by user.
func (m Message) Record() kafka.Message {
	return kafka.Message{
		Key:   []byte(m.PartitionKey),
		Value: []byte(m.Payload),
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(m.EventType)},
			{Key: "user_id", Value: []byte(m.PartitionKey)},
			{Key: "aggregate_type", Value: []byte(m.AggregateType)},
			{Key: "aggregate_id", Value: []byte(m.AggregateID)},
		},
	}
}

func eventIDs(messages []Message) []int64 {
	ids := make([]int64, len(messages))
	for i, msg := range messages {
		ids[i] = msg.EventID
	}
	return ids
}
