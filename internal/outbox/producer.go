package outbox

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer writes outbox records through one shared kafka.Writer. The
// writer carries no topic of its own; each record names its topic, and the
// hash balancer keeps every event for a user on the same partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer for the given brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

// WriteMessages stamps topic on every record and writes them in one call.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writer.WriteMessages(ctx, withTopic(topic, msgs)...)
}

// Close flushes pending writes and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func withTopic(topic string, msgs []kafka.Message) []kafka.Message {
	out := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		out[i] = msg
	}
	return out
}
