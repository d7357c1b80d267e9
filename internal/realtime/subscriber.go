package realtime

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Subscriber streams a user's tip events from Redis.
type Subscriber struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSubscriber constructs a Subscriber.
func NewSubscriber(client *redis.Client, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{client: client, logger: logger}
}

// Subscribe returns a channel of events for the user. The channel is closed
// when ctx is cancelled; malformed payloads are logged and skipped.
func (s *Subscriber) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	pubsub := s.client.Subscribe(ctx, Channel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				event, err := decodeEvent(msg.Payload)
				if err != nil {
					s.logger.Warn("dropping malformed tip event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
