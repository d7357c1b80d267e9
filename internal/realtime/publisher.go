package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

// Redis is the subset of the go-redis client the publisher needs.
type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// BreakerConfig tunes the circuit breaker guarding Redis publishes.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Publisher pushes tip events to per-user Redis channels. Once Redis keeps
// failing the breaker opens and publishes fail fast with gobreaker.ErrOpenState.
type Publisher struct {
	client  Redis
	breaker *gobreaker.CircuitBreaker[int64]
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher constructs a Publisher.
func NewPublisher(client Redis, cfg BreakerConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	p := &Publisher{
		client: client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	p.breaker = gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "redis-tips",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			recordBreakerState(to)
		},
	})
	return p
}

// PublishActivityTip sends the tip generated for a freshly logged activity.
func (p *Publisher) PublishActivityTip(ctx context.Context, tip tips.Response) error {
	return p.publish(ctx, Event{Kind: KindActivityTip, UserID: tip.UserID, ActivityTip: &tip, Timestamp: p.now()})
}

// PushTip sends the personalized weekly tip. It satisfies analysis.TipSink.
func (p *Publisher) PushTip(ctx context.Context, userID string, tip domain.PersonalizedTip) error {
	return p.publish(ctx, Event{Kind: KindWeeklyTip, UserID: userID, WeeklyTip: &tip, Timestamp: p.now()})
}

// State reports the breaker state.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	receivers, err := p.breaker.Execute(func() (int64, error) {
		return p.client.Publish(ctx, Channel(event.UserID), body).Result()
	})
	if err != nil {
		publishCounter.WithLabelValues(event.Kind, "error").Inc()
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	publishCounter.WithLabelValues(event.Kind, "ok").Inc()
	p.logger.Debug("tip published", "user_id", event.UserID, "kind", event.Kind, "receivers", receivers)
	return nil
}
