package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

type fakeRedis struct {
	channels []string
	payloads [][]byte
	err      error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, message.([]byte))
	return redis.NewIntResult(1, nil)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPublisherPushTip(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewPublisher(client, DefaultBreakerConfig(), quiet)

	tip := domain.PersonalizedTip{Category: domain.CategoryFood, Message: "Try lentils", TipType: domain.TipImprovement}
	require.NoError(t, publisher.PushTip(context.Background(), "u1", tip))

	require.Equal(t, []string{"tips:u1"}, client.channels)
	event, err := decodeEvent(string(client.payloads[0]))
	require.NoError(t, err)
	require.Equal(t, KindWeeklyTip, event.Kind)
	require.Equal(t, "u1", event.UserID)
	require.Equal(t, &tip, event.WeeklyTip)
	require.Nil(t, event.ActivityTip)
}

func TestPublisherActivityTip(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewPublisher(client, DefaultBreakerConfig(), quiet)

	response, ok := tips.Default().Response(domain.CategoryTransport, "Bike (10km)", "u2", nil)
	require.True(t, ok)
	require.NoError(t, publisher.PublishActivityTip(context.Background(), response))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.payloads[0], &decoded))
	require.Equal(t, KindActivityTip, decoded["kind"])
	require.Equal(t, "tips:u2", client.channels[0])
}

func TestPublisherBreakerOpens(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	publisher := NewPublisher(client, BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 2}, quiet)
	tip := domain.PersonalizedTip{Category: domain.CategoryFood, Message: "x", TipType: domain.TipPositive}

	for i := 0; i < 2; i++ {
		err := publisher.PushTip(context.Background(), "u1", tip)
		require.ErrorContains(t, err, "connection refused")
	}
	require.Equal(t, gobreaker.StateOpen, publisher.State())

	err := publisher.PushTip(context.Background(), "u1", tip)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}
