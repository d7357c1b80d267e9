package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestMessageRecordCarriesRoutingHeaders(t *testing.T) {
	msg := Message{
		EventID:       7,
		AggregateType: "activity",
		AggregateID:   "act-1",
		EventType:     "activity.logged",
		Topic:         "activity_events",
		PartitionKey:  "user-1",
		Payload:       json.RawMessage(`{"activity_id":"act-1"}`),
	}

	record := msg.Record()

	require.Equal(t, []byte("user-1"), record.Key)
	require.JSONEq(t, `{"activity_id":"act-1"}`, string(record.Value))
	require.ElementsMatch(t, []kafka.Header{
		{Key: "event_type", Value: []byte("activity.logged")},
		{Key: "user_id", Value: []byte("user-1")},
		{Key: "aggregate_type", Value: []byte("activity")},
		{Key: "aggregate_id", Value: []byte("act-1")},
	}, record.Headers)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	require.Equal(t, 5, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(10))
}

func TestWithTopicStampsCopies(t *testing.T) {
	in := []kafka.Message{{Key: []byte("user-1")}, {Key: []byte("user-2"), Topic: "stale"}}

	out := withTopic("activity_events", in)

	require.Len(t, out, 2)
	for _, msg := range out {
		require.Equal(t, "activity_events", msg.Topic)
	}
	require.Empty(t, in[0].Topic)
	require.Equal(t, "stale", in[1].Topic)
}

func TestCountByEventTypeLabelsEachEvent(t *testing.T) {
	before := testutil.ToFloat64(publishedEvents.WithLabelValues("activity.logged"))
	beforeOther := testutil.ToFloat64(publishedEvents.WithLabelValues("target.created"))

	countByEventType(publishedEvents, []Message{
		{EventType: "activity.logged"},
		{EventType: "activity.logged"},
		{EventType: "target.created"},
	})

	require.InDelta(t, before+2, testutil.ToFloat64(publishedEvents.WithLabelValues("activity.logged")), 1e-9)
	require.InDelta(t, beforeOther+1, testutil.ToFloat64(publishedEvents.WithLabelValues("target.created")), 1e-9)
}
