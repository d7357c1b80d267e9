package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"activity_id":"abc"}`)
	msg := kafka.Message{
		Topic:     "activity_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Key:       []byte("user-1"),
		Value:     payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.logged")},
			{Key: "user_id", Value: []byte("user-1")},
		},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "activity.logged", handler.last.EventType)
	require.Equal(t, "user-1", handler.last.UserID)
	require.Equal(t, "user-1", handler.last.Key)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "activity_events",
		Offset: 20,
		Time:   time.Now().UTC(),
		Value:  []byte(`{"activity_id":"def"}`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.logged")},
		},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx := context.Background()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "activity_events", Value: []byte(`not json`), Headers: []kafka.Header{{Key: "event_type", Value: []byte("activity.logged")}}},
			{Topic: "activity_events", Value: []byte(`{}`)},
			{Topic: "activity_events"},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(testLogger(t))).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
}

func TestRouterDispatchesByEventType(t *testing.T) {
	logged := &stubHandler{}
	router := NewRouter().Register("activity.logged", logged)

	require.NoError(t, router.Handle(context.Background(), Message{EventType: "activity.logged"}))
	require.NoError(t, router.Handle(context.Background(), Message{EventType: "activity.deleted"}))
	require.Equal(t, 1, logged.calls)

	failing := NewRouter().Register("activity.logged", HandlerFunc(func(context.Context, Message) error {
		return errors.New("boom")
	}))
	require.Error(t, failing.Handle(context.Background(), Message{EventType: "activity.logged"}))
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

func testLogger(t *testing.T) *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(testWriter{t}, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
