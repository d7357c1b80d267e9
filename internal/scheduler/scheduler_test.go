package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siyabuilds/carbontrackr/internal/analysis"
)

func TestNextRun(t *testing.T) {
	s := New(DefaultConfig(), nil)

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "mid week",
			after: time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC),
			want:  time.Date(2025, time.March, 17, 0, 5, 0, 0, time.UTC),
		},
		{
			name:  "monday before fire time",
			after: time.Date(2025, time.March, 17, 0, 1, 0, 0, time.UTC),
			want:  time.Date(2025, time.March, 17, 0, 5, 0, 0, time.UTC),
		},
		{
			name:  "exactly at fire time rolls to next week",
			after: time.Date(2025, time.March, 17, 0, 5, 0, 0, time.UTC),
			want:  time.Date(2025, time.March, 24, 0, 5, 0, 0, time.UTC),
		},
		{
			name:  "non utc input",
			after: time.Date(2025, time.March, 17, 1, 0, 0, 0, time.FixedZone("SAST", 2*60*60)),
			want:  time.Date(2025, time.March, 17, 0, 5, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, s.NextRun(tc.after))
		})
	}

	sunday := New(Config{Weekday: time.Sunday, At: 23*time.Hour + 30*time.Minute}, nil)
	require.Equal(t,
		time.Date(2025, time.March, 16, 23, 30, 0, 0, time.UTC),
		sunday.NextRun(time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)))
}

type recordingRunner struct {
	mu    sync.Mutex
	refs  []time.Time
	err   error
	fired chan struct{}
}

func (r *recordingRunner) RunLastWeekAnalysis(_ context.Context, ref time.Time) (analysis.RunResult, error) {
	r.mu.Lock()
	r.refs = append(r.refs, ref)
	r.mu.Unlock()
	select {
	case r.fired <- struct{}{}:
	default:
	}
	return analysis.RunResult{Start: analysis.LastCompletedWeek(ref).Start, ProcessedUsers: 1}, r.err
}

func TestRunFiresAtScheduledTimesAndSurvivesFailures(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	// The fake timer jumps the clock straight to the requested deadline.
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		now = now.Add(d)
		fired := now
		mu.Unlock()
		ch := make(chan time.Time, 1)
		ch <- fired
		return ch
	}

	runner := &recordingRunner{err: errors.New("database down"), fired: make(chan struct{}, 2)}
	s := New(DefaultConfig(), runner,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(clock, after),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-runner.fired
	<-runner.fired
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Equal(t, []time.Time{
		time.Date(2025, time.March, 17, 0, 5, 0, 0, time.UTC),
		time.Date(2025, time.March, 24, 0, 5, 0, 0, time.UTC),
	}, runner.refs[:2])
	require.GreaterOrEqual(t, s.Runs(), int64(2))
	require.False(t, s.IsRunning())
}
