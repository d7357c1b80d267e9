// Package scheduler fires the weekly analysis at a fixed UTC weekday and time.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/analysis"
)

// Runner executes the last-completed-week analysis.
type Runner interface {
	RunLastWeekAnalysis(ctx context.Context, ref time.Time) (analysis.RunResult, error)
}

// Config sets when the weekly run fires: Weekday at midnight UTC plus At.
type Config struct {
	Weekday time.Weekday
	At      time.Duration
}

// DefaultConfig fires on Monday at 00:05 UTC.
func DefaultConfig() Config {
	return Config{Weekday: time.Monday, At: 5 * time.Minute}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source and the timer used to wait for the next run.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
		if after != nil {
			s.after = after
		}
	}
}

// Scheduler triggers Runner once a week.
type Scheduler struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time
	running atomic.Bool
	runs    atomic.Int64
}

// New constructs a Scheduler. An At outside [0, 24h) is clamped into a day.
func New(cfg Config, runner Runner, opts ...Option) *Scheduler {
	cfg.At %= 24 * time.Hour
	if cfg.At < 0 {
		cfg.At += 24 * time.Hour
	}
	s := &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: slog.Default().With("component", "scheduler"),
		now:    func() time.Time { return time.Now().UTC() },
		after:  time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun returns the first fire time strictly after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(s.cfg.Weekday) - int(day.Weekday()) + 7) % 7
	next := day.AddDate(0, 0, offset).Add(s.cfg.At)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Run blocks until ctx is cancelled, invoking the weekly analysis at every
// fire time. A failed run is logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	for {
		next := s.NextRun(s.now())
		s.logger.Info("next weekly analysis scheduled", "at", next)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
		}

		s.fire(ctx, next)
	}
}

func (s *Scheduler) fire(ctx context.Context, at time.Time) {
	s.runs.Add(1)
	result, err := s.runner.RunLastWeekAnalysis(ctx, at)
	if err != nil {
		s.logger.Error("weekly analysis failed", "fire_time", at, "error", err)
		return
	}
	s.logger.Info("weekly analysis finished",
		"week_start", result.Start,
		"processed_users", result.ProcessedUsers,
		"failed_users", result.FailedUsers,
	)
}

// Runs reports how many times the scheduler has fired.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// IsRunning reports whether Run is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}
