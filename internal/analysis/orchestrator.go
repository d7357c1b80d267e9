// Package analysis rolls raw activities up into per-user weekly summaries.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

const (
	windowLastWeek    = "last_week"
	windowCurrentWeek = "current_week"

	defaultConcurrency = 8
)

// RunResult reports the window a run covered and how many users it summarised.
type RunResult struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	ProcessedUsers int       `json:"processed_users"`
	FailedUsers    int       `json:"failed_users"`
}

// Option configures optional behaviour for the Orchestrator.
type Option func(*Orchestrator)

// WithLogger overrides the logger used to report per-user failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConcurrency bounds how many users are processed at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithClock overrides the time source used for reference times and generatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTipSink enables pushing the weekly tip after single-user current-week runs.
func WithTipSink(sink TipSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithPicker overrides how a suggestion is chosen from a tip list.
func WithPicker(pick Picker) Option {
	return func(o *Orchestrator) {
		o.pick = pick
	}
}

// Orchestrator composes the window, category, progress and tip steps and
// persists one summary per active user.
type Orchestrator struct {
	activities ActivityStore
	summaries  SummaryStore
	progress   *ProgressCalculator
	tips       *TipSelector

	pick        Picker
	sink        TipSink
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// NewOrchestrator wires the stores the analysis reads from and writes to.
func NewOrchestrator(activities ActivityStore, targets TargetStore, summaries SummaryStore, tipSource TipSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		activities:  activities,
		summaries:   summaries,
		progress:    NewProgressCalculator(targets, summaries),
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.tips = NewTipSelector(activities, tipSource, o.pick)
	return o
}

// RunLastWeekAnalysis summarises every user with activity in the last
// completed week. A zero ref means now.
func (o *Orchestrator) RunLastWeekAnalysis(ctx context.Context, ref time.Time) (RunResult, error) {
	if ref.IsZero() {
		ref = o.now()
	}
	return o.run(ctx, windowLastWeek, LastCompletedWeek(ref), "")
}

// RunCurrentWeekAnalysis summarises the current week up to ref, for a single
// user when userID is set or for everyone otherwise. A zero ref means now.
func (o *Orchestrator) RunCurrentWeekAnalysis(ctx context.Context, userID string, ref time.Time) (RunResult, error) {
	if ref.IsZero() {
		ref = o.now()
	}
	return o.run(ctx, windowCurrentWeek, CurrentWeekSoFar(ref), userID)
}

func (o *Orchestrator) run(ctx context.Context, label string, window domain.Window, userID string) (result RunResult, err error) {
	started := time.Now()
	defer func() { recordRun(label, started, err) }()

	result = RunResult{Start: window.Start, End: window.End}

	aggregates, err := o.activities.AggregateByUser(ctx, window, userID)
	if err != nil {
		return result, fmt.Errorf("aggregate activities: %w", err)
	}

	failures := make([]bool, len(aggregates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.concurrency)
	for i, agg := range aggregates {
		group.Go(func() error {
			failures[i] = !o.processUser(groupCtx, agg, window, userID != "")
			return nil
		})
	}
	_ = group.Wait()

	result.ProcessedUsers = len(aggregates)
	for _, failed := range failures {
		if failed {
			result.FailedUsers++
		}
	}

	o.logger.Info("weekly analysis completed",
		"window", label,
		"start", window.Start,
		"end", window.End,
		"processed_users", result.ProcessedUsers,
		"failed_users", result.FailedUsers,
	)
	return result, nil
}

// processUser reports whether the user's summary was written. It never
// panics out of the goroutine.
func (o *Orchestrator) processUser(ctx context.Context, agg domain.UserAggregate, window domain.Window, pushTip bool) (ok bool) {
	logger := o.logger.With("user_id", agg.UserID, "week_start", window.Start)
	defer func() {
		if r := recover(); r != nil {
			recordUserFailure("panic")
			logger.Error("user analysis panicked", "panic", r)
			ok = false
		}
	}()

	summary := o.buildSummary(ctx, agg, window, logger)

	if err := o.summaries.UpsertSummary(ctx, summary); err != nil {
		recordUserFailure("upsert")
		logger.Error("upsert weekly summary", "error", err)
		return false
	}

	if pushTip && o.sink != nil && summary.PersonalizedTip != nil {
		if err := o.sink.PushTip(ctx, agg.UserID, *summary.PersonalizedTip); err != nil {
			recordUserFailure("tip_push")
			logger.Warn("push weekly tip", "error", err)
		}
	}
	return true
}

func (o *Orchestrator) buildSummary(ctx context.Context, agg domain.UserAggregate, window domain.Window, logger *slog.Logger) domain.WeeklySummary {
	totals := make(map[domain.Category]float64, len(agg.ByCategory))
	counts := make(map[domain.Category]int, len(agg.ByCategory))
	for _, entry := range agg.ByCategory {
		totals[entry.Category] = entry.Total
		counts[entry.Category] = entry.Count
	}

	highest, lowest := AnalyzeCategories(totals, counts)

	progress, err := o.progress.Calculate(ctx, agg.UserID, agg.TotalValue, window.Start)
	if err != nil {
		recordUserFailure("progress")
		logger.Warn("reduction progress unavailable", "error", err)
		progress = nil
	}

	var tip *domain.PersonalizedTip
	if highest != nil {
		tip, err = o.tips.Select(ctx, agg.UserID, highest.Category, window, progress)
		if err != nil {
			recordUserFailure("tip")
			logger.Warn("personalized tip unavailable", "error", err)
			tip = nil
		}
	}

	return domain.WeeklySummary{
		UserID:                  agg.UserID,
		WeekStart:               window.Start,
		WeekEnd:                 window.End,
		TotalValue:              agg.TotalValue,
		ActivitiesCount:         agg.ActivitiesCount,
		ByCategoryTotals:        totals,
		ByCategoryCounts:        counts,
		HighestEmissionCategory: highest,
		LowestEmissionCategory:  lowest,
		PersonalizedTip:         tip,
		ReductionTarget:         progress,
		GeneratedAt:             o.now(),
	}
}
