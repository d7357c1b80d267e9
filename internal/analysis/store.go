package analysis

import (
	"context"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

// ActivityStore runs the read queries the analysis needs against raw activities.
type ActivityStore interface {
	// AggregateByUser groups activities in the window by user and category.
	// An empty userID means all users. Users without activities produce no row.
	AggregateByUser(ctx context.Context, window domain.Window, userID string) ([]domain.UserAggregate, error)
	// TopActivity returns the user's highest-value activity in a category, or nil.
	TopActivity(ctx context.Context, userID string, category domain.Category, window domain.Window) (*domain.Activity, error)
}

// TargetStore looks up active reduction targets.
type TargetStore interface {
	ActiveTarget(ctx context.Context, userID string, period domain.TargetPeriod) (*domain.ReductionTarget, error)
}

// SummaryStore reads and idempotently writes weekly summaries.
type SummaryStore interface {
	GetSummary(ctx context.Context, userID string, weekStart time.Time) (*domain.WeeklySummary, error)
	// UpsertSummary replaces the whole document keyed by (UserID, WeekStart).
	UpsertSummary(ctx context.Context, summary domain.WeeklySummary) error
}

// TipSource is the static tip content lookup.
type TipSource interface {
	Lookup(category domain.Category, activity string) (tips.Content, bool)
}

// TipSink receives personalized tips for realtime delivery.
type TipSink interface {
	PushTip(ctx context.Context, userID string, tip domain.PersonalizedTip) error
}
