// Package domain defines the business logic for carbon activity tracking.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrTargetNotFound is returned when a reduction target cannot be located.
	ErrTargetNotFound = errors.New("reduction target not found")
	// ErrSummaryNotFound is returned when no weekly summary exists for the requested week.
	ErrSummaryNotFound = errors.New("weekly summary not found")
)

// ActivityRepository captures persistence operations for logged activities.
type ActivityRepository interface {
	Create(ctx context.Context, activity Activity) error
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
	Delete(ctx context.Context, userID, activityID string) (bool, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
	ActiveDays(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error)
}

// TargetRepository captures persistence operations for reduction targets.
// CreateTarget and SaveTarget deactivate any other active target of the same
// period when the stored target is active.
type TargetRepository interface {
	ActiveTarget(ctx context.Context, userID string, period TargetPeriod) (*ReductionTarget, error)
	GetTarget(ctx context.Context, userID, targetID string) (*ReductionTarget, error)
	CreateTarget(ctx context.Context, target ReductionTarget) error
	SaveTarget(ctx context.Context, target ReductionTarget) error
	TargetHistory(ctx context.Context, userID string, period TargetPeriod) ([]ReductionTarget, error)
}

// SummaryReader loads stored weekly summaries.
type SummaryReader interface {
	GetSummary(ctx context.Context, userID string, weekStart time.Time) (*WeeklySummary, error)
}

// Service orchestrates activity, target and summary workflows for the API.
type Service struct {
	activities ActivityRepository
	targets    TargetRepository
	summaries  SummaryReader
}

// NewService constructs a Service.
func NewService(activities ActivityRepository, targets TargetRepository, summaries SummaryReader) *Service {
	return &Service{activities: activities, targets: targets, summaries: summaries}
}

// LogActivityInput captures the payload from the API layer.
type LogActivityInput struct {
	UserID     string
	Category   string
	Activity   string
	OccurredAt time.Time
}

// LogActivity validates the activity against the catalog and persists it.
func (s *Service) LogActivity(ctx context.Context, input LogActivityInput) (*Activity, error) {
	category, err := ParseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	activity, err := NewActivity(input.UserID, category, input.Activity, input.OccurredAt)
	if err != nil {
		return nil, err
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListActivities fetches a user's activities with cursor pagination, newest first.
func (s *Service) ListActivities(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	return s.activities.ListByUser(ctx, userID, cursor, limit)
}

// DeleteActivity removes a single activity owned by the user.
func (s *Service) DeleteActivity(ctx context.Context, userID, activityID string) error {
	deleted, err := s.activities.Delete(ctx, userID, activityID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrActivityNotFound
	}
	return nil
}

// DeleteAllActivities removes every activity owned by the user.
func (s *Service) DeleteAllActivities(ctx context.Context, userID string) (int64, error) {
	return s.activities.DeleteAll(ctx, userID)
}

// Streak reports the seven-day activity strip ending on now's UTC date.
func (s *Service) Streak(ctx context.Context, userID string, now time.Time) (Streak, error) {
	today := truncateDay(now)
	from := today.AddDate(0, 0, -(streakLength - 1))
	days, err := s.activities.ActiveDays(ctx, userID, from, today.AddDate(0, 0, 1))
	if err != nil {
		return Streak{}, err
	}
	return BuildStreak(days, now), nil
}

// ActiveTarget returns the user's active target for a period.
func (s *Service) ActiveTarget(ctx context.Context, userID string, period TargetPeriod) (*ReductionTarget, error) {
	target, err := s.targets.ActiveTarget(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrTargetNotFound
	}
	return target, nil
}

// CreateTarget stores a new active target, replacing the previous active one for its period.
func (s *Service) CreateTarget(ctx context.Context, input TargetInput) (*ReductionTarget, error) {
	target, err := NewReductionTarget(input)
	if err != nil {
		return nil, err
	}
	if err := s.targets.CreateTarget(ctx, target); err != nil {
		return nil, err
	}
	return &target, nil
}

// UpdateTarget applies a partial update to a target owned by the user.
func (s *Service) UpdateTarget(ctx context.Context, userID, targetID string, patch TargetPatch) (*ReductionTarget, error) {
	existing, err := s.targets.GetTarget(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrTargetNotFound
	}
	updated, err := existing.Apply(patch)
	if err != nil {
		return nil, err
	}
	if err := s.targets.SaveTarget(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeactivateTarget marks a target inactive instead of deleting it.
func (s *Service) DeactivateTarget(ctx context.Context, userID, targetID string) error {
	inactive := false
	_, err := s.UpdateTarget(ctx, userID, targetID, TargetPatch{Active: &inactive})
	return err
}

// TargetHistory lists every target for a period, newest first.
func (s *Service) TargetHistory(ctx context.Context, userID string, period TargetPeriod) ([]ReductionTarget, error) {
	return s.targets.TargetHistory(ctx, userID, period)
}

// SummaryForWeek returns the stored summary for the week starting at weekStart.
func (s *Service) SummaryForWeek(ctx context.Context, userID string, weekStart time.Time) (*WeeklySummary, error) {
	summary, err := s.summaries.GetSummary(ctx, userID, weekStart.UTC())
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, ErrSummaryNotFound
	}
	return summary, nil
}

// CurrentSummary returns the summary of the week in progress at now.
func (s *Service) CurrentSummary(ctx context.Context, userID string, now time.Time) (*WeeklySummary, error) {
	return s.SummaryForWeek(ctx, userID, WeekStart(now))
}
