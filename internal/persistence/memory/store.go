// Package memory provides an in-process store used by tests and local runs
// without Postgres.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

type summaryKey struct {
	userID    string
	weekStart int64
}

// Store keeps users, activities, targets and summaries in maps guarded by a
// single mutex. Returned values are copies.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	activities map[string]domain.Activity
	targets    map[string]domain.ReductionTarget
	summaries  map[summaryKey]domain.WeeklySummary
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		activities: make(map[string]domain.Activity),
		targets:    make(map[string]domain.ReductionTarget),
		summaries:  make(map[summaryKey]domain.WeeklySummary),
	}
}

// CreateUser stores a user, rejecting duplicate usernames or emails.
func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	s.users[user.ID] = user
	return nil
}

// FindUser matches the identifier against email (case-insensitive) or username.
func (s *Store) FindUser(_ context.Context, identifier string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, identifier) || user.Username == identifier {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// Create stores an activity.
func (s *Store) Create(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activity.ID] = activity
	return nil
}

// ListByUser returns activities newest first, continuing after cursor.
func (s *Store) ListByUser(_ context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []domain.Activity
	for _, a := range s.activities {
		if a.UserID == userID {
			owned = append(owned, a)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].OccurredAt.Equal(owned[j].OccurredAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].OccurredAt.After(owned[j].OccurredAt)
	})

	start := 0
	if cursor != nil {
		start = len(owned)
		for i, a := range owned {
			if a.OccurredAt.Before(cursor.OccurredAt) || (a.OccurredAt.Equal(cursor.OccurredAt) && a.ID < cursor.ID) {
				start = i
				break
			}
		}
	}
	owned = owned[start:]

	if limit <= 0 || len(owned) <= limit {
		return owned, nil, nil
	}
	page := owned[:limit]
	last := page[len(page)-1]
	return page, &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}, nil
}

// Delete removes one of the user's activities.
func (s *Store) Delete(_ context.Context, userID, activityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[activityID]
	if !ok || a.UserID != userID {
		return false, nil
	}
	delete(s.activities, activityID)
	return true, nil
}

// DeleteAll removes every activity owned by the user.
func (s *Store) DeleteAll(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.activities {
		if a.UserID == userID {
			delete(s.activities, id)
			n++
		}
	}
	return n, nil
}

// ActiveDays returns the occurrence times of the user's activities in [from, to).
func (s *Store) ActiveDays(_ context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := domain.Window{Start: from, End: to}
	var days []time.Time
	for _, a := range s.activities {
		if a.UserID == userID && window.Contains(a.OccurredAt) {
			days = append(days, a.OccurredAt)
		}
	}
	return days, nil
}

// AggregateByUser groups the window's activities by user then category.
func (s *Store) AggregateByUser(_ context.Context, window domain.Window, userID string) ([]domain.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[string]map[domain.Category]*domain.CategoryAggregate)
	for _, a := range s.activities {
		if !window.Contains(a.OccurredAt) || (userID != "" && a.UserID != userID) {
			continue
		}
		cats, ok := byUser[a.UserID]
		if !ok {
			cats = make(map[domain.Category]*domain.CategoryAggregate)
			byUser[a.UserID] = cats
		}
		agg, ok := cats[a.Category]
		if !ok {
			agg = &domain.CategoryAggregate{Category: a.Category}
			cats[a.Category] = agg
		}
		agg.Total += a.Value
		agg.Count++
	}

	result := make([]domain.UserAggregate, 0, len(byUser))
	for id, cats := range byUser {
		row := domain.UserAggregate{UserID: id}
		for _, agg := range cats {
			row.ByCategory = append(row.ByCategory, *agg)
			row.TotalValue += agg.Total
			row.ActivitiesCount += agg.Count
		}
		sort.Slice(row.ByCategory, func(i, j int) bool { return row.ByCategory[i].Category < row.ByCategory[j].Category })
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// TopActivity returns the highest-value activity, breaking ties by ID.
func (s *Store) TopActivity(_ context.Context, userID string, category domain.Category, window domain.Window) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var top *domain.Activity
	for _, a := range s.activities {
		if a.UserID != userID || a.Category != category || !window.Contains(a.OccurredAt) {
			continue
		}
		if top == nil || a.Value > top.Value || (a.Value == top.Value && a.ID < top.ID) {
			candidate := a
			top = &candidate
		}
	}
	return top, nil
}

// ActiveTarget returns the user's active target for a period, or nil.
func (s *Store) ActiveTarget(_ context.Context, userID string, period domain.TargetPeriod) (*domain.ReductionTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.targets {
		if t.UserID == userID && t.Period == period && t.Active {
			target := t
			return &target, nil
		}
	}
	return nil, nil
}

// GetTarget returns one of the user's targets, or nil.
func (s *Store) GetTarget(_ context.Context, userID, targetID string) (*domain.ReductionTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[targetID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return &t, nil
}

// CreateTarget stores a target, deactivating others of the same period when it is active.
func (s *Store) CreateTarget(_ context.Context, target domain.ReductionTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveTargetLocked(target)
	return nil
}

// SaveTarget overwrites a target with the same deactivation rule as CreateTarget.
func (s *Store) SaveTarget(_ context.Context, target domain.ReductionTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[target.ID]; !ok {
		return domain.ErrTargetNotFound
	}
	s.saveTargetLocked(target)
	return nil
}

func (s *Store) saveTargetLocked(target domain.ReductionTarget) {
	if target.Active {
		for id, t := range s.targets {
			if id != target.ID && t.UserID == target.UserID && t.Period == target.Period && t.Active {
				t.Active = false
				t.UpdatedAt = target.UpdatedAt
				s.targets[id] = t
			}
		}
	}
	s.targets[target.ID] = target
}

// TargetHistory lists the user's targets for a period, newest first.
func (s *Store) TargetHistory(_ context.Context, userID string, period domain.TargetPeriod) ([]domain.ReductionTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var history []domain.ReductionTarget
	for _, t := range s.targets {
		if t.UserID == userID && t.Period == period {
			history = append(history, t)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].CreatedAt.After(history[j].CreatedAt) })
	return history, nil
}

// GetSummary returns the stored summary for (userID, weekStart), or nil.
func (s *Store) GetSummary(_ context.Context, userID string, weekStart time.Time) (*domain.WeeklySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[summaryKey{userID: userID, weekStart: weekStart.UTC().UnixNano()}]
	if !ok {
		return nil, nil
	}
	summary = cloneSummary(summary)
	return &summary, nil
}

// UpsertSummary replaces the summary keyed by (UserID, WeekStart).
func (s *Store) UpsertSummary(_ context.Context, summary domain.WeeklySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summaryKey{userID: summary.UserID, weekStart: summary.WeekStart.UTC().UnixNano()}] = cloneSummary(summary)
	return nil
}

// Summaries returns every stored summary ordered by user then week.
func (s *Store) Summaries() []domain.WeeklySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WeeklySummary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		out = append(out, cloneSummary(summary))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID == out[j].UserID {
			return out[i].WeekStart.Before(out[j].WeekStart)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// cloneSummary deep-copies the maps and pointer fields so callers never share
// state with the stored document.
func cloneSummary(s domain.WeeklySummary) domain.WeeklySummary {
	s.ByCategoryTotals = maps.Clone(s.ByCategoryTotals)
	s.ByCategoryCounts = maps.Clone(s.ByCategoryCounts)
	s.HighestEmissionCategory = clonePtr(s.HighestEmissionCategory)
	s.LowestEmissionCategory = clonePtr(s.LowestEmissionCategory)
	s.PersonalizedTip = clonePtr(s.PersonalizedTip)
	if s.ReductionTarget != nil {
		progress := *s.ReductionTarget
		progress.PreviousWeekEmissions = clonePtr(progress.PreviousWeekEmissions)
		progress.ReductionAchieved = clonePtr(progress.ReductionAchieved)
		progress.ProgressPercentage = clonePtr(progress.ProgressPercentage)
		s.ReductionTarget = &progress
	}
	return s
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
