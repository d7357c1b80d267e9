package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Activity is a single logged action carrying a fixed emission value.
type Activity struct {
	ID         string
	UserID     string
	Category   Category
	Label      string
	Value      float64
	OccurredAt time.Time
	CreatedAt  time.Time
}

// NewActivity validates the category/activity pair and fills Value from the
// emission catalog. A zero occurredAt defaults to now.
func NewActivity(userID string, category Category, label string, occurredAt time.Time) (Activity, error) {
	if strings.TrimSpace(userID) == "" {
		return Activity{}, invalid("user_id", "is required")
	}
	value, err := EmissionFor(category, label)
	if err != nil {
		return Activity{}, err
	}

	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return Activity{
		ID:         uuid.NewString(),
		UserID:     userID,
		Category:   category,
		Label:      label,
		Value:      value,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
	}, nil
}

// Cursor models the pagination token for activity listings.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// Window is a half-open UTC time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CategoryAggregate is the total and count of one user's activities in a category.
type CategoryAggregate struct {
	Category Category
	Total    float64
	Count    int
}

// UserAggregate groups a user's per-category aggregates for a window.
type UserAggregate struct {
	UserID          string
	ByCategory      []CategoryAggregate
	TotalValue      float64
	ActivitiesCount int
}

// StreakDay marks whether the user logged anything on a given UTC date.
type StreakDay struct {
	Date   string `json:"date"`
	Active bool   `json:"active"`
}

// Streak is the seven-day activity strip ending today.
type Streak struct {
	Days          []StreakDay `json:"streak"`
	CurrentStreak int         `json:"current_streak"`
}

const streakLength = 7

// BuildStreak lays out the last seven UTC days ending on today's date and
// counts consecutive active days backwards from today.
func BuildStreak(activeDays []time.Time, now time.Time) Streak {
	today := truncateDay(now)
	first := today.AddDate(0, 0, -(streakLength - 1))

	active := make(map[string]struct{}, len(activeDays))
	for _, d := range activeDays {
		active[truncateDay(d).Format(time.DateOnly)] = struct{}{}
	}

	days := make([]StreakDay, 0, streakLength)
	for i := 0; i < streakLength; i++ {
		date := first.AddDate(0, 0, i).Format(time.DateOnly)
		_, ok := active[date]
		days = append(days, StreakDay{Date: date, Active: ok})
	}

	current := 0
	for i := len(days) - 1; i >= 0 && days[i].Active; i-- {
		current++
	}
	return Streak{Days: days, CurrentStreak: current}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := truncateDay(t)
	return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
}
