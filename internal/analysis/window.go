package analysis

import (
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

const week = 7 * 24 * time.Hour

// LastCompletedWeek returns the most recent full Monday-to-Monday UTC week
// ending at or before now. When now is exactly Monday 00:00 UTC that instant
// is the end of the returned week.
func LastCompletedWeek(now time.Time) domain.Window {
	end := StartOfWeek(now)
	return domain.Window{Start: end.Add(-week), End: end}
}

// CurrentWeekSoFar returns [Monday 00:00 UTC on or before now, now).
func CurrentWeekSoFar(now time.Time) domain.Window {
	return domain.Window{Start: StartOfWeek(now), End: now.UTC()}
}

// StartOfWeek returns Monday 00:00 UTC of the ISO week containing t.
func StartOfWeek(t time.Time) time.Time {
	return domain.WeekStart(t)
}
