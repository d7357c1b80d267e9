// Package realtime delivers tips to connected clients over Redis pub/sub.
package realtime

import (
	"encoding/json"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

// Event kinds carried on a user's channel.
const (
	KindActivityTip = "activity_tip"
	KindWeeklyTip   = "weekly_tip"
)

// Event is the envelope published on tips:<userID>.
type Event struct {
	Kind        string                  `json:"kind"`
	UserID      string                  `json:"user_id"`
	ActivityTip *tips.Response          `json:"activity_tip,omitempty"`
	WeeklyTip   *domain.PersonalizedTip `json:"weekly_tip,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
}

// Channel returns the pub/sub channel for a user.
func Channel(userID string) string {
	return "tips:" + userID
}

func decodeEvent(payload string) (Event, error) {
	var event Event
	err := json.Unmarshal([]byte(payload), &event)
	return event, err
}
