// Package events defines the payloads carried over Kafka between services.
package events

import "time"

// TypeActivityLogged is the event_type header value for ActivityLogged.
const TypeActivityLogged = "activity.logged"

// ActivityLogged is emitted once a user's activity has been stored.
type ActivityLogged struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Activity   string    `json:"activity"`
	Value      float64   `json:"value"`
	OccurredAt time.Time `json:"occurred_at"`
}
