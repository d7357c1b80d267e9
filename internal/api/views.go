package api

import (
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

// RegisterRequest is the payload for POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /api/login. Identifier may be an email
// or username; Email is accepted for older clients.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// UserView is the public projection of a user.
type UserView struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenView describes a validated token.
type TokenView struct {
	Valid     bool      `json:"valid"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LogActivityRequest is the payload for POST /api/activities.
type LogActivityRequest struct {
	Category   string    `json:"category"`
	Activity   string    `json:"activity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityView exposes a logged activity.
type ActivityView struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Activity   string    `json:"activity"`
	Value      float64   `json:"value"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TargetRequest is the payload for POST /api/targets.
type TargetRequest struct {
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
	Period      string  `json:"period"`
}

// TargetPatchRequest is the payload for PUT /api/targets/{id}; absent fields are unchanged.
type TargetPatchRequest struct {
	Type        *string  `json:"type"`
	Value       *float64 `json:"value"`
	Description *string  `json:"description"`
	Period      *string  `json:"period"`
	IsActive    *bool    `json:"is_active"`
}

func (p TargetPatchRequest) toPatch() domain.TargetPatch {
	patch := domain.TargetPatch{
		Value:       p.Value,
		Description: p.Description,
		Active:      p.IsActive,
	}
	if p.Type != nil {
		t := domain.TargetType(*p.Type)
		patch.Type = &t
	}
	if p.Period != nil {
		period := domain.TargetPeriod(*p.Period)
		patch.Period = &period
	}
	return patch
}

// TargetView exposes a reduction target.
type TargetView struct {
	TargetID    string    `json:"target_id"`
	Type        string    `json:"type"`
	Value       float64   `json:"value"`
	Description string    `json:"description,omitempty"`
	Period      string    `json:"period"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toUserView(u domain.User) UserView {
	return UserView{UserID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID: a.ID,
		UserID:     a.UserID,
		Category:   string(a.Category),
		Activity:   a.Label,
		Value:      a.Value,
		OccurredAt: a.OccurredAt,
		CreatedAt:  a.CreatedAt,
	}
}

func toTargetView(t domain.ReductionTarget) TargetView {
	return TargetView{
		TargetID:    t.ID,
		Type:        string(t.Type),
		Value:       t.Value,
		Description: t.Description,
		Period:      string(t.Period),
		IsActive:    t.Active,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
