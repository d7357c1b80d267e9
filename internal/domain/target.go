package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TargetPeriod is the cadence a reduction target is measured over.
type TargetPeriod string

const (
	PeriodWeekly  TargetPeriod = "weekly"
	PeriodMonthly TargetPeriod = "monthly"
)

// TargetType selects how a reduction target value is interpreted.
type TargetType string

const (
	TargetPercentage TargetType = "percentage"
	TargetAbsolute   TargetType = "absolute"
)

const maxDescriptionLength = 200

// ReductionTarget is a user-declared goal to cut emissions.
type ReductionTarget struct {
	ID          string
	UserID      string
	Type        TargetType
	Value       float64
	Description string
	Period      TargetPeriod
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TargetInput carries the fields accepted when creating a target.
type TargetInput struct {
	UserID      string
	Type        TargetType
	Value       float64
	Description string
	Period      TargetPeriod
}

// TargetPatch carries optional fields for a partial target update.
type TargetPatch struct {
	Type        *TargetType
	Value       *float64
	Description *string
	Period      *TargetPeriod
	Active      *bool
}

// NewReductionTarget applies defaults, validates and returns an active target.
func NewReductionTarget(input TargetInput) (ReductionTarget, error) {
	if input.Type == "" {
		input.Type = TargetPercentage
	}
	if input.Period == "" {
		input.Period = PeriodWeekly
	}
	target := ReductionTarget{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Type:        input.Type,
		Value:       input.Value,
		Description: strings.TrimSpace(input.Description),
		Period:      input.Period,
		Active:      true,
	}
	if err := target.Validate(); err != nil {
		return ReductionTarget{}, err
	}
	now := time.Now().UTC()
	target.CreatedAt = now
	target.UpdatedAt = now
	return target, nil
}

// Apply merges a patch into the target and revalidates it.
func (t ReductionTarget) Apply(patch TargetPatch) (ReductionTarget, error) {
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Value != nil {
		t.Value = *patch.Value
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Period != nil {
		t.Period = *patch.Period
	}
	if patch.Active != nil {
		t.Active = *patch.Active
	}
	if err := t.Validate(); err != nil {
		return ReductionTarget{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	return t, nil
}

// Validate checks the target against the reduction target rules.
func (t ReductionTarget) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return invalid("user_id", "is required")
	}
	switch t.Type {
	case TargetPercentage, TargetAbsolute:
	default:
		return invalid("target_type", "must be 'percentage' or 'absolute'")
	}
	switch t.Period {
	case PeriodWeekly, PeriodMonthly:
	default:
		return invalid("target_period", "must be 'weekly' or 'monthly'")
	}
	if t.Value <= 0 {
		return invalid("target_value", "must be a positive number")
	}
	if t.Type == TargetPercentage && t.Value > 100 {
		return invalid("target_value", "percentage target cannot exceed 100%%")
	}
	if len(t.Description) > maxDescriptionLength {
		return invalid("description", "cannot exceed %d characters", maxDescriptionLength)
	}
	return nil
}
