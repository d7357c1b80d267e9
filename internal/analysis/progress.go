package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

// ErrUndefinedReduction is returned when progress cannot be computed, e.g. a
// percentage target measured against a zero-emission prior week.
var ErrUndefinedReduction = errors.New("reduction progress undefined")

// ProgressCalculator measures a window's emissions against the user's active
// weekly target, using the prior week's stored summary as the baseline.
type ProgressCalculator struct {
	targets   TargetStore
	summaries SummaryStore
}

// NewProgressCalculator constructs a ProgressCalculator.
func NewProgressCalculator(targets TargetStore, summaries SummaryStore) *ProgressCalculator {
	return &ProgressCalculator{targets: targets, summaries: summaries}
}

// Calculate returns nil without error when the user has no active weekly
// target. Callers treat any error as "no progress block".
func (c *ProgressCalculator) Calculate(ctx context.Context, userID string, currentEmissions float64, windowStart time.Time) (*domain.ReductionProgress, error) {
	target, err := c.targets.ActiveTarget(ctx, userID, domain.PeriodWeekly)
	if err != nil {
		return nil, fmt.Errorf("load active target: %w", err)
	}
	if target == nil {
		return nil, nil
	}

	progress := &domain.ReductionProgress{
		TargetValue: target.Value,
		TargetType:  target.Type,
	}

	previous, err := c.summaries.GetSummary(ctx, userID, windowStart.Add(-week))
	if err != nil {
		return nil, fmt.Errorf("load previous summary: %w", err)
	}
	if previous == nil {
		return progress, nil
	}

	achieved, err := reduction(target, previous.TotalValue, currentEmissions)
	if err != nil {
		return nil, err
	}
	if target.Value == 0 {
		return nil, fmt.Errorf("%w: zero target value", ErrUndefinedReduction)
	}
	percentage := achieved / target.Value * 100
	if math.IsNaN(percentage) || math.IsInf(percentage, 0) {
		return nil, fmt.Errorf("%w: progress is not finite", ErrUndefinedReduction)
	}

	previousEmissions := previous.TotalValue
	roundedAchieved := round(achieved, 2)
	clamped := round(math.Max(percentage, 0), 1)

	progress.PreviousWeekEmissions = &previousEmissions
	progress.ReductionAchieved = &roundedAchieved
	progress.ProgressPercentage = &clamped
	progress.TargetMet = achieved >= target.Value
	return progress, nil
}

func reduction(target *domain.ReductionTarget, previous, current float64) (float64, error) {
	switch target.Type {
	case domain.TargetPercentage:
		if previous == 0 {
			return 0, fmt.Errorf("%w: previous week emissions are zero", ErrUndefinedReduction)
		}
		return (previous - current) / previous * 100, nil
	case domain.TargetAbsolute:
		return previous - current, nil
	default:
		return 0, fmt.Errorf("%w: unknown target type %q", ErrUndefinedReduction, target.Type)
	}
}
