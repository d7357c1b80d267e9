package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

// Picker chooses an index in [0, n) for a tip suggestion list. The seed
// identifies the (user, week, category) being summarised.
type Picker func(seed string, n int) int

// SeededPicker returns the same index for the same seed, so recomputing a
// summary from unchanged data yields the same tip.
func SeededPicker(seed string, n int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1)).IntN(n)
}

// TipSelector derives the personalized tip for a user's highest category.
type TipSelector struct {
	activities ActivityStore
	source     TipSource
	pick       Picker
}

// NewTipSelector constructs a TipSelector. A nil picker uses SeededPicker.
func NewTipSelector(activities ActivityStore, source TipSource, pick Picker) *TipSelector {
	if pick == nil {
		pick = SeededPicker
	}
	return &TipSelector{activities: activities, source: source, pick: pick}
}

// Select returns nil when the user has no activity in the category.
func (s *TipSelector) Select(ctx context.Context, userID string, highest domain.Category, window domain.Window, progress *domain.ReductionProgress) (*domain.PersonalizedTip, error) {
	top, err := s.activities.TopActivity(ctx, userID, highest, window)
	if err != nil {
		return nil, fmt.Errorf("find top activity: %w", err)
	}
	if top == nil {
		return nil, nil
	}

	if tip := targetTip(highest, top.Label, progress); tip != nil {
		return tip, nil
	}

	content, ok := s.source.Lookup(highest, top.Label)
	if !ok {
		return &domain.PersonalizedTip{
			Category: highest,
			Message:  fmt.Sprintf("Look for ways to cut back on %s activities next week.", highest),
			TipType:  domain.TipImprovement,
		}, nil
	}
	if content.Positive() {
		return &domain.PersonalizedTip{Category: highest, Message: content.Message, TipType: domain.TipPositive}, nil
	}

	seed := fmt.Sprintf("%s|%s|%s", userID, window.Start.UTC().Format("2006-01-02"), highest)
	idx := s.pick(seed, len(content.Suggestions))
	if idx < 0 || idx >= len(content.Suggestions) {
		idx = 0
	}
	return &domain.PersonalizedTip{Category: highest, Message: content.Suggestions[idx], TipType: domain.TipImprovement}, nil
}

func targetTip(category domain.Category, activity string, progress *domain.ReductionProgress) *domain.PersonalizedTip {
	if progress == nil {
		return nil
	}
	if progress.TargetMet {
		return &domain.PersonalizedTip{
			Category: category,
			Message:  fmt.Sprintf("You met your %s reduction target! Keep your %s emissions down to stay on track.", describeTarget(progress), category),
			TipType:  domain.TipPositive,
		}
	}
	if progress.ProgressPercentage != nil && *progress.ProgressPercentage > 50 {
		remaining := 100 - *progress.ProgressPercentage
		return &domain.PersonalizedTip{
			Category: category,
			Message:  fmt.Sprintf("You're %.1f%% of the way to your target. Cutting back on %s gets you the last %.1f%%.", *progress.ProgressPercentage, activity, remaining),
			TipType:  domain.TipImprovement,
		}
	}
	if progress.ReductionAchieved != nil && *progress.ReductionAchieved < 0 {
		return &domain.PersonalizedTip{
			Category: category,
			Message:  fmt.Sprintf("Your emissions went up compared to last week. %s was your biggest source in %s, try replacing it.", activity, category),
			TipType:  domain.TipImprovement,
		}
	}
	return nil
}

func describeTarget(progress *domain.ReductionProgress) string {
	if progress.TargetType == domain.TargetPercentage {
		return fmt.Sprintf("%g%%", progress.TargetValue)
	}
	return fmt.Sprintf("%g kg CO2e", progress.TargetValue)
}
