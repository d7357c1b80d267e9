package domain

import "time"

// TipType distinguishes praise from suggestions.
type TipType string

const (
	TipPositive    TipType = "positive"
	TipImprovement TipType = "improvement"
)

// CategoryStat describes one category's share of a user's week.
type CategoryStat struct {
	Category      Category `json:"category"`
	Emissions     float64  `json:"emissions"`
	ActivityCount int      `json:"activity_count"`
}

// PersonalizedTip is the message attached to a weekly summary.
type PersonalizedTip struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	TipType  TipType  `json:"tip_type"`
}

// ReductionProgress snapshots progress against the active weekly target.
// The pointer fields stay nil when there is no prior week to compare with.
type ReductionProgress struct {
	TargetValue           float64    `json:"target_value"`
	TargetType            TargetType `json:"target_type"`
	PreviousWeekEmissions *float64   `json:"previous_week_emissions"`
	ReductionAchieved     *float64   `json:"reduction_achieved"`
	ProgressPercentage    *float64   `json:"progress_percentage"`
	TargetMet             bool       `json:"target_met"`
}

// WeeklySummary is the derived per-user, per-week document. (UserID, WeekStart)
// is unique; recomputation replaces the whole document.
type WeeklySummary struct {
	UserID                  string               `json:"user_id"`
	WeekStart               time.Time            `json:"week_start"`
	WeekEnd                 time.Time            `json:"week_end"`
	TotalValue              float64              `json:"total_value"`
	ActivitiesCount         int                  `json:"activities_count"`
	ByCategoryTotals        map[Category]float64 `json:"by_category_totals"`
	ByCategoryCounts        map[Category]int     `json:"by_category_counts"`
	HighestEmissionCategory *CategoryStat        `json:"highest_emission_category"`
	LowestEmissionCategory  *CategoryStat        `json:"lowest_emission_category"`
	PersonalizedTip         *PersonalizedTip     `json:"personalized_tip"`
	ReductionTarget         *ReductionProgress   `json:"reduction_target"`
	GeneratedAt             time.Time            `json:"generated_at"`
}
