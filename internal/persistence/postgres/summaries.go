package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/observability"
)

// GetSummary returns the stored summary for (userID, weekStart), or nil.
func (r *Repository) GetSummary(ctx context.Context, userID string, weekStart time.Time) (*domain.WeeklySummary, error) {
	const query = `SELECT user_id, week_start, week_end, total_value, activities_count,
            by_category_totals, by_category_counts, highest_emission_category, lowest_emission_category,
            personalized_tip, reduction_target, generated_at
        FROM weekly_summaries WHERE user_id=$1 AND week_start=$2`

	var (
		s                    domain.WeeklySummary
		totals, counts       []byte
		highest, lowest      []byte
		tip, reductionTarget []byte
	)
	err := r.pool.QueryRow(ctx, query, userID, weekStart.UTC()).Scan(
		&s.UserID, &s.WeekStart, &s.WeekEnd, &s.TotalValue, &s.ActivitiesCount,
		&totals, &counts, &highest, &lowest, &tip, &reductionTarget, &s.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	for _, field := range []struct {
		raw  []byte
		dest any
	}{
		{totals, &s.ByCategoryTotals},
		{counts, &s.ByCategoryCounts},
		{highest, &s.HighestEmissionCategory},
		{lowest, &s.LowestEmissionCategory},
		{tip, &s.PersonalizedTip},
		{reductionTarget, &s.ReductionTarget},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return nil, fmt.Errorf("decode summary document: %w", err)
		}
	}

	s.WeekStart = s.WeekStart.UTC()
	s.WeekEnd = s.WeekEnd.UTC()
	s.GeneratedAt = s.GeneratedAt.UTC()
	return &s, nil
}

// UpsertSummary writes the whole summary document, replacing every column of
// an existing row with the same (user_id, week_start).
func (r *Repository) UpsertSummary(ctx context.Context, s domain.WeeklySummary) error {
	totals, err := json.Marshal(nonNilMap(s.ByCategoryTotals))
	if err != nil {
		return err
	}
	counts, err := json.Marshal(nonNilMap(s.ByCategoryCounts))
	if err != nil {
		return err
	}
	highest, err := nullableJSON(s.HighestEmissionCategory)
	if err != nil {
		return err
	}
	lowest, err := nullableJSON(s.LowestEmissionCategory)
	if err != nil {
		return err
	}
	tip, err := nullableJSON(s.PersonalizedTip)
	if err != nil {
		return err
	}
	progress, err := nullableJSON(s.ReductionTarget)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO weekly_summaries (user_id, week_start, week_end, total_value, activities_count,
            by_category_totals, by_category_counts, highest_emission_category, lowest_emission_category,
            personalized_tip, reduction_target, generated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (user_id, week_start) DO UPDATE SET
            week_end = EXCLUDED.week_end,
            total_value = EXCLUDED.total_value,
            activities_count = EXCLUDED.activities_count,
            by_category_totals = EXCLUDED.by_category_totals,
            by_category_counts = EXCLUDED.by_category_counts,
            highest_emission_category = EXCLUDED.highest_emission_category,
            lowest_emission_category = EXCLUDED.lowest_emission_category,
            personalized_tip = EXCLUDED.personalized_tip,
            reduction_target = EXCLUDED.reduction_target,
            generated_at = EXCLUDED.generated_at`

	_, err = r.pool.Exec(ctx, stmt,
		s.UserID, s.WeekStart.UTC(), s.WeekEnd.UTC(), s.TotalValue, s.ActivitiesCount,
		totals, counts, highest, lowest, tip, progress, s.GeneratedAt.UTC(),
	)
	if err != nil {
		return err
	}
	observability.RecordSummaryWritten(s.GeneratedAt)
	return nil
}

func nullableJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nonNilMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}
