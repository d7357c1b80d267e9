package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/persistence/memory"
)

func newService() (*domain.Service, *memory.Store) {
	store := memory.NewStore()
	return domain.NewService(store, store, store), store
}

func TestServiceActivities(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	logged, err := svc.LogActivity(ctx, domain.LogActivityInput{UserID: "u1", Category: "water", Activity: "Bath"})
	require.NoError(t, err)
	require.Equal(t, domain.CategoryWater, logged.Category)
	require.Equal(t, 1.0, logged.Value)

	_, err = svc.LogActivity(ctx, domain.LogActivityInput{UserID: "u1", Category: "water", Activity: "Pool"})
	require.Error(t, err)

	require.ErrorIs(t, svc.DeleteActivity(ctx, "u2", logged.ID), domain.ErrActivityNotFound)
	require.NoError(t, svc.DeleteActivity(ctx, "u1", logged.ID))
	require.ErrorIs(t, svc.DeleteActivity(ctx, "u1", logged.ID), domain.ErrActivityNotFound)

	for range 3 {
		_, err := svc.LogActivity(ctx, domain.LogActivityInput{UserID: "u1", Category: "Food", Activity: "Vegan Meal"})
		require.NoError(t, err)
	}
	removed, err := svc.DeleteAllActivities(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)
}

func TestServiceTargetsKeepOneActive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	_, err := svc.ActiveTarget(ctx, "u1", domain.PeriodWeekly)
	require.ErrorIs(t, err, domain.ErrTargetNotFound)

	first, err := svc.CreateTarget(ctx, domain.TargetInput{UserID: "u1", Value: 10})
	require.NoError(t, err)
	second, err := svc.CreateTarget(ctx, domain.TargetInput{UserID: "u1", Value: 20})
	require.NoError(t, err)

	active, err := svc.ActiveTarget(ctx, "u1", domain.PeriodWeekly)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)

	enable := true
	_, err = svc.UpdateTarget(ctx, "u1", first.ID, domain.TargetPatch{Active: &enable})
	require.NoError(t, err)
	active, err = svc.ActiveTarget(ctx, "u1", domain.PeriodWeekly)
	require.NoError(t, err)
	require.Equal(t, first.ID, active.ID)

	history, err := svc.TargetHistory(ctx, "u1", domain.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.NoError(t, svc.DeactivateTarget(ctx, "u1", first.ID))
	_, err = svc.ActiveTarget(ctx, "u1", domain.PeriodWeekly)
	require.ErrorIs(t, err, domain.ErrTargetNotFound)

	require.ErrorIs(t, svc.DeactivateTarget(ctx, "u2", first.ID), domain.ErrTargetNotFound)
}

func TestServiceSummaries(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	weekStart := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.CurrentSummary(ctx, "u1", weekStart.Add(50*time.Hour))
	require.ErrorIs(t, err, domain.ErrSummaryNotFound)

	require.NoError(t, store.UpsertSummary(ctx, domain.WeeklySummary{UserID: "u1", WeekStart: weekStart, WeekEnd: weekStart.AddDate(0, 0, 7), TotalValue: 4}))

	current, err := svc.CurrentSummary(ctx, "u1", weekStart.Add(50*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 4.0, current.TotalValue)

	byWeek, err := svc.SummaryForWeek(ctx, "u1", weekStart)
	require.NoError(t, err)
	require.Equal(t, current.WeekStart, byWeek.WeekStart)
}

func TestServiceStreak(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	now := time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)

	_, err := svc.LogActivity(ctx, domain.LogActivityInput{UserID: "u1", Category: "Transport", Activity: "Walk (10km)", OccurredAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	streak, err := svc.Streak(ctx, "u1", now)
	require.NoError(t, err)
	require.Equal(t, 1, streak.CurrentStreak)
}
