//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/siyabuilds/carbontrackr/db/migrations"
	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

var weekStart = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("carbontrackr"),
		postgrescontainer.WithUsername("carbon"),
		postgrescontainer.WithPassword("carbon"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	again, err := migrations.Apply(ctx, pool)
	require.NoError(t, err)
	require.Empty(t, again)

	return NewRepository(pool, "activity_events"), pool
}

func createUser(t *testing.T, repo *Repository, username string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, repo.CreateUser(context.Background(), domain.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}))
	return id
}

func logActivity(t *testing.T, repo *Repository, userID string, category domain.Category, label string, value float64, at time.Time) domain.Activity {
	t.Helper()
	activity := domain.Activity{
		ID:         uuid.NewString(),
		UserID:     userID,
		Category:   category,
		Label:      label,
		Value:      value,
		OccurredAt: at,
		CreatedAt:  at,
	}
	require.NoError(t, repo.Create(context.Background(), activity))
	return activity
}

func TestRepositoryActivitiesAndOutbox(t *testing.T) {
	ctx := context.Background()
	repo, pool := newTestRepository(t)

	u1 := createUser(t, repo, "alice")
	u2 := createUser(t, repo, "bobby")
	logActivity(t, repo, u1, domain.CategoryTransport, "Car (10km)", 5, weekStart.Add(10*time.Minute))
	beef := logActivity(t, repo, u1, domain.CategoryFood, "Beef (200g)", 12, weekStart.Add(33*time.Hour))
	logActivity(t, repo, u1, domain.CategoryFood, "Vegan Meal", 0.5, weekStart.Add(34*time.Hour))
	logActivity(t, repo, u2, domain.CategoryWater, "Bath", 3, weekStart.Add(-time.Hour))

	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type='activity.logged'`).Scan(&outboxRows))
	require.Equal(t, 4, outboxRows)

	window := domain.Window{Start: weekStart, End: weekStart.Add(7 * 24 * time.Hour)}
	aggregates, err := repo.AggregateByUser(ctx, window, "")
	require.NoError(t, err)
	require.Len(t, aggregates, 1)
	require.Equal(t, u1, aggregates[0].UserID)
	require.InDelta(t, 17.5, aggregates[0].TotalValue, 1e-9)
	require.Equal(t, 3, aggregates[0].ActivitiesCount)

	filtered, err := repo.AggregateByUser(ctx, window, u2)
	require.NoError(t, err)
	require.Empty(t, filtered)

	top, err := repo.TopActivity(ctx, u1, domain.CategoryFood, window)
	require.NoError(t, err)
	require.Equal(t, beef.ID, top.ID)

	none, err := repo.TopActivity(ctx, u1, domain.CategoryEnergy, window)
	require.NoError(t, err)
	require.Nil(t, none)

	page, cursor, err := repo.ListByUser(ctx, u1, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	rest, _, err := repo.ListByUser(ctx, u1, cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	days, err := repo.ActiveDays(ctx, u1, weekStart, window.End)
	require.NoError(t, err)
	require.Equal(t, []time.Time{weekStart, weekStart.AddDate(0, 0, 1)}, days)

	deleted, err := repo.Delete(ctx, u2, beef.ID)
	require.NoError(t, err)
	require.False(t, deleted, "users cannot delete each other's activities")

	removed, err := repo.DeleteAll(ctx, u1)
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)
}

func TestRepositoryTargetsKeepOneActivePerPeriod(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	u1 := createUser(t, repo, "carol")

	first, err := domain.NewReductionTarget(domain.TargetInput{UserID: u1, Value: 10})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTarget(ctx, first))

	second, err := domain.NewReductionTarget(domain.TargetInput{UserID: u1, Type: domain.TargetAbsolute, Value: 5})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTarget(ctx, second))

	active, err := repo.ActiveTarget(ctx, u1, domain.PeriodWeekly)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)

	reactivated, err := first.Apply(domain.TargetPatch{})
	require.NoError(t, err)
	require.NoError(t, repo.SaveTarget(ctx, reactivated))

	active, err = repo.ActiveTarget(ctx, u1, domain.PeriodWeekly)
	require.NoError(t, err)
	require.Equal(t, first.ID, active.ID)

	history, err := repo.TargetHistory(ctx, u1, domain.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, history, 2)

	missing := second
	missing.ID = uuid.NewString()
	require.ErrorIs(t, repo.SaveTarget(ctx, missing), domain.ErrTargetNotFound)
}

func TestRepositoryUsersRejectDuplicates(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	createUser(t, repo, "danny")

	err := repo.CreateUser(ctx, domain.User{ID: uuid.NewString(), Username: "other", Email: "DANNY@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	require.ErrorIs(t, err, domain.ErrUserExists)

	found, err := repo.FindUser(ctx, "danny@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, "danny", found.Username)
}

func TestWeeklyAnalysisAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	repo, pool := newTestRepository(t)

	u1 := createUser(t, repo, "erina")
	logActivity(t, repo, u1, domain.CategoryTransport, "Car (10km)", 5, weekStart.Add(10*time.Minute))
	logActivity(t, repo, u1, domain.CategoryFood, "Beef (200g)", 12, weekStart.Add(33*time.Hour))

	target, err := domain.NewReductionTarget(domain.TargetInput{UserID: u1, Value: 20})
	require.NoError(t, err)
	require.NoError(t, repo.CreateTarget(ctx, target))
	require.NoError(t, repo.UpsertSummary(ctx, domain.WeeklySummary{
		UserID:      u1,
		WeekStart:   weekStart.AddDate(0, 0, -7),
		WeekEnd:     weekStart,
		TotalValue:  25,
		GeneratedAt: weekStart,
	}))

	orch := analysis.NewOrchestrator(repo, repo, repo, tips.Default())
	reference := weekStart.AddDate(0, 0, 9)

	result, err := orch.RunLastWeekAnalysis(ctx, reference)
	require.NoError(t, err)
	require.Equal(t, 1, result.ProcessedUsers)

	_, err = orch.RunLastWeekAnalysis(ctx, reference)
	require.NoError(t, err)

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM weekly_summaries WHERE user_id=$1 AND week_start=$2`, u1, weekStart).Scan(&rows))
	require.Equal(t, 1, rows)

	summary, err := repo.GetSummary(ctx, u1, weekStart)
	require.NoError(t, err)
	require.Equal(t, 17.0, summary.TotalValue)
	require.Equal(t, 2, summary.ActivitiesCount)
	require.Equal(t, domain.CategoryFood, summary.HighestEmissionCategory.Category)
	require.Equal(t, domain.CategoryTransport, summary.LowestEmissionCategory.Category)
	require.Equal(t, map[domain.Category]int{domain.CategoryFood: 1, domain.CategoryTransport: 1}, summary.ByCategoryCounts)
	require.NotNil(t, summary.ReductionTarget)
	require.InDelta(t, 32, *summary.ReductionTarget.ReductionAchieved, 1e-9)
	require.True(t, summary.ReductionTarget.TargetMet)
	require.Equal(t, domain.TipPositive, summary.PersonalizedTip.TipType)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
