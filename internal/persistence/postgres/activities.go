package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/events"
	"github.com/siyabuilds/carbontrackr/internal/observability"
)

const activityColumns = `activity_id, user_id, category, label, value, occurred_at, created_at`

// Create persists the activity and its activity.logged outbox event in one transaction.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (activity_id, user_id, category, label, value, occurred_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	if _, err = tx.Exec(ctx, insertActivity,
		activity.ID,
		activity.UserID,
		string(activity.Category),
		activity.Label,
		activity.Value,
		activity.OccurredAt,
		activity.CreatedAt,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, outboxEvent{
		aggregateType: "activity",
		aggregateID:   activity.ID,
		eventType:     events.TypeActivityLogged,
		topic:         r.activityTopic,
		partitionKey:  activity.UserID,
		payload: events.ActivityLogged{
			ActivityID: activity.ID,
			UserID:     activity.UserID,
			Category:   string(activity.Category),
			Activity:   activity.Label,
			Value:      activity.Value,
			OccurredAt: activity.OccurredAt,
		},
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordActivityPersisted(activity.CreatedAt)
	return nil
}

// ListByUser returns activities for a user ordered newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []any{userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1`
	if cursor != nil {
		query += ` AND (occurred_at, activity_id) < ($3, $4)`
		args = append(args, cursor.OccurredAt, cursor.ID)
	}
	query += ` ORDER BY occurred_at DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	results, err := pgx.CollectRows(rows, scanActivity)
	if err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, next, nil
}

// Delete removes a single activity owned by the user.
func (r *Repository) Delete(ctx context.Context, userID, activityID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE activity_id=$1 AND user_id=$2`, activityID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAll removes every activity owned by the user.
func (r *Repository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ActiveDays returns one timestamp per UTC day in [from, to) on which the user logged anything.
func (r *Repository) ActiveDays(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	const query = `SELECT DISTINCT date_trunc('day', occurred_at AT TIME ZONE 'UTC') AS day
        FROM activities
        WHERE user_id=$1 AND occurred_at >= $2 AND occurred_at < $3
        ORDER BY day`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (time.Time, error) {
		var day time.Time
		if err := row.Scan(&day); err != nil {
			return time.Time{}, err
		}
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
	})
}

// AggregateByUser groups the window's activities by (user, category) and
// regroups the rows per user. An empty userID covers every user.
func (r *Repository) AggregateByUser(ctx context.Context, window domain.Window, userID string) ([]domain.UserAggregate, error) {
	const query = `SELECT user_id, category, SUM(value), COUNT(*)
        FROM activities
        WHERE occurred_at >= $1 AND occurred_at < $2 AND ($3::text = '' OR user_id = $3)
        GROUP BY user_id, category
        ORDER BY user_id, category`

	rows, err := r.pool.Query(ctx, query, window.Start, window.End, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		results []domain.UserAggregate
		current *domain.UserAggregate
	)
	for rows.Next() {
		var (
			id       string
			category string
			total    float64
			count    int
		)
		if err := rows.Scan(&id, &category, &total, &count); err != nil {
			return nil, err
		}
		if current == nil || current.UserID != id {
			results = append(results, domain.UserAggregate{UserID: id})
			current = &results[len(results)-1]
		}
		current.ByCategory = append(current.ByCategory, domain.CategoryAggregate{
			Category: domain.Category(category),
			Total:    total,
			Count:    count,
		})
		current.TotalValue += total
		current.ActivitiesCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// TopActivity returns the user's highest-value activity in a category within the window.
func (r *Repository) TopActivity(ctx context.Context, userID string, category domain.Category, window domain.Window) (*domain.Activity, error) {
	const query = `SELECT ` + activityColumns + `
        FROM activities
        WHERE user_id=$1 AND category=$2 AND occurred_at >= $3 AND occurred_at < $4
        ORDER BY value DESC, activity_id
        LIMIT 1`

	rows, err := r.pool.Query(ctx, query, userID, string(category), window.Start, window.End)
	if err != nil {
		return nil, err
	}
	activity, err := pgx.CollectOneRow(rows, scanActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

func scanActivity(row pgx.CollectableRow) (domain.Activity, error) {
	var (
		a        domain.Activity
		category string
	)
	if err := row.Scan(&a.ID, &a.UserID, &category, &a.Label, &a.Value, &a.OccurredAt, &a.CreatedAt); err != nil {
		return domain.Activity{}, err
	}
	a.Category = domain.Category(category)
	a.OccurredAt = a.OccurredAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
