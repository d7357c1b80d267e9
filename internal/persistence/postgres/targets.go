package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

const targetColumns = `target_id, user_id, target_type, target_value, description, target_period, active, created_at, updated_at`

// ActiveTarget returns the user's active target for the period, or nil.
func (r *Repository) ActiveTarget(ctx context.Context, userID string, period domain.TargetPeriod) (*domain.ReductionTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+targetColumns+` FROM reduction_targets WHERE user_id=$1 AND target_period=$2 AND active`,
		userID, string(period))
	if err != nil {
		return nil, err
	}
	return collectTarget(rows)
}

// GetTarget returns one of the user's targets, or nil.
func (r *Repository) GetTarget(ctx context.Context, userID, targetID string) (*domain.ReductionTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+targetColumns+` FROM reduction_targets WHERE target_id=$1 AND user_id=$2`,
		targetID, userID)
	if err != nil {
		return nil, err
	}
	return collectTarget(rows)
}

// CreateTarget inserts the target, first deactivating the user's other active
// target for the same period.
func (r *Repository) CreateTarget(ctx context.Context, target domain.ReductionTarget) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := deactivateOthers(ctx, tx, target); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO reduction_targets (`+targetColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			target.ID, target.UserID, string(target.Type), target.Value, target.Description,
			string(target.Period), target.Active, target.CreatedAt, target.UpdatedAt,
		)
		return err
	})
}

// SaveTarget overwrites an existing target with the same deactivation rule as CreateTarget.
func (r *Repository) SaveTarget(ctx context.Context, target domain.ReductionTarget) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := deactivateOthers(ctx, tx, target); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE reduction_targets
                SET target_type=$3, target_value=$4, description=$5, target_period=$6, active=$7, updated_at=$8
              WHERE target_id=$1 AND user_id=$2`,
			target.ID, target.UserID, string(target.Type), target.Value, target.Description,
			string(target.Period), target.Active, target.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTargetNotFound
		}
		return nil
	})
}

// TargetHistory lists every target for the period, newest first.
func (r *Repository) TargetHistory(ctx context.Context, userID string, period domain.TargetPeriod) ([]domain.ReductionTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+targetColumns+` FROM reduction_targets WHERE user_id=$1 AND target_period=$2 ORDER BY created_at DESC, target_id`,
		userID, string(period))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTarget)
}

func deactivateOthers(ctx context.Context, tx pgx.Tx, target domain.ReductionTarget) error {
	if !target.Active {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE reduction_targets SET active=false, updated_at=$4
          WHERE user_id=$1 AND target_period=$2 AND active AND target_id<>$3`,
		target.UserID, string(target.Period), target.ID, target.UpdatedAt,
	)
	return err
}

func collectTarget(rows pgx.Rows) (*domain.ReductionTarget, error) {
	target, err := pgx.CollectOneRow(rows, scanTarget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &target, nil
}

func scanTarget(row pgx.CollectableRow) (domain.ReductionTarget, error) {
	var (
		t      domain.ReductionTarget
		kind   string
		period string
	)
	if err := row.Scan(&t.ID, &t.UserID, &kind, &t.Value, &t.Description, &period, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.ReductionTarget{}, err
	}
	t.Type = domain.TargetType(kind)
	t.Period = domain.TargetPeriod(period)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}
