package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

const uniqueViolation = "23505"

// CreateUser inserts a user. Duplicate usernames or emails yield domain.ErrUserExists.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, username, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	return err
}

// FindUser looks a user up by email (case-insensitive) or username.
func (r *Repository) FindUser(ctx context.Context, identifier string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, username, email, password_hash, created_at
           FROM users
          WHERE LOWER(email) = LOWER($1) OR username = $1
          LIMIT 1`,
		identifier,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
