// Package migrations embeds the Postgres schema and applies it in order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.up.sql
var files embed.FS

// Names lists the embedded migrations in the order they are applied.
func Names() ([]string, error) {
	entries, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	return entries, nil
}

// Apply runs every migration not yet recorded in schema_migrations, each in
// its own transaction. It returns the names it applied.
func Apply(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        name       TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := Names()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range names {
		ok, err := apply(ctx, pool, name)
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", name, err)
		}
		if ok {
			applied = append(applied, strings.TrimSuffix(name, ".up.sql"))
		}
	}
	return applied, nil
}

func apply(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	body, err := files.ReadFile(name)
	if err != nil {
		return false, err
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
