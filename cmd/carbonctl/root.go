package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/siyabuilds/carbontrackr/internal/config"
	"github.com/siyabuilds/carbontrackr/internal/logging"
)

var postgresURL string

var rootCmd = &cobra.Command{
	Use:           "carbonctl",
	Short:         "carbonctl runs carbontrackr maintenance tasks",
	Long:          "carbonctl applies database migrations and triggers weekly carbon footprint analysis runs on demand.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&postgresURL, "postgres-url", "", "Postgres connection string (defaults to POSTGRES_URL)")
	rootCmd.AddCommand(migrateCmd, analyzeCmd)
}

func loadConfig() config.Config {
	cfg := config.Load()
	if postgresURL != "" {
		cfg.PostgresURL = postgresURL
	}
	return cfg
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat).With("service", "carbonctl")
}

func withPool(ctx context.Context, cfg config.Config, fn func(*pgxpool.Pool) error) error {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return fn(pool)
}
