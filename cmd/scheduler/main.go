package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/config"
	"github.com/siyabuilds/carbontrackr/internal/logging"
	"github.com/siyabuilds/carbontrackr/internal/persistence/postgres"
	"github.com/siyabuilds/carbontrackr/internal/scheduler"
	"github.com/siyabuilds/carbontrackr/internal/tips"
	httptransport "github.com/siyabuilds/carbontrackr/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := postgres.NewRepository(pool, cfg.ActivityTopic)
	orchestrator := analysis.NewOrchestrator(repo, repo, repo, tips.Default(),
		analysis.WithLogger(logger),
		analysis.WithConcurrency(cfg.AnalysisConcurrency),
	)
	weekly := scheduler.New(scheduler.Config{
		Weekday: cfg.WeeklyAnalysisWeekday,
		At:      cfg.WeeklyAnalysisAt,
	}, orchestrator, scheduler.WithLogger(logger))

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := weekly.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return httptransport.Serve(groupCtx, metricsSrv, 10*time.Second, logger)
	})

	if err := group.Wait(); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}
