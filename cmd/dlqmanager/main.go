package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siyabuilds/carbontrackr/internal/config"
	"github.com/siyabuilds/carbontrackr/internal/logging"
	"github.com/siyabuilds/carbontrackr/internal/outbox"
	httptransport "github.com/siyabuilds/carbontrackr/internal/transport/http"
)

const defaultDLQBatchSize = 50

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "dlqmanager")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)

	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
	go func() {
		if err := httptransport.Serve(ctx, metricsSrv, 10*time.Second, logger); err != nil {
			logger.Error("metrics server error", "error", err)
		}
	}()

	ticker := time.NewTicker(cfg.DLQPollInterval)
	defer ticker.Stop()

	logger.Info("dlq manager started", "interval", cfg.DLQPollInterval, "max_retries", cfg.DLQMaxRetries)

	for {
		select {
		case <-ctx.Done():
			logger.Info("dlq manager stopped")
			return
		case <-ticker.C:
			processed, err := manager.RunOnce(ctx, defaultDLQBatchSize)
			if err != nil {
				logger.Error("dlq manager error", "error", err)
			} else if processed > 0 {
				logger.Info("dlq entries requeued", "count", processed)
			}
		}
	}
}
