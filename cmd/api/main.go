package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/siyabuilds/carbontrackr/internal/account"
	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/api"
	"github.com/siyabuilds/carbontrackr/internal/auth"
	"github.com/siyabuilds/carbontrackr/internal/config"
	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/logging"
	"github.com/siyabuilds/carbontrackr/internal/observability"
	"github.com/siyabuilds/carbontrackr/internal/outbox"
	"github.com/siyabuilds/carbontrackr/internal/persistence/postgres"
	"github.com/siyabuilds/carbontrackr/internal/realtime"
	"github.com/siyabuilds/carbontrackr/internal/tips"
	httptransport "github.com/siyabuilds/carbontrackr/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	repo := postgres.NewRepository(pool, cfg.ActivityTopic)
	publisher := realtime.NewPublisher(redisClient, realtime.DefaultBreakerConfig(), logger)

	orchestrator := analysis.NewOrchestrator(repo, repo, repo, tips.Default(),
		analysis.WithLogger(logger),
		analysis.WithConcurrency(cfg.AnalysisConcurrency),
		analysis.WithTipSink(publisher),
	)
	tokens := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.TokenTTL}
	accounts := account.NewService(repo, tokens, orchestrator, account.WithLogger(logger))

	opts := []api.Option{api.WithLogger(logger)}
	if cfg.TipStreamEnabled {
		opts = append(opts, api.WithTipStream(realtime.NewSubscriber(redisClient, logger)))
	}
	handler := api.NewHandler(domain.NewService(repo, repo, repo), accounts, orchestrator, opts...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Instrument sits inside auth so it sees the request the mux annotates with its pattern.
	authMiddleware := auth.NewMiddleware(tokens, nil)
	root := httptransport.CORS(cfg.CORSOrigin, authMiddleware.Wrap(observability.Instrument(mux, logger)))
	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	server := httptransport.NewServer(serverCfg, root)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()
	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize, outbox.WithLogger(logger))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		dispatcher.Start(groupCtx)
		return nil
	})
	group.Go(func() error {
		return httptransport.Serve(groupCtx, server, serverCfg.ShutdownTimeout, logger)
	})

	if err := group.Wait(); err != nil {
		logger.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("api stopped")
}
