package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/siyabuilds/carbontrackr/internal/config"
	"github.com/siyabuilds/carbontrackr/internal/consumer"
	"github.com/siyabuilds/carbontrackr/internal/events"
	"github.com/siyabuilds/carbontrackr/internal/logging"
	"github.com/siyabuilds/carbontrackr/internal/realtime"
	"github.com/siyabuilds/carbontrackr/internal/tips"
	httptransport "github.com/siyabuilds/carbontrackr/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "consumer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	publisher := realtime.NewPublisher(redisClient, realtime.DefaultBreakerConfig(), logger)
	router := consumer.NewRouter().
		Register(events.TypeActivityLogged, consumer.NewTipHandler(tips.Default(), publisher, logger, nil))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.ActivityTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	processor := consumer.NewProcessor(reader, router, consumer.WithLogger(logger))
	metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("consumer started", "topic", cfg.ActivityTopic, "group", cfg.ConsumerGroupID)
		if err := processor.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return httptransport.Serve(groupCtx, metricsSrv, 10*time.Second, logger)
	})

	if err := group.Wait(); err != nil {
		logger.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("consumer stopped")
}
