package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/stockledger/internal/notifications"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/instance"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox/idempotency"
	"github.com/angelmondragon/stockledger/pkg/pubsub"
	"github.com/angelmondragon/stockledger/pkg/redis"
	"github.com/angelmondragon/stockledger/pkg/webhook"
)

const serviceKind = "worker"

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "instance": instance.ID()},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "worker stopped", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.NotificationWorkerResources(cfg.PubSub), logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeQuietly(logg, "pubsub", pubsubClient.Close)

	alerts, err := stockAlerts(cfg, logg, dbClient, redisClient, pubsubClient)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Consumers: map[string]consumer{"stock-alerts": alerts},
	})
	if err != nil {
		return fmt.Errorf("worker service: %w", err)
	}

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// stockAlerts builds the consumer that turns threshold signals into stored
// notifications and, when a webhook URL is configured, outbound calls.
func stockAlerts(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, pubsubClient *pubsub.Client) (*notifications.Consumer, error) {
	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		return nil, errors.New("notification subscription not configured")
	}
	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency manager: %w", err)
	}
	webhookClient, err := webhook.NewClient(cfg.Notifications)
	if err != nil {
		return nil, fmt.Errorf("webhook client: %w", err)
	}
	// A nil *Client must not reach the consumer as a non-nil interface.
	var hook webhook.Sender
	if webhookClient != nil {
		hook = webhookClient
	}
	logg.Info(logg.WithField(context.Background(), "webhook", hook != nil), "stock alert consumer configured")

	alerts, err := notifications.NewConsumer(notifications.NewRepository(dbClient.DB()), subscription, guard, hook, logg)
	if err != nil {
		return nil, fmt.Errorf("notification consumer: %w", err)
	}
	return alerts, nil
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
