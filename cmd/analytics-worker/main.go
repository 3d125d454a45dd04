package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/stockledger/internal/analytics/router"
	"github.com/angelmondragon/stockledger/internal/analytics/types"
	"github.com/angelmondragon/stockledger/internal/analytics/worker"
	"github.com/angelmondragon/stockledger/internal/analytics/writer"
	"github.com/angelmondragon/stockledger/pkg/bigquery"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/instance"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox/idempotency"
	"github.com/angelmondragon/stockledger/pkg/pubsub"
	"github.com/angelmondragon/stockledger/pkg/redis"
)

const (
	serviceKind  = "analytics-worker"
	flushTimeout = 10 * time.Second
)

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceKind})
	_ = godotenv.Load()

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
		logg.Error(ctx, "analytics worker stopped", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker shut down")
}

// run wires the subscription to BigQuery and blocks until ctx ends. Buffered
// rows are flushed before the clients close.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.AnalyticsWorkerResources(cfg.PubSub), logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeQuietly(logg, "pubsub", pubsubClient.Close)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		return errors.New("analytics subscription not configured")
	}

	bqClient, err := openWarehouse(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeQuietly(logg, "bigquery", bqClient.Close)

	movements, err := writer.New(bqClient, writer.Config{
		MovementsTable: cfg.BigQuery.StockMovementsTable,
		BatchSize:      cfg.Analytics.BatchSize,
		Linger:         cfg.Analytics.Linger,
	})
	if err != nil {
		return fmt.Errorf("movement writer: %w", err)
	}
	defer flushMovements(logg, movements)

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	handler, err := router.NewRouter(movements, redisClient, cfg.Analytics.CounterTTL, logg, nil)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}

	service, err := worker.NewService(worker.ServiceParams{
		Subscription: subscription,
		Handler:      handler,
		Guard:        guard,
		Logger:       logg,
	})
	if err != nil {
		return fmt.Errorf("analytics worker service: %w", err)
	}

	logg.Info(logg.WithField(ctx, "table", cfg.BigQuery.StockMovementsTable), "analytics worker ready")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openWarehouse connects to BigQuery and makes sure the movements table exists,
// partitioned by day and clustered for per-location queries.
func openWarehouse(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*bigquery.Client, error) {
	schema, err := types.StockMovementSchema()
	if err != nil {
		return nil, fmt.Errorf("stock movement schema: %w", err)
	}
	client, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg, bigquery.TableSpec{
		Name:           cfg.BigQuery.StockMovementsTable,
		Schema:         schema,
		PartitionField: "occurred_at",
		Clustering:     []string{"warehouse_id", "product_id"},
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap bigquery: %w", err)
	}
	return client, nil
}

func flushMovements(logg *logger.Logger, w *writer.BigQueryWriter) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		logg.Error(ctx, "failed to flush buffered movements", err)
	}
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
