package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox/idempotency"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
	"github.com/angelmondragon/stockledger/pkg/outbox/registry"
	"github.com/angelmondragon/stockledger/pkg/webhook"
)

const stockAlertConsumer = "stock-alert-notifications"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type idempotencyGuard interface {
	Process(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

// Consumer turns low-stock and reorder signals into store notifications and
// forwards them to the vendor webhook when one is configured.
type Consumer struct {
	repo         notificationWriter
	subscription receiver
	idempotency  idempotencyGuard
	decoders     *registry.DecoderRegistry
	webhook      webhook.Sender
	logg         *logger.Logger
}

// NewConsumer builds a stock alert consumer. hook may be nil.
func NewConsumer(repo notificationWriter, subscription receiver, manager idempotencyGuard, hook webhook.Sender, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if subscription == nil {
		return nil, errors.New("notification subscription required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     registry.NewConsumerDecoders(),
		webhook:      hook,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != enums.EventLowStockDetected && eventType != enums.EventReorderRequired {
		c.logg.Info(logCtx, "skipping non-threshold event")
		return processResult{}
	}

	envelope, decoded, err := c.decoders.DecodeMessage(eventType, msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode threshold event", err)
		return processResult{}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{}
	}
	signal, ok := decoded.(*payloads.ThresholdSignalEvent)
	if !ok {
		c.logg.Warn(logCtx, "unexpected payload type")
		return processResult{}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":       eventID.String(),
		"record_id":      signal.RecordID.String(),
		"correlation_id": envelope.CorrelationID,
	})

	skipped, err := c.idempotency.Process(logCtx, stockAlertConsumer, eventID, func(ctx context.Context) error {
		return c.handle(ctx, eventID, eventType, *signal)
	})
	if errors.Is(err, idempotency.ErrInFlight) {
		c.logg.Info(logCtx, "stock alert claimed by another worker")
		return processResult{nack: true}
	}
	if err != nil {
		c.logg.Error(logCtx, "stock alert handling failed", err)
		return processResult{nack: true}
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}
	c.logg.Info(logCtx, "stock alert handled")
	return processResult{}
}

func (c *Consumer) handle(ctx context.Context, eventID uuid.UUID, eventType enums.OutboxEventType, signal payloads.ThresholdSignalEvent) error {
	kind, ok := enums.NotificationTypeFor(eventType)
	if !ok {
		return fmt.Errorf("no notification for event %s", eventType)
	}

	if signal.StoreID != nil && *signal.StoreID != uuid.Nil {
		notification, err := buildNotification(eventID, kind, signal)
		if err != nil {
			return err
		}
		created, err := c.repo.Create(ctx, notification)
		if err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		if !created {
			c.logg.Info(ctx, "notification already stored")
		}
	} else {
		c.logg.Warn(ctx, "record has no owning store, skipping notification")
	}

	if c.webhook == nil {
		return nil
	}
	return c.webhook.Send(ctx, webhook.StockAlert{
		EventID:        eventID,
		Type:           string(kind),
		StoreID:        signal.StoreID,
		RecordID:       signal.RecordID,
		ProductID:      signal.ProductID,
		VariantID:      signal.VariantID,
		WarehouseID:    signal.WarehouseID,
		AvailableStock: signal.AvailableStock,
		Threshold:      signal.LowStockThreshold,
		ReorderPoint:   signal.ReorderPoint,
		DetectedAt:     detectedAt(signal),
	})
}

func buildNotification(eventID uuid.UUID, kind enums.NotificationType, signal payloads.ThresholdSignalEvent) (*models.Notification, error) {
	metadata, err := json.Marshal(signal)
	if err != nil {
		return nil, fmt.Errorf("encode notification metadata: %w", err)
	}
	title, message := describe(kind, signal)
	return &models.Notification{
		StoreID:       *signal.StoreID,
		RecordID:      signal.RecordID,
		SourceEventID: eventID,
		Type:          kind,
		Title:         title,
		Message:       message,
		Metadata:      metadata,
	}, nil
}

func describe(kind enums.NotificationType, signal payloads.ThresholdSignalEvent) (string, string) {
	location := "default location"
	if signal.WarehouseID != nil {
		location = "warehouse " + signal.WarehouseID.String()
	}
	if kind == enums.NotificationTypeReorder {
		point := 0
		if signal.ReorderPoint != nil {
			point = *signal.ReorderPoint
		}
		message := fmt.Sprintf("Product %s at %s has %d available, at or below its reorder point of %d.",
			signal.ProductID, location, signal.AvailableStock, point)
		if signal.ReorderQuantity != nil {
			message += fmt.Sprintf(" Suggested reorder quantity: %d.", *signal.ReorderQuantity)
		}
		return "Reorder required", message
	}
	return "Low stock", fmt.Sprintf("Product %s at %s has %d available, at or below the low stock threshold of %d.",
		signal.ProductID, location, signal.AvailableStock, signal.LowStockThreshold)
}

func detectedAt(signal payloads.ThresholdSignalEvent) time.Time {
	if signal.DetectedAt.IsZero() {
		return time.Now().UTC()
	}
	return signal.DetectedAt.UTC()
}
