package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
)

// SignalNotifier forwards fired threshold signals to collaborators.
type SignalNotifier interface {
	Notify(ctx context.Context, rec models.InventoryRecord, signal Signal) error
}

type cooldownStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CooldownKey(scope, id string) string
}

// OutboxSignalNotifier queues low_stock_detected and reorder_required events.
// A Redis cooldown per record and kind keeps a record hovering around its
// threshold from flooding consumers.
type OutboxSignalNotifier struct {
	tx       txRunner
	events   eventEmitter
	cooldown cooldownStore
	ttl      time.Duration
	now      func() time.Time
}

// NewOutboxSignalNotifier builds the default notifier. A nil cooldown store
// disables de-duplication.
func NewOutboxSignalNotifier(tx txRunner, events eventEmitter, cooldown cooldownStore, ttl time.Duration) (*OutboxSignalNotifier, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if events == nil {
		return nil, errors.New("event emitter required")
	}
	return &OutboxSignalNotifier{
		tx:       tx,
		events:   events,
		cooldown: cooldown,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

func (n *OutboxSignalNotifier) Notify(ctx context.Context, rec models.InventoryRecord, signal Signal) error {
	var errs []error
	for _, kind := range signal.Kinds() {
		if err := n.notifyKind(ctx, rec, kind); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

func (n *OutboxSignalNotifier) notifyKind(ctx context.Context, rec models.InventoryRecord, kind SignalKind) error {
	var key string
	if n.cooldown != nil && n.ttl > 0 {
		key = n.cooldown.CooldownKey(string(kind), rec.ID.String())
		acquired, err := n.cooldown.SetNX(ctx, key, n.now().UTC().Format(time.RFC3339), n.ttl)
		if err != nil {
			return fmt.Errorf("acquire cooldown: %w", err)
		}
		if !acquired {
			return nil
		}
	}

	eventType := enums.EventLowStockDetected
	if kind == SignalReorder {
		eventType = enums.EventReorderRequired
	}
	detectedAt := n.now().UTC()
	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return n.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateInventoryRecord,
			AggregateID:   rec.ID,
			OccurredAt:    detectedAt,
			Data: payloads.ThresholdSignalEvent{
				RecordID:          rec.ID,
				ProductID:         rec.ProductID,
				VariantID:         rec.VariantID,
				WarehouseID:       rec.WarehouseID,
				StoreID:           rec.StoreID,
				Stock:             rec.Stock,
				ReservedStock:     rec.ReservedStock,
				AvailableStock:    rec.AvailableStock(),
				LowStockThreshold: rec.LowStockThreshold,
				ReorderPoint:      rec.ReorderPoint,
				ReorderQuantity:   rec.ReorderQuantity,
				DetectedAt:        detectedAt,
			},
		})
	})
	if err != nil && key != "" {
		if delErr := n.cooldown.Del(ctx, key); delErr != nil {
			return errors.Join(err, fmt.Errorf("clear cooldown: %w", delErr))
		}
	}
	return err
}

// evaluate runs after commit. Notifier errors and panics are logged and
// counted, never returned.
func (s *service) evaluate(ctx context.Context, rec models.InventoryRecord) {
	signal := Evaluate(rec)
	if !signal.Fired() || s.signals == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signalTimeout)
	defer cancel()

	outcome := "sent"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			s.logg.Error(s.logg.WithRecordID(ctx, rec.ID.String()), "threshold notifier panicked", fmt.Errorf("%v", r))
		}
		if s.metrics != nil {
			for _, kind := range signal.Kinds() {
				s.metrics.IncSignal(string(kind), outcome)
			}
		}
	}()

	if err := s.signals.Notify(notifyCtx, rec, signal); err != nil {
		outcome = "failed"
		s.logg.Error(s.logg.WithRecordID(ctx, rec.ID.String()), "threshold notification failed", err)
	}
}
