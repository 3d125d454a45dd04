package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/stockledger/internal/analytics/types"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

const (
	counterMovements = "movements"
	counterUnits     = "units"
	counterDayLayout = "2006-01-02"
)

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertMovements(ctx context.Context, rows ...types.StockMovementRow) error
}

// CounterStore increments the daily movement counters.
type CounterStore interface {
	IncrByWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	CounterKey(parts ...string) string
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router dispatches ledger envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.OutboxEventType]Handler
	decoders *registry.DecoderRegistry
}

// NewRouter wires the default handlers and allows overrides for specific events.
// counters may be nil.
func NewRouter(writer Writer, counters CounterStore, counterTTL time.Duration, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	recorder := &dailyCounters{store: counters, ttl: counterTTL, logg: logg}
	movement := &movementHandler{writer: writer, counters: recorder}
	handlers := map[enums.OutboxEventType]Handler{
		enums.EventStockAdjusted:        movement,
		enums.EventStockReserved:        movement,
		enums.EventStockReleased:        movement,
		enums.EventReservationFulfilled: movement,
		enums.EventStockTransferred:     &transferHandler{writer: writer, counters: recorder},
	}

	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{
		handlers: handlers,
		decoders: registry.NewConsumerDecoders(),
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return handler.Handle(ctx, envelope, payload)
}

type dailyCounters struct {
	store CounterStore
	ttl   time.Duration
	logg  *logger.Logger
}

// record bumps the per-day movement and unit counters for an operation.
// Counter failures are logged and do not fail the event.
func (d *dailyCounters) record(ctx context.Context, at time.Time, op enums.AuditOperation, quantity int) {
	if d.store == nil {
		return
	}
	day := at.UTC().Format(counterDayLayout)
	if _, err := d.store.IncrByWithTTL(ctx, d.store.CounterKey(counterMovements, day, string(op)), 1, d.ttl); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "movement counter increment failed")
		return
	}
	if _, err := d.store.IncrByWithTTL(ctx, d.store.CounterKey(counterUnits, day, string(op)), int64(quantity), d.ttl); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "unit counter increment failed")
	}
}
