package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/internal/analytics/router"
	"github.com/angelmondragon/stockledger/internal/analytics/types"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/idempotency"
)

const defaultConsumer = "analytics"

// Handler turns one movement envelope into warehouse rows.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type idempotencyGuard interface {
	Process(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// ServiceParams wires the analytics consumer. Consumer defaults to "analytics"
// and namespaces the idempotency keys.
type ServiceParams struct {
	Subscription receiver
	Handler      Handler
	Guard        idempotencyGuard
	Logger       *logger.Logger
	Consumer     string
}

// Service acks a message once its movement has been written, or once it is
// known to be unprocessable. Transient failures are nacked for redelivery.
type Service struct {
	subscription receiver
	handler      Handler
	guard        idempotencyGuard
	logg         *logger.Logger
	consumer     string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case params.Handler == nil:
		return nil, errors.New("analytics handler is required")
	case params.Guard == nil:
		return nil, errors.New("idempotency guard is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	consumer := strings.TrimSpace(params.Consumer)
	if consumer == "" {
		consumer = defaultConsumer
	}
	return &Service{
		subscription: params.Subscription,
		handler:      params.Handler,
		guard:        params.Guard,
		logg:         params.Logger,
		consumer:     consumer,
	}, nil
}

type outcome int

const (
	ack outcome = iota
	nack
)

func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   env.EventType,
		"aggregate_id": env.AggregateID,
		"occurred_at":  env.OccurredAt.Format(time.RFC3339Nano),
	})

	if !env.EventType.IsStockMovement() {
		s.logg.Debug(ctx, "ignoring non-movement event")
		return ack
	}
	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "event id is not a uuid")
		return ack
	}

	var unsupported bool
	skipped, err := s.guard.Process(ctx, s.consumer, eventID, func(ctx context.Context) error {
		if err := s.handler.Handle(ctx, env); !errors.Is(err, router.ErrUnsupportedEventType) {
			return err
		}
		unsupported = true
		return nil
	})

	switch {
	case errors.Is(err, idempotency.ErrInFlight):
		s.logg.Info(ctx, "event claimed by another worker")
		return nack
	case err != nil:
		s.logg.Error(ctx, "analytics handling failed", err)
		return nack
	case skipped:
		s.logg.Info(ctx, "event already processed")
	case unsupported:
		s.logg.Warn(ctx, "no analytics route for event")
	default:
		s.logg.Info(ctx, "analytics event handled")
	}
	return ack
}

// decodeEnvelope reads the stored outbox envelope from the body and the
// routing metadata from attributes. Body fields win; attributes fill gaps.
func decodeEnvelope(msg *gcppubsub.Message) (types.Envelope, error) {
	stored, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		return types.Envelope{}, err
	}
	attr := func(name string) string { return strings.TrimSpace(msg.Attributes[name]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}

	env := types.Envelope{
		EventID:       firstNonEmpty(strings.TrimSpace(stored.EventID), attr("event_id")),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   attr("aggregate_id"),
		Version:       stored.Version,
		OccurredAt:    stored.OccurredAt,
		Payload:       stored.Data,
	}
	if env.AggregateID == "" {
		return types.Envelope{}, errors.New("aggregate_id missing")
	}
	if env.EventID == "" {
		return types.Envelope{}, errors.New("event_id missing")
	}
	if env.OccurredAt.IsZero() {
		if created, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			env.OccurredAt = created
		}
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
