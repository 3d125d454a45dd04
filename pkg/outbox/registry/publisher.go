package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/outbox"
)

// EventDescriptor is where and under which aggregate an event type publishes.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        decoderFunc
}

// ResolvedEvent is an outbox row checked against its descriptor, with the
// envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry binds the event catalog to configured topic names.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

var ErrUnsupportedEvent = errors.New("unsupported event type")

// NonRetryableError marks a row the relay should dead-letter instead of retry.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[destination]string{
		toLedger:        strings.TrimSpace(cfg.LedgerTopic),
		toNotifications: strings.TrimSpace(cfg.NotificationTopic),
	}
	if topics[toLedger] == "" {
		return nil, errors.New("ledger topic is required")
	}
	if topics[toNotifications] == "" {
		return nil, errors.New("notification topic is required")
	}

	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalog))
	for eventType, entry := range catalog {
		entries[eventType] = EventDescriptor{
			EventType:     eventType,
			AggregateType: entry.aggregate,
			Topic:         topics[entry.dest],
			decode:        entry.decode,
		}
	}
	return &EventRegistry{entries: entries}, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the row itself is malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.check(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	envelope, err := outbox.ParseEnvelope(event.Payload)
	switch {
	case errors.Is(err, outbox.ErrEmptyEnvelopeData):
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	case err != nil:
		return nil, NewNonRetryableError(err)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) check(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("%w %s", ErrUnsupportedEvent, event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, errors.New("missing aggregate_id")
	}
	return desc, nil
}
