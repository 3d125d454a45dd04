package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ActorRef identifies who triggered the mutation behind the event.
type ActorRef struct {
	ActorID string `json:"actorId"`
	Source  string `json:"source,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. EventID equals the outbox row
// id, so a requeued dead letter keeps its identity downstream.
type PayloadEnvelope struct {
	Version       int             `json:"version"`
	EventID       string          `json:"eventId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Actor         *ActorRef       `json:"actor,omitempty"`
	Data          json.RawMessage `json:"data"`
}

var ErrEmptyEnvelopeData = errors.New("envelope data missing")

// ParseEnvelope decodes raw and rejects envelopes without a data section.
func ParseEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, ErrEmptyEnvelopeData
	}
	return env, nil
}

type correlationKey struct{}

// WithCorrelationID tags ctx so events emitted under it carry id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
