package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/outbox"
)

type versionedType struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry decodes published payloads by event type and envelope
// version. It is safe for concurrent use.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[versionedType]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[versionedType]decoderFunc)}
}

// NewConsumerDecoders registers v1 decoders for every catalogued event.
func NewConsumerDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for eventType, entry := range catalog {
		reg.Register(eventType, 1, entry.decode)
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode func(json.RawMessage) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[versionedType{eventType, version}] = decode
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[versionedType{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s@v%d", eventType, version)
	}
	return decode(payload)
}

// DecodeMessage unwraps a published envelope and decodes its data. The
// envelope is returned even when only the payload fails to decode.
func (r *DecoderRegistry) DecodeMessage(eventType enums.OutboxEventType, data []byte) (*outbox.PayloadEnvelope, any, error) {
	envelope, err := outbox.ParseEnvelope(data)
	if err != nil {
		return nil, nil, err
	}
	payload, err := r.Decode(eventType, envelope.Version, envelope.Data)
	return &envelope, payload, err
}
