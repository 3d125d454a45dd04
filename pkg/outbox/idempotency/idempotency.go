package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	doneMarker      = "done"
	claimPrefix     = "claim:"
	defaultClaimTTL = 5 * time.Minute
)

// ErrInFlight means another consumer instance holds the claim for the event.
// Callers should nack so the message comes back once the claim settles.
var ErrInFlight = errors.New("event is being processed elsewhere")

// Store is the Redis surface the guard needs.
type Store interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	DelIfEqual(ctx context.Context, key, value string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Manager gives each (consumer, event) pair at-most-once handling on top of
// at-least-once delivery. A short claim guards the handler; a completed
// marker with the long TTL replaces it once the handler succeeds.
type Manager struct {
	store    Store
	ttl      time.Duration
	claimTTL time.Duration
	token    func() string
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	claim := defaultClaimTTL
	if ttl > 0 && ttl < claim {
		claim = ttl
	}
	return &Manager{
		store:    store,
		ttl:      ttl,
		claimTTL: claim,
		token:    func() string { return uuid.NewString() },
	}, nil
}

// Process runs fn unless the event was already completed for consumer. The
// returned bool reports a duplicate skip. When fn fails only this caller's
// claim is released, so a redelivery can retry.
func (m *Manager) Process(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}

	claim := claimPrefix + m.token()
	won, err := m.store.SetNX(ctx, key, claim, m.claimTTL)
	if err != nil {
		return false, fmt.Errorf("idempotency claim: %w", err)
	}
	if !won {
		return m.settled(ctx, key)
	}

	if err := fn(ctx); err != nil {
		if _, relErr := m.store.DelIfEqual(ctx, key, claim); relErr != nil {
			return false, errors.Join(err, fmt.Errorf("release idempotency claim: %w", relErr))
		}
		return false, err
	}

	if err := m.store.Set(ctx, key, doneMarker, m.ttl); err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}
	return false, nil
}

// Completed reports whether the event already finished for consumer.
func (m *Manager) Completed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	value, err := m.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == doneMarker, nil
}

func (m *Manager) settled(ctx context.Context, key string) (bool, error) {
	value, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		// claim expired between SETNX and GET
		return false, ErrInFlight
	case err != nil:
		return false, fmt.Errorf("idempotency lookup: %w", err)
	case value == doneMarker:
		return true, nil
	default:
		return false, ErrInFlight
	}
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
