package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryStore) DelIfEqual(_ context.Context, key, value string) (bool, error) {
	if s.values[key] != value {
		return false, nil
	}
	delete(s.values, key)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "sl:idempotency:" + scope + ":" + id
}

func TestProcessMarksCompletedWithTTL(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	skipped, err := manager.Process(context.Background(), "notification-worker", eventID, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.False(t, skipped)

	key := "sl:idempotency:evt:notification-worker:" + eventID.String()
	require.Equal(t, doneMarker, store.values[key])
	require.Equal(t, 24*time.Hour, store.ttls[key])

	done, err := manager.Completed(context.Background(), "notification-worker", eventID)
	require.NoError(t, err)
	require.True(t, done)
}

func TestProcessSkipsCompleted(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	_, err = manager.Process(context.Background(), "analytics-worker", eventID, func(context.Context) error { return nil })
	require.NoError(t, err)

	called := false
	skipped, err := manager.Process(context.Background(), "analytics-worker", eventID, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	if !skipped || called {
		t.Fatalf("expected duplicate to be skipped, skipped=%v called=%v", skipped, called)
	}
}

func TestProcessConsumersAreIndependent(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	for _, consumer := range []string{"analytics-worker", "notification-worker"} {
		skipped, err := manager.Process(context.Background(), consumer, eventID, func(context.Context) error { return nil })
		require.NoError(t, err)
		require.False(t, skipped, consumer)
	}
}

func TestProcessReleasesClaimOnFailure(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	boom := errors.New("handler failed")
	skipped, err := manager.Process(context.Background(), "analytics-worker", eventID, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, skipped)
	require.Empty(t, store.values)

	called := false
	_, err = manager.Process(context.Background(), "analytics-worker", eventID, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called, "redelivery should retry after a failure")
}

func TestProcessInFlightClaim(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	key := "sl:idempotency:evt:analytics-worker:" + eventID.String()
	store.values[key] = claimPrefix + "other-instance"

	_, err = manager.Process(context.Background(), "analytics-worker", eventID, func(context.Context) error {
		t.Fatal("handler must not run while another claim is held")
		return nil
	})
	require.ErrorIs(t, err, ErrInFlight)
	require.True(t, strings.HasPrefix(store.values[key], claimPrefix), "foreign claim must survive")
}

func TestProcessMarkFailureSurfaces(t *testing.T) {
	store := newMemoryStore()
	store.failSet = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.Process(context.Background(), "analytics-worker", uuid.New(), func(context.Context) error { return nil })
	require.ErrorContains(t, err, "mark processed")
}

func TestClaimTTLCappedByTTL(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Minute)
	require.NoError(t, err)
	require.Equal(t, time.Minute, manager.claimTTL)

	manager, err = NewManager(newMemoryStore(), 0)
	require.NoError(t, err)
	require.Equal(t, defaultClaimTTL, manager.claimTTL)
}

func TestManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newMemoryStore(), -time.Second)
	require.Error(t, err)

	manager, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	noop := func(context.Context) error { return nil }
	_, err = manager.Process(context.Background(), "", uuid.New(), noop)
	require.Error(t, err)
	_, err = manager.Process(context.Background(), "c", uuid.Nil, noop)
	require.Error(t, err)
}
