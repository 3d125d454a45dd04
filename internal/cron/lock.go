package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// ErrLockHeld is returned by TryAcquire when another holder owns the lease.
var ErrLockHeld = errors.New("cron lock held by another instance")

// Lock hands out an exclusive lease for one maintenance cycle.
type Lock interface {
	TryAcquire(ctx context.Context) (*Lease, error)
	Holder(ctx context.Context) (string, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	DelIfEqual(ctx context.Context, key, value string) (bool, error)
}

// RedisLock leases a single key with SETNX and a TTL. The stored value is
// "<holder>/<token>" so operators can see which instance owns the cycle.
type RedisLock struct {
	client redisStore
	key    string
	holder string
	ttl    time.Duration
}

func NewRedisLock(client redisStore, key, holder string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	holder = strings.TrimSpace(holder)
	if holder == "" {
		holder = "unknown"
	}
	return &RedisLock{client: client, key: key, holder: holder, ttl: ttl}, nil
}

// TryAcquire returns ErrLockHeld without blocking when the lease is taken.
func (l *RedisLock) TryAcquire(ctx context.Context) (*Lease, error) {
	value := l.holder + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, value, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{lock: l, value: value, expires: time.Now().Add(l.ttl)}, nil
}

// Holder reports who owns the lease, or "" when it is free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read lock holder: %w", err)
	}
	holder, _, _ := strings.Cut(value, "/")
	return holder, nil
}

// Lease is one acquired cycle. Release is a no-op once the TTL has passed
// and someone else took over.
type Lease struct {
	lock    *RedisLock
	value   string
	expires time.Time
}

// Expires is when the lease lapses if never released.
func (l *Lease) Expires() time.Time { return l.expires }

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.value == "" {
		return nil
	}
	if _, err := l.lock.client.DelIfEqual(ctx, l.lock.key, l.value); err != nil {
		return fmt.Errorf("release lock %s: %w", l.lock.key, err)
	}
	l.value = ""
	return nil
}
