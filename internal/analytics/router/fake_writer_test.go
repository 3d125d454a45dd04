package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/stockledger/internal/analytics/types"
)

type fakeWriter struct {
	inserted []types.StockMovementRow
	err      error
}

func (f *fakeWriter) InsertMovements(_ context.Context, rows ...types.StockMovementRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rows...)
	return nil
}

type fakeCounters struct {
	values map[string]int64
	ttls   map[string]time.Duration
	fail   bool
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounters) IncrByWithTTL(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if f.fail {
		return 0, errors.New("redis down")
	}
	f.values[key] += delta
	f.ttls[key] = ttl
	return f.values[key], nil
}

func (f *fakeCounters) CounterKey(parts ...string) string {
	return "sl:counter:" + strings.Join(parts, ":")
}
