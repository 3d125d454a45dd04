package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockledger/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type blockingConsumer struct{ started chan struct{} }

func (b *blockingConsumer) Run(ctx context.Context) error {
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}

type failingConsumer struct{ err error }

func (f failingConsumer) Run(context.Context) error { return f.err }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger: testLogger(),
		DB:     stubPinger{},
		Redis:  stubPinger{},
		PubSub: stubPinger{},
	})
	require.Error(t, err)
}

func TestRunStopsOnDependencyFailure(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		DB:        stubPinger{},
		Redis:     stubPinger{err: errors.New("connection refused")},
		PubSub:    stubPinger{},
		Consumers: map[string]consumer{"a": failingConsumer{}},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "redis ping failed")
}

func TestRunCancelsSiblingsWhenConsumerFails(t *testing.T) {
	blocker := &blockingConsumer{started: make(chan struct{})}
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		DB:     stubPinger{},
		Redis:  stubPinger{},
		PubSub: stubPinger{},
		Consumers: map[string]consumer{
			"blocker": blocker,
			"broken":  failingConsumer{err: errors.New("subscription deleted")},
		},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()

	select {
	case err := <-done:
		require.ErrorContains(t, err, "broken: subscription deleted")
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after consumer failure")
	}
}

func TestRunReturnsContextErrorOnShutdown(t *testing.T) {
	blocker := &blockingConsumer{started: make(chan struct{})}
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		DB:        stubPinger{},
		Redis:     stubPinger{},
		PubSub:    stubPinger{},
		Consumers: map[string]consumer{"blocker": blocker},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	<-blocker.started
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
}
