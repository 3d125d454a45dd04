package writer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/stockledger/internal/analytics/types"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&fakeInserter{}, Config{MovementsTable: " "}); err == nil {
		t.Fatal("expected error when movements table missing")
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertMovements(context.Background(), types.StockMovementRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	calls := fake.snapshot()
	if len(calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(calls))
	}
	if calls[1].table != "stock_movements" {
		t.Fatalf("expected movements table on retry, got %s", calls[1].table)
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	if err := writer.InsertMovements(context.Background(), types.StockMovementRow{EventID: "1"}); err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if n := len(fake.snapshot()); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestWriterGroupCommit(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 3
	writer.linger = time.Hour

	first := make(chan error, 1)
	go func() {
		first <- writer.InsertMovements(context.Background(), types.StockMovementRow{EventID: "1"})
	}()

	waitFor(t, func() bool {
		writer.mu.Lock()
		defer writer.mu.Unlock()
		return writer.open != nil
	})
	select {
	case err := <-first:
		t.Fatalf("first caller returned before its batch committed: %v", err)
	default:
	}

	if err := writer.InsertMovements(context.Background(), types.StockMovementRow{EventID: "2"}, types.StockMovementRow{EventID: "2"}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("first caller should share the commit result, got %v", err)
	}

	calls := fake.snapshot()
	if len(calls) != 1 || calls[0].rowCount != 3 {
		t.Fatalf("expected one insert of three rows, got %+v", calls)
	}
}

func TestWriterLingerCommitsPartialBatch(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10
	writer.linger = 5 * time.Millisecond

	if err := writer.InsertMovements(context.Background(), types.StockMovementRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if calls := fake.snapshot(); len(calls) != 1 || calls[0].rowCount != 1 {
		t.Fatalf("expected linger to commit one row, got %+v", calls)
	}
}

func TestWriterFlushCommitsOpenBatch(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10
	writer.linger = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	waiter := make(chan error, 1)
	go func() {
		waiter <- writer.InsertMovements(ctx, types.StockMovementRow{EventID: "1"})
	}()
	waitFor(t, func() bool {
		writer.mu.Lock()
		defer writer.mu.Unlock()
		return writer.open != nil
	})

	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if err := <-waiter; err != nil {
		t.Fatalf("waiter should see the flush result, got %v", err)
	}
	cancel()

	if n := len(fake.snapshot()); n != 1 {
		t.Fatalf("expected flush to insert once, got %d", n)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("empty flush should be a no-op: %v", err)
	}
}

func TestIsRetryableBigQueryError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "http 503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: true},
		{name: "http 404", err: &googleapi.Error{Code: http.StatusNotFound}, want: false},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "down"), want: true},
		{name: "grpc invalid", err: status.Error(codes.InvalidArgument, "bad"), want: false},
		{name: "multi all retryable", err: cbigquery.MultiError{&googleapi.Error{Code: http.StatusTooManyRequests}}, want: true},
		{name: "put multi with permanent row", err: cbigquery.PutMultiError{{Errors: cbigquery.MultiError{errors.New("schema")}}}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableBigQueryError(tc.err); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	mu        sync.Mutex
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) snapshot() []insertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]insertCall(nil), f.calls...)
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	writer, err := New(fake, Config{
		MovementsTable: "stock_movements",
		RetryPolicy:    RetryPolicy{InitialBackoff: time.Millisecond, MaximumBackoff: 2 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	return writer, fake
}
