package writer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/stockledger/internal/analytics/types"
)

const (
	defaultBatchSize      = 1
	defaultLinger         = time.Second
	lingerCommitTimeout   = 30 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

type Config struct {
	MovementsTable string
	// BatchSize rows are streamed per insert. Callers that fill a batch
	// partially wait up to Linger for others to join it.
	BatchSize   int
	Linger      time.Duration
	RetryPolicy RetryPolicy
}

type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// batch is one group commit. Every caller whose rows joined it waits on done
// and sees the same insert error.
type batch struct {
	rows []types.StockMovementRow
	done chan struct{}
	err  error
}

// BigQueryWriter streams stock movement rows with group commit. A call to
// InsertMovements returns only after its rows are written or have failed, so
// the consumer never acks an event whose rows are still in memory.
type BigQueryWriter struct {
	client         tableInserter
	movementsTable string
	batchSize      int
	linger         time.Duration
	retry          RetryPolicy

	mu    sync.Mutex
	open  *batch
	timer *time.Timer
}

func New(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.MovementsTable)
	if table == "" {
		return nil, errors.New("stock movements table is required")
	}

	w := &BigQueryWriter{
		client:         client,
		movementsTable: table,
		batchSize:      cfg.BatchSize,
		linger:         cfg.Linger,
		retry:          cfg.RetryPolicy,
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.linger <= 0 {
		w.linger = defaultLinger
	}
	if w.retry.MaxAttempts <= 0 {
		w.retry.MaxAttempts = defaultMaxAttempts
	}
	if w.retry.InitialBackoff <= 0 {
		w.retry.InitialBackoff = defaultInitialBackoff
	}
	if w.retry.MaximumBackoff < w.retry.InitialBackoff {
		w.retry.MaximumBackoff = max(w.retry.InitialBackoff, defaultMaximumBackoff)
	}
	return w, nil
}

// InsertMovements adds rows to the open batch and blocks until that batch
// is committed.
func (w *BigQueryWriter) InsertMovements(ctx context.Context, rows ...types.StockMovementRow) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	if w.open == nil {
		w.open = &batch{done: make(chan struct{})}
	}
	b := w.open
	b.rows = append(b.rows, rows...)
	full := len(b.rows) >= w.batchSize
	if full {
		w.detachLocked()
	} else if w.timer == nil {
		w.timer = time.AfterFunc(w.linger, w.lingerExpired)
	}
	w.mu.Unlock()

	if full {
		w.commit(context.WithoutCancel(ctx), b)
	}

	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush commits the open batch immediately. Used on shutdown.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	b := w.detachLocked()
	w.mu.Unlock()
	if b == nil {
		return nil
	}
	w.commit(ctx, b)
	return b.err
}

func (w *BigQueryWriter) detachLocked() *batch {
	b := w.open
	w.open = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return b
}

func (w *BigQueryWriter) lingerExpired() {
	w.mu.Lock()
	b := w.detachLocked()
	w.mu.Unlock()
	if b == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), lingerCommitTimeout)
	defer cancel()
	w.commit(ctx, b)
}

func (w *BigQueryWriter) commit(ctx context.Context, b *batch) {
	rows := make([]any, len(b.rows))
	for i := range b.rows {
		rows[i] = &b.rows[i]
	}
	b.err = w.insertWithRetry(ctx, w.movementsTable, rows)
	close(b.done)
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, table string, rows []any) error {
	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*2, w.retry.MaximumBackoff)
	}
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, inner := range multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if len(pme) == 0 {
			return false
		}
		for _, rowErr := range pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}
