package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockledger/internal/audit"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/internal/notifications"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type countingInventory struct {
	inventory.Service
	mu       sync.Mutex
	adjusted int
	rec      *models.InventoryRecord
}

func (c *countingInventory) Adjust(_ context.Context, input inventory.AdjustInput) (*models.InventoryRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adjusted++
	c.rec.Stock += input.Quantity
	c.rec.Version++
	copied := *c.rec
	return &copied, nil
}

func (c *countingInventory) GetRecord(_ context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	copied := *c.rec
	return &copied, nil
}

type nopAudit struct{ audit.Service }

type nopNotifications struct{ notifications.Service }

func newTestRouter(t *testing.T, dbErr error) (http.Handler, *countingInventory) {
	t.Helper()
	inv := &countingInventory{rec: &models.InventoryRecord{ID: uuid.New(), ProductID: uuid.New(), Stock: 10, LowStockThreshold: 5, Version: 1}}
	reg := prometheus.NewRegistry()
	cfg := &config.Config{
		App:      config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		Eventing: config.EventingConfig{HTTPIdempotencyTTL: time.Hour},
	}
	handler := NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logger.Nop(),
		DB:            stubPinger{err: dbErr},
		Redis:         stubPinger{},
		Idempotency:   &memoryStore{data: map[string]string{}},
		Gatherer:      reg,
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Inventory:     inv,
		Audit:         nopAudit{},
		Notifications: nopNotifications{},
	})
	return handler, inv
}

func TestHealthEndpoints(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Stockledger-Env"))

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	down, _ := newTestRouter(t, errors.New("connection refused"))
	resp = httptest.NewRecorder()
	down.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "database")
}

func TestAdjustmentRequiresIdempotencyKeyAndReplays(t *testing.T) {
	handler, inv := newTestRouter(t, nil)
	path := "/api/v1/inventory/records/" + inv.rec.ID.String() + "/adjustments"
	body := `{"type":"ADD","quantity":5,"reason":"restock"}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, 0, inv.adjusted)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "retry-1")
		req.Header.Set("X-Actor-Id", "clerk")
		resp = httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"stock":15`)
	}
	assert.Equal(t, 1, inv.adjusted, "retried ADD must apply once")
}

func TestReadRoutesSkipIdempotency(t *testing.T) {
	handler, inv := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/records/"+inv.rec.ID.String(), nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"available_stock":10`)
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	handler, inv := newTestRouter(t, nil)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/inventory/records/"+inv.rec.ID.String(), nil))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `route="/api/v1/inventory/records/{recordId}"`)
}
