package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/audit"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/outbox"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.InventoryRecord{}, &models.AuditEntry{}, &models.OutboxEvent{}))
	return conn
}

type testLedger struct {
	db      *gorm.DB
	svc     Service
	audit   audit.Repository
	signals *recordingNotifier
	metrics *recordingMetrics
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	return newTestLedgerOn(t, newTestDB(t), nil)
}

// newTestLedgerOn builds the service on conn, optionally wrapping the
// inventory repository.
func newTestLedgerOn(t *testing.T, conn *gorm.DB, wrap func(Repository) Repository) *testLedger {
	t.Helper()
	signals := &recordingNotifier{}
	metrics := &recordingMetrics{}
	auditRepo := audit.NewRepository(conn)
	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Audit:   auditRepo,
		Tx:      db.NewFromConn(conn, 0),
		Events:  outbox.NewService(outbox.NewRepository(conn), nil),
		Signals: signals,
		Metrics: metrics,
		Defaults: config.InventoryConfig{
			DefaultLowStockThreshold: 5,
			ReplenishmentCoverFactor: "1.5",
		},
	})
	require.NoError(t, err)
	return &testLedger{db: conn, svc: svc, audit: auditRepo, signals: signals, metrics: metrics}
}

func (l *testLedger) seed(t *testing.T, stock int, warehouseID *uuid.UUID) *models.InventoryRecord {
	t.Helper()
	rec, err := l.svc.CreateRecord(context.Background(), CreateRecordInput{
		ProductID:    uuid.New(),
		WarehouseID:  warehouseID,
		InitialStock: stock,
	})
	require.NoError(t, err)
	return rec
}

func (l *testLedger) reload(t *testing.T, id uuid.UUID) *models.InventoryRecord {
	t.Helper()
	rec, err := l.svc.GetRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (l *testLedger) entries(t *testing.T, id uuid.UUID) []models.AuditEntry {
	t.Helper()
	entries, err := l.audit.ListByRecord(context.Background(), id, 0, 0)
	require.NoError(t, err)
	return entries
}

type recordingNotifier struct {
	mu      sync.Mutex
	signals []Signal
	err     error
	panics  bool
}

func (n *recordingNotifier) Notify(_ context.Context, _ models.InventoryRecord, signal Signal) error {
	if n.panics {
		panic("notifier exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals = append(n.signals, signal)
	return n.err
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	signals  map[string]int
}

func (m *recordingMetrics) ObserveOperation(operation, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[operation+":"+outcome]++
}

func (m *recordingMetrics) IncSignal(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signals == nil {
		m.signals = map[string]int{}
	}
	m.signals[kind+":"+outcome]++
}

func assertPosition(t *testing.T, rec *models.InventoryRecord, stock, reserved, available int) {
	t.Helper()
	assert.Equal(t, stock, rec.Stock, "stock")
	assert.Equal(t, reserved, rec.ReservedStock, "reserved")
	assert.Equal(t, available, rec.AvailableStock(), "available")
}

func reserveInput(id uuid.UUID, qty int, reason string) ReservationInput {
	return ReservationInput{RecordID: id, Quantity: qty, Reason: reason}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	conn := newTestDB(t)
	_, err = NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Audit:    audit.NewRepository(conn),
		Tx:       db.NewFromConn(conn, 0),
		Events:   outbox.NewService(outbox.NewRepository(conn), nil),
		Defaults: config.InventoryConfig{ReplenishmentCoverFactor: "abc"},
	})
	require.Error(t, err)
}

func TestCreateRecordAppliesDefaultsAndInitialEntry(t *testing.T) {
	l := newTestLedger(t)
	warehouse := uuid.New()
	rec := l.seed(t, 10, &warehouse)

	assertPosition(t, rec, 10, 0, 10)
	assert.Equal(t, 5, rec.LowStockThreshold)
	assert.Equal(t, 1, rec.Version)

	entries := l.entries(t, rec.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.AuditOperationAdd, entries[0].Operation)
	assert.Equal(t, "initial stock", entries[0].Reason)
	assert.Equal(t, 0, entries[0].StockBefore)
	assert.Equal(t, 10, entries[0].StockAfter)

	_, err := l.svc.CreateRecord(context.Background(), CreateRecordInput{ProductID: rec.ProductID, WarehouseID: &warehouse})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestScenarioReserveThenTransferThenSet(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	source := uuid.New()
	destination := uuid.New()
	rec := l.seed(t, 10, &source)

	rec, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 4, "order-1"))
	require.NoError(t, err)
	assertPosition(t, rec, 10, 4, 6)

	result, err := l.svc.Transfer(ctx, TransferInput{
		ProductID:              rec.ProductID,
		SourceWarehouseID:      source,
		DestinationWarehouseID: destination,
		Quantity:               3,
		Reason:                 "rebalance",
	})
	require.NoError(t, err)
	assertPosition(t, result.Source, 7, 4, 3)
	assertPosition(t, result.Destination, 3, 0, 3)
	assertPosition(t, l.reload(t, result.Destination.ID), 3, 0, 3)

	_, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentSet, Quantity: 2, Reason: "recount"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation))
	assertPosition(t, l.reload(t, rec.ID), 7, 4, 3)
}

func TestAdjustOperations(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)

	rec, err := l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentAdd, Quantity: 5, Reason: "delivery"})
	require.NoError(t, err)
	assertPosition(t, rec, 15, 0, 15)
	assert.Equal(t, 2, rec.Version)

	rec, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentRemove, Quantity: 4, Reason: "damaged"})
	require.NoError(t, err)
	assertPosition(t, rec, 11, 0, 11)

	rec, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentSet, Quantity: 20, Reason: "recount", MarkCounted: true})
	require.NoError(t, err)
	assertPosition(t, rec, 20, 0, 20)
	require.NotNil(t, l.reload(t, rec.ID).LastCounted)

	_, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentRemove, Quantity: 21, Reason: "damaged"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, rec.ID.String(), details["record_id"])
	assert.Equal(t, 21, details["quantity"])
	assert.Equal(t, 20, details["available_stock"])

	entries := l.entries(t, rec.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, enums.AuditOperationSet, entries[3].Operation)
	assert.Equal(t, 4, entries[3].RecordVersion)
}

func TestRemoveOfReservedUnitsIsInsufficientStock(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)
	_, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 8, "order"))
	require.NoError(t, err)

	_, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentRemove, Quantity: 5, Reason: "shrinkage"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	assertPosition(t, l.reload(t, rec.ID), 10, 8, 2)

	_, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentRemove, Quantity: 2, Reason: "shrinkage"})
	require.NoError(t, err)
	assertPosition(t, l.reload(t, rec.ID), 8, 8, 0)
}

func TestValidationRunsBeforeAnyMutation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)

	_, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 1, "   "))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = l.svc.Reserve(ctx, reserveInput(rec.ID, 0, "order"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: "MULTIPLY", Quantity: 1, Reason: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Len(t, l.entries(t, rec.ID), 1)
	assertPosition(t, l.reload(t, rec.ID), 10, 0, 10)
}

func TestReserveUnknownRecordIsNotFound(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.svc.Reserve(context.Background(), reserveInput(uuid.New(), 1, "order"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOversellingRejectedAndRecordUnchanged(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)
	rec, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 3, "order-1"))
	require.NoError(t, err)

	_, err = l.svc.Reserve(ctx, reserveInput(rec.ID, rec.AvailableStock()+1, "order-2"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	after := l.reload(t, rec.ID)
	assertPosition(t, after, 10, 3, 7)
	assert.Equal(t, rec.Version, after.Version)
	assert.Equal(t, 1, l.metrics.outcomes["RESERVE:insufficient_stock"])
}

func TestReserveReleaseInverse(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 12, nil)
	rec, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 2, "order-0"))
	require.NoError(t, err)

	for _, qty := range []int{1, 4, 10} {
		before := l.reload(t, rec.ID)
		_, err := l.svc.Reserve(ctx, reserveInput(rec.ID, qty, "order"))
		require.NoError(t, err)
		after, err := l.svc.Release(ctx, reserveInput(rec.ID, qty, "cancelled"))
		require.NoError(t, err)
		assert.Equal(t, before.ReservedStock, after.ReservedStock)
		assert.Equal(t, before.AvailableStock(), after.AvailableStock())
		assert.Equal(t, before.Stock, after.Stock)
	}

	_, err = l.svc.Release(ctx, reserveInput(rec.ID, 3, "cancelled"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation))
}

func TestFulfillConsumesReservation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)
	_, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 4, "order-1"))
	require.NoError(t, err)

	rec, err = l.svc.Fulfill(ctx, reserveInput(rec.ID, 3, "shipped"))
	require.NoError(t, err)
	assertPosition(t, rec, 7, 1, 6)

	_, err = l.svc.Fulfill(ctx, reserveInput(rec.ID, 2, "shipped"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation))
}

func TestInvariantsHoldAcrossOperationSequence(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	warehouseA, warehouseB := uuid.New(), uuid.New()
	rec := l.seed(t, 20, &warehouseA)

	steps := []func() error{
		func() error { _, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 7, "o1")); return err },
		func() error {
			_, err := l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentRemove, Quantity: 30, Reason: "x"})
			return err
		},
		func() error {
			_, err := l.svc.Transfer(ctx, TransferInput{ProductID: rec.ProductID, SourceWarehouseID: warehouseA, DestinationWarehouseID: warehouseB, Quantity: 9, Reason: "r"})
			return err
		},
		func() error { _, err := l.svc.Release(ctx, reserveInput(rec.ID, 2, "o1")); return err },
		func() error { _, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 50, "o2")); return err },
		func() error {
			_, err := l.svc.Adjust(ctx, AdjustInput{RecordID: rec.ID, Type: enums.AdjustmentSet, Quantity: 4, Reason: "count"})
			return err
		},
		func() error { _, err := l.svc.Fulfill(ctx, reserveInput(rec.ID, 5, "ship")); return err },
		func() error {
			_, err := l.svc.Transfer(ctx, TransferInput{ProductID: rec.ProductID, SourceWarehouseID: warehouseB, DestinationWarehouseID: warehouseA, Quantity: 9, Reason: "r"})
			return err
		},
	}
	for i, step := range steps {
		_ = step()
		var records []models.InventoryRecord
		require.NoError(t, l.db.Find(&records).Error)
		for _, r := range records {
			if r.Stock < 0 || r.ReservedStock < 0 || r.ReservedStock > r.Stock {
				t.Fatalf("step %d broke invariants: %+v", i, r)
			}
		}
	}

	snap, err := audit.Replay(rec.ID, time.Now(), l.entries(t, rec.ID))
	require.NoError(t, err)
	current := l.reload(t, rec.ID)
	assertPosition(t, current, 15, 0, 15)
	assert.Equal(t, current.Stock, snap.Stock)
	assert.Equal(t, current.ReservedStock, snap.ReservedStock)
	assert.Equal(t, current.Version, snap.Version)
}

func TestTransferConservesStockAndLinksEntries(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	warehouseA, warehouseB := uuid.New(), uuid.New()
	rec := l.seed(t, 10, &warehouseA)
	_, err := l.svc.CreateRecord(ctx, CreateRecordInput{ProductID: rec.ProductID, WarehouseID: &warehouseB, InitialStock: 4})
	require.NoError(t, err)

	for _, qty := range []int{1, 5, 3} {
		result, err := l.svc.Transfer(ctx, TransferInput{
			ProductID:              rec.ProductID,
			SourceWarehouseID:      warehouseA,
			DestinationWarehouseID: warehouseB,
			Quantity:               qty,
			Reason:                 "rebalance",
		})
		require.NoError(t, err)
		assert.Equal(t, 14, result.Source.Stock+result.Destination.Stock)
	}

	result, err := l.svc.Transfer(ctx, TransferInput{
		ProductID:              rec.ProductID,
		SourceWarehouseID:      warehouseB,
		DestinationWarehouseID: warehouseA,
		Quantity:               2,
		Reason:                 "return",
	})
	require.NoError(t, err)

	out, err := l.audit.ListByTransfer(ctx, result.TransferID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, enums.AuditOperationTransferOut, out[0].Operation)
	assert.Equal(t, enums.AuditOperationTransferIn, out[1].Operation)
	assert.Equal(t, out[1].ID, *out[0].CounterpartEntryID)
	assert.Equal(t, out[0].ID, *out[1].CounterpartEntryID)
}

func TestTransferFailuresLeaveNoTrace(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	warehouseA, warehouseB := uuid.New(), uuid.New()
	rec := l.seed(t, 5, &warehouseA)
	_, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 3, "order"))
	require.NoError(t, err)

	_, err = l.svc.Transfer(ctx, TransferInput{
		ProductID:              rec.ProductID,
		SourceWarehouseID:      warehouseA,
		DestinationWarehouseID: warehouseB,
		Quantity:               3,
		Reason:                 "rebalance",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assertPosition(t, l.reload(t, rec.ID), 5, 3, 2)

	_, err = l.svc.FindRecord(ctx, RecordKey{ProductID: rec.ProductID, WarehouseID: &warehouseB})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "destination creation must roll back")

	_, err = l.svc.Transfer(ctx, TransferInput{
		ProductID:              uuid.New(),
		SourceWarehouseID:      warehouseA,
		DestinationWarehouseID: warehouseB,
		Quantity:               1,
		Reason:                 "rebalance",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = l.svc.Transfer(ctx, TransferInput{
		ProductID:              rec.ProductID,
		SourceWarehouseID:      warehouseA,
		DestinationWarehouseID: warehouseA,
		Quantity:               1,
		Reason:                 "rebalance",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStaleVersionIsConcurrencyConflict(t *testing.T) {
	l := newTestLedger(t)
	rec := l.seed(t, 10, nil)
	repo := NewRepository(l.db)

	stale := *rec
	stale.Stock = 1
	stale.Version = rec.Version + 1
	require.NoError(t, repo.UpdatePosition(context.Background(), &stale, rec.Version))

	err := repo.UpdatePosition(context.Background(), &stale, rec.Version)
	require.ErrorIs(t, err, errVersionConflict)
	assert.True(t, pkgerrors.IsCode(classify(err, rec.ID, enums.AuditOperationReserve), pkgerrors.CodeConcurrencyConflict))
}

func TestThresholdSignalsAfterCommit(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 20, nil)
	assert.Empty(t, l.signals.signals)

	reorderPoint := 8
	_, err := l.svc.UpdatePlanning(ctx, UpdatePlanningInput{RecordID: rec.ID, ReorderPoint: &reorderPoint})
	require.NoError(t, err)
	assert.Empty(t, l.signals.signals)

	_, err = l.svc.Reserve(ctx, reserveInput(rec.ID, 15, "bulk order"))
	require.NoError(t, err)
	require.Len(t, l.signals.signals, 1)
	assert.True(t, l.signals.signals[0].LowStock)
	assert.True(t, l.signals.signals[0].NeedsReorder)
	assert.Equal(t, 1, l.metrics.signals["low_stock:sent"])
}

func TestSignalFailuresAreSwallowed(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)

	l.signals.err = errors.New("broker down")
	updated, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 8, "order"))
	require.NoError(t, err)
	assertPosition(t, updated, 10, 8, 2)
	assert.Equal(t, 1, l.metrics.signals["low_stock:failed"])

	l.signals.panics = true
	updated, err = l.svc.Release(ctx, reserveInput(rec.ID, 1, "cancel"))
	require.NoError(t, err)
	assertPosition(t, updated, 10, 7, 3)
	assert.Equal(t, 1, l.metrics.signals["low_stock:panic"])
}

func TestEventsQueuedWithMutation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	warehouseA, warehouseB := uuid.New(), uuid.New()
	rec := l.seed(t, 10, &warehouseA)
	_, err := l.svc.Reserve(ctx, reserveInput(rec.ID, 2, "order"))
	require.NoError(t, err)
	_, err = l.svc.Transfer(ctx, TransferInput{ProductID: rec.ProductID, SourceWarehouseID: warehouseA, DestinationWarehouseID: warehouseB, Quantity: 1, Reason: "r"})
	require.NoError(t, err)
	_, err = l.svc.Reserve(ctx, reserveInput(rec.ID, 100, "order"))
	require.Error(t, err)

	var events []models.OutboxEvent
	require.NoError(t, l.db.Order("created_at ASC").Find(&events).Error)
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventStockAdjusted,
		enums.EventStockReserved,
		enums.EventStockTransferred,
	}, types)
}

func TestListRecordsAndLowStock(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	store := uuid.New()
	for _, stock := range []int{2, 30, 4} {
		_, err := l.svc.CreateRecord(ctx, CreateRecordInput{ProductID: uuid.New(), StoreID: &store, InitialStock: stock})
		require.NoError(t, err)
	}
	l.seed(t, 1, nil)

	records, next, err := l.svc.ListRecords(ctx, RecordFilter{StoreID: &store, Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, next)

	rest, next, err := l.svc.ListRecords(ctx, RecordFilter{StoreID: &store, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, next)

	low, _, err := l.svc.ListLowStock(ctx, RecordFilter{StoreID: &store})
	require.NoError(t, err)
	assert.Len(t, low, 2)
}

func TestUpdatePlanningDoesNotTouchStock(t *testing.T) {
	l := newTestLedger(t)
	rec := l.seed(t, 10, nil)
	threshold, location := 2, "Aisle 4"

	updated, err := l.svc.UpdatePlanning(context.Background(), UpdatePlanningInput{
		RecordID:          rec.ID,
		LowStockThreshold: &threshold,
		Location:          &location,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.LowStockThreshold)
	assert.Equal(t, "Aisle 4", *updated.Location)
	assert.Equal(t, rec.Version, updated.Version)
	assert.Len(t, l.entries(t, rec.ID), 1)

	_, err = l.svc.UpdatePlanning(context.Background(), UpdatePlanningInput{RecordID: uuid.New(), Location: &location})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdatePlanningClearsReorderSettings(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := l.seed(t, 10, nil)
	point, qty := 12, 20

	updated, err := l.svc.UpdatePlanning(ctx, UpdatePlanningInput{RecordID: rec.ID, ReorderPoint: &point, ReorderQuantity: &qty})
	require.NoError(t, err)
	require.NotNil(t, updated.ReorderPoint)
	assert.True(t, Evaluate(*updated).NeedsReorder)

	threshold := 3
	updated, err = l.svc.UpdatePlanning(ctx, UpdatePlanningInput{
		RecordID:             rec.ID,
		LowStockThreshold:    &threshold,
		ClearReorderPoint:    true,
		ClearReorderQuantity: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ReorderPoint)
	assert.Nil(t, updated.ReorderQuantity)
	assert.Equal(t, 3, updated.LowStockThreshold)
	assert.False(t, Evaluate(*updated).NeedsReorder)

	_, err = l.svc.UpdatePlanning(ctx, UpdatePlanningInput{RecordID: rec.ID, ReorderPoint: &point, ClearReorderPoint: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
