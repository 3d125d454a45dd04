package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

type stubInventoryService struct {
	inventory.Service

	createFn        func(ctx context.Context, input inventory.CreateRecordInput) (*models.InventoryRecord, error)
	getFn           func(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	listFn          func(ctx context.Context, filter inventory.RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error)
	planningFn      func(ctx context.Context, input inventory.UpdatePlanningInput) (*models.InventoryRecord, error)
	adjustFn        func(ctx context.Context, input inventory.AdjustInput) (*models.InventoryRecord, error)
	reserveFn       func(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error)
	releaseFn       func(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error)
	transferFn      func(ctx context.Context, input inventory.TransferInput) (*inventory.TransferResult, error)
	replenishmentFn func(ctx context.Context, filter inventory.ReplenishmentFilter) ([]inventory.ReplenishmentSuggestion, error)
}

func (s *stubInventoryService) CreateRecord(ctx context.Context, input inventory.CreateRecordInput) (*models.InventoryRecord, error) {
	return s.createFn(ctx, input)
}

func (s *stubInventoryService) GetRecord(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	return s.getFn(ctx, id)
}

func (s *stubInventoryService) ListRecords(ctx context.Context, filter inventory.RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error) {
	return s.listFn(ctx, filter)
}

func (s *stubInventoryService) UpdatePlanning(ctx context.Context, input inventory.UpdatePlanningInput) (*models.InventoryRecord, error) {
	return s.planningFn(ctx, input)
}

func (s *stubInventoryService) Adjust(ctx context.Context, input inventory.AdjustInput) (*models.InventoryRecord, error) {
	return s.adjustFn(ctx, input)
}

func (s *stubInventoryService) Reserve(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error) {
	return s.reserveFn(ctx, input)
}

func (s *stubInventoryService) Release(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error) {
	return s.releaseFn(ctx, input)
}

func (s *stubInventoryService) Transfer(ctx context.Context, input inventory.TransferInput) (*inventory.TransferResult, error) {
	return s.transferFn(ctx, input)
}

func (s *stubInventoryService) Replenishment(ctx context.Context, filter inventory.ReplenishmentFilter) ([]inventory.ReplenishmentSuggestion, error) {
	return s.replenishmentFn(ctx, filter)
}

func sampleRecord(stock, reserved int) *models.InventoryRecord {
	reorder := 8
	return &models.InventoryRecord{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		Stock:             stock,
		ReservedStock:     reserved,
		LowStockThreshold: 5,
		ReorderPoint:      &reorder,
		Version:           3,
		CreatedAt:         time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateRecordPassesDefaultsAndActor(t *testing.T) {
	productID := uuid.New()
	warehouseID := uuid.New()
	svc := &stubInventoryService{
		createFn: func(ctx context.Context, input inventory.CreateRecordInput) (*models.InventoryRecord, error) {
			assert.Equal(t, productID, input.ProductID)
			require.NotNil(t, input.WarehouseID)
			assert.Equal(t, warehouseID, *input.WarehouseID)
			assert.Nil(t, input.VariantID)
			assert.Nil(t, input.LowStockThreshold)
			assert.Equal(t, 10, input.InitialStock)
			require.NotNil(t, input.ActorID)
			assert.Equal(t, "clerk-7", *input.ActorID)
			rec := sampleRecord(10, 0)
			rec.ProductID = productID
			return rec, nil
		},
	}

	body := `{"product_id":"` + productID.String() + `","warehouse_id":"` + warehouseID.String() + `","initial_stock":10}`
	req := withActor(newRequest(http.MethodPost, "/api/v1/inventory/records", body, nil), "clerk-7")
	resp := httptest.NewRecorder()
	CreateRecord(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	got := decodeData[RecordResponse](t, resp)
	assert.Equal(t, productID, got.ProductID)
	assert.Equal(t, 10, got.AvailableStock)
	assert.False(t, got.LowStock)
}

func TestCreateRecordRejectsInvalidBody(t *testing.T) {
	svc := &stubInventoryService{}
	req := newRequest(http.MethodPost, "/api/v1/inventory/records", `{"product_id":"nope","initial_stock":-1}`, nil)
	resp := httptest.NewRecorder()
	CreateRecord(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
}

func TestGetRecordDerivesFlags(t *testing.T) {
	rec := sampleRecord(10, 6)
	svc := &stubInventoryService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
			assert.Equal(t, rec.ID, id)
			return rec, nil
		},
	}

	req := newRequest(http.MethodGet, "/api/v1/inventory/records/"+rec.ID.String(), "", map[string]string{"recordId": rec.ID.String()})
	resp := httptest.NewRecorder()
	GetRecord(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeData[RecordResponse](t, resp)
	assert.Equal(t, 10, got.Stock)
	assert.Equal(t, 6, got.ReservedStock)
	assert.Equal(t, 4, got.AvailableStock)
	assert.True(t, got.LowStock)
	assert.True(t, got.NeedsReorder)
}

func TestGetRecordNotFound(t *testing.T) {
	svc := &stubInventoryService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		},
	}
	id := uuid.NewString()
	req := newRequest(http.MethodGet, "/api/v1/inventory/records/"+id, "", map[string]string{"recordId": id})
	resp := httptest.NewRecorder()
	GetRecord(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListRecordsParsesFiltersAndCursor(t *testing.T) {
	warehouseID := uuid.New()
	cursorIn := pagination.Cursor{CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ID: uuid.New()}
	next := pagination.Cursor{CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), ID: uuid.New()}
	svc := &stubInventoryService{
		listFn: func(ctx context.Context, filter inventory.RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error) {
			require.NotNil(t, filter.WarehouseID)
			assert.Equal(t, warehouseID, *filter.WarehouseID)
			assert.True(t, filter.LowStockOnly)
			assert.Equal(t, 10, filter.Limit)
			require.NotNil(t, filter.Cursor)
			assert.Equal(t, cursorIn.ID, filter.Cursor.ID)
			return []models.InventoryRecord{*sampleRecord(3, 0)}, &next, nil
		},
	}

	target := "/api/v1/inventory/records?warehouse_id=" + warehouseID.String() + "&low_stock=true&limit=10&cursor=" + pagination.EncodeCursor(cursorIn)
	resp := httptest.NewRecorder()
	ListRecords(svc, testLogger())(resp, newRequest(http.MethodGet, target, "", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	page := decodeData[Page[RecordResponse]](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, pagination.EncodeCursor(next), page.NextCursor)
}

func TestListRecordsRejectsBadCursor(t *testing.T) {
	resp := httptest.NewRecorder()
	ListRecords(&stubInventoryService{}, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/inventory/records?cursor=not-a-cursor", "", nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdjustStockMapsRequest(t *testing.T) {
	rec := sampleRecord(15, 0)
	svc := &stubInventoryService{
		adjustFn: func(ctx context.Context, input inventory.AdjustInput) (*models.InventoryRecord, error) {
			assert.Equal(t, rec.ID, input.RecordID)
			assert.Equal(t, enums.AdjustmentAdd, input.Type)
			assert.Equal(t, 5, input.Quantity)
			assert.Equal(t, "restock", input.Reason)
			assert.True(t, input.MarkCounted)
			assert.Nil(t, input.Notes)
			return rec, nil
		},
	}

	body := `{"type":"ADD","quantity":5,"reason":" restock ","notes":"   ","mark_counted":true}`
	req := newRequest(http.MethodPost, "/", body, map[string]string{"recordId": rec.ID.String()})
	resp := httptest.NewRecorder()
	AdjustStock(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 15, decodeData[RecordResponse](t, resp).Stock)
}

func TestAdjustStockValidatesBoundary(t *testing.T) {
	id := uuid.NewString()
	cases := map[string]string{
		"bad type":      `{"type":"MOVE","quantity":1,"reason":"x"}`,
		"zero quantity": `{"type":"ADD","quantity":0,"reason":"x"}`,
		"empty reason":  `{"type":"ADD","quantity":1,"reason":""}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			AdjustStock(&stubInventoryService{}, testLogger())(resp, newRequest(http.MethodPost, "/", body, map[string]string{"recordId": id}))
			require.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestReserveStockSurfacesInsufficientStock(t *testing.T) {
	rec := sampleRecord(10, 0)
	svc := &stubInventoryService{
		reserveFn: func(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error) {
			assert.Equal(t, 15, input.Quantity)
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"record_id": rec.ID.String(), "available_stock": 10, "quantity": 15})
		},
	}

	req := newRequest(http.MethodPost, "/", `{"quantity":15,"reason":"order 42"}`, map[string]string{"recordId": rec.ID.String()})
	resp := httptest.NewRecorder()
	ReserveStock(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeInsufficientStock), apiErr.Code)
	assert.False(t, apiErr.Retryable)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 10, details["available_stock"])
}

func TestReleaseStockInvariantViolation(t *testing.T) {
	svc := &stubInventoryService{
		releaseFn: func(ctx context.Context, input inventory.ReservationInput) (*models.InventoryRecord, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "cannot release more than is reserved")
		},
	}
	id := uuid.NewString()
	resp := httptest.NewRecorder()
	ReleaseStock(svc, testLogger())(resp, newRequest(http.MethodPost, "/", `{"quantity":3,"reason":"cancel"}`, map[string]string{"recordId": id}))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestUpdatePlanning(t *testing.T) {
	rec := sampleRecord(10, 0)
	svc := &stubInventoryService{
		planningFn: func(ctx context.Context, input inventory.UpdatePlanningInput) (*models.InventoryRecord, error) {
			require.NotNil(t, input.ReorderPoint)
			assert.Equal(t, 12, *input.ReorderPoint)
			assert.Nil(t, input.LowStockThreshold)
			return rec, nil
		},
	}
	resp := httptest.NewRecorder()
	UpdatePlanning(svc, testLogger())(resp, newRequest(http.MethodPatch, "/", `{"reorder_point":12}`, map[string]string{"recordId": rec.ID.String()}))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdatePlanningClearList(t *testing.T) {
	rec := sampleRecord(10, 0)
	var got inventory.UpdatePlanningInput
	svc := &stubInventoryService{
		planningFn: func(ctx context.Context, input inventory.UpdatePlanningInput) (*models.InventoryRecord, error) {
			got = input
			return rec, nil
		},
	}
	params := map[string]string{"recordId": rec.ID.String()}

	resp := httptest.NewRecorder()
	UpdatePlanning(svc, testLogger())(resp, newRequest(http.MethodPatch, "/", `{"clear":["reorder_point"]}`, params))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, got.ClearReorderPoint)
	assert.False(t, got.ClearReorderQuantity)

	resp = httptest.NewRecorder()
	UpdatePlanning(svc, testLogger())(resp, newRequest(http.MethodPatch, "/", `{"clear":["low_stock_threshold"]}`, params))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTransferStock(t *testing.T) {
	productID := uuid.New()
	source := uuid.New()
	destination := uuid.New()
	transferID := uuid.New()
	svc := &stubInventoryService{
		transferFn: func(ctx context.Context, input inventory.TransferInput) (*inventory.TransferResult, error) {
			assert.Equal(t, productID, input.ProductID)
			assert.Equal(t, source, input.SourceWarehouseID)
			assert.Equal(t, destination, input.DestinationWarehouseID)
			assert.Equal(t, 3, input.Quantity)
			return &inventory.TransferResult{
				TransferID:  transferID,
				Source:      sampleRecord(7, 4),
				Destination: sampleRecord(3, 0),
			}, nil
		},
	}

	body := `{"product_id":"` + productID.String() + `","source_warehouse_id":"` + source.String() + `","destination_warehouse_id":"` + destination.String() + `","quantity":3,"reason":"rebalance"}`
	resp := httptest.NewRecorder()
	TransferStock(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/inventory/transfers", body, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	got := decodeData[transferResponse](t, resp)
	assert.Equal(t, transferID, got.TransferID)
	assert.Equal(t, 3, got.Source.AvailableStock)
	assert.Equal(t, 3, got.Destination.Stock)
}

func TestTransferStockRejectsSameWarehouse(t *testing.T) {
	warehouse := uuid.NewString()
	body := `{"product_id":"` + uuid.NewString() + `","source_warehouse_id":"` + warehouse + `","destination_warehouse_id":"` + warehouse + `","quantity":3,"reason":"noop"}`
	resp := httptest.NewRecorder()
	TransferStock(&stubInventoryService{}, testLogger())(resp, newRequest(http.MethodPost, "/", body, nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	details, ok := decodeError(t, resp).Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "destination_warehouse_id")
}

func TestReplenishmentEmptyList(t *testing.T) {
	svc := &stubInventoryService{
		replenishmentFn: func(ctx context.Context, filter inventory.ReplenishmentFilter) ([]inventory.ReplenishmentSuggestion, error) {
			return nil, nil
		},
	}
	resp := httptest.NewRecorder()
	Replenishment(svc, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/inventory/replenishment", "", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeData[map[string][]inventory.ReplenishmentSuggestion](t, resp)
	assert.NotNil(t, got["items"])
	assert.Empty(t, got["items"])
}
