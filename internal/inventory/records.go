package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// CreateRecordInput describes a new stock row. Planning fields left nil take
// the configured defaults.
type CreateRecordInput struct {
	ProductID         uuid.UUID
	VariantID         *uuid.UUID
	WarehouseID       *uuid.UUID
	StoreID           *uuid.UUID
	InitialStock      int
	LowStockThreshold *int
	ReorderPoint      *int
	ReorderQuantity   *int
	Location          *string
	BinNumber         *string
	Reason            string
	Notes             *string
	ActorID           *string
}

// UpdatePlanningInput changes planning fields only. Nil fields are left as-is;
// the Clear flags reset the optional reorder settings to NULL.
type UpdatePlanningInput struct {
	RecordID          uuid.UUID
	LowStockThreshold *int
	ReorderPoint      *int
	ReorderQuantity   *int
	Location          *string
	BinNumber         *string

	ClearReorderPoint    bool
	ClearReorderQuantity bool
}

// newRecord applies the configured defaults to a fresh record.
func (s *service) newRecord(productID uuid.UUID, variantID, warehouseID, storeID *uuid.UUID) *models.InventoryRecord {
	return &models.InventoryRecord{
		ID:                uuid.New(),
		ProductID:         productID,
		VariantID:         variantID,
		WarehouseID:       warehouseID,
		StoreID:           storeID,
		Stock:             0,
		ReservedStock:     0,
		LowStockThreshold: s.defaults.DefaultLowStockThreshold,
		Version:           1,
	}
}

func (s *service) CreateRecord(ctx context.Context, input CreateRecordInput) (*models.InventoryRecord, error) {
	if err := ValidateCreate(input).Err(); err != nil {
		return nil, err
	}

	rec := s.newRecord(input.ProductID, input.VariantID, input.WarehouseID, input.StoreID)
	if input.LowStockThreshold != nil {
		rec.LowStockThreshold = *input.LowStockThreshold
	}
	rec.ReorderPoint = input.ReorderPoint
	rec.ReorderQuantity = input.ReorderQuantity
	rec.Location = input.Location
	rec.BinNumber = input.BinNumber
	rec.Stock = input.InitialStock

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, rec); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "inventory record already exists").
					WithDetails(map[string]any{"record_key": models.RecordKey(rec.ProductID, rec.VariantID, rec.WarehouseID)})
			}
			return err
		}
		if input.InitialStock == 0 {
			return nil
		}
		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			reason = initialStockNote
		}
		entry := s.auditEntry(*rec, enums.AuditOperationAdd, input.InitialStock, position{}, reason, input.Notes, input.ActorID)
		if err := s.audit.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outboxMovement(*rec, entry, input.ActorID))
	})
	if err != nil {
		return nil, classify(err, rec.ID, enums.AuditOperationAdd)
	}

	s.logg.Info(s.logg.WithRecordID(ctx, rec.ID.String()), "inventory record created")
	s.evaluate(ctx, *rec)
	return rec, nil
}

func (s *service) GetRecord(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recordNotFound(map[string]any{"record_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory record")
	}
	return rec, nil
}

func (s *service) FindRecord(ctx context.Context, key RecordKey) (*models.InventoryRecord, error) {
	if key.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rec, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recordNotFound(map[string]any{
				"record_key": models.RecordKey(key.ProductID, key.VariantID, key.WarehouseID),
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory record")
	}
	return rec, nil
}

func (s *service) ListRecords(ctx context.Context, filter RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error) {
	records, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory records")
	}
	return records, next, nil
}

func (s *service) ListLowStock(ctx context.Context, filter RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error) {
	filter.LowStockOnly = true
	return s.ListRecords(ctx, filter)
}

// UpdatePlanning never touches stock columns or the version, and writes no
// audit entry.
func (s *service) UpdatePlanning(ctx context.Context, input UpdatePlanningInput) (*models.InventoryRecord, error) {
	if err := ValidatePlanning(input).Err(); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if input.LowStockThreshold != nil {
		fields["low_stock_threshold"] = *input.LowStockThreshold
	}
	switch {
	case input.ClearReorderPoint:
		fields["reorder_point"] = nil
	case input.ReorderPoint != nil:
		fields["reorder_point"] = *input.ReorderPoint
	}
	switch {
	case input.ClearReorderQuantity:
		fields["reorder_quantity"] = nil
	case input.ReorderQuantity != nil:
		fields["reorder_quantity"] = *input.ReorderQuantity
	}
	if input.Location != nil {
		fields["location"] = *input.Location
	}
	if input.BinNumber != nil {
		fields["bin_number"] = *input.BinNumber
	}
	if err := s.repo.UpdatePlanning(ctx, input.RecordID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recordNotFound(map[string]any{"record_id": input.RecordID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update planning fields")
	}
	rec, err := s.GetRecord(ctx, input.RecordID)
	if err != nil {
		return nil, err
	}
	s.evaluate(ctx, *rec)
	return rec, nil
}
