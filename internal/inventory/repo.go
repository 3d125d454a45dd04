package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// Repository persists inventory records. Stock columns are only written
// through UpdatePosition, which is conditional on the record version.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rec *models.InventoryRecord) error
	EnsureRecord(ctx context.Context, rec *models.InventoryRecord) (*models.InventoryRecord, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	FindByKey(ctx context.Context, key RecordKey) (*models.InventoryRecord, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	UpdatePosition(ctx context.Context, rec *models.InventoryRecord, expectedVersion int) error
	UpdatePlanning(ctx context.Context, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context, filter RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error)
	ListAtOrBelowReorderPoint(ctx context.Context, filter ReplenishmentFilter) ([]models.InventoryRecord, error)
}

// RecordKey addresses a record by its natural key.
type RecordKey struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	WarehouseID *uuid.UUID
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	ProductID    *uuid.UUID
	VariantID    *uuid.UUID
	WarehouseID  *uuid.UUID
	StoreID      *uuid.UUID
	LowStockOnly bool
	Limit        int
	Cursor       *pagination.Cursor
}

// ReplenishmentFilter narrows the replenishment report.
type ReplenishmentFilter struct {
	WarehouseID *uuid.UUID
	StoreID     *uuid.UUID
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, rec *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// EnsureRecord inserts rec unless a record with the same key exists. The bool
// reports whether the row was created by this call.
func (r *repositoryImpl) EnsureRecord(ctx context.Context, rec *models.InventoryRecord) (*models.InventoryRecord, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "record_key"}}, DoNothing: true}).
		Create(rec)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return rec, true, nil
	}
	existing, err := r.FindByKey(ctx, RecordKey{ProductID: rec.ProductID, VariantID: rec.VariantID, WarehouseID: rec.WarehouseID})
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repositoryImpl) FindByKey(ctx context.Context, key RecordKey) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	recordKey := models.RecordKey(key.ProductID, key.VariantID, key.WarehouseID)
	if err := r.db.WithContext(ctx).First(&rec, "record_key = ?", recordKey).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// LockByID loads the record with SELECT ... FOR UPDATE. Dialects without row
// locks ignore the clause and rely on the versioned update instead.
func (r *repositoryImpl) LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdatePosition writes the stock columns of rec when the stored version still
// equals expectedVersion.
func (r *repositoryImpl) UpdatePosition(ctx context.Context, rec *models.InventoryRecord, expectedVersion int) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ? AND version = ?", rec.ID, expectedVersion).
		UpdateColumns(map[string]any{
			"stock":          rec.Stock,
			"reserved_stock": rec.ReservedStock,
			"version":        rec.Version,
			"last_counted":   rec.LastCounted,
			"updated_at":     now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errVersionConflict
	}
	rec.UpdatedAt = now
	return nil
}

func (r *repositoryImpl) UpdatePlanning(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", id).
		UpdateColumns(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) List(ctx context.Context, filter RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(filter.Limit)
	normalized := pagination.NormalizeLimit(filter.Limit)
	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.VariantID != nil {
		query = query.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.LowStockOnly {
		query = query.Where("stock - reserved_stock <= low_stock_threshold")
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var records []models.InventoryRecord
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, nil, err
	}
	if len(records) > normalized {
		last := records[normalized-1]
		return records[:normalized], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return records, nil, nil
}

func (r *repositoryImpl) ListAtOrBelowReorderPoint(ctx context.Context, filter ReplenishmentFilter) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("reorder_point IS NOT NULL AND stock - reserved_stock <= reorder_point")
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	var records []models.InventoryRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
