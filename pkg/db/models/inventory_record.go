package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryRecord holds the stock position of one product (and optional
// variant) at one optional warehouse. Available stock is derived from stock
// and reserved stock and never persisted.
type InventoryRecord struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RecordKey         string     `gorm:"column:record_key;type:varchar(120);not null;uniqueIndex:ux_inventory_records_key"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID         *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	WarehouseID       *uuid.UUID `gorm:"column:warehouse_id;type:uuid;index"`
	StoreID           *uuid.UUID `gorm:"column:store_id;type:uuid;index"`
	Stock             int        `gorm:"column:stock;not null;default:0;check:chk_inventory_records_stock,stock >= 0"`
	ReservedStock     int        `gorm:"column:reserved_stock;not null;default:0;check:chk_inventory_records_reserved,reserved_stock >= 0 AND reserved_stock <= stock"`
	LowStockThreshold int        `gorm:"column:low_stock_threshold;not null;default:0"`
	ReorderPoint      *int       `gorm:"column:reorder_point"`
	ReorderQuantity   *int       `gorm:"column:reorder_quantity"`
	Location          *string    `gorm:"column:location;type:varchar(100)"`
	BinNumber         *string    `gorm:"column:bin_number;type:varchar(50)"`
	LastCounted       *time.Time `gorm:"column:last_counted"`
	Version           int        `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory_records" }

// AvailableStock is the quantity that can still be reserved or transferred.
func (r InventoryRecord) AvailableStock() int {
	return r.Stock - r.ReservedStock
}

func (r *InventoryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	r.RecordKey = RecordKey(r.ProductID, r.VariantID, r.WarehouseID)
	return nil
}

// RecordKey builds the natural key stored in record_key. A missing variant or
// warehouse collapses to the nil UUID so the key stays unique per tuple.
func RecordKey(productID uuid.UUID, variantID, warehouseID *uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", productID, uuidOrNil(variantID), uuidOrNil(warehouseID))
}

func uuidOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
