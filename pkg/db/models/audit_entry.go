package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// ErrAuditImmutable is returned when code attempts to modify a persisted audit entry.
var ErrAuditImmutable = errors.New("audit entries are append-only")

// AuditEntry is an immutable record of a single inventory mutation.
type AuditEntry struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	RecordID           uuid.UUID            `gorm:"column:record_id;type:uuid;not null;uniqueIndex:ux_audit_record_version,priority:1"`
	ProductID          uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID          *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	WarehouseID        *uuid.UUID           `gorm:"column:warehouse_id;type:uuid"`
	Operation          enums.AuditOperation `gorm:"column:operation;type:varchar(32);not null"`
	Quantity           int                  `gorm:"column:quantity;not null"`
	Reason             string               `gorm:"column:reason;type:varchar(255);not null"`
	Notes              *string              `gorm:"column:notes;type:varchar(1000)"`
	ActorID            *string              `gorm:"column:actor_id;type:varchar(255)"`
	StockBefore        int                  `gorm:"column:stock_before;not null"`
	ReservedBefore     int                  `gorm:"column:reserved_before;not null"`
	StockAfter         int                  `gorm:"column:stock_after;not null"`
	ReservedAfter      int                  `gorm:"column:reserved_after;not null"`
	RecordVersion      int                  `gorm:"column:record_version;not null;uniqueIndex:ux_audit_record_version,priority:2"`
	TransferID         *uuid.UUID           `gorm:"column:transfer_id;type:uuid;index"`
	CounterpartEntryID *uuid.UUID           `gorm:"column:counterpart_entry_id;type:uuid"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime;index"`
}

func (AuditEntry) TableName() string { return "inventory_audit_entries" }

// AvailableBefore returns the derived available stock prior to the mutation.
func (e AuditEntry) AvailableBefore() int { return e.StockBefore - e.ReservedBefore }

// AvailableAfter returns the derived available stock after the mutation.
func (e AuditEntry) AvailableAfter() int { return e.StockAfter - e.ReservedAfter }

func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *AuditEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (e *AuditEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
