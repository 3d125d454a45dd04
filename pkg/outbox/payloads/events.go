package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// StockMovementEvent describes a committed change to a single record's stock
// or reservations.
type StockMovementEvent struct {
	RecordID       uuid.UUID            `json:"record_id"`
	AuditEntryID   uuid.UUID            `json:"audit_entry_id"`
	ProductID      uuid.UUID            `json:"product_id"`
	VariantID      *uuid.UUID           `json:"variant_id,omitempty"`
	WarehouseID    *uuid.UUID           `json:"warehouse_id,omitempty"`
	StoreID        *uuid.UUID           `json:"store_id,omitempty"`
	Operation      enums.AuditOperation `json:"operation"`
	Quantity       int                  `json:"quantity"`
	Reason         string               `json:"reason"`
	StockBefore    int                  `json:"stock_before"`
	ReservedBefore int                  `json:"reserved_before"`
	StockAfter     int                  `json:"stock_after"`
	ReservedAfter  int                  `json:"reserved_after"`
	AvailableAfter int                  `json:"available_after"`
	RecordVersion  int                  `json:"record_version"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// StockDelta returns the signed change in on-hand stock.
func (e StockMovementEvent) StockDelta() int {
	return e.StockAfter - e.StockBefore
}

// ReservedDelta returns the signed change in reserved stock.
func (e StockMovementEvent) ReservedDelta() int {
	return e.ReservedAfter - e.ReservedBefore
}

// StockTransferredEvent is emitted once per committed cross-warehouse transfer.
type StockTransferredEvent struct {
	TransferID             uuid.UUID  `json:"transfer_id"`
	ProductID              uuid.UUID  `json:"product_id"`
	VariantID              *uuid.UUID `json:"variant_id,omitempty"`
	StoreID                *uuid.UUID `json:"store_id,omitempty"`
	SourceRecordID         uuid.UUID  `json:"source_record_id"`
	DestinationRecordID    uuid.UUID  `json:"destination_record_id"`
	SourceWarehouseID      uuid.UUID  `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID  `json:"destination_warehouse_id"`
	OutEntryID             uuid.UUID  `json:"out_entry_id"`
	InEntryID              uuid.UUID  `json:"in_entry_id"`
	Quantity               int        `json:"quantity"`
	Reason                 string     `json:"reason"`
	SourceStockAfter       int        `json:"source_stock_after"`
	DestinationStockAfter  int        `json:"destination_stock_after"`
	OccurredAt             time.Time  `json:"occurred_at"`
}

// ThresholdSignalEvent carries a low-stock or reorder signal for a record.
type ThresholdSignalEvent struct {
	RecordID          uuid.UUID  `json:"record_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	WarehouseID       *uuid.UUID `json:"warehouse_id,omitempty"`
	StoreID           *uuid.UUID `json:"store_id,omitempty"`
	Stock             int        `json:"stock"`
	ReservedStock     int        `json:"reserved_stock"`
	AvailableStock    int        `json:"available_stock"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	ReorderPoint      *int       `json:"reorder_point,omitempty"`
	ReorderQuantity   *int       `json:"reorder_quantity,omitempty"`
	DetectedAt        time.Time  `json:"detected_at"`
}
