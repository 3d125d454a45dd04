package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
)

// RecordResponse is the public shape of an inventory record. Available stock
// and threshold flags are derived on every read.
type RecordResponse struct {
	ID                uuid.UUID  `json:"id"`
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
	LowStock          bool       `json:"low_stock"`
	NeedsReorder      bool       `json:"needs_reorder"`
	Location          *string    `json:"location,omitempty"`
	BinNumber         *string    `json:"bin_number,omitempty"`
	LastCounted       *time.Time `json:"last_counted,omitempty"`
	Version           int        `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func newRecordResponse(rec *models.InventoryRecord) RecordResponse {
	signal := inventory.Evaluate(*rec)
	return RecordResponse{
		ID:                rec.ID,
		ProductID:         rec.ProductID,
		VariantID:         rec.VariantID,
		WarehouseID:       rec.WarehouseID,
		StoreID:           rec.StoreID,
		Stock:             rec.Stock,
		ReservedStock:     rec.ReservedStock,
		AvailableStock:    signal.AvailableStock,
		LowStockThreshold: rec.LowStockThreshold,
		ReorderPoint:      rec.ReorderPoint,
		ReorderQuantity:   rec.ReorderQuantity,
		LowStock:          signal.LowStock,
		NeedsReorder:      signal.NeedsReorder,
		Location:          rec.Location,
		BinNumber:         rec.BinNumber,
		LastCounted:       rec.LastCounted,
		Version:           rec.Version,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func newRecordResponses(records []models.InventoryRecord) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for i := range records {
		out = append(out, newRecordResponse(&records[i]))
	}
	return out
}

type AuditEntryResponse struct {
	ID                 uuid.UUID            `json:"id"`
	RecordID           uuid.UUID            `json:"record_id"`
	ProductID          uuid.UUID            `json:"product_id"`
	VariantID          *uuid.UUID           `json:"variant_id,omitempty"`
	WarehouseID        *uuid.UUID           `json:"warehouse_id,omitempty"`
	Operation          enums.AuditOperation `json:"operation"`
	Quantity           int                  `json:"quantity"`
	Reason             string               `json:"reason"`
	Notes              *string              `json:"notes,omitempty"`
	ActorID            *string              `json:"actor_id,omitempty"`
	StockBefore        int                  `json:"stock_before"`
	ReservedBefore     int                  `json:"reserved_before"`
	AvailableBefore    int                  `json:"available_before"`
	StockAfter         int                  `json:"stock_after"`
	ReservedAfter      int                  `json:"reserved_after"`
	AvailableAfter     int                  `json:"available_after"`
	RecordVersion      int                  `json:"record_version"`
	TransferID         *uuid.UUID           `json:"transfer_id,omitempty"`
	CounterpartEntryID *uuid.UUID           `json:"counterpart_entry_id,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

func newAuditEntryResponses(entries []models.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:                 e.ID,
			RecordID:           e.RecordID,
			ProductID:          e.ProductID,
			VariantID:          e.VariantID,
			WarehouseID:        e.WarehouseID,
			Operation:          e.Operation,
			Quantity:           e.Quantity,
			Reason:             e.Reason,
			Notes:              e.Notes,
			ActorID:            e.ActorID,
			StockBefore:        e.StockBefore,
			ReservedBefore:     e.ReservedBefore,
			AvailableBefore:    e.StockBefore - e.ReservedBefore,
			StockAfter:         e.StockAfter,
			ReservedAfter:      e.ReservedAfter,
			AvailableAfter:     e.StockAfter - e.ReservedAfter,
			RecordVersion:      e.RecordVersion,
			TransferID:         e.TransferID,
			CounterpartEntryID: e.CounterpartEntryID,
			CreatedAt:          e.CreatedAt,
		})
	}
	return out
}

type NotificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	StoreID   uuid.UUID              `json:"store_id"`
	RecordID  uuid.UUID              `json:"record_id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Metadata  json.RawMessage        `json:"metadata,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func newNotificationResponses(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			StoreID:   n.StoreID,
			RecordID:  n.RecordID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Metadata:  n.Metadata,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

// Page wraps a list response with its continuation cursor.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}
