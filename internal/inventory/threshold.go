package inventory

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
)

// SignalKind names a threshold condition.
type SignalKind string

const (
	SignalLowStock SignalKind = "low_stock"
	SignalReorder  SignalKind = "reorder_required"
)

// Signal is the threshold state derived from a record.
type Signal struct {
	RecordID          uuid.UUID `json:"record_id"`
	AvailableStock    int       `json:"available_stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	ReorderPoint      *int      `json:"reorder_point,omitempty"`
	LowStock          bool      `json:"low_stock"`
	NeedsReorder      bool      `json:"needs_reorder"`
}

// Evaluate derives the threshold signal from rec. It has no side effects.
func Evaluate(rec models.InventoryRecord) Signal {
	available := rec.AvailableStock()
	return Signal{
		RecordID:          rec.ID,
		AvailableStock:    available,
		LowStockThreshold: rec.LowStockThreshold,
		ReorderPoint:      rec.ReorderPoint,
		LowStock:          available <= rec.LowStockThreshold,
		NeedsReorder:      rec.ReorderPoint != nil && available <= *rec.ReorderPoint,
	}
}

// Fired reports whether any condition holds.
func (s Signal) Fired() bool {
	return s.LowStock || s.NeedsReorder
}

// Kinds lists the conditions that hold, low stock first.
func (s Signal) Kinds() []SignalKind {
	var kinds []SignalKind
	if s.LowStock {
		kinds = append(kinds, SignalLowStock)
	}
	if s.NeedsReorder {
		kinds = append(kinds, SignalReorder)
	}
	return kinds
}
