package types

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// StockMovementRow mirrors the stock_movements BigQuery schema. One row is
// written per audit entry, so a transfer produces two.
type StockMovementRow struct {
	EventID        string              `bigquery:"event_id"`
	EventType      string              `bigquery:"event_type"`
	AuditEntryID   string              `bigquery:"audit_entry_id"`
	RecordID       string              `bigquery:"record_id"`
	ProductID      string              `bigquery:"product_id"`
	VariantID      bigquery.NullString `bigquery:"variant_id"`
	WarehouseID    bigquery.NullString `bigquery:"warehouse_id"`
	StoreID        bigquery.NullString `bigquery:"store_id"`
	TransferID     bigquery.NullString `bigquery:"transfer_id"`
	Operation      string              `bigquery:"operation"`
	Quantity       int64               `bigquery:"quantity"`
	StockDelta     int64               `bigquery:"stock_delta"`
	ReservedDelta  int64               `bigquery:"reserved_delta"`
	StockAfter     bigquery.NullInt64  `bigquery:"stock_after"`
	ReservedAfter  bigquery.NullInt64  `bigquery:"reserved_after"`
	AvailableAfter bigquery.NullInt64  `bigquery:"available_after"`
	Reason         string              `bigquery:"reason"`
	OccurredAt     time.Time           `bigquery:"occurred_at"`
}

// Save implements bigquery.ValueSaver. The audit entry id doubles as the
// streaming insert id so redeliveries are deduplicated best-effort.
func (r *StockMovementRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"event_id":        r.EventID,
		"event_type":      r.EventType,
		"audit_entry_id":  r.AuditEntryID,
		"record_id":       r.RecordID,
		"product_id":      r.ProductID,
		"variant_id":      r.VariantID,
		"warehouse_id":    r.WarehouseID,
		"store_id":        r.StoreID,
		"transfer_id":     r.TransferID,
		"operation":       r.Operation,
		"quantity":        r.Quantity,
		"stock_delta":     r.StockDelta,
		"reserved_delta":  r.ReservedDelta,
		"stock_after":     r.StockAfter,
		"reserved_after":  r.ReservedAfter,
		"available_after": r.AvailableAfter,
		"reason":          r.Reason,
		"occurred_at":     r.OccurredAt,
	}, r.AuditEntryID, nil
}

// StockMovementSchema infers the table schema from StockMovementRow.
func StockMovementSchema() (bigquery.Schema, error) {
	return bigquery.InferSchema(StockMovementRow{})
}
