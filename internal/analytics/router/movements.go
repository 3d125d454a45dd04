package router

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/internal/analytics/types"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
)

type movementHandler struct {
	writer   Writer
	counters *dailyCounters
}

func (h *movementHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.StockMovementEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	occurredAt := eventTime(event.OccurredAt, envelope.OccurredAt)
	row := types.StockMovementRow{
		EventID:        envelope.EventID,
		EventType:      string(envelope.EventType),
		AuditEntryID:   event.AuditEntryID.String(),
		RecordID:       event.RecordID.String(),
		ProductID:      event.ProductID.String(),
		VariantID:      nullUUID(event.VariantID),
		WarehouseID:    nullUUID(event.WarehouseID),
		StoreID:        nullUUID(event.StoreID),
		Operation:      string(event.Operation),
		Quantity:       int64(event.Quantity),
		StockDelta:     int64(event.StockDelta()),
		ReservedDelta:  int64(event.ReservedDelta()),
		StockAfter:     bigquery.NullInt64{Int64: int64(event.StockAfter), Valid: true},
		ReservedAfter:  bigquery.NullInt64{Int64: int64(event.ReservedAfter), Valid: true},
		AvailableAfter: bigquery.NullInt64{Int64: int64(event.AvailableAfter), Valid: true},
		Reason:         event.Reason,
		OccurredAt:     occurredAt,
	}
	if err := h.writer.InsertMovements(ctx, row); err != nil {
		return err
	}
	h.counters.record(ctx, occurredAt, event.Operation, event.Quantity)
	return nil
}

type transferHandler struct {
	writer   Writer
	counters *dailyCounters
}

// Handle writes one row per side of the transfer.
func (h *transferHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.StockTransferredEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	occurredAt := eventTime(event.OccurredAt, envelope.OccurredAt)
	transferID := nullUUID(&event.TransferID)
	qty := int64(event.Quantity)

	out := types.StockMovementRow{
		EventID:      envelope.EventID,
		EventType:    string(envelope.EventType),
		AuditEntryID: event.OutEntryID.String(),
		RecordID:     event.SourceRecordID.String(),
		ProductID:    event.ProductID.String(),
		VariantID:    nullUUID(event.VariantID),
		WarehouseID:  nullUUID(&event.SourceWarehouseID),
		StoreID:      nullUUID(event.StoreID),
		TransferID:   transferID,
		Operation:    string(enums.AuditOperationTransferOut),
		Quantity:     qty,
		StockDelta:   -qty,
		StockAfter:   bigquery.NullInt64{Int64: int64(event.SourceStockAfter), Valid: true},
		Reason:       event.Reason,
		OccurredAt:   occurredAt,
	}
	in := out
	in.AuditEntryID = event.InEntryID.String()
	in.RecordID = event.DestinationRecordID.String()
	in.WarehouseID = nullUUID(&event.DestinationWarehouseID)
	in.Operation = string(enums.AuditOperationTransferIn)
	in.StockDelta = qty
	in.StockAfter = bigquery.NullInt64{Int64: int64(event.DestinationStockAfter), Valid: true}

	if err := h.writer.InsertMovements(ctx, out, in); err != nil {
		return err
	}
	h.counters.record(ctx, occurredAt, enums.AuditOperationTransferOut, event.Quantity)
	return nil
}

func nullUUID(id *uuid.UUID) bigquery.NullString {
	if id == nil || *id == uuid.Nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: id.String(), Valid: true}
}

func eventTime(payloadTime, envelopeTime time.Time) time.Time {
	if !payloadTime.IsZero() {
		return payloadTime.UTC()
	}
	return envelopeTime.UTC()
}
