package inventory

import (
	"bytes"
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
)

// TransferInput moves stock of one product/variant between two warehouses.
type TransferInput struct {
	ProductID              uuid.UUID
	VariantID              *uuid.UUID
	SourceWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Quantity               int
	Reason                 string
	Notes                  *string
	ActorID                *string
}

// TransferResult holds both records after a committed transfer.
type TransferResult struct {
	TransferID  uuid.UUID               `json:"transfer_id"`
	Source      *models.InventoryRecord `json:"source"`
	Destination *models.InventoryRecord `json:"destination"`
}

// Transfer is all-or-nothing. A missing destination record is created with
// zero stock inside the same transaction, and both rows are locked in
// ascending warehouse id order.
func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := ValidateTransfer(input).Err(); err != nil {
		return nil, err
	}
	started := s.now()
	transferID := uuid.New()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"transfer_id": transferID.String(),
		"product_id":  input.ProductID.String(),
		"operation":   string(enums.AuditOperationTransferOut),
	})

	var result *TransferResult
	var sourceID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		source, err := repo.FindByKey(ctx, RecordKey{
			ProductID:   input.ProductID,
			VariantID:   input.VariantID,
			WarehouseID: &input.SourceWarehouseID,
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return recordNotFound(map[string]any{
					"product_id":   input.ProductID.String(),
					"warehouse_id": input.SourceWarehouseID.String(),
				})
			}
			return err
		}
		sourceID = source.ID

		destinationWarehouse := input.DestinationWarehouseID
		destination, _, err := repo.EnsureRecord(ctx, s.newRecord(input.ProductID, input.VariantID, &destinationWarehouse, source.StoreID))
		if err != nil {
			return err
		}

		source, destination, err = lockPair(ctx, repo, source, destination)
		if err != nil {
			return err
		}

		outNext, err := transition(*source, enums.AuditOperationTransferOut, input.Quantity)
		if err != nil {
			return err
		}
		inNext, err := transition(*destination, enums.AuditOperationTransferIn, input.Quantity)
		if err != nil {
			return err
		}

		sourceBefore, destinationBefore := positionOf(*source), positionOf(*destination)
		if err := s.movePosition(ctx, repo, source, outNext); err != nil {
			return err
		}
		if err := s.movePosition(ctx, repo, destination, inNext); err != nil {
			return err
		}

		outEntry := s.auditEntry(*source, enums.AuditOperationTransferOut, input.Quantity, sourceBefore, input.Reason, input.Notes, input.ActorID)
		inEntry := s.auditEntry(*destination, enums.AuditOperationTransferIn, input.Quantity, destinationBefore, input.Reason, input.Notes, input.ActorID)
		outEntry.TransferID, inEntry.TransferID = &transferID, &transferID
		outEntry.CounterpartEntryID, inEntry.CounterpartEntryID = &inEntry.ID, &outEntry.ID
		if err := s.audit.WithTx(tx).Append(ctx, outEntry, inEntry); err != nil {
			return err
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventID:       transferID,
			EventType:     enums.EventStockTransferred,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transferID,
			Actor:         actorRef(input.ActorID),
			OccurredAt:    outEntry.CreatedAt,
			Data: payloads.StockTransferredEvent{
				TransferID:             transferID,
				ProductID:              input.ProductID,
				VariantID:              input.VariantID,
				StoreID:                source.StoreID,
				SourceRecordID:         source.ID,
				DestinationRecordID:    destination.ID,
				SourceWarehouseID:      input.SourceWarehouseID,
				DestinationWarehouseID: input.DestinationWarehouseID,
				OutEntryID:             outEntry.ID,
				InEntryID:              inEntry.ID,
				Quantity:               input.Quantity,
				Reason:                 outEntry.Reason,
				SourceStockAfter:       source.Stock,
				DestinationStockAfter:  destination.Stock,
				OccurredAt:             outEntry.CreatedAt,
			},
		}); err != nil {
			return err
		}

		result = &TransferResult{TransferID: transferID, Source: source, Destination: destination}
		return nil
	})
	if err != nil {
		err = classify(err, sourceID, enums.AuditOperationTransferOut)
		s.observe(ctx, enums.AuditOperationTransferOut, started, err)
		return nil, err
	}

	s.observe(ctx, enums.AuditOperationTransferOut, started, nil)
	s.evaluate(ctx, *result.Source)
	s.evaluate(ctx, *result.Destination)
	return result, nil
}

// lockPair re-reads both records under row locks, lowest warehouse id first,
// so opposite transfers between the same warehouses cannot deadlock.
func lockPair(ctx context.Context, repo Repository, source, destination *models.InventoryRecord) (*models.InventoryRecord, *models.InventoryRecord, error) {
	first, second := source, destination
	if bytes.Compare(warehouseKey(destination), warehouseKey(source)) < 0 {
		first, second = destination, source
	}
	lockedFirst, err := repo.LockByID(ctx, first.ID)
	if err != nil {
		return nil, nil, err
	}
	lockedSecond, err := repo.LockByID(ctx, second.ID)
	if err != nil {
		return nil, nil, err
	}
	if first == source {
		return lockedFirst, lockedSecond, nil
	}
	return lockedSecond, lockedFirst, nil
}

func warehouseKey(rec *models.InventoryRecord) []byte {
	if rec.WarehouseID == nil {
		return uuid.Nil[:]
	}
	id := *rec.WarehouseID
	return id[:]
}

func (s *service) movePosition(ctx context.Context, repo Repository, rec *models.InventoryRecord, next position) error {
	expected := rec.Version
	rec.Stock = next.Stock
	rec.ReservedStock = next.Reserved
	rec.Version++
	return repo.UpdatePosition(ctx, rec, expected)
}
