package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
)

// ReservationInput is shared by Reserve, Release and Fulfill.
type ReservationInput struct {
	RecordID uuid.UUID
	Quantity int
	Reason   string
	Notes    *string
	ActorID  *string
}

// Reserve holds quantity against available stock. The availability check runs
// under the row lock so concurrent reservations cannot oversell.
func (s *service) Reserve(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	return s.reservation(ctx, input, enums.AuditOperationReserve, enums.EventStockReserved)
}

// Release returns reserved quantity to available stock.
func (s *service) Release(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	return s.reservation(ctx, input, enums.AuditOperationRelease, enums.EventStockReleased)
}

// Fulfill ships reserved quantity: stock and reserved stock both drop, so
// available stock is unchanged.
func (s *service) Fulfill(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error) {
	return s.reservation(ctx, input, enums.AuditOperationFulfill, enums.EventReservationFulfilled)
}

func (s *service) reservation(ctx context.Context, input ReservationInput, op enums.AuditOperation, event enums.OutboxEventType) (*models.InventoryRecord, error) {
	if err := ValidateReservation(input).Err(); err != nil {
		return nil, err
	}
	return s.apply(ctx, mutation{
		RecordID:  input.RecordID,
		Operation: op,
		EventType: event,
		Quantity:  input.Quantity,
		Reason:    input.Reason,
		Notes:     input.Notes,
		ActorID:   input.ActorID,
	})
}
