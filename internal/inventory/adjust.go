package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
)

// AdjustInput changes raw stock. ADD and REMOVE are relative, SET is absolute.
type AdjustInput struct {
	RecordID    uuid.UUID
	Type        enums.AdjustmentType
	Quantity    int
	Reason      string
	Notes       *string
	ActorID     *string
	MarkCounted bool
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error) {
	if err := ValidateAdjust(input).Err(); err != nil {
		return nil, err
	}
	return s.apply(ctx, mutation{
		RecordID:    input.RecordID,
		Operation:   input.Type.AuditOperation(),
		EventType:   enums.EventStockAdjusted,
		Quantity:    input.Quantity,
		Reason:      input.Reason,
		Notes:       input.Notes,
		ActorID:     input.ActorID,
		MarkCounted: input.MarkCounted,
	})
}
