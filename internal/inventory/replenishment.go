package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// ReplenishmentSuggestion proposes a purchase quantity for a record at or
// below its reorder point.
type ReplenishmentSuggestion struct {
	RecordID          uuid.UUID  `json:"record_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	WarehouseID       *uuid.UUID `json:"warehouse_id,omitempty"`
	StoreID           *uuid.UUID `json:"store_id,omitempty"`
	AvailableStock    int        `json:"available_stock"`
	ReorderPoint      int        `json:"reorder_point"`
	ReorderQuantity   *int       `json:"reorder_quantity,omitempty"`
	Deficit           int        `json:"deficit"`
	SuggestedQuantity int        `json:"suggested_quantity"`
}

func (s *service) Replenishment(ctx context.Context, filter ReplenishmentFilter) ([]ReplenishmentSuggestion, error) {
	records, err := s.repo.ListAtOrBelowReorderPoint(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list records below reorder point")
	}
	suggestions := make([]ReplenishmentSuggestion, 0, len(records))
	for _, rec := range records {
		if rec.ReorderPoint == nil {
			continue
		}
		available := rec.AvailableStock()
		suggestions = append(suggestions, ReplenishmentSuggestion{
			RecordID:          rec.ID,
			ProductID:         rec.ProductID,
			VariantID:         rec.VariantID,
			WarehouseID:       rec.WarehouseID,
			StoreID:           rec.StoreID,
			AvailableStock:    available,
			ReorderPoint:      *rec.ReorderPoint,
			ReorderQuantity:   rec.ReorderQuantity,
			Deficit:           *rec.ReorderPoint - available,
			SuggestedQuantity: suggestedQuantity(*rec.ReorderPoint, rec.ReorderQuantity, available, s.coverFactor),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Deficit != suggestions[j].Deficit {
			return suggestions[i].Deficit > suggestions[j].Deficit
		}
		return suggestions[i].RecordID.String() < suggestions[j].RecordID.String()
	})
	return suggestions, nil
}

// suggestedQuantity is max(reorderQuantity, ceil(reorderPoint*coverFactor) - available),
// and at least one unit.
func suggestedQuantity(reorderPoint int, reorderQuantity *int, available int, coverFactor decimal.Decimal) int {
	target := decimal.NewFromInt(int64(reorderPoint)).Mul(coverFactor).Ceil()
	gap := target.Sub(decimal.NewFromInt(int64(available))).IntPart()
	suggested := gap
	if reorderQuantity != nil && int64(*reorderQuantity) > suggested {
		suggested = int64(*reorderQuantity)
	}
	if suggested < 1 {
		suggested = 1
	}
	return int(suggested)
}
