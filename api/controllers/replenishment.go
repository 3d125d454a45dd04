package controllers

import (
	"net/http"

	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

// Replenishment returns purchase suggestions for records at or below their
// reorder point, largest deficit first.
func Replenishment(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouseID, err := validators.ParseQueryUUID(r, "warehouse_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := validators.ParseQueryUUID(r, "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestions, err := svc.Replenishment(r.Context(), inventory.ReplenishmentFilter{
			WarehouseID: warehouseID,
			StoreID:     storeID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if suggestions == nil {
			suggestions = []inventory.ReplenishmentSuggestion{}
		}
		responses.WriteSuccess(w, map[string]any{"items": suggestions})
	}
}
