package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/api/middleware"
	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/audit"
	"github.com/angelmondragon/stockledger/internal/inventory"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

type transferRequest struct {
	ProductID              string  `json:"product_id" validate:"required,uuid"`
	VariantID              *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	SourceWarehouseID      string  `json:"source_warehouse_id" validate:"required,uuid"`
	DestinationWarehouseID string  `json:"destination_warehouse_id" validate:"required,uuid,nefield=SourceWarehouseID"`
	Quantity               int     `json:"quantity" validate:"required,min=1"`
	Reason                 string  `json:"reason" validate:"required,notblank,max=255"`
	Notes                  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type transferResponse struct {
	TransferID  uuid.UUID      `json:"transfer_id"`
	Source      RecordResponse `json:"source"`
	Destination RecordResponse `json:"destination"`
}

// TransferStock moves stock between two warehouses atomically.
func TransferStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ids := make([]uuid.UUID, 3)
		for i, raw := range []string{req.ProductID, req.SourceWarehouseID, req.DestinationWarehouseID} {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier"))
				return
			}
			ids[i] = id
		}

		result, err := svc.Transfer(r.Context(), inventory.TransferInput{
			ProductID:              ids[0],
			VariantID:              optionalUUID(req.VariantID),
			SourceWarehouseID:      ids[1],
			DestinationWarehouseID: ids[2],
			Quantity:               req.Quantity,
			Reason:                 validators.SanitizeString(req.Reason, 255),
			Notes:                  validators.OptionalString(req.Notes),
			ActorID:                middleware.ActorPtr(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, transferResponse{
			TransferID:  result.TransferID,
			Source:      newRecordResponse(result.Source),
			Destination: newRecordResponse(result.Destination),
		})
	}
}

// TransferEntries returns the paired audit entries written by one transfer.
func TransferEntries(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transferID, err := validators.ParseUUIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.Transfer(r.Context(), transferID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAuditEntryResponses(entries))
	}
}
