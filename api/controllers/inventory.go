package controllers

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/api/middleware"
	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

type createRecordRequest struct {
	ProductID         string  `json:"product_id" validate:"required,uuid"`
	VariantID         *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	WarehouseID       *string `json:"warehouse_id,omitempty" validate:"omitempty,uuid"`
	StoreID           *string `json:"store_id,omitempty" validate:"omitempty,uuid"`
	InitialStock      int     `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	ReorderPoint      *int    `json:"reorder_point,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity   *int    `json:"reorder_quantity,omitempty" validate:"omitempty,min=1"`
	Location          *string `json:"location,omitempty" validate:"omitempty,max=100"`
	BinNumber         *string `json:"bin_number,omitempty" validate:"omitempty,max=50"`
	Reason            string  `json:"reason,omitempty" validate:"omitempty,max=255"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type updatePlanningRequest struct {
	LowStockThreshold *int     `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	ReorderPoint      *int     `json:"reorder_point,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity   *int     `json:"reorder_quantity,omitempty" validate:"omitempty,min=1"`
	Location          *string  `json:"location,omitempty" validate:"omitempty,max=100"`
	BinNumber         *string  `json:"bin_number,omitempty" validate:"omitempty,max=50"`
	Clear             []string `json:"clear,omitempty" validate:"omitempty,dive,oneof=reorder_point reorder_quantity"`
}

func (r updatePlanningRequest) clears(field string) bool {
	return slices.Contains(r.Clear, field)
}

type adjustmentRequest struct {
	Type        string  `json:"type" validate:"required,adjustment"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	Reason      string  `json:"reason" validate:"required,notblank,max=255"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	MarkCounted bool    `json:"mark_counted,omitempty"`
}

type reservationRequest struct {
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Reason   string  `json:"reason" validate:"required,notblank,max=255"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// CreateRecord registers a stock position. Initial stock is written through
// the ledger so it has an audit entry.
func CreateRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRecordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
			return
		}

		input := inventory.CreateRecordInput{
			ProductID:         productID,
			VariantID:         optionalUUID(req.VariantID),
			WarehouseID:       optionalUUID(req.WarehouseID),
			StoreID:           optionalUUID(req.StoreID),
			InitialStock:      req.InitialStock,
			LowStockThreshold: req.LowStockThreshold,
			ReorderPoint:      req.ReorderPoint,
			ReorderQuantity:   req.ReorderQuantity,
			Location:          validators.OptionalString(req.Location),
			BinNumber:         validators.OptionalString(req.BinNumber),
			Reason:            validators.SanitizeString(req.Reason, 255),
			Notes:             validators.OptionalString(req.Notes),
			ActorID:           middleware.ActorPtr(r.Context()),
		}

		rec, err := svc.CreateRecord(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRecordResponse(rec))
	}
}

// ListRecords pages through records. low_stock=true limits the page to
// records at or below their threshold.
func ListRecords(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseRecordFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, next, err := svc.ListRecords(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := Page[RecordResponse]{Items: newRecordResponses(records)}
		if next != nil {
			page.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, page)
	}
}

func GetRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec, err := svc.GetRecord(r.Context(), recordID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecordResponse(rec))
	}
}

func UpdatePlanning(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updatePlanningRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.UpdatePlanning(r.Context(), inventory.UpdatePlanningInput{
			RecordID:          recordID,
			LowStockThreshold: req.LowStockThreshold,
			ReorderPoint:      req.ReorderPoint,
			ReorderQuantity:   req.ReorderQuantity,
			Location:          req.Location,
			BinNumber:         req.BinNumber,

			ClearReorderPoint:    req.clears("reorder_point"),
			ClearReorderQuantity: req.clears("reorder_quantity"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecordResponse(rec))
	}
}

// AdjustStock applies an ADD, REMOVE or SET adjustment.
func AdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := enums.ParseAdjustmentType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid adjustment type"))
			return
		}

		rec, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			RecordID:    recordID,
			Type:        adjustment,
			Quantity:    req.Quantity,
			Reason:      validators.SanitizeString(req.Reason, 255),
			Notes:       validators.OptionalString(req.Notes),
			ActorID:     middleware.ActorPtr(r.Context()),
			MarkCounted: req.MarkCounted,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecordResponse(rec))
	}
}

// ReserveStock, ReleaseStock and FulfillReservation share one handler shape.
func ReserveStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationHandler(svc.Reserve, logg)
}

func ReleaseStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationHandler(svc.Release, logg)
}

func FulfillReservation(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationHandler(svc.Fulfill, logg)
}

func reservationHandler(apply func(context.Context, inventory.ReservationInput) (*models.InventoryRecord, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := apply(r.Context(), inventory.ReservationInput{
			RecordID: recordID,
			Quantity: req.Quantity,
			Reason:   validators.SanitizeString(req.Reason, 255),
			Notes:    validators.OptionalString(req.Notes),
			ActorID:  middleware.ActorPtr(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecordResponse(rec))
	}
}

func parseRecordFilter(r *http.Request) (inventory.RecordFilter, error) {
	var filter inventory.RecordFilter
	var err error

	if filter.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
		return filter, err
	}
	if filter.VariantID, err = validators.ParseQueryUUID(r, "variant_id"); err != nil {
		return filter, err
	}
	if filter.WarehouseID, err = validators.ParseQueryUUID(r, "warehouse_id"); err != nil {
		return filter, err
	}
	if filter.StoreID, err = validators.ParseQueryUUID(r, "store_id"); err != nil {
		return filter, err
	}
	if filter.LowStockOnly, err = validators.ParseQueryBool(r, "low_stock"); err != nil {
		return filter, err
	}
	if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		cursor, err := pagination.ParseCursor(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.Cursor = cursor
	}
	return filter, nil
}

func optionalUUID(raw *string) *uuid.UUID {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	return &id
}
