package inventory

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

const (
	maxReasonLength   = 255
	maxNotesLength    = 1000
	maxLocationLength = 100
	maxBinLength      = 50
)

// Violation enumerates why an operation input was rejected.
type Violation string

const (
	ViolationRequired      Violation = "required"
	ViolationNotPositive   Violation = "not_positive"
	ViolationNegative      Violation = "negative"
	ViolationTooLong       Violation = "too_long"
	ViolationInvalidOption Violation = "invalid_option"
	ViolationSameWarehouse Violation = "same_warehouse"
	ViolationSetAndClear   Violation = "set_and_clear"
)

// FieldViolation pairs a violation with the input field it applies to.
type FieldViolation struct {
	Field     string    `json:"field"`
	Violation Violation `json:"violation"`
}

// ValidationResult is either valid (no violations) or the list of every
// violation found in the input.
type ValidationResult struct {
	Violations []FieldViolation
}

// Valid reports whether the input passed every rule.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// Err converts an invalid result into a VALIDATION_ERROR. It returns nil for a
// valid result.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid "+r.Violations[0].Field).
		WithDetails(map[string]any{"violations": r.Violations})
}

func (r *ValidationResult) add(field string, v Violation) {
	r.Violations = append(r.Violations, FieldViolation{Field: field, Violation: v})
}

func (r *ValidationResult) requireID(field string, id uuid.UUID) {
	if id == uuid.Nil {
		r.add(field, ViolationRequired)
	}
}

func (r *ValidationResult) positive(field string, value int) {
	if value < 1 {
		r.add(field, ViolationNotPositive)
	}
}

func (r *ValidationResult) nonNegative(field string, value *int) {
	if value != nil && *value < 0 {
		r.add(field, ViolationNegative)
	}
}

func (r *ValidationResult) reason(reason string) {
	trimmed := strings.TrimSpace(reason)
	switch {
	case trimmed == "":
		r.add("reason", ViolationRequired)
	case utf8.RuneCountInString(trimmed) > maxReasonLength:
		r.add("reason", ViolationTooLong)
	}
}

func (r *ValidationResult) maxLength(field string, value *string, limit int) {
	if value != nil && utf8.RuneCountInString(*value) > limit {
		r.add(field, ViolationTooLong)
	}
}

// ValidateAdjust checks an adjustment before any transaction is opened.
func ValidateAdjust(in AdjustInput) ValidationResult {
	var r ValidationResult
	r.requireID("record_id", in.RecordID)
	if !in.Type.IsValid() {
		r.add("type", ViolationInvalidOption)
	}
	r.positive("quantity", in.Quantity)
	r.reason(in.Reason)
	r.maxLength("notes", in.Notes, maxNotesLength)
	return r
}

// ValidateReservation checks reserve, release and fulfill inputs.
func ValidateReservation(in ReservationInput) ValidationResult {
	var r ValidationResult
	r.requireID("record_id", in.RecordID)
	r.positive("quantity", in.Quantity)
	r.reason(in.Reason)
	r.maxLength("notes", in.Notes, maxNotesLength)
	return r
}

// ValidateTransfer checks a transfer input, including distinct warehouses.
func ValidateTransfer(in TransferInput) ValidationResult {
	var r ValidationResult
	r.requireID("product_id", in.ProductID)
	r.requireID("source_warehouse_id", in.SourceWarehouseID)
	r.requireID("destination_warehouse_id", in.DestinationWarehouseID)
	if in.SourceWarehouseID != uuid.Nil && in.SourceWarehouseID == in.DestinationWarehouseID {
		r.add("destination_warehouse_id", ViolationSameWarehouse)
	}
	r.positive("quantity", in.Quantity)
	r.reason(in.Reason)
	r.maxLength("notes", in.Notes, maxNotesLength)
	return r
}

// ValidateCreate checks a new record. The reason only matters when the record
// starts with stock.
func ValidateCreate(in CreateRecordInput) ValidationResult {
	var r ValidationResult
	r.requireID("product_id", in.ProductID)
	if in.InitialStock < 0 {
		r.add("initial_stock", ViolationNegative)
	}
	if in.InitialStock > 0 && in.Reason != "" {
		r.reason(in.Reason)
	}
	r.nonNegative("low_stock_threshold", in.LowStockThreshold)
	r.nonNegative("reorder_point", in.ReorderPoint)
	r.nonNegative("reorder_quantity", in.ReorderQuantity)
	r.maxLength("location", in.Location, maxLocationLength)
	r.maxLength("bin_number", in.BinNumber, maxBinLength)
	r.maxLength("notes", in.Notes, maxNotesLength)
	return r
}

// ValidatePlanning checks a planning update.
func ValidatePlanning(in UpdatePlanningInput) ValidationResult {
	var r ValidationResult
	r.requireID("record_id", in.RecordID)
	r.nonNegative("low_stock_threshold", in.LowStockThreshold)
	r.nonNegative("reorder_point", in.ReorderPoint)
	r.nonNegative("reorder_quantity", in.ReorderQuantity)
	if in.ClearReorderPoint && in.ReorderPoint != nil {
		r.add("reorder_point", ViolationSetAndClear)
	}
	if in.ClearReorderQuantity && in.ReorderQuantity != nil {
		r.add("reorder_quantity", ViolationSetAndClear)
	}
	r.maxLength("location", in.Location, maxLocationLength)
	r.maxLength("bin_number", in.BinNumber, maxBinLength)
	return r
}
