package inventory

import (
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// errVersionConflict is returned by the repository when a conditional update
// matched no row.
var errVersionConflict = errors.New("inventory record version changed")

func stockDetails(rec models.InventoryRecord, op enums.AuditOperation, quantity int) map[string]any {
	return map[string]any{
		"record_id":       rec.ID.String(),
		"operation":       string(op),
		"quantity":        quantity,
		"stock":           rec.Stock,
		"reserved_stock":  rec.ReservedStock,
		"available_stock": rec.AvailableStock(),
	}
}

func insufficientStock(rec models.InventoryRecord, op enums.AuditOperation, quantity int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(stockDetails(rec, op, quantity))
}

func invariantViolation(rec models.InventoryRecord, op enums.AuditOperation, quantity int, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvariantViolation, message).
		WithDetails(stockDetails(rec, op, quantity))
}

func recordNotFound(details map[string]any) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found").WithDetails(details)
}

// classify turns raw transaction errors into ledger errors. Typed errors pass
// through untouched.
func classify(err error, recordID uuid.UUID, op enums.AuditOperation) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	details := map[string]any{"operation": string(op)}
	if recordID != uuid.Nil {
		details["record_id"] = recordID.String()
	}
	switch {
	case errors.Is(err, errVersionConflict), db.IsLockConflict(err):
		return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "record is being modified concurrently").WithDetails(details)
	case db.IsCheckViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeInvariantViolation, err, "stock constraint rejected the write").WithDetails(details)
	case db.IsNotFound(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "inventory record not found").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inventory operation failed").WithDetails(details)
}
