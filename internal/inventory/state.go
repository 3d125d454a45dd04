package inventory

import (
	"fmt"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
)

// position is the mutable part of a record. Available stock is always derived.
type position struct {
	Stock    int
	Reserved int
}

func positionOf(rec models.InventoryRecord) position {
	return position{Stock: rec.Stock, Reserved: rec.ReservedStock}
}

func (p position) available() int {
	return p.Stock - p.Reserved
}

// transition computes the next position for op or returns the ledger error
// explaining why the operation is not allowed. It never touches storage.
func transition(rec models.InventoryRecord, op enums.AuditOperation, quantity int) (position, error) {
	cur := positionOf(rec)
	next := cur
	switch op {
	case enums.AuditOperationAdd, enums.AuditOperationTransferIn:
		next.Stock = cur.Stock + quantity
	case enums.AuditOperationRemove:
		// Reserved units are not removable; only available stock counts.
		if cur.available() < quantity {
			return cur, insufficientStock(rec, op, quantity)
		}
		next.Stock = cur.Stock - quantity
	case enums.AuditOperationSet:
		if quantity < cur.Reserved {
			return cur, invariantViolation(rec, op, quantity, "stock cannot be set below reserved stock")
		}
		next.Stock = quantity
	case enums.AuditOperationReserve:
		if cur.available() < quantity {
			return cur, insufficientStock(rec, op, quantity)
		}
		next.Reserved = cur.Reserved + quantity
	case enums.AuditOperationRelease:
		if quantity > cur.Reserved {
			return cur, invariantViolation(rec, op, quantity, "cannot release more than is reserved")
		}
		next.Reserved = cur.Reserved - quantity
	case enums.AuditOperationFulfill:
		if quantity > cur.Reserved {
			return cur, invariantViolation(rec, op, quantity, "cannot fulfill more than is reserved")
		}
		next.Stock = cur.Stock - quantity
		next.Reserved = cur.Reserved - quantity
	case enums.AuditOperationTransferOut:
		if cur.available() < quantity {
			return cur, insufficientStock(rec, op, quantity)
		}
		next.Stock = cur.Stock - quantity
	default:
		return cur, fmt.Errorf("unsupported operation %q", op)
	}
	if err := next.check(); err != nil {
		return cur, invariantViolation(rec, op, quantity, err.Error())
	}
	return next, nil
}

func (p position) check() error {
	switch {
	case p.Stock < 0:
		return fmt.Errorf("stock would become negative")
	case p.Reserved < 0:
		return fmt.Errorf("reserved stock would become negative")
	case p.Reserved > p.Stock:
		return fmt.Errorf("reserved stock would exceed stock")
	}
	return nil
}
