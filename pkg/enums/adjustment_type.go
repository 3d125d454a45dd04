package enums

import "fmt"

// AdjustmentType enumerates the stock adjustment modes accepted by the ledger.
type AdjustmentType string

const (
	AdjustmentAdd    AdjustmentType = "ADD"
	AdjustmentRemove AdjustmentType = "REMOVE"
	AdjustmentSet    AdjustmentType = "SET"
)

var validAdjustmentTypes = []AdjustmentType{
	AdjustmentAdd,
	AdjustmentRemove,
	AdjustmentSet,
}

// IsValid reports whether the value is a known adjustment type.
func (a AdjustmentType) IsValid() bool {
	for _, candidate := range validAdjustmentTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// AuditOperation returns the audit operation recorded for the adjustment.
func (a AdjustmentType) AuditOperation() AuditOperation {
	return AuditOperation(a)
}

// ParseAdjustmentType converts raw input into AdjustmentType.
func ParseAdjustmentType(value string) (AdjustmentType, error) {
	for _, candidate := range validAdjustmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment type %q", value)
}
