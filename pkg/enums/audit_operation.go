package enums

import "fmt"

// AuditOperation identifies the mutation captured by an audit entry.
type AuditOperation string

const (
	AuditOperationAdd         AuditOperation = "ADD"
	AuditOperationRemove      AuditOperation = "REMOVE"
	AuditOperationSet         AuditOperation = "SET"
	AuditOperationReserve     AuditOperation = "RESERVE"
	AuditOperationRelease     AuditOperation = "RELEASE"
	AuditOperationFulfill     AuditOperation = "FULFILL"
	AuditOperationTransferOut AuditOperation = "TRANSFER_OUT"
	AuditOperationTransferIn  AuditOperation = "TRANSFER_IN"
)

var validAuditOperations = []AuditOperation{
	AuditOperationAdd,
	AuditOperationRemove,
	AuditOperationSet,
	AuditOperationReserve,
	AuditOperationRelease,
	AuditOperationFulfill,
	AuditOperationTransferOut,
	AuditOperationTransferIn,
}

func (o AuditOperation) IsValid() bool {
	for _, candidate := range validAuditOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTransfer reports whether the operation is one leg of a transfer.
func (o AuditOperation) IsTransfer() bool {
	return o == AuditOperationTransferOut || o == AuditOperationTransferIn
}

// ParseAuditOperation converts raw input into AuditOperation.
func ParseAuditOperation(value string) (AuditOperation, error) {
	for _, candidate := range validAuditOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit operation %q", value)
}
