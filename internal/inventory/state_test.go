package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

func TestTransition(t *testing.T) {
	rec := models.InventoryRecord{Stock: 10, ReservedStock: 4}
	cases := []struct {
		name     string
		op       enums.AuditOperation
		qty      int
		want     position
		wantCode pkgerrors.Code
	}{
		{name: "add", op: enums.AuditOperationAdd, qty: 3, want: position{13, 4}},
		{name: "remove", op: enums.AuditOperationRemove, qty: 6, want: position{4, 4}},
		{name: "remove below zero", op: enums.AuditOperationRemove, qty: 11, wantCode: pkgerrors.CodeInsufficientStock},
		{name: "remove into reserved", op: enums.AuditOperationRemove, qty: 7, wantCode: pkgerrors.CodeInsufficientStock},
		{name: "set", op: enums.AuditOperationSet, qty: 4, want: position{4, 4}},
		{name: "set below reserved", op: enums.AuditOperationSet, qty: 2, wantCode: pkgerrors.CodeInvariantViolation},
		{name: "reserve", op: enums.AuditOperationReserve, qty: 6, want: position{10, 10}},
		{name: "reserve too much", op: enums.AuditOperationReserve, qty: 7, wantCode: pkgerrors.CodeInsufficientStock},
		{name: "release", op: enums.AuditOperationRelease, qty: 4, want: position{10, 0}},
		{name: "release too much", op: enums.AuditOperationRelease, qty: 5, wantCode: pkgerrors.CodeInvariantViolation},
		{name: "fulfill", op: enums.AuditOperationFulfill, qty: 4, want: position{6, 0}},
		{name: "fulfill too much", op: enums.AuditOperationFulfill, qty: 5, wantCode: pkgerrors.CodeInvariantViolation},
		{name: "transfer out", op: enums.AuditOperationTransferOut, qty: 6, want: position{4, 4}},
		{name: "transfer out reserved", op: enums.AuditOperationTransferOut, qty: 7, wantCode: pkgerrors.CodeInsufficientStock},
		{name: "transfer in", op: enums.AuditOperationTransferIn, qty: 2, want: position{12, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := transition(rec, tc.op, tc.qty)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, tc.wantCode), "got %v", err)
				assert.Equal(t, positionOf(rec), next)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
			assert.GreaterOrEqual(t, next.available(), 0)
		})
	}
}

func TestTransitionRejectsUnknownOperation(t *testing.T) {
	_, err := transition(models.InventoryRecord{Stock: 1}, enums.AuditOperation("MELT"), 1)
	require.Error(t, err)
}
