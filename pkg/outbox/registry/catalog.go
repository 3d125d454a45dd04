package registry

import (
	"encoding/json"

	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
)

type destination int

const (
	toLedger destination = iota
	toNotifications
)

type decoderFunc func(payload json.RawMessage) (any, error)

// catalogEntry describes one v1 event: the aggregate it belongs to, where it
// is published and how its data decodes.
type catalogEntry struct {
	aggregate enums.OutboxAggregateType
	dest      destination
	decode    decoderFunc
}

var catalog = map[enums.OutboxEventType]catalogEntry{
	enums.EventStockAdjusted:        {enums.AggregateInventoryRecord, toLedger, decodeInto[payloads.StockMovementEvent]},
	enums.EventStockReserved:        {enums.AggregateInventoryRecord, toLedger, decodeInto[payloads.StockMovementEvent]},
	enums.EventStockReleased:        {enums.AggregateInventoryRecord, toLedger, decodeInto[payloads.StockMovementEvent]},
	enums.EventReservationFulfilled: {enums.AggregateInventoryRecord, toLedger, decodeInto[payloads.StockMovementEvent]},
	enums.EventStockTransferred:     {enums.AggregateTransfer, toLedger, decodeInto[payloads.StockTransferredEvent]},
	enums.EventLowStockDetected:     {enums.AggregateInventoryRecord, toNotifications, decodeInto[payloads.ThresholdSignalEvent]},
	enums.EventReorderRequired:      {enums.AggregateInventoryRecord, toNotifications, decodeInto[payloads.ThresholdSignalEvent]},
}

func decodeInto[T any](payload json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
