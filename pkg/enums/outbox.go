package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateInventoryRecord OutboxAggregateType = "inventory_record"
	AggregateTransfer        OutboxAggregateType = "inventory_transfer"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInventoryRecord,
	AggregateTransfer,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventStockAdjusted        OutboxEventType = "stock_adjusted"
	EventStockReserved        OutboxEventType = "stock_reserved"
	EventStockReleased        OutboxEventType = "stock_released"
	EventReservationFulfilled OutboxEventType = "reservation_fulfilled"
	EventStockTransferred     OutboxEventType = "stock_transferred"
	EventLowStockDetected     OutboxEventType = "low_stock_detected"
	EventReorderRequired      OutboxEventType = "reorder_required"
)

var validOutboxEventTypes = []OutboxEventType{
	EventStockAdjusted,
	EventStockReserved,
	EventStockReleased,
	EventReservationFulfilled,
	EventStockTransferred,
	EventLowStockDetected,
	EventReorderRequired,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsStockMovement reports whether the event describes a change to stock or
// reservations, as opposed to a threshold signal.
func (e OutboxEventType) IsStockMovement() bool {
	switch e {
	case EventStockAdjusted, EventStockReserved, EventStockReleased, EventReservationFulfilled, EventStockTransferred:
		return true
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
