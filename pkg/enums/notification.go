package enums

import "fmt"

// NotificationType maps to the type column of notifications.
type NotificationType string

const (
	NotificationTypeLowStock NotificationType = "low_stock"
	NotificationTypeReorder  NotificationType = "reorder_required"
)

// notificationSources ties each threshold event to the notification it raises.
var notificationSources = map[OutboxEventType]NotificationType{
	EventLowStockDetected: NotificationTypeLowStock,
	EventReorderRequired:  NotificationTypeReorder,
}

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeLowStock, NotificationTypeReorder:
		return true
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	n := NotificationType(value)
	if !n.IsValid() {
		return "", fmt.Errorf("invalid notification type %q", value)
	}
	return n, nil
}

// NotificationTypeFor returns the notification a threshold event raises.
func NotificationTypeFor(event OutboxEventType) (NotificationType, bool) {
	n, ok := notificationSources[event]
	return n, ok
}
