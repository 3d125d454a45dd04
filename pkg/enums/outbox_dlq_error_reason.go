package enums

import "fmt"

// OutboxDLQErrorReason records why the relay gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
)

var dlqReasons = map[OutboxDLQErrorReason]struct{}{
	OutboxDLQReasonMaxAttempts:  {},
	OutboxDLQReasonNonRetryable: {},
	OutboxDLQReasonUnknownEvent: {},
}

func (r OutboxDLQErrorReason) IsValid() bool {
	_, ok := dlqReasons[r]
	return ok
}

// ParseOutboxDLQErrorReason accepts an empty string as "any reason".
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	if value == "" {
		return "", nil
	}
	reason := OutboxDLQErrorReason(value)
	if !reason.IsValid() {
		return "", fmt.Errorf("invalid dead letter reason %q", value)
	}
	return reason, nil
}
