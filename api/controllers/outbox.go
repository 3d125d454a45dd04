package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox"
)

// DeadLetters is the operator view over events the relay gave up on.
type DeadLetters interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) (*models.OutboxEvent, error)
}

type DeadLetterResponse struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	Error         *string         `json:"error,omitempty"`
	AttemptCount  int             `json:"attempt_count"`
	FailedAt      time.Time       `json:"failed_at"`
}

// ListDeadLetters supports ?reason=, ?event_type= and ?limit=.
func ListDeadLetters(store DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		reason, err := enums.ParseOutboxDLQErrorReason(strings.TrimSpace(query.Get("reason")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason").
				WithDetails(map[string]any{"field": "reason"}))
			return
		}

		filter := outbox.DLQFilter{Reason: reason}
		if raw := strings.TrimSpace(query.Get("event_type")); raw != "" {
			if filter.EventType, err = enums.ParseOutboxEventType(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event_type").
					WithDetails(map[string]any{"field": "event_type"}))
				return
			}
		}
		if filter.Limit, err = validators.ParseQueryInt(r, "limit", 50, 1, 500); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := store.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		out := make([]DeadLetterResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, DeadLetterResponse{
				EventID:       row.EventID,
				EventType:     string(row.EventType),
				AggregateType: string(row.AggregateType),
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
				Reason:        string(row.ErrorReason),
				Error:         row.ErrorMessage,
				AttemptCount:  row.AttemptCount,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// RequeueDeadLetter puts a dead lettered event back in front of the relay.
func RequeueDeadLetter(store DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := store.Requeue(r.Context(), eventID)
		switch {
		case errors.Is(err, outbox.ErrDeadLetterNotFound):
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requeue dead letter"))
			return
		}

		logg.Info(logg.WithFields(r.Context(), map[string]any{
			"event_id":   event.ID.String(),
			"event_type": string(event.EventType),
		}), "dead letter requeued")
		responses.WriteSuccess(w, map[string]any{
			"event_id":   event.ID,
			"event_type": event.EventType,
			"requeued":   true,
		})
	}
}
