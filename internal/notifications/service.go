package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// Service is the read side of stock alerts, scoped to one store.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Summary(ctx context.Context, storeID uuid.UUID) (*Summary, error)
	MarkRead(ctx context.Context, storeID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, storeID uuid.UUID) (int64, error)
}

// ListParams filters a store's alerts. Type and RecordID are optional.
type ListParams struct {
	StoreID    uuid.UUID
	Type       enums.NotificationType
	RecordID   *uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor,omitempty"`
}

// Summary counts unread alerts per type.
type Summary struct {
	Unread int64                            `json:"unread"`
	ByType map[enums.NotificationType]int64 `json:"by_type"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func requireStore(storeID uuid.UUID) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required").
			WithDetails(map[string]any{"field": "store_id"})
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := requireStore(params.StoreID); err != nil {
		return nil, err
	}
	if params.Type != "" && !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type").
			WithDetails(map[string]any{"field": "type", "value": string(params.Type)})
	}

	query := listFilter{
		StoreID:    params.StoreID,
		Type:       params.Type,
		RecordID:   params.RecordID,
		Limit:      pagination.NormalizeLimit(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	out := &ListResult{Items: rows}
	if next != nil {
		out.Cursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) Summary(ctx context.Context, storeID uuid.UUID) (*Summary, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountUnread(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	summary := &Summary{ByType: make(map[enums.NotificationType]int64, len(counts))}
	for kind, n := range counts {
		summary.ByType[kind] = n
		summary.Unread += n
	}
	return summary, nil
}

// MarkRead is idempotent: an already read alert still succeeds, a missing or
// foreign one is NOT_FOUND.
func (s *service) MarkRead(ctx context.Context, storeID, notificationID uuid.UUID) error {
	if err := requireStore(storeID); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	outcome, err := s.repo.MarkRead(ctx, storeID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if outcome == readMissing {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, storeID uuid.UUID) (int64, error) {
	if err := requireStore(storeID); err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkAllRead(ctx, storeID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return updated, nil
}
