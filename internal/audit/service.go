package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// Service exposes the read side of the audit log.
type Service interface {
	History(ctx context.Context, recordID uuid.UUID, params pagination.Params) (*pagination.Page[models.AuditEntry], error)
	Stream(ctx context.Context, params pagination.Params) (*pagination.Page[models.AuditEntry], error)
	Reconstruct(ctx context.Context, recordID uuid.UUID, at time.Time) (*Snapshot, error)
	Transfer(ctx context.Context, transferID uuid.UUID) ([]models.AuditEntry, error)
}

// defaultStreamSettle holds back the newest entries from the global stream.
// Entries are stamped before their transaction commits, so a slow commit can
// land behind a cursor that already moved past its timestamp; readers only
// see entries older than the window.
const defaultStreamSettle = 30 * time.Second

type service struct {
	repo   Repository
	now    func() time.Time
	settle time.Duration
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo, now: time.Now, settle: defaultStreamSettle}, nil
}

func (s *service) History(ctx context.Context, recordID uuid.UUID, params pagination.Params) (*pagination.Page[models.AuditEntry], error) {
	if recordID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	after, err := pagination.ParseVersionCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByRecord(ctx, recordID, after, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list audit history")
	}
	items, more := pagination.Trim(rows, params.Limit)
	page := &pagination.Page[models.AuditEntry]{Items: items}
	if more {
		page.NextCursor = pagination.EncodeVersionCursor(items[len(items)-1].RecordVersion)
	}
	return page, nil
}

func (s *service) Stream(ctx context.Context, params pagination.Params) (*pagination.Page[models.AuditEntry], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	until := s.now().Add(-s.settle)
	rows, err := s.repo.Stream(ctx, cursor, until, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stream audit entries")
	}
	items, more := pagination.Trim(rows, params.Limit)
	page := &pagination.Page[models.AuditEntry]{Items: items}
	if more {
		last := items[len(items)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// Reconstruct replays the record's entries written at or before at. A zero
// time means now. A record with no entries in range must exist, otherwise the
// lookup is NOT_FOUND.
func (s *service) Reconstruct(ctx context.Context, recordID uuid.UUID, at time.Time) (*Snapshot, error) {
	if recordID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	if at.IsZero() {
		at = s.now()
	}
	entries, err := s.repo.ListByRecordUntil(ctx, recordID, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load audit entries")
	}
	if len(entries) == 0 {
		exists, err := s.repo.RecordExists(ctx, recordID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up inventory record")
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found").
				WithDetails(map[string]any{"record_id": recordID.String()})
		}
	}
	snap, err := Replay(recordID, at, entries)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "audit trail inconsistent").
			WithDetails(map[string]any{"record_id": recordID.String()})
	}
	return &snap, nil
}

func (s *service) Transfer(ctx context.Context, transferID uuid.UUID) ([]models.AuditEntry, error) {
	if transferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}
	entries, err := s.repo.ListByTransfer(ctx, transferID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transfer entries")
	}
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}
	return entries, nil
}
