package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// Repository is the append-only store for audit entries. It deliberately has
// no update or delete methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entries ...*models.AuditEntry) error
	ListByRecord(ctx context.Context, recordID uuid.UUID, afterVersion, limit int) ([]models.AuditEntry, error)
	ListByRecordUntil(ctx context.Context, recordID uuid.UUID, at time.Time) ([]models.AuditEntry, error)
	ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]models.AuditEntry, error)
	Stream(ctx context.Context, after *pagination.Cursor, until time.Time, limit int) ([]models.AuditEntry, error)
	RecordExists(ctx context.Context, recordID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entries ...*models.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		if entry == nil {
			return errors.New("nil audit entry")
		}
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

func (r *repository) ListByRecord(ctx context.Context, recordID uuid.UUID, afterVersion, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	q := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Where("record_version > ?", afterVersion).
		Order("record_version ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByRecordUntil(ctx context.Context, recordID uuid.UUID, at time.Time) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("record_id = ? AND created_at <= ?", recordID, at).
		Order("record_version ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("operation DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Stream pages entries stamped at or before until in (created_at, id) order.
func (r *repository) Stream(ctx context.Context, after *pagination.Cursor, until time.Time, limit int) ([]models.AuditEntry, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditEntry{}).Where("created_at <= ?", until)
	if after != nil {
		q = q.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var entries []models.AuditEntry
	if err := q.Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) RecordExists(ctx context.Context, recordID uuid.UUID) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", recordID).
		Limit(1).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
