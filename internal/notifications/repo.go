package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// Repository persists stock alerts. Every read and write except Create and
// the retention purge is scoped to one store.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, filter listFilter) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, storeID, notificationID uuid.UUID, now time.Time) (readOutcome, error)
	MarkAllRead(ctx context.Context, storeID uuid.UUID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, storeID uuid.UUID) (map[enums.NotificationType]int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type listFilter struct {
	StoreID    uuid.UUID
	Type       enums.NotificationType
	RecordID   *uuid.UUID
	UnreadOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

type readOutcome int

const (
	readMissing readOutcome = iota
	readMarked
	readAlready
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) store(ctx context.Context, storeID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("store_id = ?", storeID)
}

// Create skips rows whose source event already produced a notification and
// reports whether anything was inserted.
func (r *repository) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_event_id"}}, DoNothing: true}).
		Create(notification)
	return res.RowsAffected > 0, res.Error
}

// List pages newest first on (created_at, id).
func (r *repository) List(ctx context.Context, filter listFilter) ([]models.Notification, *pagination.Cursor, error) {
	q := r.store(ctx, filter.StoreID)
	if filter.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.RecordID != nil {
		q = q.Where("record_id = ?", *filter.RecordID)
	}
	if c := filter.Cursor; c != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	page, more := pagination.Trim(rows, filter.Limit)
	if !more {
		return page, nil, nil
	}
	tail := page[len(page)-1]
	return page, &pagination.Cursor{CreatedAt: tail.CreatedAt, ID: tail.ID}, nil
}

func (r *repository) MarkRead(ctx context.Context, storeID, notificationID uuid.UUID, now time.Time) (readOutcome, error) {
	var current models.Notification
	err := r.store(ctx, storeID).Select("id", "read_at").Where("id = ?", notificationID).Take(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return readMissing, nil
	case err != nil:
		return readMissing, err
	case current.ReadAt != nil:
		return readAlready, nil
	}

	res := r.store(ctx, storeID).Where("id = ? AND read_at IS NULL", notificationID).UpdateColumn("read_at", now)
	if res.Error != nil {
		return readMissing, res.Error
	}
	if res.RowsAffected == 0 {
		return readAlready, nil
	}
	return readMarked, nil
}

func (r *repository) MarkAllRead(ctx context.Context, storeID uuid.UUID, now time.Time) (int64, error) {
	res := r.store(ctx, storeID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *repository) CountUnread(ctx context.Context, storeID uuid.UUID) (map[enums.NotificationType]int64, error) {
	var grouped []struct {
		Type  enums.NotificationType
		Count int64
	}
	if err := r.store(ctx, storeID).
		Select("type, COUNT(*) AS count").
		Where("read_at IS NULL").
		Group("type").
		Scan(&grouped).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.NotificationType]int64, len(grouped))
	for _, g := range grouped {
		counts[g.Type] = g.Count
	}
	return counts, nil
}

// DeleteReadBefore purges read notifications created before cutoff. Unread
// alerts are never purged.
func (r *repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
