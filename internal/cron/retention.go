package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/stockledger/pkg/logger"
)

const (
	defaultOutboxRetention       = 30 * 24 * time.Hour
	defaultDeadLetterRetention   = 90 * 24 * time.Hour
	defaultNotificationRetention = 90 * 24 * time.Hour
)

// purgeFunc deletes rows older than cutoff and reports how many went.
type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// retentionJob prunes one table by age. Every housekeeping job in the cron
// worker is an instance with its own purge and window.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	purge     purgeFunc
	retention time.Duration
	now       func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, purge purgeFunc, retention, fallback time.Duration) (*retentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if purge == nil {
		return nil, fmt.Errorf("%s: repository required", name)
	}
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		purge:     purge,
		retention: retention,
		now:       time.Now,
	}, nil
}

func asJob(j *retentionJob, err error) (Job, error) {
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewOutboxRetentionJob prunes published outbox rows.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	var purge purgeFunc
	if params.Repository != nil {
		purge = params.Repository.DeletePublishedBefore
	}
	return asJob(newRetentionJob("outbox-retention", params.Logger, purge, params.Retention, defaultOutboxRetention))
}

type DeadLetterRetentionJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewDeadLetterRetentionJob prunes dead letters that were never requeued.
func NewDeadLetterRetentionJob(params DeadLetterRetentionJobParams) (Job, error) {
	var purge purgeFunc
	if params.Repository != nil {
		purge = params.Repository.DeleteFailedBefore
	}
	return asJob(newRetentionJob("dead-letter-retention", params.Logger, purge, params.Retention, defaultDeadLetterRetention))
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewNotificationCleanupJob removes read notifications.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	var purge purgeFunc
	if params.Repository != nil {
		purge = params.Repository.DeleteReadBefore
	}
	return asJob(newRetentionJob("notification-cleanup", params.Logger, purge, params.Retention, defaultNotificationRetention))
}
