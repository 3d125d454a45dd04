package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

type sweepRecords interface {
	List(ctx context.Context, filter inventory.RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error)
	ListAtOrBelowReorderPoint(ctx context.Context, filter inventory.ReplenishmentFilter) ([]models.InventoryRecord, error)
}

type ReorderSweepJobParams struct {
	Logger   *logger.Logger
	Records  sweepRecords
	Notifier inventory.SignalNotifier
}

// NewReorderSweepJob re-evaluates every record under a threshold so signals
// lost after a commit are raised again. The notifier cooldown keeps records
// already signalled quiet.
func NewReorderSweepJob(params ReorderSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Records == nil {
		return nil, errors.New("inventory repository required")
	}
	if params.Notifier == nil {
		return nil, errors.New("signal notifier required")
	}
	return &reorderSweepJob{
		logg:     params.Logger,
		records:  params.Records,
		notifier: params.Notifier,
	}, nil
}

type reorderSweepJob struct {
	logg     *logger.Logger
	records  sweepRecords
	notifier inventory.SignalNotifier
}

func (j *reorderSweepJob) Name() string { return "reorder-sweep" }

func (j *reorderSweepJob) Run(ctx context.Context) error {
	candidates, err := j.candidates(ctx)
	if err != nil {
		return fmt.Errorf("reorder sweep: %w", err)
	}

	var (
		notified int
		errs     []error
	)
	for _, rec := range candidates {
		signal := inventory.Evaluate(rec)
		if !signal.Fired() {
			continue
		}
		if err := j.notifier.Notify(ctx, rec, signal); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", rec.ID, err))
			continue
		}
		notified++
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"records_scanned":  len(candidates),
		"records_notified": notified,
		"failures":         len(errs),
	}), "reorder sweep complete")
	return errors.Join(errs...)
}

func (j *reorderSweepJob) candidates(ctx context.Context) ([]models.InventoryRecord, error) {
	seen := make(map[uuid.UUID]struct{})
	var out []models.InventoryRecord
	add := func(rows []models.InventoryRecord) {
		for _, rec := range rows {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, rec)
		}
	}

	filter := inventory.RecordFilter{LowStockOnly: true, Limit: pagination.MaxLimit}
	for {
		page, next, err := j.records.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		add(page)
		if next == nil {
			break
		}
		filter.Cursor = next
	}

	reorder, err := j.records.ListAtOrBelowReorderPoint(ctx, inventory.ReplenishmentFilter{})
	if err != nil {
		return nil, err
	}
	add(reorder)
	return out, nil
}
