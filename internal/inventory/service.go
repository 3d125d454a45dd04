package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/audit"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

const (
	actorSource      = "inventory"
	signalTimeout    = 5 * time.Second
	initialStockNote = "initial stock"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MetricsRecorder receives per-operation outcomes and signal dispatch results.
type MetricsRecorder interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
	IncSignal(kind string, outcome string)
}

// Service is the stock ledger: every stock mutation goes through it.
type Service interface {
	CreateRecord(ctx context.Context, input CreateRecordInput) (*models.InventoryRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	FindRecord(ctx context.Context, key RecordKey) (*models.InventoryRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error)
	ListLowStock(ctx context.Context, filter RecordFilter) ([]models.InventoryRecord, *pagination.Cursor, error)
	UpdatePlanning(ctx context.Context, input UpdatePlanningInput) (*models.InventoryRecord, error)

	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error)
	Reserve(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error)
	Release(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error)
	Fulfill(ctx context.Context, input ReservationInput) (*models.InventoryRecord, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)

	Replenishment(ctx context.Context, filter ReplenishmentFilter) ([]ReplenishmentSuggestion, error)
}

// ServiceParams wires the ledger. Signals and Metrics are optional.
type ServiceParams struct {
	Repo     Repository
	Audit    audit.Repository
	Tx       txRunner
	Events   eventEmitter
	Signals  SignalNotifier
	Metrics  MetricsRecorder
	Logger   *logger.Logger
	Defaults config.InventoryConfig
	Clock    func() time.Time
}

type service struct {
	repo        Repository
	audit       audit.Repository
	tx          txRunner
	events      eventEmitter
	signals     SignalNotifier
	metrics     MetricsRecorder
	logg        *logger.Logger
	defaults    config.InventoryConfig
	coverFactor decimal.Decimal
	now         func() time.Time
}

// NewService builds the ledger service from the provided params.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if params.Defaults.DefaultLowStockThreshold < 0 {
		return nil, fmt.Errorf("default low stock threshold must be >= 0")
	}
	coverFactor := decimal.NewFromInt(1)
	if raw := strings.TrimSpace(params.Defaults.ReplenishmentCoverFactor); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse replenishment cover factor: %w", err)
		}
		if parsed.LessThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("replenishment cover factor must be >= 1")
		}
		coverFactor = parsed
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:        params.Repo,
		audit:       params.Audit,
		tx:          params.Tx,
		events:      params.Events,
		signals:     params.Signals,
		metrics:     params.Metrics,
		logg:        logg,
		defaults:    params.Defaults,
		coverFactor: coverFactor,
		now:         clock,
	}, nil
}

// mutation describes one single-record stock change.
type mutation struct {
	RecordID    uuid.UUID
	Operation   enums.AuditOperation
	EventType   enums.OutboxEventType
	Quantity    int
	Reason      string
	Notes       *string
	ActorID     *string
	MarkCounted bool
}

// apply runs a single-record mutation: lock, transition, versioned write,
// audit append and outbox event in one transaction, then threshold evaluation.
func (s *service) apply(ctx context.Context, m mutation) (*models.InventoryRecord, error) {
	started := s.now()
	ctx = s.logg.WithMovement(ctx, m.RecordID.String(), string(m.Operation))

	var updated *models.InventoryRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := repo.LockByID(ctx, m.RecordID)
		if err != nil {
			return err
		}
		next, err := transition(*rec, m.Operation, m.Quantity)
		if err != nil {
			return err
		}

		before := positionOf(*rec)
		if m.MarkCounted {
			counted := s.now().UTC()
			rec.LastCounted = &counted
		}
		if err := s.movePosition(ctx, repo, rec, next); err != nil {
			return err
		}

		entry := s.auditEntry(*rec, m.Operation, m.Quantity, before, m.Reason, m.Notes, m.ActorID)
		if err := s.audit.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		event := outboxMovement(*rec, entry, m.ActorID)
		event.EventType = m.EventType
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		err = classify(err, m.RecordID, m.Operation)
		s.observe(ctx, m.Operation, started, err)
		return nil, err
	}

	s.observe(ctx, m.Operation, started, nil)
	s.evaluate(ctx, *updated)
	return updated, nil
}

func (s *service) auditEntry(rec models.InventoryRecord, op enums.AuditOperation, quantity int, before position, reason string, notes, actorID *string) *models.AuditEntry {
	return &models.AuditEntry{
		ID:             uuid.New(),
		RecordID:       rec.ID,
		ProductID:      rec.ProductID,
		VariantID:      rec.VariantID,
		WarehouseID:    rec.WarehouseID,
		Operation:      op,
		Quantity:       quantity,
		Reason:         strings.TrimSpace(reason),
		Notes:          notes,
		ActorID:        actorID,
		StockBefore:    before.Stock,
		ReservedBefore: before.Reserved,
		StockAfter:     rec.Stock,
		ReservedAfter:  rec.ReservedStock,
		RecordVersion:  rec.Version,
		CreatedAt:      s.now().UTC(),
	}
}

func movementEvent(rec models.InventoryRecord, entry *models.AuditEntry) payloads.StockMovementEvent {
	return payloads.StockMovementEvent{
		RecordID:       rec.ID,
		AuditEntryID:   entry.ID,
		ProductID:      rec.ProductID,
		VariantID:      rec.VariantID,
		WarehouseID:    rec.WarehouseID,
		StoreID:        rec.StoreID,
		Operation:      entry.Operation,
		Quantity:       entry.Quantity,
		Reason:         entry.Reason,
		StockBefore:    entry.StockBefore,
		ReservedBefore: entry.ReservedBefore,
		StockAfter:     entry.StockAfter,
		ReservedAfter:  entry.ReservedAfter,
		AvailableAfter: entry.AvailableAfter(),
		RecordVersion:  entry.RecordVersion,
		OccurredAt:     entry.CreatedAt,
	}
}

// outboxMovement builds a stock_adjusted event for entry, keyed by the audit
// entry id. Callers override the event type for other operations.
func outboxMovement(rec models.InventoryRecord, entry *models.AuditEntry, actorID *string) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventID:       entry.ID,
		EventType:     enums.EventStockAdjusted,
		AggregateType: enums.AggregateInventoryRecord,
		AggregateID:   rec.ID,
		Actor:         actorRef(actorID),
		Data:          movementEvent(rec, entry),
		OccurredAt:    entry.CreatedAt,
	}
}

func actorRef(actorID *string) *outbox.ActorRef {
	if actorID == nil || *actorID == "" {
		return nil
	}
	return &outbox.ActorRef{ActorID: *actorID, Source: actorSource}
}

func (s *service) observe(ctx context.Context, op enums.AuditOperation, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		code := pkgerrors.As(err).Code()
		outcome = strings.ToLower(string(code))
		if code == pkgerrors.CodeInternal {
			s.logg.Error(ctx, "inventory operation failed", err)
		} else {
			s.logg.Warn(s.logg.WithField(ctx, "outcome", outcome), "inventory operation rejected")
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveOperation(string(op), outcome, s.now().Sub(started))
	}
}
