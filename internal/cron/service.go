package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
)

const defaultSchedule = "@every 15m"

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.SchedulerMetrics
	// Schedule is a five-field cron spec or a descriptor such as "@every 15m".
	Schedule string
}

// Service runs every registered job once per cycle while holding the
// cluster-wide lease.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.SchedulerMetrics
	schedule robfig.Schedule
	spec     string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{jobs: map[string]Job{}}
	}
	spec := strings.TrimSpace(params.Schedule)
	if spec == "" {
		spec = defaultSchedule
	}
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron schedule %q: %w", spec, err)
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: schedule,
		spec:     spec,
	}, nil
}

// Next reports when the schedule fires after t.
func (s *Service) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run executes one cycle immediately, then follows the schedule until ctx is
// cancelled. A cycle still running when the next tick fires is not doubled up.
func (s *Service) Run(ctx context.Context) error {
	runner := robfig.New(robfig.WithChain(robfig.SkipIfStillRunning(robfig.DiscardLogger)))
	runner.Schedule(s.schedule, robfig.FuncJob(func() { s.tick(ctx) }))

	s.tick(ctx)

	runner.Start()
	s.logg.Info(s.logg.WithField(ctx, "schedule", s.spec), "cron scheduler started")
	<-ctx.Done()
	<-runner.Stop().Done()
	s.logg.Info(ctx, "cron service context canceled")
	return ctx.Err()
}

func (s *Service) tick(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	lease, err := s.lock.TryAcquire(ctx)
	if errors.Is(err, ErrLockHeld) {
		s.metrics.IncSkippedCycle()
		holder, _ := s.lock.Holder(ctx)
		s.logg.Info(s.logg.WithField(ctx, "holder", holder), "cron cycle skipped; lease held elsewhere")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	defer func() {
		if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	jobs := s.registry.Jobs()
	cycleCtx := s.logg.WithFields(ctx, map[string]any{
		"jobs":          len(jobs),
		"lease_expires": lease.Expires().UTC().Format(time.RFC3339),
	})
	s.logg.Info(cycleCtx, "scheduled run starting")
	failed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithField(cycleCtx, "failed", failed), "scheduled run complete")
	return nil
}

// runJob reports whether the job succeeded. Failures are logged and counted
// but never stop the remaining jobs in the cycle.
func (s *Service) runJob(ctx context.Context, job Job) bool {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveJob(job.Name(), duration, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return false
	}
	s.logg.Info(jobCtx, "job completed")
	return true
}
