package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/dividify/dividify-backend/internal/locks"
	"github.com/dividify/dividify-backend/pkg/logger"
	"github.com/dividify/dividify-backend/pkg/metrics"
)

const defaultSpec = "0 6 * * *"

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       locks.Lock
	Metrics    *metrics.CronJobMetrics
	Spec       string
	Location   *time.Location
	RunOnStart bool
}

// Service executes registered cron jobs on a cron expression.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       locks.Lock
	metrics    *metrics.CronJobMetrics
	spec       string
	location   *time.Location
	runOnStart bool
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	spec := params.Spec
	if spec == "" {
		spec = defaultSpec
	}
	if _, err := robfig.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	location := params.Location
	if location == nil {
		location = time.UTC
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		spec:       spec,
		location:   location,
		runOnStart: params.RunOnStart,
	}, nil
}

// Run schedules cycles on the configured spec until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scheduler := robfig.New(
		robfig.WithLocation(s.location),
		robfig.WithLogger(cronLogger{ctx: ctx, logg: s.logg}),
		robfig.WithChain(robfig.SkipIfStillRunning(cronLogger{ctx: ctx, logg: s.logg})),
	)
	if _, err := scheduler.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("register cron spec: %w", err)
	}

	if s.runOnStart {
		s.tick(ctx)
	}
	scheduler.Start()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"spec": s.spec, "jobs": s.registry.Names()}), "cron schedule started")

	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

func (s *Service) tick(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		for _, job := range s.registry.Jobs() {
			s.metrics.Record(job.Name(), metrics.OutcomeSkipped, 0)
		}
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	switch {
	case errors.Is(err, ErrJobSkipped):
		s.logg.Info(jobCtx, "job skipped")
		s.metrics.Record(job.Name(), metrics.OutcomeSkipped, duration)
	case err != nil:
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.Record(job.Name(), metrics.OutcomeFailure, duration)
	default:
		s.logg.Info(jobCtx, "job completed")
		s.metrics.Record(job.Name(), metrics.OutcomeSuccess, duration)
	}
}

// cronLogger adapts the service logger to the scheduler's logging interface.
type cronLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logg.Info(l.logg.WithFields(l.ctx, fields(keysAndValues)), msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logg.Error(l.logg.WithFields(l.ctx, fields(keysAndValues)), msg, err)
}

func fields(keysAndValues []interface{}) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		out[key] = keysAndValues[i+1]
	}
	return out
}
