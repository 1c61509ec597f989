// Package bootstrap assembles the scheduled dividend pipeline shared by the api and cron-worker binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/internal/activity"
	"github.com/dividify/dividify-backend/internal/dividends"
	"github.com/dividify/dividify-backend/internal/documents"
	"github.com/dividify/dividify-backend/internal/locks"
	"github.com/dividify/dividify-backend/internal/notify"
	"github.com/dividify/dividify-backend/internal/processor"
	"github.com/dividify/dividify-backend/internal/schedules"
	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/email"
	"github.com/dividify/dividify-backend/pkg/logger"
	"github.com/dividify/dividify-backend/pkg/metrics"
	pkgredis "github.com/dividify/dividify-backend/pkg/redis"
)

const leaseScope = "schedule"

// PipelineParams carries the already-connected infrastructure.
type PipelineParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *gorm.DB
	Redis      *pkgredis.Client
	Store      dividends.ObjectStore
	Registerer prometheus.Registerer
}

// Pipeline exposes the two entry points into scheduled dividends.
type Pipeline struct {
	Schedules schedules.Service
	Runner    *processor.Runner
}

// BatchLockKey names the lock shared by every trigger of a batch in env.
func BatchLockKey(client *pkgredis.Client, env string) string {
	return client.LockKey("scheduled-dividends:" + envOrLocal(env))
}

// WorkerLockKey names the cron-worker service lock in env.
func WorkerLockKey(client *pkgredis.Client, env string) string {
	return client.LockKey("cron-worker:" + envOrLocal(env))
}

func NewPipeline(p PipelineParams) (*Pipeline, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config required")
	case p.DB == nil:
		return nil, errors.New("database required")
	case p.Redis == nil:
		return nil, errors.New("redis client required")
	case p.Store == nil:
		return nil, errors.New("object store required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cfg := p.Config
	now := func() time.Time { return time.Now().UTC() }

	activityRepo := activity.NewRepository(p.DB)
	scheduleRepo := schedules.NewRepository(p.DB)
	runRepo := schedules.NewRunRepository(p.DB)

	svc, err := schedules.NewService(schedules.ServiceParams{
		Schedules: scheduleRepo,
		Runs:      runRepo,
		Activity:  activityRepo,
		Logger:    logg,
		Now:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("schedules service: %w", err)
	}

	sender, err := email.NewSender(cfg.Sendgrid, logg)
	if err != nil {
		return nil, fmt.Errorf("email sender: %w", err)
	}

	leases, err := locks.NewLeases(p.Redis, func(id string) string {
		return p.Redis.LeaseKey(leaseScope, id)
	}, cfg.Cron.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("schedule leases: %w", err)
	}

	proc, err := processor.New(processor.Params{
		Schedules:              scheduleRepo,
		Runs:                   runRepo,
		Renderer:               documents.NewRenderer(now),
		Writer:                 dividends.NewWriter(p.DB, p.Store, cfg.Storage, activityRepo),
		Notifier:               notify.NewNotifier(sender, logg),
		Leases:                 leases,
		Metrics:                metrics.NewSchedulerMetrics(reg),
		Logger:                 logg,
		Now:                    now,
		Concurrency:            cfg.Cron.Concurrency,
		MaxConsecutiveFailures: cfg.Cron.MaxConsecutiveFailures,
	})
	if err != nil {
		return nil, fmt.Errorf("processor: %w", err)
	}

	batchLock, err := locks.NewRedisLock(p.Redis, BatchLockKey(p.Redis, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("batch lock: %w", err)
	}
	runner, err := processor.NewRunner(proc, batchLock, logg)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	return &Pipeline{Schedules: svc, Runner: runner}, nil
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
