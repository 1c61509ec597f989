package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dividify/dividify-backend/api/controllers"
	"github.com/dividify/dividify-backend/api/middleware"
	"github.com/dividify/dividify-backend/internal/processor"
	"github.com/dividify/dividify-backend/internal/schedules"
	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/logger"
	pkgredis "github.com/dividify/dividify-backend/pkg/redis"
)

// BatchRunner starts one scheduled dividend batch.
type BatchRunner interface {
	Run(ctx context.Context) (processor.BatchSummary, error)
}

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Tokens      middleware.TokenVerifier
	Schedules   schedules.Service
	Runner      BatchRunner
	Idempotency pkgredis.IdempotencyStore
	RateLimits  middleware.RateLimitStore
	Readiness   []controllers.ReadinessCheck
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	triggerPolicy := middleware.NewRateLimitPolicy("cron-trigger", cfg.Cron.TriggerRateWindow, cfg.Cron.TriggerRateLimit)
	r.Route("/api/v1/cron", func(r chi.Router) {
		r.Use(middleware.RateLimit(triggerPolicy, deps.RateLimits, logg))
		r.Use(middleware.CronSecret(cfg.Cron.Secret, logg))
		r.Post("/scheduled-dividends", controllers.TriggerScheduledDividends(deps.Runner, logg))
	})

	r.Route("/api/v1/schedules", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/", controllers.ListSchedules(deps.Schedules, logg))
		r.Post("/", controllers.CreateSchedule(deps.Schedules, logg))
		r.Route("/{scheduleID}", func(r chi.Router) {
			r.Get("/", controllers.GetSchedule(deps.Schedules, logg))
			r.Patch("/", controllers.UpdateSchedule(deps.Schedules, logg))
			r.Delete("/", controllers.DeleteSchedule(deps.Schedules, logg))
			r.Post("/pause", controllers.PauseSchedule(deps.Schedules, logg))
			r.Post("/resume", controllers.ResumeSchedule(deps.Schedules, logg))
			r.Get("/runs", controllers.ListScheduleRuns(deps.Schedules, logg))
		})
	})

	return r
}
