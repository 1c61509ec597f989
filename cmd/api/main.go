package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dividify/dividify-backend/api/controllers"
	"github.com/dividify/dividify-backend/api/routes"
	"github.com/dividify/dividify-backend/internal/bootstrap"
	"github.com/dividify/dividify-backend/pkg/auth"
	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/db"
	"github.com/dividify/dividify-backend/pkg/logger"
	"github.com/dividify/dividify-backend/pkg/migrate"
	"github.com/dividify/dividify-backend/pkg/redis"
	"github.com/dividify/dividify-backend/pkg/storage/gcs"
)

const (
	serviceName     = "api"
	shutdownTimeout = 30 * time.Second
)

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.FromConfig(serviceName, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWith(ctx, logg, "redis", redisClient.Close)

	gcsClient, err := gcs.NewClient(ctx, cfg.Storage, cfg.GCP, logg)
	if err != nil {
		return fmt.Errorf("bootstrap gcs: %w", err)
	}
	defer closeWith(ctx, logg, "gcs", gcsClient.Close)

	pipeline, err := bootstrap.NewPipeline(bootstrap.PipelineParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient.DB(),
		Redis:      redisClient,
		Store:      gcsClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return fmt.Errorf("assemble scheduled dividend pipeline: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Tokens:      verifier,
		Schedules:   pipeline.Schedules,
		Runner:      pipeline.Runner,
		Idempotency: redisClient,
		RateLimits:  redisClient,
		Readiness: []controllers.ReadinessCheck{
			{Name: "db", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
			{Name: "gcs", Pinger: gcsClient},
		},
		Gatherer: prometheus.DefaultGatherer,
	})

	return serve(ctx, listenAddr(cfg.App), router, logg)
}

// listenAddr honours the platform-injected PORT before the configured one.
func listenAddr(app config.AppConfig) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + app.Port
}

func serve(ctx context.Context, addr string, handler http.Handler, logg *logger.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	ctx = logg.WithField(ctx, "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", name), "close failed", err)
	}
}
