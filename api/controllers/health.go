package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dividify/dividify-backend/api/responses"
	"github.com/dividify/dividify-backend/pkg/config"
	pkgerrors "github.com/dividify/dividify-backend/pkg/errors"
	"github.com/dividify/dividify-backend/pkg/logger"
)

const (
	envHeader         = "X-Dividify-Env"
	readinessTimeout  = 2 * time.Second
	readinessStatusUp = "up"
)

// Pinger is satisfied by the db, redis and storage clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency probed by HealthReady.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and reports 503 with per-check detail if any is down.
func HealthReady(cfg *config.Config, checks []ReadinessCheck, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				status[check.Name] = err.Error()
				healthy = false
				continue
			}
			status[check.Name] = readinessStatusUp
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
