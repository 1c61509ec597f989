package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dividify/dividify-backend/api/responses"
	"github.com/dividify/dividify-backend/internal/processor"
	"github.com/dividify/dividify-backend/pkg/logger"
)

type batchRunner interface {
	Run(ctx context.Context) (processor.BatchSummary, error)
}

type triggerResponse struct {
	Success bool `json:"success"`
	processor.BatchSummary
}

type triggerError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// TriggerScheduledDividends runs one batch synchronously and reports its summary.
// Authentication is applied by the CronSecret middleware.
func TriggerScheduledDividends(runner batchRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if runner == nil {
			responses.WriteJSON(w, http.StatusInternalServerError, triggerError{Error: "scheduled dividend processing unavailable"})
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "trigger", "http")
			logg.Info(ctx, "scheduled dividend batch requested")
		}

		summary, err := runner.Run(ctx)
		if err != nil {
			if errors.Is(err, processor.ErrBatchInProgress) {
				if logg != nil {
					logg.Warn(ctx, "scheduled dividend batch already running")
				}
				responses.WriteJSON(w, http.StatusConflict, triggerError{Error: err.Error()})
				return
			}
			if logg != nil {
				logg.Error(ctx, "scheduled dividend batch aborted", err)
			}
			responses.WriteJSON(w, http.StatusInternalServerError, triggerError{Error: err.Error()})
			return
		}

		responses.WriteJSON(w, http.StatusOK, triggerResponse{Success: true, BatchSummary: summary})
	}
}
