package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/dividify/dividify-backend/internal/processor"
	"github.com/dividify/dividify-backend/pkg/logger"
)

// ErrJobSkipped marks a run that deliberately did nothing, such as when another process owns the work.
var ErrJobSkipped = errors.New("job skipped")

type batchRunner interface {
	Run(ctx context.Context) (processor.BatchSummary, error)
}

type ScheduledDividendsJobParams struct {
	Logger *logger.Logger
	Runner batchRunner
}

func NewScheduledDividendsJob(params ScheduledDividendsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("batch runner required")
	}
	return &scheduledDividendsJob{logg: params.Logger, runner: params.Runner}, nil
}

type scheduledDividendsJob struct {
	logg   *logger.Logger
	runner batchRunner
}

func (j *scheduledDividendsJob) Name() string { return "scheduled-dividends" }

func (j *scheduledDividendsJob) Run(ctx context.Context) error {
	summary, err := j.runner.Run(ctx)
	if errors.Is(err, processor.ErrBatchInProgress) {
		return fmt.Errorf("%w: %v", ErrJobSkipped, err)
	}
	if err != nil {
		return fmt.Errorf("scheduled dividends: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"processed":  summary.Processed,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}), "scheduled dividends processed")
	return nil
}
