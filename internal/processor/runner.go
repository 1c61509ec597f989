package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/dividify/dividify-backend/internal/locks"
	"github.com/dividify/dividify-backend/pkg/logger"
)

// ErrBatchInProgress is returned when another process holds the batch lock.
var ErrBatchInProgress = errors.New("scheduled dividend batch already in progress")

// BatchProcessor runs one batch over the due schedules.
type BatchProcessor interface {
	ProcessDue(ctx context.Context) (BatchSummary, error)
}

// Runner serializes batches across processes behind a shared lock.
type Runner struct {
	proc BatchProcessor
	lock locks.Lock
	logg *logger.Logger
}

func NewRunner(proc BatchProcessor, lock locks.Lock, logg *logger.Logger) (*Runner, error) {
	if proc == nil {
		return nil, errors.New("processor required")
	}
	if lock == nil {
		return nil, errors.New("lock required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Runner{proc: proc, lock: lock, logg: logg}, nil
}

// Run processes the due schedules while holding the batch lock.
func (r *Runner) Run(ctx context.Context) (BatchSummary, error) {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !locked {
		return BatchSummary{}, ErrBatchInProgress
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.logg.Error(ctx, "release batch lock", err)
		}
	}()
	return r.proc.ProcessDue(ctx)
}
