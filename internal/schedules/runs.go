package schedules

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/internal/repo"
	pkgdb "github.com/dividify/dividify-backend/pkg/db"
	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
)

// ErrRunFinalized is returned when a run has already left the processing state.
var ErrRunFinalized = errors.New("run already finalized")

// RunOutcome carries the artifacts of a completed run.
type RunOutcome struct {
	DividendID uuid.UUID
	MinutesID  *uuid.UUID
	ExecutedAt time.Time
}

// RunRepository owns scheduled_dividend_runs.
type RunRepository struct {
	repo.Base
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{Base: repo.NewBase(db)}
}

// Start inserts a processing run for scheduleID.
func (r *RunRepository) Start(ctx context.Context, scheduleID uuid.UUID, scheduledFor time.Time) (*models.ScheduledDividendRun, error) {
	run := &models.ScheduledDividendRun{
		ScheduleID:   scheduleID,
		ScheduledFor: scheduledFor.UTC(),
		Status:       enums.RunStatusProcessing,
	}
	if err := r.DB(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Complete moves a processing run to completed.
func (r *RunRepository) Complete(ctx context.Context, runID uuid.UUID, out RunOutcome) error {
	return r.finalize(ctx, runID, map[string]any{
		"status":      enums.RunStatusCompleted,
		"dividend_id": out.DividendID,
		"minutes_id":  out.MinutesID,
		"executed_at": out.ExecutedAt.UTC(),
	})
}

// Fail moves a processing run to failed with message.
func (r *RunRepository) Fail(ctx context.Context, runID uuid.UUID, message string, at time.Time) error {
	return r.finalize(ctx, runID, map[string]any{
		"status":        enums.RunStatusFailed,
		"error_message": message,
		"executed_at":   at.UTC(),
	})
}

func (r *RunRepository) finalize(ctx context.Context, runID uuid.UUID, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.ScheduledDividendRun{}).
		Where("id = ? AND status = ?", runID, enums.RunStatusProcessing).
		Updates(fields)
	if err := repo.Affected(res); err != nil {
		if pkgdb.IsNotFound(err) {
			return ErrRunFinalized
		}
		return err
	}
	return nil
}

// RecordEmail stores the delivery outcome on a completed run. Status is not touched.
func (r *RunRepository) RecordEmail(ctx context.Context, runID uuid.UUID, sent bool, at time.Time) error {
	fields := map[string]any{"email_sent": sent}
	if sent {
		fields["email_sent_at"] = at.UTC()
	}
	res := r.DB(ctx).Model(&models.ScheduledDividendRun{}).
		Where("id = ? AND status = ?", runID, enums.RunStatusCompleted).
		Updates(fields)
	return repo.Affected(res)
}

// HasCompleted reports whether scheduleID already has a completed run for scheduledFor.
func (r *RunRepository) HasCompleted(ctx context.Context, scheduleID uuid.UUID, scheduledFor time.Time) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ScheduledDividendRun{}).
		Where("schedule_id = ? AND scheduled_for = ? AND status = ?", scheduleID, scheduledFor.UTC(), enums.RunStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// ConsecutiveFailures counts failed runs since the most recent completed one, looking back at most limit runs.
func (r *RunRepository) ConsecutiveFailures(ctx context.Context, scheduleID uuid.UUID, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	var statuses []enums.RunStatus
	err := r.DB(ctx).Model(&models.ScheduledDividendRun{}).
		Where("schedule_id = ? AND status <> ?", scheduleID, enums.RunStatusProcessing).
		Order("created_at DESC").
		Limit(limit).
		Pluck("status", &statuses).Error
	if err != nil {
		return 0, err
	}
	n := 0
	for _, status := range statuses {
		if status != enums.RunStatusFailed {
			break
		}
		n++
	}
	return n, nil
}

// ListForSchedule returns the newest runs of a schedule first.
func (r *RunRepository) ListForSchedule(ctx context.Context, scheduleID uuid.UUID, limit int) ([]models.ScheduledDividendRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ScheduledDividendRun
	err := r.DB(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
