package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dividify/dividify-backend/internal/activity"
	"github.com/dividify/dividify-backend/internal/dividends"
	"github.com/dividify/dividify-backend/internal/documents"
	"github.com/dividify/dividify-backend/internal/notify"
	"github.com/dividify/dividify-backend/internal/schedules"
	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
	"github.com/dividify/dividify-backend/pkg/logger"
	"github.com/dividify/dividify-backend/pkg/metrics"
)

const (
	runStatusSkipped   = "skipped"
	runStatusRepaired  = "repaired"
	defaultConcurrency = 1
)

// ScheduleStore reads due schedules and moves them forward.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time) ([]schedules.DueSchedule, error)
	Advance(ctx context.Context, id uuid.UUID, adv schedules.Advance) error
	Pause(ctx context.Context, id uuid.UUID) error
}

// RunStore records run attempts.
type RunStore interface {
	Start(ctx context.Context, scheduleID uuid.UUID, scheduledFor time.Time) (*models.ScheduledDividendRun, error)
	Complete(ctx context.Context, runID uuid.UUID, out schedules.RunOutcome) error
	Fail(ctx context.Context, runID uuid.UUID, message string, at time.Time) error
	RecordEmail(ctx context.Context, runID uuid.UUID, sent bool, at time.Time) error
	HasCompleted(ctx context.Context, scheduleID uuid.UUID, scheduledFor time.Time) (bool, error)
	ConsecutiveFailures(ctx context.Context, scheduleID uuid.UUID, limit int) (int, error)
}

// Renderer draws the documents.
type Renderer interface {
	RenderVoucher(snap documents.Snapshot, paymentDate time.Time, voucherNumber int64) ([]byte, error)
	RenderMinutes(snap documents.Snapshot, paymentDate time.Time) ([]byte, error)
}

// Writer stores documents and the bookkeeping around them.
type Writer interface {
	AllocateVoucherNumber(ctx context.Context, companyID uuid.UUID, at time.Time) (int64, error)
	PersistVoucher(ctx context.Context, in dividends.VoucherInput) (*models.Dividend, error)
	PersistMinutes(ctx context.Context, in dividends.MinutesInput) (*models.BoardMinutes, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, kind enums.DocumentKind, at time.Time) error
	LogActivity(ctx context.Context, entry activity.Entry) error
}

// Notifier emails the documents of a run.
type Notifier interface {
	Notify(ctx context.Context, params notify.NotifyParams) bool
}

// Leaser claims a schedule for the duration of its processing.
type Leaser interface {
	Claim(ctx context.Context, id string) (release func(context.Context) error, ok bool, err error)
}

// Params wires a Processor.
type Params struct {
	Schedules ScheduleStore
	Runs      RunStore
	Renderer  Renderer
	Writer    Writer
	Notifier  Notifier
	Leases    Leaser
	Metrics   *metrics.SchedulerMetrics
	Logger    *logger.Logger
	Now       func() time.Time

	Concurrency            int
	MaxConsecutiveFailures int
}

// Processor generates the documents of every due schedule.
type Processor struct {
	schedules   ScheduleStore
	runs        RunStore
	renderer    Renderer
	writer      Writer
	notifier    Notifier
	leases      Leaser
	metrics     *metrics.SchedulerMetrics
	logg        *logger.Logger
	now         func() time.Time
	concurrency int
	maxFailures int
}

func New(params Params) (*Processor, error) {
	if params.Schedules == nil {
		return nil, errors.New("schedule store required")
	}
	if params.Runs == nil {
		return nil, errors.New("run store required")
	}
	if params.Renderer == nil {
		return nil, errors.New("renderer required")
	}
	if params.Writer == nil {
		return nil, errors.New("writer required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	maxFailures := params.MaxConsecutiveFailures
	if maxFailures < 0 {
		maxFailures = 0
	}
	return &Processor{
		schedules:   params.Schedules,
		runs:        params.Runs,
		renderer:    params.Renderer,
		writer:      params.Writer,
		notifier:    params.Notifier,
		leases:      params.Leases,
		metrics:     params.Metrics,
		logg:        logg,
		now:         func() time.Time { return now().UTC() },
		concurrency: concurrency,
		maxFailures: maxFailures,
	}, nil
}

// ProcessDue handles every schedule due at the current time. Only a failure to load the due list is returned;
// per-schedule failures are reported in the summary.
func (p *Processor) ProcessDue(ctx context.Context) (BatchSummary, error) {
	started := p.now()
	ctx = p.logg.WithField(ctx, "event", "scheduled_dividends.batch")

	due, err := p.schedules.ListDue(ctx, started)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("list due schedules: %w", err)
	}
	p.logg.Info(p.logg.WithField(ctx, "due", len(due)), "processing due schedules")

	results := make([]ScheduleResult, len(due))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range due {
		g.Go(func() error {
			results[i] = p.processOne(ctx, due[i])
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(results)
	p.metrics.ObserveBatch(len(due), p.now().Sub(started))
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"processed":  summary.Processed,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}), "scheduled dividend batch complete")
	return summary, nil
}

func (p *Processor) processOne(ctx context.Context, s schedules.DueSchedule) (res ScheduleResult) {
	res.ScheduleID = s.ID
	ctx = p.logg.WithScheduleID(ctx, s.ID.String())
	ctx = p.logg.WithField(ctx, "event", "scheduled_dividends.schedule")

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic processing schedule: %v", r)
			p.logg.Error(ctx, "schedule processing panicked", err)
			if res.Success {
				// A completed run stays successful.
				return
			}
			res.Skipped = false
			res.Error = err.Error()
			if res.RunID != nil {
				p.failRun(ctx, s, *res.RunID, err)
			}
		}
	}()

	if s.NextRunAt == nil {
		res.Error = "schedule has no next run date"
		p.metrics.ObserveRun(string(enums.RunStatusFailed))
		return res
	}
	scheduledFor := s.NextRunAt.UTC()

	if p.leases != nil {
		release, ok, err := p.leases.Claim(ctx, s.ID.String())
		if err != nil {
			p.logg.Error(ctx, "claim schedule lease", err)
			res.Error = err.Error()
			p.metrics.ObserveRun(string(enums.RunStatusFailed))
			return res
		}
		if !ok {
			p.logg.Info(ctx, "schedule claimed by another worker; skipping")
			res.Skipped = true
			p.metrics.ObserveRun(runStatusSkipped)
			return res
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.logg.Error(ctx, "release schedule lease", err)
			}
		}()
	}

	done, err := p.runs.HasCompleted(ctx, s.ID, scheduledFor)
	if err != nil {
		p.logg.Error(ctx, "check completed runs", err)
		res.Error = fmt.Sprintf("check completed runs: %v", err)
		p.metrics.ObserveRun(string(enums.RunStatusFailed))
		return res
	}
	if done {
		// A previous cycle completed this period but never advanced the schedule.
		p.logg.Warn(ctx, "schedule already completed for this period; advancing without regenerating")
		res.Success = true
		res.Skipped = true
		p.advance(ctx, s, scheduledFor, p.now(), &res)
		p.metrics.ObserveRun(runStatusRepaired)
		return res
	}

	run, err := p.runs.Start(ctx, s.ID, scheduledFor)
	if err != nil {
		p.logg.Error(ctx, "create run record", err)
		res.Error = fmt.Sprintf("create run record: %v", err)
		p.metrics.ObserveRun(string(enums.RunStatusFailed))
		return res
	}
	runID := run.ID
	res.RunID = &runID
	ctx = p.logg.WithRunID(ctx, runID.String())

	p.generate(ctx, s, scheduledFor, runID, &res)
	return res
}

func (p *Processor) generate(ctx context.Context, s schedules.DueSchedule, scheduledFor time.Time, runID uuid.UUID, res *ScheduleResult) {
	snap := snapshotOf(s)
	generatedAt := p.now()

	voucherNumber, err := p.writer.AllocateVoucherNumber(ctx, s.CompanyID, generatedAt)
	if err != nil {
		p.fail(ctx, s, runID, fmt.Errorf("allocate voucher number: %w", err), res)
		return
	}
	voucherPDF, err := p.renderer.RenderVoucher(snap, scheduledFor, voucherNumber)
	if err != nil {
		p.metrics.ObserveDocument(enums.DocumentKindVoucher.String(), false)
		p.fail(ctx, s, runID, fmt.Errorf("render voucher: %w", err), res)
		return
	}

	var (
		minutesPDF []byte
		minutesErr error
	)
	if s.IncludeBoardMinutes {
		minutesPDF, minutesErr = p.renderer.RenderMinutes(snap, scheduledFor)
		if minutesErr != nil {
			minutesErr = fmt.Errorf("render minutes: %w", minutesErr)
		}
	}

	dividend, err := p.writer.PersistVoucher(ctx, dividends.VoucherInput{
		ScheduleID:      s.ID,
		UserID:          s.UserID,
		CompanyID:       s.CompanyID,
		ShareholderID:   s.ShareholderID,
		ShareholderName: snap.ShareholderName,
		ShareClass:      s.ShareClass,
		NumberOfShares:  s.NumberOfShares,
		AmountPerShare:  s.AmountPerShare,
		TotalAmount:     s.TotalAmount,
		PaymentDate:     scheduledFor,
		VoucherNumber:   voucherNumber,
		GeneratedAt:     generatedAt,
		PDF:             voucherPDF,
	})
	if err != nil {
		p.metrics.ObserveDocument(enums.DocumentKindVoucher.String(), false)
		p.fail(ctx, s, runID, fmt.Errorf("persist voucher: %w", err), res)
		return
	}
	p.metrics.ObserveDocument(enums.DocumentKindVoucher.String(), true)
	dividendID := dividend.ID
	res.Voucher = &DocumentOutcome{
		Kind:          enums.DocumentKindVoucher,
		ID:            &dividendID,
		Path:          dividend.FilePath,
		VoucherNumber: voucherNumber,
	}
	attachments := []notify.Document{{
		Filename: fmt.Sprintf("dividend-voucher-%d.pdf", voucherNumber),
		Content:  voucherPDF,
	}}

	var minutesID *uuid.UUID
	if s.IncludeBoardMinutes {
		res.Minutes = &DocumentOutcome{Kind: enums.DocumentKindMinutes}
		if minutesErr == nil {
			var minutes *models.BoardMinutes
			minutes, minutesErr = p.writer.PersistMinutes(ctx, dividends.MinutesInput{
				ScheduleID:     s.ID,
				UserID:         s.UserID,
				CompanyID:      s.CompanyID,
				DividendID:     dividendID,
				MeetingDate:    scheduledFor,
				Attendees:      snap.ShareholderName,
				ShareClass:     s.ShareClass,
				AmountPerShare: s.AmountPerShare,
				TotalAmount:    s.TotalAmount,
				GeneratedAt:    generatedAt,
				PDF:            minutesPDF,
			})
			if minutesErr == nil {
				id := minutes.ID
				minutesID = &id
				res.Minutes.ID = &id
				res.Minutes.Path = minutes.FilePath
				attachments = append(attachments, notify.Document{
					Filename: "board-minutes.pdf",
					Content:  minutesPDF,
				})
			} else {
				minutesErr = fmt.Errorf("persist minutes: %w", minutesErr)
			}
		}
		if minutesErr != nil {
			res.Minutes.Error = minutesErr.Error()
			p.logg.Warn(p.logg.WithField(ctx, "error", minutesErr.Error()), "board minutes not generated; continuing with voucher only")
		}
		p.metrics.ObserveDocument(enums.DocumentKindMinutes.String(), minutesErr == nil)
	}

	executedAt := p.now()
	p.countUsage(ctx, s.UserID, enums.DocumentKindVoucher, executedAt)
	if minutesID != nil {
		p.countUsage(ctx, s.UserID, enums.DocumentKindMinutes, executedAt)
	}

	if err := p.runs.Complete(ctx, runID, schedules.RunOutcome{
		DividendID: dividendID,
		MinutesID:  minutesID,
		ExecutedAt: executedAt,
	}); err != nil {
		// Documents for this period exist, so the schedule moves on regardless.
		cause := fmt.Errorf("mark run completed: %w", err)
		p.logg.Error(ctx, "mark run completed", cause)
		res.Error = cause.Error()
		p.metrics.ObserveRun(string(enums.RunStatusFailed))
		p.failRun(ctx, s, runID, cause)
		p.advance(ctx, s, scheduledFor, executedAt, res)
		return
	}
	res.Success = true
	p.metrics.ObserveRun(string(enums.RunStatusCompleted))
	p.logActivity(ctx, activity.Entry{
		UserID:     s.UserID,
		CompanyID:  &s.CompanyID,
		Action:     enums.ActivityScheduledDividendGenerated,
		EntityType: activity.EntityDividend,
		EntityID:   dividendID,
		Metadata: map[string]any{
			"schedule_id":    s.ID.String(),
			"run_id":         runID.String(),
			"voucher_number": voucherNumber,
			"total_amount":   s.TotalAmount.StringFixed(2),
			"with_minutes":   minutesID != nil,
		},
	})

	p.advance(ctx, s, scheduledFor, executedAt, res)

	sent := p.notifier.Notify(ctx, notify.NotifyParams{
		Recipients:      s.EmailRecipients,
		CompanyName:     snap.CompanyName,
		ShareholderName: snap.ShareholderName,
		TotalAmount:     documents.FormatCurrency(s.TotalAmount),
		PaymentDate:     documents.FormatDate(scheduledFor),
		Documents:       attachments,
	})
	res.EmailSent = sent
	p.metrics.ObserveEmail(sent)
	if err := p.runs.RecordEmail(ctx, runID, sent, p.now()); err != nil {
		p.logg.Error(ctx, "record email outcome", err)
	}
	p.logg.Info(p.logg.WithField(ctx, "email_sent", sent), "scheduled dividend generated")
}

// advance moves the schedule one period past the day it actually ran, deactivating it once the end date is passed.
func (p *Processor) advance(ctx context.Context, s schedules.DueSchedule, scheduledFor, lastRunAt time.Time, res *ScheduleResult) {
	next, err := schedules.NextRunAfter(s.Frequency, s.DayOfMonth, scheduledFor, lastRunAt)
	if err != nil {
		p.logg.Error(ctx, "compute next run date", err)
		return
	}
	deactivate := s.EndDate != nil && next.After(*s.EndDate)
	if err := p.schedules.Advance(ctx, s.ID, schedules.Advance{
		LastRunAt:  lastRunAt,
		NextRunAt:  next,
		Deactivate: deactivate,
	}); err != nil {
		p.logg.Error(ctx, "advance schedule", err)
		return
	}
	res.NextRunAt = &next
	if deactivate {
		res.Completed = true
		p.logActivity(ctx, activity.Entry{
			UserID:     s.UserID,
			CompanyID:  &s.CompanyID,
			Action:     enums.ActivityScheduleCompleted,
			EntityType: activity.EntitySchedule,
			EntityID:   s.ID,
			Metadata:   map[string]any{"end_date": s.EndDate.UTC().Format(time.RFC3339)},
		})
	}
}

func (p *Processor) fail(ctx context.Context, s schedules.DueSchedule, runID uuid.UUID, cause error, res *ScheduleResult) {
	p.logg.Error(ctx, "scheduled dividend failed", cause)
	res.Success = false
	res.Error = cause.Error()
	p.metrics.ObserveRun(string(enums.RunStatusFailed))
	p.failRun(ctx, s, runID, cause)
	res.AutoPaused = p.maybeAutoPause(ctx, s)
}

func (p *Processor) failRun(ctx context.Context, s schedules.DueSchedule, runID uuid.UUID, cause error) {
	if err := p.runs.Fail(ctx, runID, cause.Error(), p.now()); err != nil {
		p.logg.Error(ctx, "mark run failed", err)
	}
	p.logActivity(ctx, activity.Entry{
		UserID:     s.UserID,
		CompanyID:  &s.CompanyID,
		Action:     enums.ActivityScheduledDividendFailed,
		EntityType: activity.EntityScheduledRun,
		EntityID:   runID,
		Metadata: map[string]any{
			"schedule_id": s.ID.String(),
			"error":       cause.Error(),
		},
	})
}

func (p *Processor) maybeAutoPause(ctx context.Context, s schedules.DueSchedule) bool {
	if p.maxFailures == 0 {
		return false
	}
	failures, err := p.runs.ConsecutiveFailures(ctx, s.ID, p.maxFailures)
	if err != nil {
		p.logg.Error(ctx, "count consecutive failures", err)
		return false
	}
	if failures < p.maxFailures {
		return false
	}
	if err := p.schedules.Pause(ctx, s.ID); err != nil {
		p.logg.Error(ctx, "auto-pause schedule", err)
		return false
	}
	p.metrics.IncAutoPaused()
	p.logg.Warn(p.logg.WithField(ctx, "consecutive_failures", failures), "schedule auto-paused after repeated failures")
	p.logActivity(ctx, activity.Entry{
		UserID:     s.UserID,
		CompanyID:  &s.CompanyID,
		Action:     enums.ActivityScheduleAutoPaused,
		EntityType: activity.EntitySchedule,
		EntityID:   s.ID,
		Metadata:   map[string]any{"consecutive_failures": failures},
	})
	return true
}

func (p *Processor) countUsage(ctx context.Context, userID uuid.UUID, kind enums.DocumentKind, at time.Time) {
	if err := p.writer.IncrementUsage(ctx, userID, kind, at); err != nil {
		p.logg.Error(p.logg.WithField(ctx, "kind", kind.String()), "increment usage counter", err)
	}
}

func (p *Processor) logActivity(ctx context.Context, entry activity.Entry) {
	if err := p.writer.LogActivity(ctx, entry); err != nil {
		p.logg.Error(p.logg.WithField(ctx, "action", string(entry.Action)), "write activity log", err)
	}
}

func snapshotOf(s schedules.DueSchedule) documents.Snapshot {
	return documents.Snapshot{
		CompanyName:               s.CompanyName,
		CompanyRegistrationNumber: s.CompanyRegistrationNumber,
		CompanyAddress:            s.CompanyAddress,
		ShareholderName:           documents.ShareholderDisplayName(s.ShareholderName),
		ShareholderAddress:        s.ShareholderAddress,
		ShareClass:                s.ShareClass,
		NumberOfShares:            s.NumberOfShares,
		AmountPerShare:            s.AmountPerShare,
		TotalAmount:               s.TotalAmount,
	}
}
