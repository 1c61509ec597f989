package schedules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dividify/dividify-backend/internal/activity"
	pkgdb "github.com/dividify/dividify-backend/pkg/db"
	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
	pkgerrors "github.com/dividify/dividify-backend/pkg/errors"
	"github.com/dividify/dividify-backend/pkg/logger"
)

const defaultRunHistoryLimit = 50

type scheduleRepository interface {
	Create(ctx context.Context, schedule *models.RecurringDividend) error
	FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.RecurringDividend, error)
	ListForUser(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) ([]models.RecurringDividend, error)
	UpdateFields(ctx context.Context, userID, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	FindCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Company, error)
	FindShareholder(ctx context.Context, companyID, shareholderID uuid.UUID) (*models.Shareholder, error)
}

type runHistory interface {
	ListForSchedule(ctx context.Context, scheduleID uuid.UUID, limit int) ([]models.ScheduledDividendRun, error)
}

// Service exposes schedule management for the dashboard API.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ScheduleDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*ScheduleDTO, error)
	List(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) ([]ScheduleDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*ScheduleDTO, error)
	Pause(ctx context.Context, userID, id uuid.UUID) (*ScheduleDTO, error)
	Resume(ctx context.Context, userID, id uuid.UUID) (*ScheduleDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Runs(ctx context.Context, userID, id uuid.UUID, limit int) ([]RunDTO, error)
}

// ServiceParams wires the schedule service.
type ServiceParams struct {
	Schedules scheduleRepository
	Runs      runHistory
	Activity  activity.Logger
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	schedules scheduleRepository
	runs      runHistory
	activity  activity.Logger
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the schedule service.
func NewService(params ServiceParams) (Service, error) {
	if params.Schedules == nil {
		return nil, fmt.Errorf("schedule repository required")
	}
	if params.Runs == nil {
		return nil, fmt.Errorf("run repository required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity logger required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		schedules: params.Schedules,
		runs:      params.Runs,
		activity:  params.Activity,
		logg:      logg,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ScheduleDTO, error) {
	if err := validateTerms(input.NumberOfShares, input.AmountPerShare, input.Frequency, input.DayOfMonth); err != nil {
		return nil, err
	}
	total := ComputeTotal(input.NumberOfShares, input.AmountPerShare)
	if input.TotalAmount != nil && !input.TotalAmount.Round(2).Equal(total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total_amount must equal number_of_shares x amount_per_share").
			WithDetails(map[string]any{"expected": total.StringFixed(2)})
	}
	if strings.TrimSpace(input.ShareClass) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share_class is required")
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date is required")
	}

	if _, err := s.schedules.FindCompany(ctx, userID, input.CompanyID); err != nil {
		return nil, notFoundOr(err, "company not found")
	}
	if _, err := s.schedules.FindShareholder(ctx, input.CompanyID, input.ShareholderID); err != nil {
		return nil, notFoundOr(err, "shareholder not found")
	}

	start := StartOfDay(input.StartDate)
	next, err := FirstRunDate(input.DayOfMonth, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid day_of_month")
	}
	var end *time.Time
	if input.EndDate != nil {
		e := EndOfDay(*input.EndDate)
		if e.Before(next) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date is before the first run").
				WithDetails(map[string]any{"first_run": next.Format(time.DateOnly)})
		}
		end = &e
	}

	schedule := &models.RecurringDividend{
		UserID:              userID,
		CompanyID:           input.CompanyID,
		ShareholderID:       input.ShareholderID,
		ShareClass:          strings.TrimSpace(input.ShareClass),
		NumberOfShares:      input.NumberOfShares,
		AmountPerShare:      input.AmountPerShare,
		TotalAmount:         total,
		Frequency:           input.Frequency,
		DayOfMonth:          input.DayOfMonth,
		StartDate:           start,
		EndDate:             end,
		EmailRecipients:     NormalizeRecipients(input.EmailRecipients),
		IncludeBoardMinutes: input.IncludeBoardMinutes,
		IsActive:            true,
		NextRunAt:           &next,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create schedule")
	}
	s.logActivity(ctx, schedule, enums.ActivityScheduleCreated, map[string]any{
		"frequency":    string(schedule.Frequency),
		"day_of_month": schedule.DayOfMonth,
		"next_run_at":  next.Format(time.RFC3339),
	})
	return toScheduleDTO(schedule), nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*ScheduleDTO, error) {
	schedule, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toScheduleDTO(schedule), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) ([]ScheduleDTO, error) {
	rows, err := s.schedules.ListForUser(ctx, userID, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list schedules")
	}
	out := make([]ScheduleDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toScheduleDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*ScheduleDTO, error) {
	schedule, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.ShareClass != nil {
		class := strings.TrimSpace(*input.ShareClass)
		if class == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "share_class must not be empty")
		}
		schedule.ShareClass = class
		fields["share_class"] = class
	}
	if input.NumberOfShares != nil {
		schedule.NumberOfShares = *input.NumberOfShares
	}
	if input.AmountPerShare != nil {
		schedule.AmountPerShare = *input.AmountPerShare
	}
	if input.Frequency != nil {
		schedule.Frequency = *input.Frequency
	}
	cadenceChanged := input.Frequency != nil || input.DayOfMonth != nil
	if input.DayOfMonth != nil {
		schedule.DayOfMonth = *input.DayOfMonth
	}
	if err := validateTerms(schedule.NumberOfShares, schedule.AmountPerShare, schedule.Frequency, schedule.DayOfMonth); err != nil {
		return nil, err
	}
	if input.NumberOfShares != nil || input.AmountPerShare != nil {
		schedule.TotalAmount = ComputeTotal(schedule.NumberOfShares, schedule.AmountPerShare)
		fields["number_of_shares"] = schedule.NumberOfShares
		fields["amount_per_share"] = schedule.AmountPerShare
		fields["total_amount"] = schedule.TotalAmount
	}
	if cadenceChanged {
		from := StartOfDay(s.now())
		if schedule.StartDate.After(from) {
			from = schedule.StartDate
		}
		next, err := FirstRunDate(schedule.DayOfMonth, from)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid day_of_month")
		}
		schedule.NextRunAt = &next
		fields["frequency"] = schedule.Frequency
		fields["day_of_month"] = schedule.DayOfMonth
		fields["next_run_at"] = next
	}
	endChanged := input.ClearEndDate || input.EndDate != nil
	if input.ClearEndDate {
		schedule.EndDate = nil
		fields["end_date"] = nil
	} else if input.EndDate != nil {
		e := EndOfDay(*input.EndDate)
		schedule.EndDate = &e
		fields["end_date"] = e
	}
	if endChanged || cadenceChanged {
		active := schedule.EndDate == nil || schedule.NextRunAt == nil || !schedule.NextRunAt.After(*schedule.EndDate)
		schedule.IsActive = active
		fields["is_active"] = active
	}
	if input.EmailRecipients != nil {
		schedule.EmailRecipients = NormalizeRecipients(*input.EmailRecipients)
		fields["email_recipients"] = schedule.EmailRecipients
	}
	if input.IncludeBoardMinutes != nil {
		schedule.IncludeBoardMinutes = *input.IncludeBoardMinutes
		fields["include_board_minutes"] = *input.IncludeBoardMinutes
	}
	if len(fields) == 0 {
		return toScheduleDTO(schedule), nil
	}

	if err := s.schedules.UpdateFields(ctx, userID, id, fields); err != nil {
		return nil, notFoundOr(err, "schedule not found")
	}
	s.logActivity(ctx, schedule, enums.ActivityScheduleUpdated, map[string]any{"fields": fieldNames(fields)})
	return s.Get(ctx, userID, id)
}

func (s *service) Pause(ctx context.Context, userID, id uuid.UUID) (*ScheduleDTO, error) {
	schedule, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if schedule.IsPaused {
		return toScheduleDTO(schedule), nil
	}
	if err := s.schedules.UpdateFields(ctx, userID, id, map[string]any{"is_paused": true}); err != nil {
		return nil, notFoundOr(err, "schedule not found")
	}
	schedule.IsPaused = true
	s.logActivity(ctx, schedule, enums.ActivitySchedulePaused, nil)
	return toScheduleDTO(schedule), nil
}

// Resume clears the pause. A next run that fell due while paused is rolled forward so missed periods are not back-filled.
func (s *service) Resume(ctx context.Context, userID, id uuid.UUID) (*ScheduleDTO, error) {
	schedule, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !schedule.IsPaused {
		return toScheduleDTO(schedule), nil
	}
	if !schedule.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "schedule has ended and cannot be resumed")
	}
	fields := map[string]any{"is_paused": false}
	today := StartOfDay(s.now())
	if schedule.NextRunAt == nil || schedule.NextRunAt.Before(today) {
		next, err := FirstRunDate(schedule.DayOfMonth, today)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute next run")
		}
		schedule.NextRunAt = &next
		fields["next_run_at"] = next
	}
	if err := s.schedules.UpdateFields(ctx, userID, id, fields); err != nil {
		return nil, notFoundOr(err, "schedule not found")
	}
	schedule.IsPaused = false
	s.logActivity(ctx, schedule, enums.ActivityScheduleResumed, nil)
	return toScheduleDTO(schedule), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	schedule, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, userID, id); err != nil {
		return notFoundOr(err, "schedule not found")
	}
	s.logActivity(ctx, schedule, enums.ActivityScheduleDeleted, nil)
	return nil
}

func (s *service) Runs(ctx context.Context, userID, id uuid.UUID, limit int) ([]RunDTO, error) {
	if _, err := s.load(ctx, userID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRunHistoryLimit
	}
	rows, err := s.runs.ListForSchedule(ctx, id, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list runs")
	}
	out := make([]RunDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRunDTO(row))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, userID, id uuid.UUID) (*models.RecurringDividend, error) {
	schedule, err := s.schedules.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "schedule not found")
	}
	return schedule, nil
}

func (s *service) logActivity(ctx context.Context, schedule *models.RecurringDividend, action enums.ActivityAction, metadata map[string]any) {
	companyID := schedule.CompanyID
	err := s.activity.Log(ctx, activity.Entry{
		UserID:     schedule.UserID,
		CompanyID:  &companyID,
		Action:     action,
		EntityType: activity.EntitySchedule,
		EntityID:   schedule.ID,
		Metadata:   metadata,
	})
	if err != nil {
		ctx = s.logg.WithScheduleID(ctx, schedule.ID.String())
		s.logg.Error(s.logg.WithField(ctx, "action", string(action)), "failed to write activity log", err)
	}
}

func validateTerms(shares int64, amount decimal.Decimal, freq enums.ScheduleFrequency, day int) error {
	if shares <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "number_of_shares must be positive")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount_per_share must be positive")
	}
	if !freq.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "frequency must be one of monthly, quarterly, annually")
	}
	if !ValidDayOfMonth(day) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "day_of_month must be between %d and %d", MinDayOfMonth, MaxDayOfMonth)
	}
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) || pkgdb.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputeTotal returns shares x amount rounded to pence.
func ComputeTotal(shares int64, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(shares)).Round(2)
}

// NormalizeRecipients trims addresses and drops blanks and case-insensitive duplicates, keeping order.
func NormalizeRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, addr := range in {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// StartOfDay truncates t to midnight UTC of its calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last second of t's calendar date in UTC.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
