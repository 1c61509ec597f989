package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dividify/dividify-backend/api/middleware"
	"github.com/dividify/dividify-backend/api/responses"
	"github.com/dividify/dividify-backend/api/validators"
	"github.com/dividify/dividify-backend/internal/schedules"
	"github.com/dividify/dividify-backend/pkg/enums"
	pkgerrors "github.com/dividify/dividify-backend/pkg/errors"
	"github.com/dividify/dividify-backend/pkg/logger"
)

const (
	scheduleIDParam  = "scheduleID"
	defaultRunsLimit = 50
	maxRunsLimit     = 200
)

type createScheduleRequest struct {
	CompanyID           string           `json:"company_id" validate:"required,uuid"`
	ShareholderID       string           `json:"shareholder_id" validate:"required,uuid"`
	ShareClass          string           `json:"share_class" validate:"required,max=64"`
	NumberOfShares      int64            `json:"number_of_shares" validate:"required,gt=0"`
	AmountPerShare      decimal.Decimal  `json:"amount_per_share"`
	TotalAmount         *decimal.Decimal `json:"total_amount"`
	Frequency           string           `json:"frequency" validate:"required,frequency"`
	DayOfMonth          int              `json:"day_of_month" validate:"required,min=1,max=28"`
	StartDate           string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate             *string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	EmailRecipients     []string         `json:"email_recipients" validate:"omitempty,max=10,dive,email"`
	IncludeBoardMinutes *bool            `json:"include_board_minutes"`
}

type updateScheduleRequest struct {
	ShareClass          *string          `json:"share_class" validate:"omitempty,max=64"`
	NumberOfShares      *int64           `json:"number_of_shares" validate:"omitempty,gt=0"`
	AmountPerShare      *decimal.Decimal `json:"amount_per_share"`
	Frequency           *string          `json:"frequency" validate:"omitempty,frequency"`
	DayOfMonth          *int             `json:"day_of_month" validate:"omitempty,min=1,max=28"`
	EndDate             *string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ClearEndDate        bool             `json:"clear_end_date"`
	EmailRecipients     *[]string        `json:"email_recipients" validate:"omitempty,max=10,dive,email"`
	IncludeBoardMinutes *bool            `json:"include_board_minutes"`
}

func (req createScheduleRequest) toInput() (schedules.CreateInput, error) {
	start, err := validators.ParseDate("start_date", req.StartDate)
	if err != nil {
		return schedules.CreateInput{}, err
	}
	input := schedules.CreateInput{
		CompanyID:           uuid.MustParse(req.CompanyID),
		ShareholderID:       uuid.MustParse(req.ShareholderID),
		ShareClass:          req.ShareClass,
		NumberOfShares:      req.NumberOfShares,
		AmountPerShare:      req.AmountPerShare,
		TotalAmount:         req.TotalAmount,
		Frequency:           enums.ScheduleFrequency(req.Frequency),
		DayOfMonth:          req.DayOfMonth,
		StartDate:           start,
		EmailRecipients:     req.EmailRecipients,
		IncludeBoardMinutes: true,
	}
	if req.IncludeBoardMinutes != nil {
		input.IncludeBoardMinutes = *req.IncludeBoardMinutes
	}
	if req.EndDate != nil {
		end, err := validators.ParseDate("end_date", *req.EndDate)
		if err != nil {
			return schedules.CreateInput{}, err
		}
		input.EndDate = &end
	}
	return input, nil
}

func (req updateScheduleRequest) toInput() (schedules.UpdateInput, error) {
	if req.ClearEndDate && req.EndDate != nil {
		return schedules.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "end_date and clear_end_date are mutually exclusive")
	}
	input := schedules.UpdateInput{
		ShareClass:          req.ShareClass,
		NumberOfShares:      req.NumberOfShares,
		AmountPerShare:      req.AmountPerShare,
		DayOfMonth:          req.DayOfMonth,
		ClearEndDate:        req.ClearEndDate,
		EmailRecipients:     req.EmailRecipients,
		IncludeBoardMinutes: req.IncludeBoardMinutes,
	}
	if req.Frequency != nil {
		freq := enums.ScheduleFrequency(strings.TrimSpace(*req.Frequency))
		input.Frequency = &freq
	}
	if req.EndDate != nil {
		end, err := validators.ParseDate("end_date", *req.EndDate)
		if err != nil {
			return schedules.UpdateInput{}, err
		}
		input.EndDate = &end
	}
	return input, nil
}

// ListSchedules returns the caller's schedules, optionally filtered by ?company_id=.
func ListSchedules(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}
		companyID, err := validators.ParseOptionalUUIDQuery(r, "company_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.List(r.Context(), userID, companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// CreateSchedule registers a recurring dividend and returns it with its first run date.
func CreateSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, svc, logg)
		if !ok {
			return
		}
		var req createScheduleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

func GetSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := requireUserAndSchedule(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.Get(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// UpdateSchedule applies a partial edit. Omitted fields are left unchanged.
func UpdateSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := requireUserAndSchedule(w, r, svc, logg)
		if !ok {
			return
		}
		var req updateScheduleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Update(r.Context(), userID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func PauseSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := requireUserAndSchedule(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.Pause(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// ResumeSchedule unpauses a schedule; missed periods are not back-filled.
func ResumeSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := requireUserAndSchedule(w, r, svc, logg)
		if !ok {
			return
		}
		out, err := svc.Resume(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func DeleteSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := requireUserAndSchedule(w, r, svc, logg)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ListScheduleRuns returns the newest runs first, capped by ?limit=.
func ListScheduleRuns(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := requireUserAndSchedule(w, r, svc, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultRunsLimit, 1, maxRunsLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Runs(r.Context(), userID, id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, svc schedules.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
		return uuid.Nil, false
	}
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

func requireUserAndSchedule(w http.ResponseWriter, r *http.Request, svc schedules.Service, logg *logger.Logger) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(w, r, svc, logg)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := validators.ParseUUIDParam(r, scheduleIDParam)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
