package schedules

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
)

// CreateInput captures a new recurring dividend.
type CreateInput struct {
	CompanyID           uuid.UUID
	ShareholderID       uuid.UUID
	ShareClass          string
	NumberOfShares      int64
	AmountPerShare      decimal.Decimal
	TotalAmount         *decimal.Decimal
	Frequency           enums.ScheduleFrequency
	DayOfMonth          int
	StartDate           time.Time
	EndDate             *time.Time
	EmailRecipients     []string
	IncludeBoardMinutes bool
}

// UpdateInput captures the editable schedule fields. Nil leaves a field unchanged.
type UpdateInput struct {
	ShareClass          *string
	NumberOfShares      *int64
	AmountPerShare      *decimal.Decimal
	Frequency           *enums.ScheduleFrequency
	DayOfMonth          *int
	EndDate             *time.Time
	ClearEndDate        bool
	EmailRecipients     *[]string
	IncludeBoardMinutes *bool
}

// ScheduleDTO is the API representation of a schedule.
type ScheduleDTO struct {
	ID                  uuid.UUID               `json:"id"`
	CompanyID           uuid.UUID               `json:"company_id"`
	ShareholderID       uuid.UUID               `json:"shareholder_id"`
	ShareClass          string                  `json:"share_class"`
	NumberOfShares      int64                   `json:"number_of_shares"`
	AmountPerShare      decimal.Decimal         `json:"amount_per_share"`
	TotalAmount         decimal.Decimal         `json:"total_amount"`
	Frequency           enums.ScheduleFrequency `json:"frequency"`
	DayOfMonth          int                     `json:"day_of_month"`
	StartDate           time.Time               `json:"start_date"`
	EndDate             *time.Time              `json:"end_date,omitempty"`
	EmailRecipients     []string                `json:"email_recipients"`
	IncludeBoardMinutes bool                    `json:"include_board_minutes"`
	IsActive            bool                    `json:"is_active"`
	IsPaused            bool                    `json:"is_paused"`
	LastRunAt           *time.Time              `json:"last_run_at,omitempty"`
	NextRunAt           *time.Time              `json:"next_run_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// RunDTO is the API representation of a run history entry.
type RunDTO struct {
	ID           uuid.UUID       `json:"id"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	Status       enums.RunStatus `json:"status"`
	DividendID   *uuid.UUID      `json:"dividend_id,omitempty"`
	MinutesID    *uuid.UUID      `json:"minutes_id,omitempty"`
	EmailSent    bool            `json:"email_sent"`
	EmailSentAt  *time.Time      `json:"email_sent_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	ExecutedAt   *time.Time      `json:"executed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toScheduleDTO(m *models.RecurringDividend) *ScheduleDTO {
	recipients := []string(m.EmailRecipients)
	if recipients == nil {
		recipients = []string{}
	}
	return &ScheduleDTO{
		ID:                  m.ID,
		CompanyID:           m.CompanyID,
		ShareholderID:       m.ShareholderID,
		ShareClass:          m.ShareClass,
		NumberOfShares:      m.NumberOfShares,
		AmountPerShare:      m.AmountPerShare,
		TotalAmount:         m.TotalAmount,
		Frequency:           m.Frequency,
		DayOfMonth:          m.DayOfMonth,
		StartDate:           m.StartDate,
		EndDate:             m.EndDate,
		EmailRecipients:     recipients,
		IncludeBoardMinutes: m.IncludeBoardMinutes,
		IsActive:            m.IsActive,
		IsPaused:            m.IsPaused,
		LastRunAt:           m.LastRunAt,
		NextRunAt:           m.NextRunAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func toRunDTO(m models.ScheduledDividendRun) RunDTO {
	return RunDTO{
		ID:           m.ID,
		ScheduledFor: m.ScheduledFor,
		Status:       m.Status,
		DividendID:   m.DividendID,
		MinutesID:    m.MinutesID,
		EmailSent:    m.EmailSent,
		EmailSentAt:  m.EmailSentAt,
		ErrorMessage: m.ErrorMessage,
		ExecutedAt:   m.ExecutedAt,
		CreatedAt:    m.CreatedAt,
	}
}
