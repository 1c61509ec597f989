package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/pkg/enums"
)

// RecurringDividend is a standing instruction to declare the same dividend on a cadence.
type RecurringDividend struct {
	ID                  uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID                   `gorm:"column:user_id;type:uuid;not null"`
	CompanyID           uuid.UUID                   `gorm:"column:company_id;type:uuid;not null"`
	ShareholderID       uuid.UUID                   `gorm:"column:shareholder_id;type:uuid;not null"`
	ShareClass          string                      `gorm:"column:share_class;not null"`
	NumberOfShares      int64                       `gorm:"column:number_of_shares;not null"`
	AmountPerShare      decimal.Decimal             `gorm:"column:amount_per_share;type:numeric(14,4);not null"`
	TotalAmount         decimal.Decimal             `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Frequency           enums.ScheduleFrequency     `gorm:"column:frequency;not null"`
	DayOfMonth          int                         `gorm:"column:day_of_month;not null"`
	StartDate           time.Time                   `gorm:"column:start_date;not null"`
	EndDate             *time.Time                  `gorm:"column:end_date"`
	EmailRecipients     datatypes.JSONSlice[string] `gorm:"column:email_recipients;type:jsonb"`
	IncludeBoardMinutes bool                        `gorm:"column:include_board_minutes;not null;default:false"`
	IsActive            bool                        `gorm:"column:is_active;not null;default:true"`
	IsPaused            bool                        `gorm:"column:is_paused;not null;default:false"`
	LastRunAt           *time.Time                  `gorm:"column:last_run_at"`
	NextRunAt           *time.Time                  `gorm:"column:next_run_at"`
	CreatedAt           time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (RecurringDividend) TableName() string {
	return "recurring_dividends"
}

func (r *RecurringDividend) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
