package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BoardMinutes records the directors' meeting that declared a dividend.
type BoardMinutes struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	CompanyID        uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	MeetingDate      time.Time       `gorm:"column:meeting_date;not null"`
	Attendees        string          `gorm:"column:attendees"`
	ShareClass       string          `gorm:"column:share_class;not null"`
	AmountPerShare   decimal.Decimal `gorm:"column:amount_per_share;type:numeric(14,4);not null"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	FilePath         string          `gorm:"column:file_path;not null"`
	FormData         datatypes.JSON  `gorm:"column:form_data;type:jsonb"`
	LinkedDividendID *uuid.UUID      `gorm:"column:linked_dividend_id;type:uuid"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (BoardMinutes) TableName() string {
	return "board_minutes"
}

func (m *BoardMinutes) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
