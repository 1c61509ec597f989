package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/pkg/enums"
)

// ScheduledDividendRun is the audit row for one attempt at a recurring dividend.
type ScheduledDividendRun struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ScheduleID   uuid.UUID       `gorm:"column:schedule_id;type:uuid;not null"`
	ScheduledFor time.Time       `gorm:"column:scheduled_for;not null"`
	Status       enums.RunStatus `gorm:"column:status;not null"`
	DividendID   *uuid.UUID      `gorm:"column:dividend_id;type:uuid"`
	MinutesID    *uuid.UUID      `gorm:"column:minutes_id;type:uuid"`
	EmailSent    bool            `gorm:"column:email_sent;not null;default:false"`
	EmailSentAt  *time.Time      `gorm:"column:email_sent_at"`
	ErrorMessage *string         `gorm:"column:error_message"`
	ExecutedAt   *time.Time      `gorm:"column:executed_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *ScheduledDividendRun) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
