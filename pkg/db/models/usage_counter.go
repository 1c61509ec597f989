package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter tallies documents produced per user per calendar month (period "YYYY-MM").
type UsageCounter struct {
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Period         string    `gorm:"column:period;primaryKey"`
	DividendsCount int64     `gorm:"column:dividends_count;not null;default:0"`
	MinutesCount   int64     `gorm:"column:minutes_count;not null;default:0"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
