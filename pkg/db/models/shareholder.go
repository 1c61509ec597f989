package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shareholder holds shares in a Company.
type Shareholder struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null"`
	Name      string    `gorm:"column:name"`
	Address   string    `gorm:"column:address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (s *Shareholder) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
