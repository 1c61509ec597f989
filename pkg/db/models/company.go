package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the limited company declaring dividends.
type Company struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Name               string    `gorm:"column:name;not null"`
	RegistrationNumber string    `gorm:"column:registration_number"`
	RegisteredAddress  string    `gorm:"column:registered_address"`
	LastVoucherNumber  int64     `gorm:"column:last_voucher_number;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
