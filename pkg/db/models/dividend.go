package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dividend is a declared dividend and its voucher.
type Dividend struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	CompanyID       uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	ShareholderID   uuid.UUID       `gorm:"column:shareholder_id;type:uuid;not null"`
	ShareholderName string          `gorm:"column:shareholder_name;not null"`
	ShareClass      string          `gorm:"column:share_class;not null"`
	NumberOfShares  int64           `gorm:"column:number_of_shares;not null"`
	AmountPerShare  decimal.Decimal `gorm:"column:amount_per_share;type:numeric(14,4);not null"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaymentDate     time.Time       `gorm:"column:payment_date;not null"`
	VoucherNumber   int64           `gorm:"column:voucher_number;not null"`
	FilePath        string          `gorm:"column:file_path;not null"`
	FormData        datatypes.JSON  `gorm:"column:form_data;type:jsonb"`
	LinkedMinutesID *uuid.UUID      `gorm:"column:linked_minutes_id;type:uuid"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (d *Dividend) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
