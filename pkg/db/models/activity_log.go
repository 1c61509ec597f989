package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/pkg/enums"
)

// ActivityLog is the user-visible audit trail.
type ActivityLog struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	CompanyID  *uuid.UUID           `gorm:"column:company_id;type:uuid"`
	Action     enums.ActivityAction `gorm:"column:action;not null"`
	EntityType string               `gorm:"column:entity_type;not null"`
	EntityID   uuid.UUID            `gorm:"column:entity_id;type:uuid;not null"`
	Metadata   datatypes.JSONMap    `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
