package activity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/internal/repo"
	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
)

const (
	EntitySchedule     = "recurring_dividend"
	EntityDividend     = "dividend"
	EntityScheduledRun = "scheduled_dividend_run"
)

// Entry is one activity_logs row before persistence.
type Entry struct {
	UserID     uuid.UUID
	CompanyID  *uuid.UUID
	Action     enums.ActivityAction
	EntityType string
	EntityID   uuid.UUID
	Metadata   map[string]any
}

// Logger writes activity entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// Repository persists activity entries.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Log inserts entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if entry.UserID == uuid.Nil {
		return errors.New("activity entry requires user id")
	}
	if entry.Action == "" || entry.EntityType == "" {
		return errors.New("activity entry requires action and entity type")
	}
	row := &models.ActivityLog{
		UserID:     entry.UserID,
		CompanyID:  entry.CompanyID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}
	return r.DB(ctx).Create(row).Error
}

// ListForEntity returns the newest entries for an entity first.
func (r *Repository) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ActivityLog
	err := r.DB(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
