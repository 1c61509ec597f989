package schedules

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/internal/repo"
	pkgdb "github.com/dividify/dividify-backend/pkg/db"
	"github.com/dividify/dividify-backend/pkg/db/models"
)

// ErrNotFound is returned when a schedule does not exist or belongs to another user.
var ErrNotFound = errors.New("schedule not found")

// DueSchedule is a schedule joined with the company and shareholder fields rendering needs.
type DueSchedule struct {
	models.RecurringDividend
	CompanyName               string `gorm:"column:company_name"`
	CompanyRegistrationNumber string `gorm:"column:company_registration_number"`
	CompanyAddress            string `gorm:"column:company_address"`
	ShareholderName           string `gorm:"column:shareholder_name"`
	ShareholderAddress        string `gorm:"column:shareholder_address"`
}

// Advance describes the schedule update after a completed run.
type Advance struct {
	LastRunAt  time.Time
	NextRunAt  time.Time
	Deactivate bool
}

// Repository owns recurring_dividends reads and writes.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListDue returns active, unpaused schedules whose next run has arrived and whose end date has not passed.
func (r *Repository) ListDue(ctx context.Context, now time.Time) ([]DueSchedule, error) {
	now = now.UTC()
	var rows []DueSchedule
	err := r.DB(ctx).
		Table("recurring_dividends AS rd").
		Select(`rd.*,
			c.name AS company_name,
			c.registration_number AS company_registration_number,
			c.registered_address AS company_address,
			sh.name AS shareholder_name,
			sh.address AS shareholder_address`).
		Joins("JOIN companies c ON c.id = rd.company_id").
		Joins("JOIN shareholders sh ON sh.id = rd.shareholder_id").
		Where("rd.is_active = ? AND rd.is_paused = ?", true, false).
		Where("rd.next_run_at IS NOT NULL AND rd.next_run_at <= ?", now).
		Where("(rd.end_date IS NULL OR rd.end_date >= ?)", now).
		Order("rd.next_run_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a schedule.
func (r *Repository) Create(ctx context.Context, schedule *models.RecurringDividend) error {
	return r.DB(ctx).Create(schedule).Error
}

// FindForUser loads a schedule owned by userID.
func (r *Repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.RecurringDividend, error) {
	var schedule models.RecurringDividend
	err := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).First(&schedule).Error
	if pkgdb.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListForUser returns a user's schedules, newest first, optionally narrowed to one company.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) ([]models.RecurringDividend, error) {
	q := r.DB(ctx).Where("user_id = ?", userID)
	if companyID != nil {
		q = q.Where("company_id = ?", *companyID)
	}
	var rows []models.RecurringDividend
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields applies a partial update to a schedule owned by userID.
func (r *Repository) UpdateFields(ctx context.Context, userID, id uuid.UUID, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.RecurringDividend{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if err := repo.Affected(res); err != nil {
		if pkgdb.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete hard-deletes a schedule owned by userID. Run history cascades.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.RecurringDividend{})
	if err := repo.Affected(res); err != nil {
		if pkgdb.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Advance records a completed run and moves next_run_at forward.
func (r *Repository) Advance(ctx context.Context, id uuid.UUID, adv Advance) error {
	fields := map[string]any{
		"last_run_at": adv.LastRunAt.UTC(),
		"next_run_at": adv.NextRunAt.UTC(),
	}
	if adv.Deactivate {
		fields["is_active"] = false
	}
	res := r.DB(ctx).Model(&models.RecurringDividend{}).Where("id = ?", id).Updates(fields)
	if err := repo.Affected(res); err != nil {
		if pkgdb.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Pause sets is_paused without an ownership check. The processor uses it to stop a failing schedule.
func (r *Repository) Pause(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Model(&models.RecurringDividend{}).Where("id = ?", id).Update("is_paused", true)
	if err := repo.Affected(res); err != nil {
		if pkgdb.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// FindCompany loads a company owned by userID.
func (r *Repository) FindCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Company, error) {
	var company models.Company
	err := r.DB(ctx).Where("id = ? AND user_id = ?", companyID, userID).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// FindShareholder loads a shareholder of companyID.
func (r *Repository) FindShareholder(ctx context.Context, companyID, shareholderID uuid.UUID) (*models.Shareholder, error) {
	var shareholder models.Shareholder
	err := r.DB(ctx).Where("id = ? AND company_id = ?", shareholderID, companyID).First(&shareholder).Error
	if err != nil {
		return nil, err
	}
	return &shareholder, nil
}
