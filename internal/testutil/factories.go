package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
)

// Fixture bundles the rows a schedule depends on.
type Fixture struct {
	UserID      uuid.UUID
	Company     *models.Company
	Shareholder *models.Shareholder
}

// MustFixture creates a company with one shareholder for a fresh user.
func MustFixture(t *testing.T, db *gorm.DB) Fixture {
	t.Helper()
	userID := uuid.New()
	company := &models.Company{
		UserID:             userID,
		Name:               "Acme Widgets Ltd",
		RegistrationNumber: "01234567",
		RegisteredAddress:  "1 High Street, London, EC1A 1AA",
	}
	require.NoError(t, db.Create(company).Error)

	shareholder := &models.Shareholder{
		CompanyID: company.ID,
		Name:      "Jane Director",
		Address:   "2 Low Road, Leeds, LS1 1AA",
	}
	require.NoError(t, db.Create(shareholder).Error)

	return Fixture{UserID: userID, Company: company, Shareholder: shareholder}
}

// MustSchedule inserts a due monthly schedule for the fixture. Overrides run before insert.
func MustSchedule(t *testing.T, db *gorm.DB, fx Fixture, nextRunAt time.Time, overrides ...func(*models.RecurringDividend)) *models.RecurringDividend {
	t.Helper()
	next := nextRunAt.UTC()
	schedule := &models.RecurringDividend{
		UserID:          fx.UserID,
		CompanyID:       fx.Company.ID,
		ShareholderID:   fx.Shareholder.ID,
		ShareClass:      "Ordinary",
		NumberOfShares:  1000,
		AmountPerShare:  decimal.RequireFromString("2.50"),
		TotalAmount:     decimal.RequireFromString("2500.00"),
		Frequency:       enums.FrequencyMonthly,
		DayOfMonth:      next.Day(),
		StartDate:       next,
		EmailRecipients: []string{"owner@acme.test"},
		IsActive:        true,
		NextRunAt:       &next,
	}
	for _, override := range overrides {
		override(schedule)
	}
	require.NoError(t, db.Create(schedule).Error)
	// gorm skips zero-valued fields that carry a default tag, so flags are written explicitly.
	require.NoError(t, db.Model(schedule).Updates(map[string]any{
		"is_active":             schedule.IsActive,
		"is_paused":             schedule.IsPaused,
		"include_board_minutes": schedule.IncludeBoardMinutes,
	}).Error)
	return schedule
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
