package activity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dividify/dividify-backend/internal/testutil"
	"github.com/dividify/dividify-backend/pkg/enums"
)

func TestLogAndList(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	companyID := uuid.New()
	scheduleID := uuid.New()

	require.NoError(t, repo.Log(ctx, Entry{
		UserID:     userID,
		CompanyID:  &companyID,
		Action:     enums.ActivityScheduleCreated,
		EntityType: EntitySchedule,
		EntityID:   scheduleID,
		Metadata:   map[string]any{"frequency": "monthly"},
	}))
	require.NoError(t, repo.Log(ctx, Entry{
		UserID:     userID,
		Action:     enums.ActivitySchedulePaused,
		EntityType: EntitySchedule,
		EntityID:   uuid.New(),
	}))

	rows, err := repo.ListForEntity(ctx, EntitySchedule, scheduleID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ActivityScheduleCreated, rows[0].Action)
	assert.Equal(t, "monthly", rows[0].Metadata["frequency"])
	require.NotNil(t, rows[0].CompanyID)
	assert.Equal(t, companyID, *rows[0].CompanyID)
}

func TestLogRejectsIncompleteEntries(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()

	assert.Error(t, repo.Log(ctx, Entry{Action: enums.ActivityScheduleCreated, EntityType: EntitySchedule}))
	assert.Error(t, repo.Log(ctx, Entry{UserID: uuid.New(), EntityType: EntitySchedule}))
}
