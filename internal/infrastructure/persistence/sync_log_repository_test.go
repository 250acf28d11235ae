package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

func TestGormSyncLogRepository_Lifecycle(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()

	t.Run("create then complete", func(t *testing.T) {
		log := &syncdomain.SyncLog{
			OrganizationID: uuid.New(),
			Platform:       syncdomain.PlatformShopify,
			Status:         syncdomain.SyncLogSyncing,
		}
		require.NoError(t, repo.Create(ctx, log))
		assert.NotEqual(t, uuid.Nil, log.ID)
		assert.False(t, log.StartedAt.IsZero())

		log.Complete(42, time.Now().UTC())
		require.NoError(t, repo.Update(ctx, log))

		found, err := repo.FindByID(ctx, log.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncLogSuccess, found.Status)
		assert.Equal(t, 42, found.RecordsSynced)
		assert.Empty(t, found.ErrorMessage)
		assert.NotNil(t, found.CompletedAt)
	})

	t.Run("create then fail", func(t *testing.T) {
		log := &syncdomain.SyncLog{
			OrganizationID: uuid.New(),
			Platform:       syncdomain.PlatformFacebookAds,
			Status:         syncdomain.SyncLogSyncing,
		}
		require.NoError(t, repo.Create(ctx, log))

		log.Fail("insights request timed out", time.Now().UTC())
		require.NoError(t, repo.Update(ctx, log))

		found, err := repo.FindByID(ctx, log.ID)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.SyncLogFailed, found.Status)
		assert.Equal(t, "insights request timed out", found.ErrorMessage)
	})

	t.Run("update of unknown row returns domain error", func(t *testing.T) {
		log := &syncdomain.SyncLog{ID: uuid.New(), Status: syncdomain.SyncLogSuccess}
		err := repo.Update(ctx, log)
		assert.ErrorIs(t, err, syncdomain.ErrSyncLogNotFound)
	})
}

func TestGormSyncLogRepository_FindRecent(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		log := &syncdomain.SyncLog{
			OrganizationID: orgID,
			Platform:       syncdomain.PlatformShopify,
			Status:         syncdomain.SyncLogSuccess,
			StartedAt:      now.Add(time.Duration(-i) * time.Hour),
		}
		require.NoError(t, repo.Create(ctx, log))
	}
	other := &syncdomain.SyncLog{
		OrganizationID: orgID,
		Platform:       syncdomain.PlatformGoogleAds,
		Status:         syncdomain.SyncLogFailed,
		StartedAt:      now.Add(-30 * time.Minute),
	}
	require.NoError(t, repo.Create(ctx, other))

	t.Run("newest first with limit", func(t *testing.T) {
		logs, err := repo.FindRecent(ctx, orgID, nil, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.True(t, logs[0].StartedAt.After(logs[1].StartedAt) || logs[0].StartedAt.Equal(logs[1].StartedAt))
	})

	t.Run("filters by platform", func(t *testing.T) {
		platform := syncdomain.PlatformGoogleAds
		logs, err := repo.FindRecent(ctx, orgID, &platform, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, syncdomain.SyncLogFailed, logs[0].Status)
	})

	t.Run("other organizations are invisible", func(t *testing.T) {
		logs, err := repo.FindRecent(ctx, uuid.New(), nil, 10)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}

func TestGormSyncLogRepository_FailStale(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	now := time.Now().UTC()

	stale := &syncdomain.SyncLog{
		OrganizationID: orgID,
		Platform:       syncdomain.PlatformNuvemshop,
		Status:         syncdomain.SyncLogSyncing,
		StartedAt:      now.Add(-2 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, stale))

	fresh := &syncdomain.SyncLog{
		OrganizationID: orgID,
		Platform:       syncdomain.PlatformShopify,
		Status:         syncdomain.SyncLogSyncing,
		StartedAt:      now.Add(-5 * time.Minute),
	}
	require.NoError(t, repo.Create(ctx, fresh))

	terminal := &syncdomain.SyncLog{
		OrganizationID: orgID,
		Platform:       syncdomain.PlatformYampi,
		Status:         syncdomain.SyncLogSuccess,
		StartedAt:      now.Add(-3 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, terminal))

	reconciled, err := repo.FailStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reconciled)

	swept, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.SyncLogFailed, swept.Status)
	assert.NotEmpty(t, swept.ErrorMessage)
	assert.NotNil(t, swept.CompletedAt)

	untouched, err := repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.SyncLogSyncing, untouched.Status)

	done, err := repo.FindByID(ctx, terminal.ID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.SyncLogSuccess, done.Status)
}
