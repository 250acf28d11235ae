package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

func newTestAdMetric(orgID uuid.UUID, campaignID, adID string, date time.Time) *syncdomain.AdMetric {
	return &syncdomain.AdMetric{
		OrganizationID: orgID,
		Platform:       syncdomain.PlatformFacebookAds,
		CampaignID:     campaignID,
		CampaignName:   "Spring Launch",
		AdID:           adID,
		AdName:         "Carousel A",
		Date:           date,
		Impressions:    1200,
		Reach:          900,
		Clicks:         70,
		Spend:          decimal.NewFromFloat(45.12),
		Conversions:    4,
		Revenue:        decimal.NewFromFloat(320.00),
		Currency:       "BRL",
	}
}

func TestGormAdMetricRepository_Upsert(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormAdMetricRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("restated metrics overwrite the same day", func(t *testing.T) {
		orgID := uuid.New()

		first := newTestAdMetric(orgID, "camp-1", "ad-1", day)
		require.NoError(t, repo.Upsert(ctx, first))

		restated := newTestAdMetric(orgID, "camp-1", "ad-1", day)
		restated.Conversions = 7
		restated.Revenue = decimal.NewFromFloat(560.00)
		require.NoError(t, repo.Upsert(ctx, restated))

		count, err := repo.CountForOrg(ctx, orgID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		found, err := repo.FindByKey(ctx, orgID, syncdomain.PlatformFacebookAds, "camp-1", "ad-1", day)
		require.NoError(t, err)
		assert.Equal(t, int64(7), found.Conversions)
		assert.True(t, found.Revenue.Equal(decimal.NewFromFloat(560.00)))
	})

	t.Run("timestamped date is truncated to the day", func(t *testing.T) {
		orgID := uuid.New()

		midnight := newTestAdMetric(orgID, "camp-2", "ad-2", day)
		require.NoError(t, repo.Upsert(ctx, midnight))

		afternoon := newTestAdMetric(orgID, "camp-2", "ad-2", day.Add(15*time.Hour+42*time.Minute))
		afternoon.Clicks = 99
		require.NoError(t, repo.Upsert(ctx, afternoon))

		count, err := repo.CountForOrg(ctx, orgID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("campaign level rows use empty ad id", func(t *testing.T) {
		orgID := uuid.New()

		google := newTestAdMetric(orgID, "g-camp-1", "", day)
		google.Platform = syncdomain.PlatformGoogleAds
		require.NoError(t, repo.Upsert(ctx, google))

		again := newTestAdMetric(orgID, "g-camp-1", "", day)
		again.Platform = syncdomain.PlatformGoogleAds
		again.Impressions = 5000
		require.NoError(t, repo.Upsert(ctx, again))

		count, err := repo.CountForOrg(ctx, orgID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		found, err := repo.FindByKey(ctx, orgID, syncdomain.PlatformGoogleAds, "g-camp-1", "", day)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), found.Impressions)
	})

	t.Run("different days for the same ad stay distinct", func(t *testing.T) {
		orgID := uuid.New()

		require.NoError(t, repo.Upsert(ctx, newTestAdMetric(orgID, "camp-3", "ad-3", day)))
		require.NoError(t, repo.Upsert(ctx, newTestAdMetric(orgID, "camp-3", "ad-3", day.AddDate(0, 0, 1))))

		count, err := repo.CountForOrg(ctx, orgID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("missing key returns domain error", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, uuid.New(), syncdomain.PlatformFacebookAds, "nope", "", day)
		assert.ErrorIs(t, err, syncdomain.ErrAdMetricNotFound)
	})
}
