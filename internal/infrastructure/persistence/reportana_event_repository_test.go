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

func TestGormReportanaEventRepository_Upsert(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormReportanaEventRepository(db)
	ctx := context.Background()

	newEvent := func(orgID uuid.UUID, eventType, refID string) *syncdomain.ReportanaEvent {
		return &syncdomain.ReportanaEvent{
			OrganizationID: orgID,
			EventType:      eventType,
			ReferenceID:    refID,
			CustomerName:   "Bruno Lima",
			CustomerEmail:  "bruno@example.com",
			Value:          "89.90",
			Currency:       "BRL",
			OccurredAt:     time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
			RawPayload:     `{"checkout_id":"chk-1"}`,
		}
	}

	t.Run("redelivered webhook does not duplicate", func(t *testing.T) {
		orgID := uuid.New()

		require.NoError(t, repo.Upsert(ctx, newEvent(orgID, "abandoned_checkout", "chk-1")))
		require.NoError(t, repo.Upsert(ctx, newEvent(orgID, "abandoned_checkout", "chk-1")))

		count, err := repo.CountForOrg(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("same reference with different event types stays distinct", func(t *testing.T) {
		orgID := uuid.New()

		require.NoError(t, repo.Upsert(ctx, newEvent(orgID, "abandoned_checkout", "chk-2")))
		require.NoError(t, repo.Upsert(ctx, newEvent(orgID, "recovered_checkout", "chk-2")))

		count, err := repo.CountForOrg(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("redelivery overwrites customer fields", func(t *testing.T) {
		orgID := uuid.New()

		first := newEvent(orgID, "abandoned_checkout", "chk-3")
		first.CustomerEmail = "old@example.com"
		require.NoError(t, repo.Upsert(ctx, first))

		second := newEvent(orgID, "abandoned_checkout", "chk-3")
		second.CustomerEmail = "new@example.com"
		require.NoError(t, repo.Upsert(ctx, second))

		count, err := repo.CountForOrg(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
