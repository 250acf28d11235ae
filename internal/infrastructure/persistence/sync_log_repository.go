package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

var _ syncdomain.SyncLogRepository = (*GormSyncLogRepository)(nil)

// Create writes the write-ahead SYNCING row
func (r *GormSyncLogRepository) Create(ctx context.Context, log *syncdomain.SyncLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now().UTC()
	}

	var model models.SyncLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update writes the terminal state of a ledger row
func (r *GormSyncLogRepository) Update(ctx context.Context, log *syncdomain.SyncLog) error {
	result := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("id = ?", log.ID).
		Updates(map[string]interface{}{
			"status":         log.Status,
			"records_synced": log.RecordsSynced,
			"error_message":  log.ErrorMessage,
			"completed_at":   log.CompletedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return syncdomain.ErrSyncLogNotFound
	}
	return nil
}

// FindRecent lists recent ledger rows for an organization, newest first
func (r *GormSyncLogRepository) FindRecent(ctx context.Context, orgID uuid.UUID, platform *syncdomain.PlatformCode, limit int) ([]syncdomain.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if platform != nil {
		query = query.Where("platform = ?", *platform)
	}

	var logModels []models.SyncLogModel
	if err := query.Order("started_at DESC").Limit(limit).Find(&logModels).Error; err != nil {
		return nil, err
	}

	logs := make([]syncdomain.SyncLog, len(logModels))
	for i, model := range logModels {
		logs[i] = *model.ToDomain()
	}
	return logs, nil
}

// FailStale marks rows stuck SYNCING for longer than staleAfter as FAILED.
// Crashed processes leave SYNCING rows behind; this sweep reconciles them
// before a new scheduled run starts.
func (r *GormSyncLogRepository) FailStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-staleAfter)

	result := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("status = ? AND started_at < ?", syncdomain.SyncLogSyncing, cutoff).
		Updates(map[string]interface{}{
			"status":        syncdomain.SyncLogFailed,
			"error_message": "sync timed out",
			"completed_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindByID finds one ledger row
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrSyncLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
