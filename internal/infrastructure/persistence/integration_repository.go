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

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

var _ syncdomain.IntegrationRepository = (*GormIntegrationRepository)(nil)

// FindByOrgAndPlatform finds the integration for one (org, platform) pair
func (r *GormIntegrationRepository) FindByOrgAndPlatform(ctx context.Context, orgID uuid.UUID, platform syncdomain.PlatformCode) (*syncdomain.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND platform = ?", orgID, platform).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindConnectedByPlatform finds every CONNECTED integration for a platform
func (r *GormIntegrationRepository) FindConnectedByPlatform(ctx context.Context, platform syncdomain.PlatformCode) ([]syncdomain.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND status = ?", platform, syncdomain.IntegrationConnected).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}

	integrations := make([]syncdomain.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations, nil
}

// FindByExternalAccount finds an integration by its platform-side account id
func (r *GormIntegrationRepository) FindByExternalAccount(ctx context.Context, platform syncdomain.PlatformCode, externalAccountID string) (*syncdomain.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND external_account_id = ?", platform, externalAccountID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForOrg lists all integrations of an organization
func (r *GormIntegrationRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID) ([]syncdomain.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("platform ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}

	integrations := make([]syncdomain.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations, nil
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, integration *syncdomain.Integration) error {
	var model models.IntegrationModel
	model.FromDomain(integration)
	return r.db.WithContext(ctx).Save(&model).Error
}

// MarkSyncing flips the cached sync state to SYNCING
func (r *GormIntegrationRepository) MarkSyncing(ctx context.Context, id uuid.UUID) error {
	return r.updateSyncState(ctx, id, map[string]interface{}{
		"sync_status": syncdomain.SyncStateSyncing,
		"updated_at":  time.Now().UTC(),
	})
}

// MarkSynced records a successful sync
func (r *GormIntegrationRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateSyncState(ctx, id, map[string]interface{}{
		"sync_status":  syncdomain.SyncStateSuccess,
		"last_sync_at": at,
		"last_error":   "",
		"updated_at":   time.Now().UTC(),
	})
}

// MarkFailed records a failed sync with its error message
func (r *GormIntegrationRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.updateSyncState(ctx, id, map[string]interface{}{
		"sync_status": syncdomain.SyncStateFailed,
		"last_error":  message,
		"updated_at":  time.Now().UTC(),
	})
}

// UpdateCredentials replaces the stored (encrypted) token fields
func (r *GormIntegrationRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, accessToken, refreshToken *string, expiresAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return syncdomain.ErrIntegrationNotFound
	}
	return nil
}

func (r *GormIntegrationRepository) updateSyncState(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return syncdomain.ErrIntegrationNotFound
	}
	return nil
}
