package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/domain/tenant"
	"github.com/shopmetrics/backend/internal/infrastructure/persistence/models"
)

// GormOrganizationRepository implements OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

var _ tenant.OrganizationRepository = (*GormOrganizationRepository)(nil)

// FindByID finds one organization
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrOrganizationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindWithConnectedIntegrations lists organizations having at least one
// CONNECTED integration. The scheduled trigger fans out over this set.
func (r *GormOrganizationRepository) FindWithConnectedIntegrations(ctx context.Context) ([]tenant.Organization, error) {
	var orgModels []models.OrganizationModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN integrations ON integrations.organization_id = organizations.id").
		Where("integrations.status = ?", syncdomain.IntegrationConnected).
		Distinct("organizations.*").
		Order("organizations.created_at ASC").
		Find(&orgModels).Error; err != nil {
		return nil, err
	}

	orgs := make([]tenant.Organization, len(orgModels))
	for i, model := range orgModels {
		orgs[i] = *model.ToDomain()
	}
	return orgs, nil
}

// Save creates or updates an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *tenant.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	var model models.OrganizationModel
	model.FromDomain(org)
	return r.db.WithContext(ctx).Save(&model).Error
}
