package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/persistence/models"
)

// GormAdMetricRepository implements AdMetricRepository using GORM
type GormAdMetricRepository struct {
	db *gorm.DB
}

// NewGormAdMetricRepository creates a new GormAdMetricRepository
func NewGormAdMetricRepository(db *gorm.DB) *GormAdMetricRepository {
	return &GormAdMetricRepository{db: db}
}

var _ syncdomain.AdMetricRepository = (*GormAdMetricRepository)(nil)

// Upsert inserts the metric or overwrites the metric fields on conflict
// with the (organization_id, platform, campaign_id, ad_id, date) key.
// Identity and name fields are refreshed too because platforms rename
// campaigns and ads in place.
func (r *GormAdMetricRepository) Upsert(ctx context.Context, metric *syncdomain.AdMetric) error {
	if metric.ID == uuid.Nil {
		metric.ID = uuid.New()
	}
	now := time.Now().UTC()
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = now
	}
	metric.UpdatedAt = now
	// Day granularity only. Truncating here keeps the unique index honest
	// even when an adapter passes a timestamped date.
	metric.Date = metric.Date.UTC().Truncate(24 * time.Hour)

	var model models.AdMetricModel
	model.FromDomain(metric)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "platform"},
			{Name: "campaign_id"},
			{Name: "ad_id"},
			{Name: "date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"campaign_name",
			"ad_set_id",
			"ad_set_name",
			"ad_name",
			"thumbnail_url",
			"impressions",
			"reach",
			"clicks",
			"spend",
			"conversions",
			"revenue",
			"currency",
			"add_to_cart",
			"initiate_checkout",
			"raw_payload",
			"updated_at",
		}),
	}).Create(&model).Error
}

// FindByKey finds one metric row by its natural key
func (r *GormAdMetricRepository) FindByKey(ctx context.Context, orgID uuid.UUID, platform syncdomain.PlatformCode, campaignID, adID string, date time.Time) (*syncdomain.AdMetric, error) {
	var model models.AdMetricModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND platform = ? AND campaign_id = ? AND ad_id = ? AND date = ?",
			orgID, platform, campaignID, adID, date.UTC().Truncate(24*time.Hour)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrAdMetricNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountForOrg counts metric rows for an organization
func (r *GormAdMetricRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, platform *syncdomain.PlatformCode) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdMetricModel{}).Where("organization_id = ?", orgID)
	if platform != nil {
		query = query.Where("platform = ?", *platform)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
