package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/persistence/models"
)

// GormReportanaEventRepository implements ReportanaEventRepository using GORM
type GormReportanaEventRepository struct {
	db *gorm.DB
}

// NewGormReportanaEventRepository creates a new GormReportanaEventRepository
func NewGormReportanaEventRepository(db *gorm.DB) *GormReportanaEventRepository {
	return &GormReportanaEventRepository{db: db}
}

var _ syncdomain.ReportanaEventRepository = (*GormReportanaEventRepository)(nil)

// Upsert inserts or overwrites on (organization_id, event_type, reference_id)
// conflict. Reportana re-delivers webhooks, so the same event may arrive
// several times.
func (r *GormReportanaEventRepository) Upsert(ctx context.Context, event *syncdomain.ReportanaEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	var model models.ReportanaEventModel
	model.FromDomain(event)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "event_type"},
			{Name: "reference_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_name",
			"customer_email",
			"customer_phone",
			"value",
			"currency",
			"occurred_at",
			"raw_payload",
			"updated_at",
		}),
	}).Create(&model).Error
}

// CountForOrg counts stored events for an organization
func (r *GormReportanaEventRepository) CountForOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReportanaEventModel{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
