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

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ syncdomain.OrderRepository = (*GormOrderRepository)(nil)

// Upsert inserts the order or overwrites its mutable fields on conflict
// with the (organization_id, platform, external_order_id) natural key.
func (r *GormOrderRepository) Upsert(ctx context.Context, order *syncdomain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	var model models.OrderModel
	model.FromDomain(order)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "platform"},
			{Name: "external_order_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"customer_name",
			"customer_email",
			"total_amount",
			"currency",
			"item_count",
			"order_date",
			"raw_payload",
			"updated_at",
		}),
	}).Create(&model).Error
}

// FindByExternalID finds one order by its natural key
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, orgID uuid.UUID, platform syncdomain.PlatformCode, externalOrderID string) (*syncdomain.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND platform = ? AND external_order_id = ?", orgID, platform, externalOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountForOrg counts orders for an organization, optionally by platform
func (r *GormOrderRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, platform *syncdomain.PlatformCode) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("organization_id = ?", orgID)
	if platform != nil {
		query = query.Where("platform = ?", *platform)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
