package persistence

import (
	"gorm.io/gorm"

	"github.com/shopmetrics/backend/internal/infrastructure/persistence/models"
)

// AutoMigrate creates or updates all tables managed by this package.
// Production schemas are owned by the SQL migrations; this is used for
// local development and in-memory test databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.OrganizationModel{},
		&models.IntegrationModel{},
		&models.OrderModel{},
		&models.AdMetricModel{},
		&models.SyncLogModel{},
		&models.ReportanaEventModel{},
	)
}
