package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopmetrics/backend/internal/domain/tenant"
)

// OrganizationModel is the persistence model for the Organization entity.
type OrganizationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the persistence model to a domain Organization entity.
func (m *OrganizationModel) ToDomain() *tenant.Organization {
	return &tenant.Organization{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Organization entity.
func (m *OrganizationModel) FromDomain(o *tenant.Organization) {
	m.ID = o.ID
	m.Name = o.Name
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}
