// Package tenant contains the Organization tenancy boundary. Organizations
// own all integrations, orders, metrics and sync logs; they are created at
// signup and never auto-deleted.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrganizationNotFound = errors.New("tenant: organization not found")
)

// Organization is the tenant boundary of the system.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationRepository defines persistence for organizations
type OrganizationRepository interface {
	// FindByID finds one organization
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// FindWithConnectedIntegrations lists organizations having at least one
	// CONNECTED integration; the cron trigger iterates this set.
	FindWithConnectedIntegrations(ctx context.Context) ([]Organization, error)

	// Save creates or updates an organization
	Save(ctx context.Context, org *Organization) error
}
