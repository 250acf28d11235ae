package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReportanaEvent captures an abandoned or recovered checkout event pushed
// by Reportana. The natural key is (OrganizationID, EventType, ReferenceID)
// with the same idempotent-upsert discipline as orders.
type ReportanaEvent struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EventType      string
	ReferenceID    string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Value         string
	Currency      string
	OccurredAt    time.Time
	RawPayload    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReportanaEventRepository defines persistence for Reportana events
type ReportanaEventRepository interface {
	// Upsert inserts or overwrites on (org, eventType, referenceID) conflict
	Upsert(ctx context.Context, event *ReportanaEvent) error

	// CountForOrg counts stored events for an organization
	CountForOrg(ctx context.Context, orgID uuid.UUID) (int64, error)
}
