package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Canonical order status vocabulary
// ---------------------------------------------------------------------------

// OrderStatus is the canonical, platform-independent order status.
// Platform adapters map their own vocabularies into this one; unmapped
// source statuses pass through verbatim rather than being dropped.
type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// IsCanonical returns true if the status belongs to the closed canonical
// vocabulary. Pass-through statuses return false but remain storable.
func (s OrderStatus) IsCanonical() bool {
	switch s {
	case OrderStatusPaid, OrderStatusPending, OrderStatusCancelled,
		OrderStatusRefunded, OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Order entity
// ---------------------------------------------------------------------------

// Order is a normalized commerce order. The natural idempotence key is
// (OrganizationID, Platform, ExternalOrderID); re-upserting the same key
// overwrites the mutable fields and never duplicates rows.
type Order struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	Platform        PlatformCode
	ExternalOrderID string

	Status        OrderStatus
	CustomerName  string
	CustomerEmail string
	TotalAmount   decimal.Decimal
	Currency      string
	ItemCount     int
	OrderDate     time.Time

	// RawPayload preserves the source record verbatim (JSON) for later
	// reprocessing such as best-seller aggregation.
	RawPayload string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderRepository defines persistence for normalized orders
type OrderRepository interface {
	// Upsert inserts the order or, on natural-key conflict, overwrites the
	// mutable fields (status, amounts, customer info, raw payload). Safe to
	// call arbitrarily many times with the same external id.
	Upsert(ctx context.Context, order *Order) error

	// FindByExternalID finds one order by its natural key
	FindByExternalID(ctx context.Context, orgID uuid.UUID, platform PlatformCode, externalOrderID string) (*Order, error)

	// CountForOrg counts orders for an organization (optionally by platform)
	CountForOrg(ctx context.Context, orgID uuid.UUID, platform *PlatformCode) (int64, error)
}
