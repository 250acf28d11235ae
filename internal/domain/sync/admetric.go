package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdMetric is one day of performance for one ad (ad-level platforms) or
// one campaign (platforms without an ad dimension, which store AdID="").
// The natural key is (OrganizationID, Platform, CampaignID, AdID, Date);
// metric fields are overwritten on re-sync because platforms restate
// values while their attribution window closes.
type AdMetric struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Platform       PlatformCode

	CampaignID   string
	CampaignName string
	AdSetID      string
	AdSetName    string
	AdID         string
	AdName       string
	ThumbnailURL string

	// Date is day-granular; the time component is always midnight UTC.
	Date time.Time

	Impressions int64
	Reach       int64
	Clicks      int64
	Spend       decimal.Decimal
	Conversions int64
	Revenue     decimal.Decimal
	Currency    string

	// Funnel sub-metrics
	AddToCart        int64
	InitiateCheckout int64

	RawPayload string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdMetricRepository defines persistence for ad metrics
type AdMetricRepository interface {
	// Upsert inserts the metric or overwrites its mutable metric fields on
	// natural-key conflict. Identity fields are immutable.
	Upsert(ctx context.Context, metric *AdMetric) error

	// FindByKey finds one metric row by its natural key
	FindByKey(ctx context.Context, orgID uuid.UUID, platform PlatformCode, campaignID, adID string, date time.Time) (*AdMetric, error)

	// CountForOrg counts metric rows for an organization
	CountForOrg(ctx context.Context, orgID uuid.UUID, platform *PlatformCode) (int64, error)
}
