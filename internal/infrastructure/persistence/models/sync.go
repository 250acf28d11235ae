package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// IntegrationModel
// ---------------------------------------------------------------------------

// IntegrationModel is the persistence model for the Integration entity.
// One row per (organization, platform); credential columns hold vault
// ciphertext, never plaintext.
type IntegrationModel struct {
	ID             uuid.UUID                    `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_integration_org_platform,priority:1"`
	Platform       syncdomain.PlatformCode      `gorm:"type:varchar(20);not null;uniqueIndex:idx_integration_org_platform,priority:2"`
	Status         syncdomain.IntegrationStatus `gorm:"type:varchar(20);not null;default:'DISCONNECTED'"`

	APIKey       *string `gorm:"type:text"`
	APISecret    *string `gorm:"type:text"`
	AccessToken  *string `gorm:"type:text"`
	RefreshToken *string `gorm:"type:text"`

	ExternalAccountID string `gorm:"type:varchar(255);index:idx_integration_external_account"`

	TokenExpiresAt *time.Time
	LastSyncAt     *time.Time
	SyncStatus     syncdomain.SyncState `gorm:"type:varchar(20);not null;default:'IDLE'"`
	LastError      string               `gorm:"type:text"`
	Metadata       string               `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *syncdomain.Integration {
	return &syncdomain.Integration{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		Platform:          m.Platform,
		Status:            m.Status,
		APIKey:            m.APIKey,
		APISecret:         m.APISecret,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		ExternalAccountID: m.ExternalAccountID,
		TokenExpiresAt:    m.TokenExpiresAt,
		LastSyncAt:        m.LastSyncAt,
		SyncStatus:        m.SyncStatus,
		LastError:         m.LastError,
		Metadata:          m.Metadata,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *syncdomain.Integration) {
	m.ID = i.ID
	m.OrganizationID = i.OrganizationID
	m.Platform = i.Platform
	m.Status = i.Status
	m.APIKey = i.APIKey
	m.APISecret = i.APISecret
	m.AccessToken = i.AccessToken
	m.RefreshToken = i.RefreshToken
	m.ExternalAccountID = i.ExternalAccountID
	m.TokenExpiresAt = i.TokenExpiresAt
	m.LastSyncAt = i.LastSyncAt
	m.SyncStatus = i.SyncStatus
	m.LastError = i.LastError
	m.Metadata = i.Metadata
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// ---------------------------------------------------------------------------
// OrderModel
// ---------------------------------------------------------------------------

// OrderModel is the persistence model for normalized orders. The composite
// unique index on (organization, platform, external order id) is the
// idempotence key for both the pull and webhook paths.
type OrderModel struct {
	ID              uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrganizationID  uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_order_natural_key,priority:1"`
	Platform        syncdomain.PlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_order_natural_key,priority:2"`
	ExternalOrderID string                  `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_natural_key,priority:3"`

	Status        string          `gorm:"type:varchar(50);not null"`
	CustomerName  string          `gorm:"type:varchar(255)"`
	CustomerEmail string          `gorm:"type:varchar(255)"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency      string          `gorm:"type:varchar(10);not null"`
	ItemCount     int             `gorm:"not null;default:0"`
	OrderDate     time.Time       `gorm:"not null;index:idx_order_date"`
	RawPayload    string          `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *syncdomain.Order {
	return &syncdomain.Order{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		Platform:        m.Platform,
		ExternalOrderID: m.ExternalOrderID,
		Status:          syncdomain.OrderStatus(m.Status),
		CustomerName:    m.CustomerName,
		CustomerEmail:   m.CustomerEmail,
		TotalAmount:     m.TotalAmount,
		Currency:        m.Currency,
		ItemCount:       m.ItemCount,
		OrderDate:       m.OrderDate,
		RawPayload:      m.RawPayload,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *syncdomain.Order) {
	m.ID = o.ID
	m.OrganizationID = o.OrganizationID
	m.Platform = o.Platform
	m.ExternalOrderID = o.ExternalOrderID
	m.Status = string(o.Status)
	m.CustomerName = o.CustomerName
	m.CustomerEmail = o.CustomerEmail
	m.TotalAmount = o.TotalAmount
	m.Currency = o.Currency
	m.ItemCount = o.ItemCount
	m.OrderDate = o.OrderDate
	m.RawPayload = o.RawPayload
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}

// ---------------------------------------------------------------------------
// AdMetricModel
// ---------------------------------------------------------------------------

// AdMetricModel is the persistence model for daily ad metrics. AdID is
// empty (not null) for campaign-level platforms so a single composite
// unique index covers both granularities.
type AdMetricModel struct {
	ID             uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_ad_metric_natural_key,priority:1"`
	Platform       syncdomain.PlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_ad_metric_natural_key,priority:2"`
	CampaignID     string                  `gorm:"type:varchar(100);not null;uniqueIndex:idx_ad_metric_natural_key,priority:3"`
	AdID           string                  `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_ad_metric_natural_key,priority:4"`
	Date           time.Time               `gorm:"type:date;not null;uniqueIndex:idx_ad_metric_natural_key,priority:5"`

	CampaignName string `gorm:"type:varchar(255)"`
	AdSetID      string `gorm:"type:varchar(100)"`
	AdSetName    string `gorm:"type:varchar(255)"`
	AdName       string `gorm:"type:varchar(255)"`
	ThumbnailURL string `gorm:"type:text"`

	Impressions      int64           `gorm:"not null;default:0"`
	Reach            int64           `gorm:"not null;default:0"`
	Clicks           int64           `gorm:"not null;default:0"`
	Spend            decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Conversions      int64           `gorm:"not null;default:0"`
	Revenue          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency         string          `gorm:"type:varchar(10);not null"`
	AddToCart        int64           `gorm:"not null;default:0"`
	InitiateCheckout int64           `gorm:"not null;default:0"`
	RawPayload       string          `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AdMetricModel) TableName() string {
	return "ad_metrics"
}

// ToDomain converts the persistence model to a domain AdMetric entity.
func (m *AdMetricModel) ToDomain() *syncdomain.AdMetric {
	return &syncdomain.AdMetric{
		ID:               m.ID,
		OrganizationID:   m.OrganizationID,
		Platform:         m.Platform,
		CampaignID:       m.CampaignID,
		CampaignName:     m.CampaignName,
		AdSetID:          m.AdSetID,
		AdSetName:        m.AdSetName,
		AdID:             m.AdID,
		AdName:           m.AdName,
		ThumbnailURL:     m.ThumbnailURL,
		Date:             m.Date,
		Impressions:      m.Impressions,
		Reach:            m.Reach,
		Clicks:           m.Clicks,
		Spend:            m.Spend,
		Conversions:      m.Conversions,
		Revenue:          m.Revenue,
		Currency:         m.Currency,
		AddToCart:        m.AddToCart,
		InitiateCheckout: m.InitiateCheckout,
		RawPayload:       m.RawPayload,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain AdMetric entity.
func (m *AdMetricModel) FromDomain(a *syncdomain.AdMetric) {
	m.ID = a.ID
	m.OrganizationID = a.OrganizationID
	m.Platform = a.Platform
	m.CampaignID = a.CampaignID
	m.CampaignName = a.CampaignName
	m.AdSetID = a.AdSetID
	m.AdSetName = a.AdSetName
	m.AdID = a.AdID
	m.AdName = a.AdName
	m.ThumbnailURL = a.ThumbnailURL
	m.Date = a.Date
	m.Impressions = a.Impressions
	m.Reach = a.Reach
	m.Clicks = a.Clicks
	m.Spend = a.Spend
	m.Conversions = a.Conversions
	m.Revenue = a.Revenue
	m.Currency = a.Currency
	m.AddToCart = a.AddToCart
	m.InitiateCheckout = a.InitiateCheckout
	m.RawPayload = a.RawPayload
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// ---------------------------------------------------------------------------
// SyncLogModel
// ---------------------------------------------------------------------------

// SyncLogModel is the persistence model for the sync ledger.
type SyncLogModel struct {
	ID             uuid.UUID                `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID                `gorm:"type:uuid;not null;index:idx_sync_log_org,priority:1"`
	Platform       syncdomain.PlatformCode  `gorm:"type:varchar(20);not null;index:idx_sync_log_org,priority:2"`
	Status         syncdomain.SyncLogStatus `gorm:"type:varchar(20);not null;index:idx_sync_log_status"`
	RecordsSynced  int                      `gorm:"not null;default:0"`
	ErrorMessage   string                   `gorm:"type:text"`
	StartedAt      time.Time                `gorm:"not null;index:idx_sync_log_started"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog entity.
func (m *SyncLogModel) ToDomain() *syncdomain.SyncLog {
	return &syncdomain.SyncLog{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Platform:       m.Platform,
		Status:         m.Status,
		RecordsSynced:  m.RecordsSynced,
		ErrorMessage:   m.ErrorMessage,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncLog entity.
func (m *SyncLogModel) FromDomain(l *syncdomain.SyncLog) {
	m.ID = l.ID
	m.OrganizationID = l.OrganizationID
	m.Platform = l.Platform
	m.Status = l.Status
	m.RecordsSynced = l.RecordsSynced
	m.ErrorMessage = l.ErrorMessage
	m.StartedAt = l.StartedAt
	m.CompletedAt = l.CompletedAt
}

// ---------------------------------------------------------------------------
// ReportanaEventModel
// ---------------------------------------------------------------------------

// ReportanaEventModel is the persistence model for Reportana checkout events.
type ReportanaEventModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reportana_event_natural_key,priority:1"`
	EventType      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_reportana_event_natural_key,priority:2"`
	ReferenceID    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_reportana_event_natural_key,priority:3"`

	CustomerName  string    `gorm:"type:varchar(255)"`
	CustomerEmail string    `gorm:"type:varchar(255)"`
	CustomerPhone string    `gorm:"type:varchar(50)"`
	Value         string    `gorm:"type:varchar(50)"`
	Currency      string    `gorm:"type:varchar(10)"`
	OccurredAt    time.Time `gorm:"not null"`
	RawPayload    string    `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReportanaEventModel) TableName() string {
	return "reportana_events"
}

// ToDomain converts the persistence model to a domain ReportanaEvent entity.
func (m *ReportanaEventModel) ToDomain() *syncdomain.ReportanaEvent {
	return &syncdomain.ReportanaEvent{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EventType:      m.EventType,
		ReferenceID:    m.ReferenceID,
		CustomerName:   m.CustomerName,
		CustomerEmail:  m.CustomerEmail,
		CustomerPhone:  m.CustomerPhone,
		Value:          m.Value,
		Currency:       m.Currency,
		OccurredAt:     m.OccurredAt,
		RawPayload:     m.RawPayload,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ReportanaEvent entity.
func (m *ReportanaEventModel) FromDomain(e *syncdomain.ReportanaEvent) {
	m.ID = e.ID
	m.OrganizationID = e.OrganizationID
	m.EventType = e.EventType
	m.ReferenceID = e.ReferenceID
	m.CustomerName = e.CustomerName
	m.CustomerEmail = e.CustomerEmail
	m.CustomerPhone = e.CustomerPhone
	m.Value = e.Value
	m.Currency = e.Currency
	m.OccurredAt = e.OccurredAt
	m.RawPayload = e.RawPayload
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}
