package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration status vocabularies
// ---------------------------------------------------------------------------

// IntegrationStatus represents the connection state of an integration
type IntegrationStatus string

const (
	// IntegrationConnected indicates usable stored credentials
	IntegrationConnected IntegrationStatus = "CONNECTED"
	// IntegrationDisconnected indicates the integration was disconnected
	// and all credentials cleared
	IntegrationDisconnected IntegrationStatus = "DISCONNECTED"
)

// IsValid returns true if the status is valid
func (s IntegrationStatus) IsValid() bool {
	return s == IntegrationConnected || s == IntegrationDisconnected
}

// SyncState represents the last sync outcome cached on an integration
type SyncState string

const (
	// SyncStateIdle indicates no sync has run yet
	SyncStateIdle SyncState = "IDLE"
	// SyncStateSyncing indicates a sync is currently in flight
	SyncStateSyncing SyncState = "SYNCING"
	// SyncStateSuccess indicates the last sync completed successfully
	SyncStateSuccess SyncState = "SUCCESS"
	// SyncStateFailed indicates the last sync failed
	SyncStateFailed SyncState = "FAILED"
)

// IsValid returns true if the state is valid
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStateIdle, SyncStateSyncing, SyncStateSuccess, SyncStateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncState
func (s SyncState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Integration entity
// ---------------------------------------------------------------------------

// Integration is the per-(organization, platform) connection record.
// Credential fields hold ciphertext produced by the credential vault;
// plaintext tokens never persist.
type Integration struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Platform       PlatformCode
	Status         IntegrationStatus

	// Encrypted credential fields, each independently nullable.
	APIKey       *string
	APISecret    *string
	AccessToken  *string
	RefreshToken *string

	// ExternalAccountID is the platform-side store or ad-account
	// identifier (Shopify shop domain, Nuvemshop store id, FB ad account).
	ExternalAccountID string

	TokenExpiresAt *time.Time
	LastSyncAt     *time.Time
	SyncStatus     SyncState
	LastError      string

	// Metadata is free-form platform metadata as JSON (e.g. the list of
	// available ad accounts discovered during the OAuth callback).
	Metadata string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsConnected returns true if the integration can be synced.
func (i *Integration) IsConnected() bool {
	return i.Status == IntegrationConnected
}

// Disconnect clears every credential field and marks the integration
// disconnected. DISCONNECTED implies all credential fields are null.
func (i *Integration) Disconnect() {
	i.Status = IntegrationDisconnected
	i.APIKey = nil
	i.APISecret = nil
	i.AccessToken = nil
	i.RefreshToken = nil
	i.TokenExpiresAt = nil
	i.SyncStatus = SyncStateIdle
	i.LastError = ""
}

// TokenExpiresWithin reports whether the stored token expires within d.
// Integrations without an expiry timestamp never report as expiring.
func (i *Integration) TokenExpiresWithin(d time.Duration) bool {
	if i.TokenExpiresAt == nil {
		return false
	}
	return time.Until(*i.TokenExpiresAt) < d
}

// ---------------------------------------------------------------------------
// IntegrationRepository
// ---------------------------------------------------------------------------

// IntegrationRepository defines persistence for integrations
type IntegrationRepository interface {
	// FindByOrgAndPlatform finds the integration for one (org, platform) pair
	FindByOrgAndPlatform(ctx context.Context, orgID uuid.UUID, platform PlatformCode) (*Integration, error)

	// FindConnectedByPlatform finds every CONNECTED integration for a platform
	FindConnectedByPlatform(ctx context.Context, platform PlatformCode) ([]Integration, error)

	// FindByExternalAccount finds an integration by its platform-side
	// account identifier (used by webhook ingestors)
	FindByExternalAccount(ctx context.Context, platform PlatformCode, externalAccountID string) (*Integration, error)

	// FindAllForOrg lists all integrations of an organization
	FindAllForOrg(ctx context.Context, orgID uuid.UUID) ([]Integration, error)

	// Save creates or updates an integration
	Save(ctx context.Context, integration *Integration) error

	// MarkSyncing flips the cached sync state to SYNCING
	MarkSyncing(ctx context.Context, id uuid.UUID) error

	// MarkSynced records a successful sync (SUCCESS, lastSyncAt=now, error cleared)
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkFailed records a failed sync with its error message
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// UpdateCredentials replaces the stored (encrypted) token fields,
	// used by OAuth callbacks and token refresh flows
	UpdateCredentials(ctx context.Context, id uuid.UUID, accessToken, refreshToken *string, expiresAt *time.Time) error
}
