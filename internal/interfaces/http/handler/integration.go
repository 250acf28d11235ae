package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/interfaces/http/dto"
	"github.com/shopmetrics/backend/internal/interfaces/http/middleware"
)

// IntegrationHandler exposes read-only integration state. Connecting and
// disconnecting happen through the OAuth callbacks and the admin tooling.
type IntegrationHandler struct {
	integrations syncdomain.IntegrationRepository
	logger       *zap.Logger
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(integrations syncdomain.IntegrationRepository, logger *zap.Logger) *IntegrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrationHandler{integrations: integrations, logger: logger}
}

// IntegrationEntry is one platform's connection state. Credential fields
// never leave the server, encrypted or not.
type IntegrationEntry struct {
	Platform          string     `json:"platform"`
	DisplayName       string     `json:"display_name"`
	Connected         bool       `json:"connected"`
	ExternalAccountID string     `json:"external_account_id,omitempty"`
	SyncStatus        string     `json:"sync_status"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}

// List returns the connection state of every supported platform for the
// organization, including platforms never connected.
func (h *IntegrationHandler) List(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "Missing organization context"))
		return
	}

	existing, err := h.integrations.FindAllForOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("listing integrations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to list integrations"))
		return
	}

	byPlatform := make(map[syncdomain.PlatformCode]syncdomain.Integration, len(existing))
	for _, integ := range existing {
		byPlatform[integ.Platform] = integ
	}

	entries := make([]IntegrationEntry, 0, len(syncdomain.AllPlatforms()))
	for _, platform := range syncdomain.AllPlatforms() {
		entry := IntegrationEntry{
			Platform:    platform.String(),
			DisplayName: platform.DisplayName(),
			SyncStatus:  syncdomain.SyncStateIdle.String(),
		}
		if integ, found := byPlatform[platform]; found {
			entry.Connected = integ.IsConnected()
			entry.ExternalAccountID = integ.ExternalAccountID
			entry.SyncStatus = integ.SyncStatus.String()
			entry.LastSyncAt = integ.LastSyncAt
			entry.LastError = integ.LastError
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"integrations": entries}))
}
