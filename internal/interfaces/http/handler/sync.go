package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/shopmetrics/backend/internal/application/sync"
	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/interfaces/http/dto"
	"github.com/shopmetrics/backend/internal/interfaces/http/middleware"
)

// SyncHandler exposes the manual sync triggers and the sync history API.
type SyncHandler struct {
	orchestrator *appsync.Orchestrator
	syncLogs     syncdomain.SyncLogRepository
	logger       *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orchestrator *appsync.Orchestrator, syncLogs syncdomain.SyncLogRepository, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		orchestrator: orchestrator,
		syncLogs:     syncLogs,
		logger:       logger,
	}
}

// SyncAll triggers a sync across every connected platform for the
// authenticated organization.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "Missing organization context"))
		return
	}

	results := h.orchestrator.SyncAllPlatforms(c.Request.Context(), orgID)
	h.logger.Info("manual sync completed",
		zap.String("organization_id", orgID.String()),
		zap.Int("platforms", len(results)))

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"results": results}))
}

// SyncPlatform triggers a sync for a single platform.
func (h *SyncHandler) SyncPlatform(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "Missing organization context"))
		return
	}

	platform, err := syncdomain.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PLATFORM", "Unknown platform: "+c.Param("platform")))
		return
	}

	outcome, err := h.orchestrator.SyncPlatform(c.Request.Context(), orgID, platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PLATFORM", "Unknown platform: "+c.Param("platform")))
		return
	}

	switch {
	case outcome.IsSuccess():
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
			"platform": outcome.Platform,
			"synced":   outcome.Synced,
		}))
	case outcome.IsNotConnected():
		c.JSON(http.StatusOK, dto.NewErrorResponse("NOT_CONNECTED", outcome.Err))
	default:
		c.JSON(http.StatusOK, dto.NewErrorResponse("SYNC_FAILED", outcome.Err))
	}
}

// SyncLogEntry is one row of the sync history response.
type SyncLogEntry struct {
	ID            string     `json:"id"`
	Platform      string     `json:"platform"`
	Status        string     `json:"status"`
	RecordsSynced int        `json:"records_synced"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ListLogs returns recent sync ledger rows for the organization, newest
// first, optionally filtered by platform.
func (h *SyncHandler) ListLogs(c *gin.Context) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "Missing organization context"))
		return
	}

	var platform *syncdomain.PlatformCode
	if raw := c.Query("platform"); raw != "" {
		code, err := syncdomain.ParsePlatform(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PLATFORM", "Unknown platform: "+raw))
			return
		}
		platform = &code
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_LIMIT", "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	logs, err := h.syncLogs.FindRecent(c.Request.Context(), orgID, platform, limit)
	if err != nil {
		h.logger.Error("listing sync logs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to list sync logs"))
		return
	}

	entries := make([]SyncLogEntry, 0, len(logs))
	for _, log := range logs {
		entries = append(entries, SyncLogEntry{
			ID:            log.ID.String(),
			Platform:      log.Platform.String(),
			Status:        string(log.Status),
			RecordsSynced: log.RecordsSynced,
			ErrorMessage:  log.ErrorMessage,
			StartedAt:     log.StartedAt,
			CompletedAt:   log.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"logs": entries}))
}
