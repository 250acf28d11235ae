package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/shopmetrics/backend/internal/application/sync"
	"github.com/shopmetrics/backend/internal/interfaces/http/dto"
)

// CronHandler exposes the scheduled sync trigger. The endpoint is guarded
// by a shared secret; an unset secret hard-disables it rather than
// leaving it open.
type CronHandler struct {
	orchestrator *appsync.Orchestrator
	secret       string
	staleAfter   time.Duration
	logger       *zap.Logger
}

// NewCronHandler creates a new CronHandler
func NewCronHandler(orchestrator *appsync.Orchestrator, secret string, staleAfter time.Duration, logger *zap.Logger) *CronHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronHandler{
		orchestrator: orchestrator,
		secret:       secret,
		staleAfter:   staleAfter,
		logger:       logger,
	}
}

// SyncAll runs the scheduled sync over every organization holding at
// least one connected integration.
func (h *CronHandler) SyncAll(c *gin.Context) {
	if h.secret == "" {
		h.logger.Error("cron sync invoked with no secret configured")
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("CRON_DISABLED", "Cron trigger is not configured"))
		return
	}

	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "Invalid cron secret"))
		return
	}

	started := time.Now()
	summaries, err := h.orchestrator.SyncAllOrganizations(c.Request.Context(), h.staleAfter)
	if err != nil {
		h.logger.Error("scheduled sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Scheduled sync failed"))
		return
	}

	h.logger.Info("scheduled sync completed",
		zap.Int("organizations", len(summaries)),
		zap.Duration("elapsed", time.Since(started)))

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"organizations": len(summaries),
		"summaries":     summaries,
	}))
}
