package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/crypto"
	"github.com/shopmetrics/backend/internal/infrastructure/platforms"
	"github.com/shopmetrics/backend/internal/interfaces/http/dto"
)

// WebhookHandler ingests push notifications from platforms. Each ingestor
// authenticates the caller, resolves the target integration and funnels
// the record through the same normalize-and-upsert path the pull adapters
// use, so a webhook delivery and a later pull converge on one row.
type WebhookHandler struct {
	integrations syncdomain.IntegrationRepository
	orders       syncdomain.OrderRepository
	events       syncdomain.ReportanaEventRepository
	vault        *crypto.Vault

	shopifySecret   string
	nuvemshopSecret string

	logger *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	integrations syncdomain.IntegrationRepository,
	orders syncdomain.OrderRepository,
	events syncdomain.ReportanaEventRepository,
	vault *crypto.Vault,
	shopifySecret, nuvemshopSecret string,
	logger *zap.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		integrations:    integrations,
		orders:          orders,
		events:          events,
		vault:           vault,
		shopifySecret:   shopifySecret,
		nuvemshopSecret: nuvemshopSecret,
		logger:          logger,
	}
}

// ShopifyOrder ingests a Shopify order webhook. The signature header
// carries a base64 HMAC-SHA256 of the raw body keyed with the app secret,
// so the body must be read before any JSON decoding.
func (h *WebhookHandler) ShopifyOrder(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Failed to read request body"))
		return
	}

	signature := c.GetHeader("X-Shopify-Hmac-Sha256")
	if h.shopifySecret == "" || !verifyBase64HMAC(body, signature, h.shopifySecret) {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("INVALID_SIGNATURE", "Webhook signature verification failed"))
		return
	}

	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	if shopDomain == "" {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("UNKNOWN_SOURCE", "Missing shop domain header"))
		return
	}

	integ, err := h.integrations.FindByExternalAccount(c.Request.Context(), syncdomain.PlatformShopify, shopDomain)
	if err != nil {
		h.respondLookupError(c, err, "shopify", shopDomain)
		return
	}

	order, err := platforms.NormalizeShopifyOrder(integ.OrganizationID, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Malformed order payload"))
		return
	}

	if err := h.orders.Upsert(c.Request.Context(), order); err != nil {
		h.logger.Error("webhook order upsert failed",
			zap.String("platform", "shopify"),
			zap.String("external_order_id", order.ExternalOrderID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to store order"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"external_order_id": order.ExternalOrderID}))
}

// NuvemshopOrder ingests a Nuvemshop order webhook. Nuvemshop signs with
// a base64 HMAC-SHA256 like Shopify but identifies the store inside the
// payload rather than through a header.
func (h *WebhookHandler) NuvemshopOrder(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Failed to read request body"))
		return
	}

	signature := c.GetHeader("X-Linkedstore-Hmac-Sha256")
	if h.nuvemshopSecret == "" || !verifyBase64HMAC(body, signature, h.nuvemshopSecret) {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("INVALID_SIGNATURE", "Webhook signature verification failed"))
		return
	}

	var envelope struct {
		StoreID json.Number `json:"store_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.StoreID.String() == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Missing store_id"))
		return
	}
	storeID := envelope.StoreID.String()

	integ, err := h.integrations.FindByExternalAccount(c.Request.Context(), syncdomain.PlatformNuvemshop, storeID)
	if err != nil {
		h.respondLookupError(c, err, "nuvemshop", storeID)
		return
	}

	order, err := platforms.NormalizeNuvemshopOrder(integ.OrganizationID, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Malformed order payload"))
		return
	}

	if err := h.orders.Upsert(c.Request.Context(), order); err != nil {
		h.logger.Error("webhook order upsert failed",
			zap.String("platform", "nuvemshop"),
			zap.String("external_order_id", order.ExternalOrderID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to store order"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"external_order_id": order.ExternalOrderID}))
}

// ReportanaEvent ingests a Reportana event push. Reportana has no
// signature scheme; the bearer token is matched against each connected
// integration's stored API key. The integration count per deployment is
// small, so the linear scan is fine.
func (h *WebhookHandler) ReportanaEvent(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header || token == "" {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "Missing bearer token"))
		return
	}

	integ, err := h.resolveReportanaIntegration(c, token)
	if err != nil {
		if errors.Is(err, syncdomain.ErrWebhookTargetNotFound) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("UNKNOWN_SOURCE", "No integration matches this token"))
			return
		}
		h.logger.Error("reportana token resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to resolve integration"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Failed to read request body"))
		return
	}

	event, err := platforms.NormalizeReportanaEvent(integ.OrganizationID, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_PAYLOAD", "Malformed event payload"))
		return
	}

	if err := h.events.Upsert(c.Request.Context(), event); err != nil {
		h.logger.Error("webhook event upsert failed",
			zap.String("event_type", event.EventType),
			zap.String("reference_id", event.ReferenceID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to store event"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"event_type":   event.EventType,
		"reference_id": event.ReferenceID,
	}))
}

func (h *WebhookHandler) resolveReportanaIntegration(c *gin.Context, token string) (*syncdomain.Integration, error) {
	candidates, err := h.integrations.FindConnectedByPlatform(c.Request.Context(), syncdomain.PlatformReportana)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		apiKey, err := h.vault.DecryptField(candidates[i].APIKey)
		if err != nil {
			h.logger.Warn("undecryptable reportana api key",
				zap.String("integration_id", candidates[i].ID.String()),
				zap.Error(err))
			continue
		}
		if apiKey != "" && hmac.Equal([]byte(apiKey), []byte(token)) {
			return &candidates[i], nil
		}
	}
	return nil, syncdomain.ErrWebhookTargetNotFound
}

func (h *WebhookHandler) respondLookupError(c *gin.Context, err error, platform, account string) {
	if errors.Is(err, syncdomain.ErrIntegrationNotFound) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("UNKNOWN_SOURCE", "No integration for this account"))
		return
	}
	h.logger.Error("webhook integration lookup failed",
		zap.String("platform", platform),
		zap.String("external_account_id", account),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "Failed to resolve integration"))
}

// verifyBase64HMAC checks a base64-encoded HMAC-SHA256 signature over body.
func verifyBase64HMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	if len(provided) != len(expected) {
		return false
	}
	return hmac.Equal(provided, expected)
}
