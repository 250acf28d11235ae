// Package router wires the HTTP surface: the authenticated sync API, the
// cron trigger, webhook ingestors and OAuth callbacks.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopmetrics/backend/internal/infrastructure/auth"
	"github.com/shopmetrics/backend/internal/infrastructure/config"
	"github.com/shopmetrics/backend/internal/infrastructure/logger"
	"github.com/shopmetrics/backend/internal/interfaces/http/handler"
	"github.com/shopmetrics/backend/internal/interfaces/http/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Sync        *handler.SyncHandler
	Integration *handler.IntegrationHandler
	Cron        *handler.CronHandler
	Webhook     *handler.WebhookHandler
	OAuth       *handler.OAuthHandler
	System      *handler.SystemHandler
}

// Setup builds the gin engine with all routes and middleware attached.
func Setup(cfg *config.Config, verifier *auth.TokenVerifier, handlers Handlers, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/healthz", handlers.System.Healthz)

	// Authenticated sync API.
	api := engine.Group("/api")
	api.Use(middleware.BearerAuth(verifier))
	{
		api.POST("/sync", handlers.Sync.SyncAll)
		api.POST("/sync/:platform", handlers.Sync.SyncPlatform)
		api.GET("/sync/logs", handlers.Sync.ListLogs)
		api.GET("/integrations", handlers.Integration.List)
	}

	// Scheduled trigger, guarded by its own shared secret.
	engine.POST("/api/cron/sync", handlers.Cron.SyncAll)

	// Push surfaces are unauthenticated at the transport level and
	// verify their own signatures, so they get a per-IP rate limit.
	callbackLimiter := middleware.NewRateLimiter(cfg.HTTP.CallbackRateLimit, cfg.HTTP.CallbackRateWindow)

	webhooks := engine.Group("/webhooks")
	webhooks.Use(middleware.RateLimit(callbackLimiter))
	{
		webhooks.POST("/shopify/orders", handlers.Webhook.ShopifyOrder)
		webhooks.POST("/nuvemshop/orders", handlers.Webhook.NuvemshopOrder)
		webhooks.POST("/reportana/events", handlers.Webhook.ReportanaEvent)
	}

	oauthGroup := engine.Group("/oauth")
	oauthGroup.Use(middleware.RateLimit(callbackLimiter))
	{
		oauthGroup.GET("/facebook/callback", handlers.OAuth.Facebook)
		oauthGroup.GET("/google/callback", handlers.OAuth.Google)
		oauthGroup.GET("/nuvemshop/callback", handlers.OAuth.Nuvemshop)
		oauthGroup.GET("/shopify/callback", handlers.OAuth.Shopify)
	}

	return engine
}
