package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	appsync "github.com/shopmetrics/backend/internal/application/sync"
	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/auth"
	"github.com/shopmetrics/backend/internal/infrastructure/config"
	"github.com/shopmetrics/backend/internal/infrastructure/crypto"
	"github.com/shopmetrics/backend/internal/infrastructure/logger"
	"github.com/shopmetrics/backend/internal/infrastructure/persistence"
	"github.com/shopmetrics/backend/internal/infrastructure/platforms"
	"github.com/shopmetrics/backend/internal/interfaces/http/handler"
	"github.com/shopmetrics/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	vault, err := crypto.NewVault(cfg.Crypto.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	integrations := persistence.NewGormIntegrationRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	metrics := persistence.NewGormAdMetricRepository(db.DB)
	events := persistence.NewGormReportanaEventRepository(db.DB)
	syncLogs := persistence.NewGormSyncLogRepository(db.DB)
	orgs := persistence.NewGormOrganizationRepository(db.DB)

	deps := platforms.Deps{
		Integrations: integrations,
		Orders:       orders,
		Metrics:      metrics,
		Events:       events,
		SyncLogs:     syncLogs,
		Vault:        vault,
		HTTPClient:   &http.Client{Timeout: cfg.Sync.HTTPTimeout},
		Logger:       log,
	}

	adapters := []syncdomain.PlatformAdapter{
		platforms.NewShopifyAdapter(deps),
		platforms.NewNuvemshopAdapter(deps),
		platforms.NewCartpandaAdapter(deps),
		platforms.NewYampiAdapter(deps),
		platforms.NewFacebookAdapter(deps, platforms.FacebookConfig{
			AppID:     cfg.OAuth.FacebookAppID,
			AppSecret: cfg.OAuth.FacebookAppSecret,
			Lookback:  cfg.Sync.AdsLookback,
		}),
		platforms.NewGoogleAdsAdapter(deps, platforms.GoogleConfig{
			ClientID:       cfg.OAuth.GoogleClientID,
			ClientSecret:   cfg.OAuth.GoogleClientSecret,
			DeveloperToken: cfg.OAuth.GoogleDeveloperToken,
			Lookback:       cfg.Sync.AdsLookback,
		}),
		platforms.NewReportanaAdapter(deps),
	}

	orchestrator := appsync.NewOrchestrator(adapters, orgs, syncLogs, appsync.Config{
		RetryAttempts:  cfg.Sync.RetryAttempts,
		RetryBaseDelay: cfg.Sync.RetryBaseDelay,
		AdapterTimeout: cfg.Sync.AdapterTimeout,
	}, log)

	verifier := auth.NewTokenVerifier(cfg.JWT)

	handlers := router.Handlers{
		Sync:        handler.NewSyncHandler(orchestrator, syncLogs, log),
		Integration: handler.NewIntegrationHandler(integrations, log),
		Cron:        handler.NewCronHandler(orchestrator, cfg.Cron.Secret, cfg.Sync.StaleAfter, log),
		Webhook: handler.NewWebhookHandler(integrations, orders, events, vault,
			cfg.OAuth.ShopifyAPISecret, cfg.OAuth.NuvemshopClientSecret, log),
		OAuth: handler.NewOAuthHandler(integrations, vault, cfg.OAuth,
			cfg.App.BaseURL, cfg.App.UIBaseURL, log),
		System: handler.NewSystemHandler(db),
	}

	engine := router.Setup(cfg, verifier, handlers, log)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects with silent gorm logging, or SQL statement logging
// when the application log level is debug.
func openDatabase(cfg *config.Config) (*persistence.Database, error) {
	if cfg.Log.Level == "debug" {
		return persistence.NewDatabaseWithLogger(&cfg.Database, gormlogger.Info)
	}
	return persistence.NewDatabase(&cfg.Database)
}
