package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Sync     SyncConfig
	Cron     CronConfig
	Crypto   CryptoConfig
	JWT      JWTConfig
	OAuth    OAuthConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// BaseURL is this deployment's externally reachable URL, used to build
	// OAuth redirect URIs.
	BaseURL string
	// UIBaseURL is where OAuth callbacks redirect the browser after
	// persisting tokens.
	UIBaseURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxBodySize        int64
	CallbackRateLimit  int           // OAuth callback requests per window per IP
	CallbackRateWindow time.Duration // OAuth callback rate limit window
	TrustedProxies     []string
}

// SyncConfig holds sync engine configuration
type SyncConfig struct {
	// RetryAttempts is the total attempts per adapter (1 + retries)
	RetryAttempts int
	// RetryBaseDelay is the exponential backoff base (base * 2^attempt)
	RetryBaseDelay time.Duration
	// AdapterTimeout bounds a single adapter run
	AdapterTimeout time.Duration
	// HTTPTimeout bounds each outbound platform API call
	HTTPTimeout time.Duration
	// StaleAfter is how long a SYNCING ledger row may sit before the
	// stale sweep marks it failed
	StaleAfter time.Duration
	// AdsLookback is the rolling metric window for ad platforms
	AdsLookback time.Duration
}

// CronConfig holds the scheduled-trigger shared secret.
type CronConfig struct {
	// Secret guards the cron endpoint; unset hard-disables it (fail closed).
	Secret string
}

// CryptoConfig holds the credential vault key.
type CryptoConfig struct {
	// EncryptionKey is a hex-encoded 256-bit key
	EncryptionKey string
}

// JWTConfig holds bearer-token validation settings for the manual API.
// Token issuance is delegated to the external identity provider.
type JWTConfig struct {
	Secret string
	Issuer string
}

// OAuthConfig holds per-platform OAuth app credentials
type OAuthConfig struct {
	FacebookAppID         string
	FacebookAppSecret     string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleDeveloperToken  string
	NuvemshopClientID     string
	NuvemshopClientSecret string
	ShopifyAPIKey         string
	ShopifyAPISecret      string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SM_ prefix (e.g., SM_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Port:      v.GetString("app.port"),
			BaseURL:   v.GetString("app.base_url"),
			UIBaseURL: v.GetString("app.ui_base_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:        v.GetDuration("http.read_timeout"),
			WriteTimeout:       v.GetDuration("http.write_timeout"),
			IdleTimeout:        v.GetDuration("http.idle_timeout"),
			MaxBodySize:        v.GetInt64("http.max_body_size"),
			CallbackRateLimit:  v.GetInt("http.callback_rate_limit"),
			CallbackRateWindow: v.GetDuration("http.callback_rate_window"),
			TrustedProxies:     v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			RetryAttempts:  v.GetInt("sync.retry_attempts"),
			RetryBaseDelay: v.GetDuration("sync.retry_base_delay"),
			AdapterTimeout: v.GetDuration("sync.adapter_timeout"),
			HTTPTimeout:    v.GetDuration("sync.http_timeout"),
			StaleAfter:     v.GetDuration("sync.stale_after"),
			AdsLookback:    v.GetDuration("sync.ads_lookback"),
		},
		Cron: CronConfig{
			Secret: v.GetString("cron.secret"),
		},
		Crypto: CryptoConfig{
			EncryptionKey: v.GetString("crypto.encryption_key"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		OAuth: OAuthConfig{
			FacebookAppID:         v.GetString("oauth.facebook_app_id"),
			FacebookAppSecret:     v.GetString("oauth.facebook_app_secret"),
			GoogleClientID:        v.GetString("oauth.google_client_id"),
			GoogleClientSecret:    v.GetString("oauth.google_client_secret"),
			GoogleDeveloperToken:  v.GetString("oauth.google_developer_token"),
			NuvemshopClientID:     v.GetString("oauth.nuvemshop_client_id"),
			NuvemshopClientSecret: v.GetString("oauth.nuvemshop_client_secret"),
			ShopifyAPIKey:         v.GetString("oauth.shopify_api_key"),
			ShopifyAPISecret:      v.GetString("oauth.shopify_api_secret"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopmetrics-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:8080"
	}
	if cfg.App.UIBaseURL == "" {
		cfg.App.UIBaseURL = "http://localhost:3000"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shopmetrics"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // webhook payloads are small
	}
	if cfg.HTTP.CallbackRateLimit == 0 {
		cfg.HTTP.CallbackRateLimit = 10
	}
	if cfg.HTTP.CallbackRateWindow == 0 {
		cfg.HTTP.CallbackRateWindow = time.Minute
	}
	if cfg.Sync.RetryAttempts == 0 {
		cfg.Sync.RetryAttempts = 3
	}
	if cfg.Sync.RetryBaseDelay == 0 {
		cfg.Sync.RetryBaseDelay = time.Second
	}
	if cfg.Sync.AdapterTimeout == 0 {
		cfg.Sync.AdapterTimeout = 2 * time.Minute
	}
	if cfg.Sync.HTTPTimeout == 0 {
		cfg.Sync.HTTPTimeout = 30 * time.Second
	}
	if cfg.Sync.StaleAfter == 0 {
		cfg.Sync.StaleAfter = 30 * time.Minute
	}
	if cfg.Sync.AdsLookback == 0 {
		cfg.Sync.AdsLookback = 30 * 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "shopmetrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.RetryAttempts < 1 {
		return fmt.Errorf("sync.retry_attempts must be at least 1")
	}

	if c.App.Env == "production" {
		if c.Crypto.EncryptionKey == "" {
			return fmt.Errorf("crypto.encryption_key is required in production")
		}
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Cron.Secret != "" && len(c.Cron.Secret) < 32 {
			return fmt.Errorf("cron.secret must be at least 32 characters in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
