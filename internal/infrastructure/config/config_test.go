package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "shopmetrics-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Sync.RetryBaseDelay)
	assert.Equal(t, 2*time.Minute, cfg.Sync.AdapterTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Sync.StaleAfter)
	assert.Equal(t, 30*24*time.Hour, cfg.Sync.AdsLookback)
	assert.Equal(t, 10, cfg.HTTP.CallbackRateLimit)
	assert.Equal(t, time.Minute, cfg.HTTP.CallbackRateWindow)
	// Cron secret has no default: unset means hard-disabled.
	assert.Empty(t, cfg.Cron.Secret)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid in development", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 50
		assert.Error(t, cfg.validate())
	})

	t.Run("retry attempts must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Sync.RetryAttempts = -1
		assert.Error(t, cfg.validate())
	})

	t.Run("production requires encryption key", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Database.Password = "pw"
		cfg.Database.SSLMode = "require"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encryption_key")
	})

	t.Run("production rejects short cron secret", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		cfg.Crypto.EncryptionKey = "aa"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Database.Password = "pw"
		cfg.Database.SSLMode = "require"
		cfg.Cron.Secret = "short"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cron.secret")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "shopmetrics",
		SSLMode:  "require",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Password must be URL-escaped.
	assert.NotContains(t, dsn, "p@ss/word")
}
