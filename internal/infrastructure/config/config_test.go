package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Storage config
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/canopy.db", cfg.Storage.SQLitePath)

	// Cache config
	assert.Equal(t, DriverMemory, cfg.Cache.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ThemeTTL)

	// Theme config
	assert.Equal(t, "clarity", cfg.Theme.Current)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "500",
		"RATE_LIMIT_GLOBAL_RPS": "50",
		"STORE_DRIVER":          "redis",
		"REDIS_ADDR":            "redis:6379",
		"CACHE_DRIVER":          "redis",
		"CACHE_THEME_TTL":       "30s",
		"CONTENT_ROOT":          "/srv/canopy",
		"EXTENSIONS_WATCH":      "true",
		"THEME":                 "classic",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 50, cfg.RateLimit.GlobalRequestsPerSecond)
	assert.Zero(t, cfg.RateLimit.GlobalBurst)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Cache.ThemeTTL)
	assert.Equal(t, "/srv/canopy", cfg.Extensions.ContentRoot)
	assert.True(t, cfg.Extensions.Watch)
	assert.Equal(t, "classic", cfg.Theme.Current)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("unknown storage driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage driver")
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("CACHE_WIDGET_TTL", "soon")
		_, err := Load()
		assert.Error(t, err)
		assert.Equal(t, "clarity", LoadOrDefault().Theme.Current)
	})
}
