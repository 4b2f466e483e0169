package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Extensions ExtensionsConfig
	Theme      ThemeConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// GlobalRequestsPerSecond caps all clients together; zero disables it
	GlobalRequestsPerSecond int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0"`
	GlobalBurst             int `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"0"`
}

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// StorageConfig selects and configures the meta record backend.
type StorageConfig struct {
	Driver      string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"STORE_SQLITE_PATH" default:"data/canopy.db"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB     int    `envconfig:"REDIS_DB" default:"0"`
	Namespace   string `envconfig:"STORE_NAMESPACE" default:"default"`
	PostgresURL string `envconfig:"POSTGRES_URL" default:""`
}

// CacheConfig configures the manifest cache.
type CacheConfig struct {
	Driver    string        `envconfig:"CACHE_DRIVER" default:"memory"`
	WidgetTTL time.Duration `envconfig:"CACHE_WIDGET_TTL" default:"10m"`
	ThemeTTL  time.Duration `envconfig:"CACHE_THEME_TTL" default:"10m"`
}

// ExtensionsConfig locates extension packages and their served assets.
type ExtensionsConfig struct {
	ContentRoot string `envconfig:"CONTENT_ROOT" default:"."`
	WebRoot     string `envconfig:"WEB_ROOT" default:"wwwroot"`
	AssetGlob   string `envconfig:"ASSET_GLOB" default:"**/*"`
	Watch       bool   `envconfig:"EXTENSIONS_WATCH" default:"false"`
}

// ThemeConfig holds the site's current theme.
type ThemeConfig struct {
	Current string `envconfig:"THEME" default:"clarity"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values envconfig cannot check by type alone.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("invalid config: POSTGRES_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("invalid config: unknown cache driver %q", c.Cache.Driver)
	}
	if c.Theme.Current == "" {
		return fmt.Errorf("invalid config: THEME cannot be empty")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/canopy.db",
			RedisAddr:  "localhost:6379",
			Namespace:  "default",
		},
		Cache: CacheConfig{
			Driver:    DriverMemory,
			WidgetTTL: 10 * time.Minute,
			ThemeTTL:  10 * time.Minute,
		},
		Extensions: ExtensionsConfig{
			ContentRoot: ".",
			WebRoot:     "wwwroot",
			AssetGlob:   "**/*",
		},
		Theme: ThemeConfig{
			Current: "clarity",
		},
	}
}
