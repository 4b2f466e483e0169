// Package config provides 12-factor configuration management for the Canopy backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP and optional global rate limiting configuration
//   - Storage: Meta record backend (memory, sqlite, redis, postgres). The
//     sqlite driver runs on one connection, so area mutations serialize
//     across all areas; redis and postgres keep edits to different areas
//     from blocking each other.
//   - Cache: Manifest cache driver and TTLs
//   - Extensions: Content root, web root, asset glob, watcher toggle
//   - Theme: Current theme folder
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - RATE_LIMIT_GLOBAL_RPS, RATE_LIMIT_GLOBAL_BURST
//   - STORE_DRIVER, STORE_SQLITE_PATH, STORE_NAMESPACE, REDIS_ADDR, REDIS_DB, POSTGRES_URL
//   - CACHE_DRIVER, CACHE_WIDGET_TTL, CACHE_THEME_TTL
//   - CONTENT_ROOT, WEB_ROOT, ASSET_GLOB, EXTENSIONS_WATCH
//   - THEME
package config
