package server

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/cache"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/memstore"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/pgstore"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/redisstore"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/sqlitestore"
)

// OpenBackend opens the meta store named by cfg.Driver
func OpenBackend(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (store.Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on exit")
		return memstore.New(), nil

	case config.DriverSQLite:
		return sqlitestore.Open(cfg.SQLitePath, logger)

	case config.DriverRedis:
		s, err := redisstore.New(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, cfg.Namespace, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return s, nil

	case config.DriverPostgres:
		s, err := pgstore.Connect(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenCache builds the manifest cache backend. The returned closer is nil
// for the in-process cache.
func OpenCache(cfg *config.Config) (cache.Cache, io.Closer, error) {
	switch cfg.Cache.Driver {
	case config.DriverMemory:
		return cache.NewMemory(), nil, nil
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr, DB: cfg.Storage.RedisDB})
		c := cache.NewRedis(rdb, cfg.Storage.Namespace)
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
