package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache is a TTL key/value cache. Values are stored encoded, so readers never
// share memory with writers.
type Cache interface {
	// Get decodes the value at key into dest. Reports false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores value at key. A zero ttl never expires.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete drops key; absent keys succeed
	Delete(ctx context.Context, key string) error
}

// Recorder observes cache lookups
type Recorder interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// Manager fronts a Cache and collapses concurrent misses of one key into a
// single load.
type Manager struct {
	backend  Cache
	group    singleflight.Group
	recorder Recorder
	logger   *zap.Logger
}

// NewManager creates a manager over backend. recorder and logger may be nil.
func NewManager(backend Cache, recorder Recorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{backend: backend, recorder: recorder, logger: logger}
}

// Invalidate drops key
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	if err := m.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	m.logger.Debug("Cache key invalidated", zap.String("key", key))
	return nil
}

func (m *Manager) hit(key string) {
	if m.recorder != nil {
		m.recorder.RecordCacheHit(key)
	}
}

func (m *Manager) miss(key string) {
	if m.recorder != nil {
		m.recorder.RecordCacheMiss(key)
	}
}

// GetOrCreate returns the cached value at key, or runs create, caches its
// result for ttl and returns it. A failing cache read degrades to create.
func GetOrCreate[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, create func(context.Context) (T, error)) (T, error) {
	var cached T
	ok, err := m.backend.Get(ctx, key, &cached)
	if err != nil {
		m.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		m.hit(key)
		return cached, nil
	}
	m.miss(key)

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		value, err := create(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.backend.Set(ctx, key, value, ttl); err != nil {
			m.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

var codec = sonic.ConfigStd

func encode(v interface{}) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest interface{}) error {
	if err := codec.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}
