// Package redisstore is a store.Backend on Redis.
//
// Each record is a hash at MetaKey; a string index maps (type, key) to the id
// and a per-type ZSET keeps ids ordered for List. Multi-key writes run in
// MULTI/EXEC under WATCH and are retried when a watched key changes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

const maxTxRetries = 100

// reader is satisfied by both *redis.Client and *redis.Tx
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Store is safe for concurrent use.
type Store struct {
	rdb       *redis.Client
	namespace string
	logger    *zap.Logger
}

// New creates a store using the given Redis options. All keys are prefixed
// with namespace so several deployments can share one server.
func New(opts *redis.Options, namespace string, logger *zap.Logger) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		rdb:       redis.NewClient(opts),
		namespace: namespace,
		logger:    logger,
	}, nil
}

func metaToHash(m *store.Meta) map[string]interface{} {
	return map[string]interface{}{
		"id":    m.ID,
		"key":   m.Key,
		"value": m.Value,
		"type":  string(m.Type),
	}
}

func hashToMeta(h map[string]string) (*store.Meta, error) {
	id, err := strconv.ParseInt(h["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id field %q: %w", h["id"], err)
	}
	return &store.Meta{
		ID:    id,
		Key:   h["key"],
		Value: h["value"],
		Type:  store.MetaType(h["type"]),
	}, nil
}

// retry runs a WATCH transaction until it commits without interference
func (s *Store) retry(ctx context.Context, op string, fn func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.logger.Debug("Redis transaction conflict, retrying",
			zap.String("op", op), zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt%5) * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: too many transaction conflicts", op)
}

func (s *Store) lookupID(ctx context.Context, c reader, key string, t store.MetaType) (int64, error) {
	raw, err := c.Get(ctx, IndexKey(s.namespace, t, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, errs.NotFound("store.get", "meta %s/%s not found", t, key)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index from Redis: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt index for %s/%s: %w", t, key, err)
	}
	return id, nil
}

func (s *Store) load(ctx context.Context, c reader, id int64) (*store.Meta, error) {
	h, err := c.HGetAll(ctx, MetaKey(s.namespace, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read meta from Redis: %w", err)
	}
	// HGetAll returns an empty map for non-existent keys
	if len(h) == 0 {
		return nil, errs.NotFound("store.get", "meta %d not found", id)
	}
	return hashToMeta(h)
}

// Get returns the record for (key, t)
func (s *Store) Get(ctx context.Context, key string, t store.MetaType) (*store.Meta, error) {
	id, err := s.lookupID(ctx, s.rdb, key, t)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.rdb, id)
}

// GetByID returns the record with id
func (s *Store) GetByID(ctx context.Context, id int64) (*store.Meta, error) {
	return s.load(ctx, s.rdb, id)
}

// Create inserts m and assigns its id
func (s *Store) Create(ctx context.Context, m *store.Meta) (*store.Meta, error) {
	if err := store.CheckMeta(m); err != nil {
		return nil, errs.Validation("store.create", "%v", err)
	}

	indexKey := IndexKey(s.namespace, m.Type, m.Key)
	var created *store.Meta

	err := s.retry(ctx, "store.create", func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, indexKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check index: %w", err)
		}
		if exists > 0 {
			return errs.Conflict("store.create", "meta %s/%s already exists", m.Type, m.Key)
		}

		id, err := tx.Incr(ctx, SequenceKey(s.namespace)).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}

		c := m.Clone()
		c.ID = id
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, MetaKey(s.namespace, id), metaToHash(c))
			pipe.Set(ctx, indexKey, id, 0)
			pipe.ZAdd(ctx, TypeSetKey(s.namespace, c.Type), redis.Z{Score: float64(id), Member: id})
			return nil
		})
		if err == nil {
			created = c
		}
		return err
	}, indexKey)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the value of an existing record
func (s *Store) Update(ctx context.Context, m *store.Meta) error {
	metaKey := MetaKey(s.namespace, m.ID)
	return s.retry(ctx, "store.update", func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, metaKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check meta: %w", err)
		}
		if exists == 0 {
			return errs.NotFound("store.update", "meta %d not found", m.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metaKey, "value", m.Value)
			return nil
		})
		return err
	}, metaKey)
}

// Delete removes the record with id; absent ids succeed
func (s *Store) Delete(ctx context.Context, id int64) error {
	metaKey := MetaKey(s.namespace, id)
	return s.retry(ctx, "store.delete", func(tx *redis.Tx) error {
		m, err := s.load(ctx, tx, id)
		if errs.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, metaKey, IndexKey(s.namespace, m.Type, m.Key))
			pipe.ZRem(ctx, TypeSetKey(s.namespace, m.Type), id)
			return nil
		})
		return err
	}, metaKey)
}

// Mutate rewrites the record's value with optimistic locking
func (s *Store) Mutate(ctx context.Context, key string, t store.MetaType, fn store.MutateFunc) (*store.Meta, error) {
	indexKey := IndexKey(s.namespace, t, key)
	var result *store.Meta

	err := s.retry(ctx, "store.mutate", func(tx *redis.Tx) error {
		id, err := s.lookupID(ctx, tx, key, t)
		if err != nil {
			return err
		}
		metaKey := MetaKey(s.namespace, id)
		if err := tx.Watch(ctx, metaKey).Err(); err != nil {
			return fmt.Errorf("failed to watch meta: %w", err)
		}
		m, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		value, err := fn(m.Value)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metaKey, "value", value)
			return nil
		})
		if err == nil {
			m.Value = value
			result = m
		}
		return err
	}, indexKey)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns records of type t ordered by id
func (s *Store) List(ctx context.Context, t store.MetaType) ([]*store.Meta, error) {
	ids, err := s.rdb.ZRange(ctx, TypeSetKey(s.namespace, t), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list meta from Redis: %w", err)
	}

	out := make([]*store.Meta, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt type set entry %q: %w", raw, err)
		}
		m, err := s.load(ctx, s.rdb, id)
		if errs.IsNotFound(err) {
			// deleted between ZRANGE and HGETALL
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Ping verifies Redis connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.rdb.Close()
}

var _ store.Backend = (*Store)(nil)
