// Package pgstore is a store.Backend on PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS canopy_meta (
	id    BIGSERIAL PRIMARY KEY,
	key   TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	type  TEXT NOT NULL,
	UNIQUE (key, type)
);
CREATE INDEX IF NOT EXISTS idx_canopy_meta_type ON canopy_meta (type, id);
`

// Store uses row locks for Mutate, so mutations of different records run in parallel.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool to url and ensures the schema exists
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := &Store{pool: pool, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("PostgreSQL store connected")
	return s, nil
}

// NewStore wraps an existing pool. Call Migrate before first use.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Migrate creates the meta table if needed
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func scanMeta(row pgx.Row) (*store.Meta, error) {
	var m store.Meta
	var typ string
	if err := row.Scan(&m.ID, &m.Key, &m.Value, &typ); err != nil {
		return nil, err
	}
	m.Type = store.MetaType(typ)
	return &m, nil
}

// Get returns the record for (key, t)
func (s *Store) Get(ctx context.Context, key string, t store.MetaType) (*store.Meta, error) {
	m, err := scanMeta(s.pool.QueryRow(ctx,
		`SELECT id, key, value, type FROM canopy_meta WHERE key = $1 AND type = $2`, key, string(t)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("store.get", "meta %s/%s not found", t, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	return m, nil
}

// GetByID returns the record with id
func (s *Store) GetByID(ctx context.Context, id int64) (*store.Meta, error) {
	m, err := scanMeta(s.pool.QueryRow(ctx,
		`SELECT id, key, value, type FROM canopy_meta WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("store.get", "meta %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	return m, nil
}

// Create inserts m and assigns its id
func (s *Store) Create(ctx context.Context, m *store.Meta) (*store.Meta, error) {
	if err := store.CheckMeta(m); err != nil {
		return nil, errs.Validation("store.create", "%v", err)
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO canopy_meta (key, value, type) VALUES ($1, $2, $3)
		 ON CONFLICT (key, type) DO NOTHING
		 RETURNING id`,
		m.Key, m.Value, string(m.Type),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Conflict("store.create", "meta %s/%s already exists", m.Type, m.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert meta: %w", err)
	}

	created := m.Clone()
	created.ID = id
	return created, nil
}

// Update replaces the value of an existing record
func (s *Store) Update(ctx context.Context, m *store.Meta) error {
	tag, err := s.pool.Exec(ctx, `UPDATE canopy_meta SET value = $2 WHERE id = $1`, m.ID, m.Value)
	if err != nil {
		return fmt.Errorf("failed to update meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("store.update", "meta %d not found", m.ID)
	}
	return nil
}

// Delete removes the record with id; absent ids succeed
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM canopy_meta WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete meta: %w", err)
	}
	return nil
}

// Mutate rewrites the record's value while holding its row lock
func (s *Store) Mutate(ctx context.Context, key string, t store.MetaType, fn store.MutateFunc) (*store.Meta, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := scanMeta(tx.QueryRow(ctx,
		`SELECT id, key, value, type FROM canopy_meta WHERE key = $1 AND type = $2 FOR UPDATE`,
		key, string(t)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("store.mutate", "meta %s/%s not found", t, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock meta: %w", err)
	}

	value, err := fn(m.Value)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE canopy_meta SET value = $2 WHERE id = $1`, m.ID, value); err != nil {
		return nil, fmt.Errorf("failed to update meta: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit mutation: %w", err)
	}

	m.Value = value
	return m, nil
}

// List returns records of type t ordered by id
func (s *Store) List(ctx context.Context, t store.MetaType) ([]*store.Meta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, key, value, type FROM canopy_meta WHERE type = $1 ORDER BY id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list meta: %w", err)
	}
	defer rows.Close()

	out := make([]*store.Meta, 0)
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meta: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ping checks the pool
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var _ store.Backend = (*Store)(nil)
