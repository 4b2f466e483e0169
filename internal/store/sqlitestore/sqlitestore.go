// Package sqlitestore is a store.Backend on an embedded SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	key   TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	type  TEXT NOT NULL,
	UNIQUE (key, type)
);
CREATE INDEX IF NOT EXISTS idx_meta_type ON meta (type, id);
`

// Store persists records in a single SQLite table.
//
// SQLite has one writer at a time; the pool is capped at one connection so
// every transaction, and therefore every Mutate, is serialized. Mutations of
// different keys wait on each other too; redisstore and pgstore do not, and
// storetest.RunIndependentKeys is not run here.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("Failed to apply sqlite pragma", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeta(row rowScanner) (*store.Meta, error) {
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
	m, err := scanMeta(s.db.QueryRowContext(ctx,
		`SELECT id, key, value, type FROM meta WHERE key = ? AND type = ?`, key, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("store.get", "meta %s/%s not found", t, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	return m, nil
}

// GetByID returns the record with id
func (s *Store) GetByID(ctx context.Context, id int64) (*store.Meta, error) {
	m, err := scanMeta(s.db.QueryRowContext(ctx,
		`SELECT id, key, value, type FROM meta WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
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

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value, type) VALUES (?, ?, ?) ON CONFLICT (key, type) DO NOTHING`,
		m.Key, m.Value, string(m.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to insert meta: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to insert meta: %w", err)
	}
	if n == 0 {
		return nil, errs.Conflict("store.create", "meta %s/%s already exists", m.Type, m.Key)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	created := m.Clone()
	created.ID = id
	return created, nil
}

// Update replaces the value of an existing record
func (s *Store) Update(ctx context.Context, m *store.Meta) error {
	res, err := s.db.ExecContext(ctx, `UPDATE meta SET value = ? WHERE id = ?`, m.Value, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update meta: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update meta: %w", err)
	}
	if n == 0 {
		return errs.NotFound("store.update", "meta %d not found", m.ID)
	}
	return nil
}

// Delete removes the record with id; absent ids succeed
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM meta WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete meta: %w", err)
	}
	return nil
}

// Mutate rewrites the record's value inside a transaction
func (s *Store) Mutate(ctx context.Context, key string, t store.MetaType, fn store.MutateFunc) (*store.Meta, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := scanMeta(tx.QueryRowContext(ctx,
		`SELECT id, key, value, type FROM meta WHERE key = ? AND type = ?`, key, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("store.mutate", "meta %s/%s not found", t, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}

	value, err := fn(m.Value)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE meta SET value = ? WHERE id = ?`, value, m.ID); err != nil {
		return nil, fmt.Errorf("failed to update meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mutation: %w", err)
	}

	m.Value = value
	return m, nil
}

// List returns records of type t ordered by id
func (s *Store) List(ctx context.Context, t store.MetaType) ([]*store.Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, value, type FROM meta WHERE type = ? ORDER BY id`, string(t))
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

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Backend = (*Store)(nil)
