// Package memstore is an in-process store.Backend.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

type index struct {
	key string
	typ store.MetaType
}

// Store keeps records in maps. Record locks are per (key, type), so
// mutations on different records never wait on each other's callbacks.
type Store struct {
	mu     sync.RWMutex
	byID   map[int64]*store.Meta
	byKey  map[index]int64
	nextID int64

	locks sync.Map // index -> *sync.Mutex
}

// New creates an empty store
func New() *Store {
	return &Store{
		byID:  make(map[int64]*store.Meta),
		byKey: make(map[index]int64),
	}
}

func (s *Store) lockFor(key string, t store.MetaType) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(index{key, t}, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Get returns the record for (key, t)
func (s *Store) Get(ctx context.Context, key string, t store.MetaType) (*store.Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[index{key, t}]
	if !ok {
		return nil, errs.NotFound("store.get", "meta %s/%s not found", t, key)
	}
	return s.byID[id].Clone(), nil
}

// GetByID returns the record with id
func (s *Store) GetByID(ctx context.Context, id int64) (*store.Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[id]
	if !ok {
		return nil, errs.NotFound("store.get", "meta %d not found", id)
	}
	return m.Clone(), nil
}

// Create inserts m and assigns its id
func (s *Store) Create(ctx context.Context, m *store.Meta) (*store.Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.CheckMeta(m); err != nil {
		return nil, errs.Validation("store.create", "%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := index{m.Key, m.Type}
	if _, exists := s.byKey[k]; exists {
		return nil, errs.Conflict("store.create", "meta %s/%s already exists", m.Type, m.Key)
	}
	s.nextID++
	created := m.Clone()
	created.ID = s.nextID
	s.byID[created.ID] = created
	s.byKey[k] = created.ID
	return created.Clone(), nil
}

// Update replaces the value of an existing record
func (s *Store) Update(ctx context.Context, m *store.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	current, ok := s.byID[m.ID]
	s.mu.RUnlock()
	if !ok {
		return errs.NotFound("store.update", "meta %d not found", m.ID)
	}

	l := s.lockFor(current.Key, current.Type)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok = s.byID[m.ID]
	if !ok {
		return errs.NotFound("store.update", "meta %d not found", m.ID)
	}
	current.Value = m.Value
	return nil
}

// Delete removes the record with id; absent ids succeed
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byKey, index{m.Key, m.Type})
	return nil
}

// Mutate applies fn to the record's value under its record lock
func (s *Store) Mutate(ctx context.Context, key string, t store.MetaType, fn store.MutateFunc) (*store.Meta, error) {
	l := s.lockFor(key, t)
	l.Lock()
	defer l.Unlock()

	current, err := s.Get(ctx, key, t)
	if err != nil {
		return nil, err
	}

	value, err := fn(current.Value)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[current.ID]
	if !ok {
		return nil, errs.NotFound("store.mutate", "meta %s/%s deleted during mutation", t, key)
	}
	m.Value = value
	return m.Clone(), nil
}

// List returns records of type t ordered by id
func (s *Store) List(ctx context.Context, t store.MetaType) ([]*store.Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Meta, 0)
	for _, m := range s.byID {
		if m.Type == t {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

var _ store.Backend = (*Store)(nil)
