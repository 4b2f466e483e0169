package store

import (
	"context"
	"fmt"
)

// MetaType partitions the key space of meta records.
type MetaType string

const (
	MetaTypeWidget             MetaType = "widget"
	MetaTypeWidgetAreaBySystem MetaType = "widget_area_by_system"
	MetaTypeWidgetAreaByTheme  MetaType = "widget_area_by_theme"
	MetaTypeTheme              MetaType = "theme"
)

// Valid reports whether t is a known meta type
func (t MetaType) Valid() bool {
	switch t {
	case MetaTypeWidget, MetaTypeWidgetAreaBySystem, MetaTypeWidgetAreaByTheme, MetaTypeTheme:
		return true
	}
	return false
}

// Meta is one persisted record. (Key, Type) is unique.
type Meta struct {
	ID    int64    `json:"id"`
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Type  MetaType `json:"type"`
}

// Clone returns a copy that does not alias m
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// MutateFunc receives the current value of a record and returns its replacement.
// Returning an error aborts the mutation and leaves the record unchanged.
// Optimistic backends may call it more than once, so it must not have side effects.
type MutateFunc func(value string) (string, error)

// Backend persists meta records.
//
// Every backend guarantees that Mutate is an atomic read-modify-write for its
// (key, type): concurrent Mutate calls on the same record serialize, so no
// update is lost.
type Backend interface {
	// Get returns the record for (key, t) or a NotFound error
	Get(ctx context.Context, key string, t MetaType) (*Meta, error)
	// GetByID returns the record with id or a NotFound error
	GetByID(ctx context.Context, id int64) (*Meta, error)
	// Create inserts m, assigning its ID. Conflict if (key, type) exists.
	Create(ctx context.Context, m *Meta) (*Meta, error)
	// Update replaces the value of the record with m.ID. NotFound if absent.
	Update(ctx context.Context, m *Meta) error
	// Delete removes the record with id. Deleting an absent record succeeds.
	Delete(ctx context.Context, id int64) error
	// Mutate atomically rewrites the value of (key, t). NotFound if absent.
	Mutate(ctx context.Context, key string, t MetaType, fn MutateFunc) (*Meta, error)
	// List returns all records of type t ordered by id
	List(ctx context.Context, t MetaType) ([]*Meta, error)
	Ping(ctx context.Context) error
	Close() error
}

// CheckMeta validates a record before it is written
func CheckMeta(m *Meta) error {
	if m == nil {
		return fmt.Errorf("meta cannot be nil")
	}
	if m.Key == "" {
		return fmt.Errorf("meta key cannot be empty")
	}
	if !m.Type.Valid() {
		return fmt.Errorf("unknown meta type %q", m.Type)
	}
	return nil
}
