package redisstore

import (
	"fmt"

	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Redis key pattern helpers
//
// Key pattern: canopy:{namespace}:meta:...

// MetaKey returns the hash holding one record.
// Pattern: canopy:{namespace}:meta:{id}
func MetaKey(namespace string, id int64) string {
	return fmt.Sprintf("canopy:%s:meta:%d", namespace, id)
}

// IndexKey returns the (key, type) -> id lookup.
// Pattern: canopy:{namespace}:meta_index:{type}:{key}
func IndexKey(namespace string, t store.MetaType, key string) string {
	return fmt.Sprintf("canopy:%s:meta_index:%s:%s", namespace, t, key)
}

// TypeSetKey returns the ZSET of ids of one type, scored by id.
// Pattern: canopy:{namespace}:meta_type:{type}
func TypeSetKey(namespace string, t store.MetaType) string {
	return fmt.Sprintf("canopy:%s:meta_type:%s", namespace, t)
}

// SequenceKey returns the id counter.
// Pattern: canopy:{namespace}:meta_seq
func SequenceKey(namespace string) string {
	return fmt.Sprintf("canopy:%s:meta_seq", namespace)
}
