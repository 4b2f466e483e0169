package id

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
)

func TestNewRequestID(t *testing.T) {
	rid := NewRequestID()

	assert.True(t, strings.HasPrefix(rid.String(), "req_"))
	assert.Len(t, rid.String(), len("req_")+26)

	parsed, ok := ParseRequestID(rid.String())
	assert.True(t, ok)
	assert.Equal(t, rid, parsed)
}

func TestParseRequestID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"generated", NewRequestID().String(), true},
		{"empty", "", false},
		{"missing prefix", Default().Generate().String(), false},
		{"wrong prefix", "sess_" + Default().Generate().String(), false},
		{"not a ulid", "req_hello", false},
		{"header injection", "req_01J\r\nX-Evil: 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseRequestID(tt.input)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestGeneratorMonotonic(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(bytes.NewReader(bytes.Repeat([]byte{7}, 4096)), func() time.Time { return fixed })

	prev := g.Generate()
	for i := 0; i < 50; i++ {
		next := g.Generate()
		assert.Equal(t, 1, next.Compare(prev), "ids within one millisecond increase")
		prev = next
	}
	assert.Equal(t, ulid.Timestamp(fixed), prev.Time())
}

func TestGeneratorConcurrent(t *testing.T) {
	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[RequestID]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rid := NewRequestID()
			mu.Lock()
			seen[rid] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
