// Package id generates request identifiers.
//
// IDs are ULIDs with a short type prefix (req_01J...). ULIDs sort by creation
// time, so log lines for consecutive requests stay in order.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestPrefix marks request ids
const RequestPrefix = "req"

// RequestID identifies an API request
type RequestID string

func (id RequestID) String() string { return string(id) }

// Generator generates ULIDs. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader, time.Now)
	})
	return defaultGenerator
}

// NewGenerator creates a generator over entropy and clock. Monotonic entropy
// keeps ids from one millisecond strictly increasing.
func NewGenerator(entropy io.Reader, now func() time.Time) *Generator {
	return &Generator{entropy: ulid.Monotonic(entropy, 0), now: now}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// WithPrefix creates a prefixed ULID string
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().WithPrefix(RequestPrefix))
}

// ParseRequestID accepts a client-supplied request id of the form req_<ulid>
func ParseRequestID(s string) (RequestID, bool) {
	rest, ok := strings.CutPrefix(s, RequestPrefix+"_")
	if !ok {
		return "", false
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return "", false
	}
	return RequestID(s), true
}
