package sim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SerialGenerator produces unique candidate serials.
// Implemented by UUIDv7Generator (production) and SequentialGenerator
// (deterministic tests and golden traces).
type SerialGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 serials.
//
// UUIDv7 embeds a timestamp in the most significant bits, making serials
// sortable by creation time, which is helpful when eyeballing output rows.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequentialGenerator returns "s-000001", "s-000002", ... in order.
//
// Used by tests and the scenario harness so serialized output is stable
// across runs and comparable against golden files.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialGenerator creates a generator with the given prefix.
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next serial in sequence.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}
