// Package testutil provides deterministic test doubles for the
// scheduler's sampling and numbering seams.
package testutil

import (
	"sync"

	"github.com/skoglund/rayprop/internal/random"
)

// ScriptedRand returns a predetermined sequence of uniforms.
//
// This makes negotiation outcomes exact: a test scripts the uniforms, the
// exponential free paths follow analytically, and the accepted-step
// minimum can be asserted precisely.
//
// Thread-safety: safe for concurrent use via internal mutex, though tests
// normally use it single-threaded.
type ScriptedRand struct {
	mu     sync.Mutex
	values []float64
	idx    int
}

// NewScriptedRand creates a source returning values in order.
//
// Panics when the script is exhausted, failing fast on a test that draws
// more samples than it accounted for.
func NewScriptedRand(values ...float64) *ScriptedRand {
	return &ScriptedRand{values: values}
}

// Uniform returns the next scripted value.
func (s *ScriptedRand) Uniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.values) {
		panic("ScriptedRand: script exhausted")
	}
	v := s.values[s.idx]
	s.idx++
	return v
}

// Child returns the same script: secondaries in scripted tests share the
// parent's sequence.
func (s *ScriptedRand) Child(int) random.Source {
	return s
}

// Remaining returns how many scripted values are unconsumed.
func (s *ScriptedRand) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.idx
}
