package sim

import (
	"errors"
	"fmt"

	"github.com/skoglund/rayprop/internal/metrics"
	"github.com/skoglund/rayprop/internal/particle"
)

// Module is one unit of per-step physics or control logic.
//
// Process is applied once per pass. A module may mutate the candidate's
// energy, position or redshift, shrink the negotiated step via
// LimitNextStep, deactivate the candidate, or append secondaries. Modules
// must not retain references to the candidate after returning; ownership
// stays with the scheduler.
//
// Returning a *DomainError deactivates only this candidate. Any other
// non-nil error is treated as an invariant violation and aborts the run.
type Module interface {
	Process(c *particle.Candidate) error

	// String names the module for logs and diagnostics.
	String() string
}

// Terminator marks modules that can make candidates inactive: break
// conditions and deactivating observers. A module list that cannot
// terminate candidates would loop until the step quota on every
// trajectory, which is almost always a configuration mistake; the
// constructor rejects it.
type Terminator interface {
	Terminates() bool
}

// DefaultMaxSteps bounds passes per candidate. Break conditions are the
// intended termination mechanism; the quota is the backstop that keeps a
// mis-tuned configuration from looping forever on one trajectory.
const DefaultMaxSteps = 1000

// Deactivation causes written by the scheduler itself.
const (
	// CauseStepsExceeded marks candidates terminated by the pass quota.
	CauseStepsExceeded = "StepsExceeded"

	// CauseCancelled marks worklist entries deactivated by early
	// termination without further module passes.
	CauseCancelled = "Cancelled"
)

// ModuleList is the ordered module pipeline plus the drive loop.
//
// The module sequence is fixed at construction and never changes
// afterwards, which makes a ModuleList safe for concurrent read-only
// dispatch by many workers. ModuleList itself implements Module, so lists
// can be nested as composite stages.
type ModuleList struct {
	modules  []Module
	maxSteps int
	workers  int
	seed     uint64
	serials  SerialGenerator
	clock    *Clock
	metrics  *metrics.Run
	terminal func(*particle.Candidate)
}

// Option configures a ModuleList.
type Option func(*ModuleList)

// WithMaxSteps sets the per-candidate pass quota.
func WithMaxSteps(n int) Option {
	return func(m *ModuleList) { m.maxSteps = n }
}

// WithWorkers sets the worker count for RunSource. Defaults to 1, which
// gives a fully sequential, single-threaded drive loop.
func WithWorkers(n int) Option {
	return func(m *ModuleList) { m.workers = n }
}

// WithSeed sets the run seed that candidate random streams derive from.
func WithSeed(seed uint64) Option {
	return func(m *ModuleList) { m.seed = seed }
}

// WithSerials overrides the serial generator. Tests and the scenario
// harness use SequentialGenerator for stable output.
func WithSerials(g SerialGenerator) Option {
	return func(m *ModuleList) { m.serials = g }
}

// WithMetrics attaches run counters. Nil-safe: without it the scheduler
// simply does not count.
func WithMetrics(r *metrics.Run) Option {
	return func(m *ModuleList) { m.metrics = r }
}

// WithTerminalFunc registers a callback invoked once for every candidate
// that reaches a terminal state, including candidates deactivated by
// cancellation. Used to record terminal snapshots. The callback may be
// invoked concurrently from multiple workers and must synchronize
// internally if it shares state.
func WithTerminalFunc(fn func(*particle.Candidate)) Option {
	return func(m *ModuleList) { m.terminal = fn }
}

// NewModuleList builds the scheduler for an ordered module sequence.
//
// The slice is copied; the configured order is exactly the per-pass
// application order. An empty list is a configuration error, as is a list
// with no terminating module (no break condition and no deactivating
// observer).
func NewModuleList(modules []Module, opts ...Option) (*ModuleList, error) {
	if len(modules) == 0 {
		return nil, NewConfigError("module list is empty")
	}

	m := &ModuleList{
		modules:  make([]Module, len(modules)),
		maxSteps: DefaultMaxSteps,
		workers:  1,
		serials:  UUIDv7Generator{},
		clock:    NewClock(),
	}
	copy(m.modules, modules)

	for _, opt := range opts {
		opt(m)
	}

	if m.maxSteps <= 0 {
		return nil, NewConfigError("max steps must be positive, got %d", m.maxSteps)
	}
	if m.workers <= 0 {
		return nil, NewConfigError("workers must be positive, got %d", m.workers)
	}
	if !canTerminate(m.modules) {
		return nil, NewConfigError("module list has no break condition or deactivating observer; every trajectory would run into the step quota")
	}

	return m, nil
}

// canTerminate reports whether any module (recursively through nested
// lists) can deactivate candidates.
func canTerminate(modules []Module) bool {
	for _, mod := range modules {
		if t, ok := mod.(Terminator); ok && t.Terminates() {
			return true
		}
		if nested, ok := mod.(*ModuleList); ok && canTerminate(nested.modules) {
			return true
		}
	}
	return false
}

// Modules returns the configured sequence. Used for introspection and
// tests; callers must not mutate the returned slice's modules.
func (m *ModuleList) Modules() []Module {
	out := make([]Module, len(m.modules))
	copy(out, m.modules)
	return out
}

// String implements Module for composite nesting.
func (m *ModuleList) String() string {
	return fmt.Sprintf("ModuleList(%d modules)", len(m.modules))
}

// Process applies one full pass: every module in configured order, exactly
// once. The pass stops early if a module deactivates the candidate; no
// field of an inactive candidate is ever mutated. Secondaries appended
// during the pass stay on the candidate; the drive loop collects them
// after the pass completes.
//
// Process implements Module, so a ModuleList nested inside another list
// acts as a single composite stage.
func (m *ModuleList) Process(c *particle.Candidate) error {
	if !c.Active {
		return &InvariantError{Message: "processing inactive candidate", Lineage: c.Lineage}
	}

	for _, mod := range m.modules {
		if err := mod.Process(c); err != nil {
			var de *DomainError
			if errors.As(err, &de) {
				de.Lineage = c.Lineage
				return de
			}
			return &InvariantError{
				Message: fmt.Sprintf("module %s failed", mod),
				Lineage: c.Lineage,
				Err:     err,
			}
		}
		if c.CurrentStep < 0 || c.NextStep < 0 {
			return &InvariantError{
				Message: fmt.Sprintf("module %s produced a negative step (current=%g next=%g)", mod, c.CurrentStep, c.NextStep),
				Lineage: c.Lineage,
				Err:     particle.ErrNegativeStep,
			}
		}
		if !c.Active {
			break
		}
	}

	return nil
}
