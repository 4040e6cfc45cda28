// Package sim implements the transport scheduler.
//
// The scheduler drives candidates through an ordered list of modules until
// each reaches a terminal state.
//
// ARCHITECTURE:
//
// Worklist draining:
// Each candidate (and the subtree of secondaries it spawns) is drained by
// an explicit worklist, never by recursion, keeping stack depth bounded
// and enabling parallel draining. Sibling order on the worklist is
// unspecified; a candidate and all of its secondaries are always fully
// drained before Run returns.
//
// Pass structure:
// One pass applies every module in configured order exactly once. A pass
// advances exactly one step: the propagator takes the step accepted by the
// previous pass's negotiation and re-proposes its maximum, then each
// interaction may shrink the proposal (minimum wins). Step N+1 never
// starts before step N's effects are committed.
//
// Parallelism:
// Distinct candidates share no mutable state. The module list is immutable
// after construction and safe for concurrent read-only dispatch; a pool of
// workers each owns a private worklist. Mutable shared state lives only
// inside output sinks, which serialize access internally.
//
// Determinism:
// Every candidate owns a private random stream derived from the run seed
// and its lineage, so trajectories are reproducible under any worker
// count. Within one trajectory module application order is exactly the
// configured sequence.
//
// ERROR HANDLING: A module returning a DomainError deactivates only the
// offending candidate, with the failure recorded as a tag; the run
// continues. Any other module error is treated as an invariant violation
// and aborts the run.
package sim
