package sim

import "github.com/skoglund/rayprop/internal/particle"

// worklist holds candidates awaiting passes.
//
// LIFO: secondaries are drained depth-first, which keeps the list small
// for deep decay chains. Sibling order is not part of the scheduling
// contract.
//
// Each worklist is owned by exactly one worker goroutine, so no locking is
// needed; cross-worker isolation comes from candidates sharing no mutable
// state.
type worklist struct {
	items []*particle.Candidate
}

func newWorklist() *worklist {
	return &worklist{items: make([]*particle.Candidate, 0, 8)}
}

// Push adds a candidate to the worklist.
func (w *worklist) Push(c *particle.Candidate) {
	w.items = append(w.items, c)
}

// Pop removes and returns the most recently pushed candidate.
func (w *worklist) Pop() (*particle.Candidate, bool) {
	n := len(w.items)
	if n == 0 {
		return nil, false
	}
	c := w.items[n-1]
	// Nil the slot so the popped candidate's subtree can be collected
	// once terminal records are written.
	w.items[n-1] = nil
	w.items = w.items[:n-1]
	return c, true
}

// Len returns the number of pending candidates.
func (w *worklist) Len() int {
	return len(w.items)
}

// Drain pops every remaining entry, passing each to fn.
// Used for best-effort cancellation: remaining entries are deactivated
// without running further modules on them.
func (w *worklist) Drain(fn func(*particle.Candidate)) {
	for {
		c, ok := w.Pop()
		if !ok {
			return
		}
		fn(c)
	}
}
