package sim

import "sync/atomic"

// Clock is a monotonic logical counter.
//
// The scheduler uses one clock to number primary candidates in generation
// order. Generation numbering happens sequentially in the dispatch loop,
// so the assigned sequence is deterministic; the atomic is only needed for
// diagnostics reads from other goroutines.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next value and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
