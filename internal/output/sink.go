package output

import "sync"

// Sink serializes candidate snapshots.
//
// Write failures are reported to the caller and never abort a run.
// Close flushes buffered state; it is invoked exactly once after the
// owning run completes, and implementations guard against double close.
// Sinks that hold shared handles serialize access internally.
type Sink interface {
	Write(s Snapshot) error
	Close() error
}

// MemorySink collects snapshots in memory.
//
// Used by tests and the scenario harness. Safe for concurrent use.
type MemorySink struct {
	mu        sync.Mutex
	snapshots []Snapshot
	closed    bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends a snapshot.
func (m *MemorySink) Write(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return nil
}

// Close marks the sink closed. Idempotent.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Snapshots returns a copy of everything written so far.
func (m *MemorySink) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

// Discard drops every snapshot. Validation and replay bind declared
// detection sinks to it so observer references resolve without opening
// files or databases.
type Discard struct{}

// Write drops the snapshot.
func (Discard) Write(Snapshot) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }

// FailingSink always fails writes. Test double for the sink error path.
type FailingSink struct {
	Err error
}

// Write returns the configured error.
func (f *FailingSink) Write(Snapshot) error { return f.Err }

// Close succeeds.
func (f *FailingSink) Close() error { return nil }
