package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// TSVSink writes tab-separated snapshot rows to a file.
//
// The header row names the enabled columns. The file handle is shared
// mutable state, so writes are mutex-serialized; this is the one required
// synchronization point between workers.
type TSVSink struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	fields []Field
	closed bool
}

// NewTSVSink creates the file and writes the header row.
func NewTSVSink(path string, fields FieldSet) (*TSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create tsv output: %w", err)
	}

	t := &TSVSink{
		f:      f,
		w:      bufio.NewWriter(f),
		fields: fields.Columns(),
	}

	header := make([]string, len(t.fields))
	for i, fld := range t.fields {
		header[i] = "#" + string(fld)
	}
	if _, err := fmt.Fprintln(t.w, strings.Join(header, "\t")); err != nil {
		f.Close()
		return nil, fmt.Errorf("write tsv header: %w", err)
	}

	return t, nil
}

// Write appends one row.
func (t *TSVSink) Write(s Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("write to closed tsv sink")
	}

	row := make([]string, len(t.fields))
	for i, fld := range t.fields {
		row[i] = s.Value(fld)
	}
	if _, err := fmt.Fprintln(t.w, strings.Join(row, "\t")); err != nil {
		return fmt.Errorf("write tsv row: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Idempotent: the second and later
// calls are no-ops.
func (t *TSVSink) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.w.Flush(); err != nil {
		t.f.Close()
		return fmt.Errorf("flush tsv output: %w", err)
	}
	if err := t.f.Close(); err != nil {
		return fmt.Errorf("close tsv output: %w", err)
	}
	return nil
}
