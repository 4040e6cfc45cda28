package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoglund/rayprop/internal/particle"
)

// stubModule is a scriptable module for scheduler tests.
type stubModule struct {
	name       string
	terminates bool
	fn         func(c *particle.Candidate) error
}

func (s *stubModule) Process(c *particle.Candidate) error {
	if s.fn != nil {
		return s.fn(c)
	}
	return nil
}

func (s *stubModule) String() string   { return s.name }
func (s *stubModule) Terminates() bool { return s.terminates }

// terminator is a break condition that never fires, used to satisfy the
// constructor's termination check in quota tests.
func terminator() *stubModule {
	return &stubModule{name: "noop-break", terminates: true}
}

func TestNewModuleList_EmptyIsConfigError(t *testing.T) {
	_, err := NewModuleList(nil)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestNewModuleList_NoTerminatorIsConfigError(t *testing.T) {
	_, err := NewModuleList([]Module{&stubModule{name: "drift"}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "no break condition")
}

func TestNewModuleList_NestedTerminatorAccepted(t *testing.T) {
	inner, err := NewModuleList([]Module{terminator()})
	require.NoError(t, err)

	outer, err := NewModuleList([]Module{&stubModule{name: "drift"}, inner})
	require.NoError(t, err)
	assert.Len(t, outer.Modules(), 2)
}

func TestNewModuleList_InvalidOptions(t *testing.T) {
	mods := []Module{terminator()}

	_, err := NewModuleList(mods, WithMaxSteps(0))
	assert.True(t, IsConfigError(err))

	_, err = NewModuleList(mods, WithWorkers(-1))
	assert.True(t, IsConfigError(err))
}

func TestModuleList_Process_InactiveIsInvariantError(t *testing.T) {
	m, err := NewModuleList([]Module{terminator()})
	require.NoError(t, err)

	c := particle.New()
	c.Lineage = "c000001"
	c.Deactivate("Detected")

	err = m.Process(c)
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
	assert.Contains(t, err.Error(), "c000001")
}

func TestModuleList_Process_StopsAfterDeactivation(t *testing.T) {
	var afterCalled bool
	deactivate := &stubModule{name: "break", terminates: true, fn: func(c *particle.Candidate) error {
		c.Deactivate("BelowThreshold")
		return nil
	}}
	after := &stubModule{name: "after", fn: func(c *particle.Candidate) error {
		afterCalled = true
		return nil
	}}

	m, err := NewModuleList([]Module{deactivate, after})
	require.NoError(t, err)

	c := particle.New()
	require.NoError(t, m.Process(c))
	assert.False(t, c.Active)
	assert.False(t, afterCalled, "modules after a deactivation must not run")
}

func TestModuleList_Process_FillsDomainErrorLineage(t *testing.T) {
	failing := &stubModule{name: "physics", terminates: true, fn: func(c *particle.Candidate) error {
		return NewDomainError("physics", "negative energy")
	}}
	m, err := NewModuleList([]Module{failing})
	require.NoError(t, err)

	c := particle.New()
	c.Lineage = "c000007"

	err = m.Process(c)
	require.Error(t, err)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "c000007", de.Lineage)
}

func TestModuleList_Process_WrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	failing := &stubModule{name: "flaky", terminates: true, fn: func(c *particle.Candidate) error {
		return cause
	}}
	m, err := NewModuleList([]Module{failing})
	require.NoError(t, err)

	err = m.Process(particle.New())
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
	assert.ErrorIs(t, err, cause)
}

func TestModuleList_Process_NegativeStepIsInvariantError(t *testing.T) {
	bad := &stubModule{name: "bad-step", terminates: true, fn: func(c *particle.Candidate) error {
		c.NextStep = -5
		return nil
	}}
	m, err := NewModuleList([]Module{bad})
	require.NoError(t, err)

	err = m.Process(particle.New())
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
	assert.ErrorIs(t, err, particle.ErrNegativeStep)
}
