package interaction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
	"github.com/skoglund/rayprop/internal/testutil"
)

// fakeProcess is a scriptable implementation with a fixed mean free path.
type fakeProcess struct {
	mfp       float64
	applies   bool
	performs  int
	onPerform func(c *particle.Candidate) error
}

func (f *fakeProcess) Name() string { return "Fake" }

func (f *fakeProcess) MeanFreePath(c *particle.Candidate) (float64, bool) {
	return f.mfp, f.applies
}

func (f *fakeProcess) Perform(c *particle.Candidate) error {
	f.performs++
	if f.onPerform != nil {
		return f.onPerform(c)
	}
	return nil
}

// expUniform returns the uniform u for which Exponential(u, mean) == d.
func expUniform(d, mean float64) float64 {
	return math.Exp(-d / mean)
}

func TestStochastic_ArmsAndLimitsNextStep(t *testing.T) {
	impl := &fakeProcess{mfp: 30, applies: true}
	s := NewStochastic(impl)

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	c.SetRandom(testutil.NewScriptedRand(expUniform(30, 30)))

	require.NoError(t, s.Process(c))

	d, armed := c.Property("interaction:Fake")
	assert.True(t, armed)
	assert.InDelta(t, 30.0, d, 1e-9)
	assert.InDelta(t, 30.0, c.NextStep, 1e-9, "interaction proposal must win the negotiation")
	assert.Equal(t, 0, impl.performs)
}

func TestStochastic_MinimumProposalWins(t *testing.T) {
	near := NewStochastic(&fakeProcess{mfp: 20, applies: true})
	far := NewStochastic(&fakeProcess{mfp: 80, applies: true})

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	// One uniform per process; both sample exactly their mean.
	c.SetRandom(testutil.NewScriptedRand(expUniform(20, 20), expUniform(80, 80)))

	require.NoError(t, near.Process(c))
	require.NoError(t, far.Process(c))

	assert.InDelta(t, 20.0, c.NextStep, 1e-9)
}

func TestStochastic_ConsumesStepAcrossPasses(t *testing.T) {
	impl := &fakeProcess{mfp: 30, applies: true}
	s := NewStochastic(impl)

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	c.SetRandom(testutil.NewScriptedRand(expUniform(30, 30)))
	require.NoError(t, s.Process(c))

	// A 10 m step leaves 20 m to the armed interaction point.
	c.CurrentStep = 10
	c.NextStep = 100
	require.NoError(t, s.Process(c))

	d, armed := c.Property("interaction:Fake")
	assert.True(t, armed)
	assert.InDelta(t, 20.0, d, 1e-9)
	assert.InDelta(t, 20.0, c.NextStep, 1e-9)
	assert.Equal(t, 0, impl.performs)
}

func TestStochastic_FiresWhenStepReachesSampledLength(t *testing.T) {
	impl := &fakeProcess{mfp: 30, applies: true}
	s := NewStochastic(impl)

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	// First uniform arms at exactly 30 m; second re-arms after the fire.
	c.SetRandom(testutil.NewScriptedRand(expUniform(30, 30), expUniform(50, 30)))
	require.NoError(t, s.Process(c))

	c.CurrentStep = 30
	c.NextStep = 100
	require.NoError(t, s.Process(c))

	assert.Equal(t, 1, impl.performs, "reaching the sampled length exactly must fire")
	d, armed := c.Property("interaction:Fake")
	assert.True(t, armed, "process re-arms after firing")
	assert.InDelta(t, 50.0, d, 1e-9)
}

func TestStochastic_MultipleFiresInOneStep(t *testing.T) {
	impl := &fakeProcess{mfp: 10, applies: true}
	s := NewStochastic(impl)

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	c.SetRandom(testutil.NewScriptedRand(
		expUniform(10, 10), // arm at 10
		expUniform(10, 10), // re-arm at 10 after first fire
		expUniform(90, 10), // beyond the remaining step
	))
	require.NoError(t, s.Process(c))

	// A 25 m step passes interaction points at 10 m and 20 m.
	c.CurrentStep = 25
	c.NextStep = 100
	require.NoError(t, s.Process(c))
	assert.Equal(t, 2, impl.performs)
}

func TestStochastic_StopsWhenPerformDeactivates(t *testing.T) {
	impl := &fakeProcess{mfp: 5, applies: true}
	impl.onPerform = func(c *particle.Candidate) error {
		c.Deactivate("Exhausted")
		return nil
	}
	s := NewStochastic(impl)

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	c.SetRandom(testutil.NewScriptedRand(expUniform(5, 5)))
	require.NoError(t, s.Process(c))

	c.CurrentStep = 50
	c.NextStep = 100
	require.NoError(t, s.Process(c))
	assert.Equal(t, 1, impl.performs, "no further fires on an inactive candidate")
}

func TestStochastic_InapplicableLeavesNegotiationAlone(t *testing.T) {
	s := NewStochastic(&fakeProcess{applies: false})

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	c.SetRandom(testutil.NewScriptedRand()) // must not draw

	require.NoError(t, s.Process(c))
	assert.Equal(t, 100.0, c.NextStep)
	_, armed := c.Property("interaction:Fake")
	assert.False(t, armed)
}

func TestStochastic_DiscardsArmedPointWhenProcessStopsApplying(t *testing.T) {
	impl := &fakeProcess{mfp: 30, applies: true}
	s := NewStochastic(impl)

	c := particle.New()
	c.CurrentEnergy = 1e20
	c.NextStep = 100
	c.SetRandom(testutil.NewScriptedRand(expUniform(30, 30)))
	require.NoError(t, s.Process(c))

	// Another module in the pass changed the candidate so the process no
	// longer acts on it (species exchange, dropped below threshold). The
	// armed point at 30 m must be discarded, not fired.
	impl.applies = false
	c.CurrentStep = 30
	c.NextStep = 100
	require.NoError(t, s.Process(c))

	assert.Equal(t, 0, impl.performs)
	_, armed := c.Property("interaction:Fake")
	assert.False(t, armed)
	assert.Equal(t, 100.0, c.NextStep)
}

func TestStochastic_NegativeEnergyIsDomainError(t *testing.T) {
	s := NewStochastic(&fakeProcess{mfp: 10, applies: true})

	c := particle.New()
	c.CurrentEnergy = -1
	c.SetRandom(testutil.NewScriptedRand())

	err := s.Process(c)
	require.Error(t, err)
	assert.True(t, sim.IsDomainError(err))
}

func TestStochastic_MissingStreamIsHardError(t *testing.T) {
	s := NewStochastic(&fakeProcess{mfp: 10, applies: true})

	c := particle.New()
	c.Lineage = "c000001"
	err := s.Process(c)
	require.Error(t, err)
	assert.False(t, sim.IsDomainError(err))
	assert.Contains(t, err.Error(), "no random stream")
}
