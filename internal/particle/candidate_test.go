package particle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoglund/rayprop/internal/random"
)

func TestCandidate_Deactivate_FirstCauseWins(t *testing.T) {
	c := New()
	require.True(t, c.Active)

	c.Deactivate("Detected")
	assert.False(t, c.Active)
	assert.Equal(t, "Detected", c.Cause())

	c.Deactivate("BelowThreshold")
	assert.Equal(t, "Detected", c.Cause())
}

func TestCandidate_Cause_EmptyWhileActive(t *testing.T) {
	c := New()
	assert.Empty(t, c.Cause())
}

func TestCandidate_LimitNextStep_MinWins(t *testing.T) {
	c := New()
	c.NextStep = 100

	require.NoError(t, c.LimitNextStep(40))
	assert.Equal(t, 40.0, c.NextStep)

	// A larger proposal never grows the step back.
	require.NoError(t, c.LimitNextStep(60))
	assert.Equal(t, 40.0, c.NextStep)
}

func TestCandidate_LimitNextStep_NegativeIsError(t *testing.T) {
	c := New()
	c.NextStep = 10

	err := c.LimitNextStep(-1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNegativeStep)
	assert.Equal(t, 10.0, c.NextStep)
}

func TestCandidate_AddSecondary_InheritsKinematics(t *testing.T) {
	p := New()
	p.Serial = "s-000001"
	p.Lineage = "c000001"
	p.Generation = 0
	p.CurrentPosition = Vector3{X: 42}
	p.CurrentDirection = Vector3{X: -1}
	p.Redshift = 0.5
	p.SetRandom(random.New(7, 1))

	s := p.AddSecondary(Electron, 1e18)
	assert.Equal(t, Electron, s.ParticleID)
	assert.Equal(t, 1e18, s.SourceEnergy)
	assert.Equal(t, 1e18, s.CurrentEnergy)
	assert.Equal(t, p.CurrentPosition, s.CurrentPosition)
	assert.Equal(t, p.CurrentDirection, s.CurrentDirection)
	assert.Equal(t, 0.5, s.Redshift)
	assert.Equal(t, 1, s.Generation)
	assert.Equal(t, "s-000001", s.ParentSerial)
	assert.Equal(t, "c000001.0", s.Lineage)
	assert.NotNil(t, s.Random())
	assert.True(t, s.Active)
}

func TestCandidate_AddSecondary_LineageIndexesIncrement(t *testing.T) {
	p := New()
	p.Lineage = "c000002"
	p.SetRandom(random.New(7, 2))

	first := p.AddSecondary(PiPlus, 1)
	second := p.AddSecondary(Positron, 2)
	assert.Equal(t, "c000002.0", first.Lineage)
	assert.Equal(t, "c000002.1", second.Lineage)

	grandchild := first.AddSecondary(Photon, 3)
	assert.Equal(t, "c000002.0.0", grandchild.Lineage)
}

func TestCandidate_TakeSecondaries_TransfersOwnership(t *testing.T) {
	p := New()
	p.Lineage = "c000003"
	p.AddSecondary(Electron, 1)
	p.AddSecondary(Positron, 2)

	got := p.TakeSecondaries()
	require.Len(t, got, 2)
	assert.Empty(t, p.Secondaries)
	assert.Empty(t, p.TakeSecondaries())
}

func TestCandidate_Properties(t *testing.T) {
	c := New()

	_, ok := c.Property("interaction:Decay")
	assert.False(t, ok)

	c.SetProperty("interaction:Decay", 12.5)
	v, ok := c.Property("interaction:Decay")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	c.ClearProperty("interaction:Decay")
	_, ok = c.Property("interaction:Decay")
	assert.False(t, ok)
}
