package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoglund/rayprop/internal/metrics"
	"github.com/skoglund/rayprop/internal/particle"
)

func trajectoryCandidate() *particle.Candidate {
	c := particle.New()
	c.Serial = "s-000001"
	c.Lineage = "c000001"
	c.ParticleID = particle.Proton
	c.CurrentEnergy = 1e19
	return c
}

func TestTrajectoryModule_Process_WritesSnapshot(t *testing.T) {
	mem := NewMemorySink()
	mod := NewTrajectoryModule(mem, nil)

	c := trajectoryCandidate()
	require.NoError(t, mod.Process(c))
	c.TrajectoryLength = 10
	require.NoError(t, mod.Process(c))

	got := mem.Snapshots()
	require.Len(t, got, 2)
	assert.Equal(t, 0.0, got[0].TrajectoryLength)
	assert.Equal(t, 10.0, got[1].TrajectoryLength)
}

// A failed trajectory write loses the row and counts as a sink failure,
// but never fails the candidate.
func TestTrajectoryModule_Process_SinkFailureCountedNonFatal(t *testing.T) {
	run := metrics.NewRun()
	mod := NewTrajectoryModule(&FailingSink{Err: errors.New("disk full")}, run.SinkFailures)

	assert.NoError(t, mod.Process(trajectoryCandidate()))
	assert.NoError(t, mod.Process(trajectoryCandidate()))
	assert.Equal(t, 2.0, run.Snapshot()["rayprop_sink_failures_total"])
}

func TestStepRecorder_Process_NumbersSteps(t *testing.T) {
	store := openTestStore(t)
	runID, err := store.CreateRun(7, []byte("cfg"))
	require.NoError(t, err)

	rec := NewStepRecorder(store, runID, nil)
	c := trajectoryCandidate()
	for i := 0; i < 3; i++ {
		c.TrajectoryLength = float64(i)
		require.NoError(t, rec.Process(c))
	}

	steps, err := store.Steps(runID, c.Lineage)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, step := range steps {
		assert.Equal(t, i, step.Index)
		assert.Equal(t, float64(i), step.TrajectoryLength)
	}
}

func TestStoreSink_Write_AfterClose(t *testing.T) {
	store := openTestStore(t)
	runID, err := store.CreateRun(7, []byte("cfg"))
	require.NoError(t, err)

	sink := NewStoreSink(store, runID)
	require.NoError(t, sink.Write(sampleSnapshot()))
	require.NoError(t, sink.Close())
	assert.Error(t, sink.Write(sampleSnapshot()))

	// The underlying store stays usable for its owner.
	_, err = store.Terminals(runID)
	assert.NoError(t, err)
}
