package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoglund/rayprop/internal/output"
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

func loadConfig(t *testing.T, doc string) *Config {
	t.Helper()
	cfg, err := Load([]byte(doc))
	require.NoError(t, err)
	return cfg
}

func TestBuild_MinimalEngine(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)

	eng, err := Build(cfg, []byte(minimalConfig))
	require.NoError(t, err)
	defer eng.Close()

	assert.NotNil(t, eng.Source)
	assert.NotNil(t, eng.List)
	assert.NotNil(t, eng.Metrics)
	assert.Nil(t, eng.Store)
}

func TestBuild_NoSourceProperties(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Source.Properties = nil

	_, err := Build(cfg, nil)
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
}

func TestBuild_NoModules(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Modules = nil

	_, err := Build(cfg, nil)
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
}

func TestBuild_UnknownModuleType(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Modules = append(cfg.Modules, ModuleConfig{Type: "warp_drive"})

	_, err := Build(cfg, nil)
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
	assert.Contains(t, err.Error(), "warp_drive")
}

func TestBuild_ObserverUnknownSink(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Modules = append(cfg.Modules, ModuleConfig{
		Type:   "observer",
		Name:   "earth",
		Points: []float64{0},
		Sinks:  []string{"nowhere"},
	})

	_, err := Build(cfg, nil)
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
	assert.Contains(t, err.Error(), `unknown sink "nowhere"`)
}

func TestBuild_ObserverResolvesInjectedSink(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Modules = append(cfg.Modules, ModuleConfig{
		Type:   "observer",
		Name:   "earth",
		Points: []float64{0},
		Sinks:  []string{"memory"},
	})

	mem := output.NewMemorySink()
	eng, err := Build(cfg, nil, WithoutOutputs(), WithSink("memory", mem))
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, eng.Run(context.Background()))
	require.Len(t, mem.Snapshots(), 1)
	assert.Equal(t, "earth", mem.Snapshots()[0].Observer)
}

func TestBuild_DuplicateOutputName(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, minimalConfig)
	cfg.Outputs = []OutputConfig{
		{Name: "out", Type: "tsv", Path: filepath.Join(dir, "a.tsv")},
		{Name: "out", Type: "tsv", Path: filepath.Join(dir, "b.tsv")},
	}

	_, err := Build(cfg, nil)
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestBuild_TwoSQLiteOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, minimalConfig)
	cfg.Outputs = []OutputConfig{
		{Name: "a", Type: "sqlite", Path: filepath.Join(dir, "a.db")},
		{Name: "b", Type: "sqlite", Path: filepath.Join(dir, "b.db")},
	}

	_, err := Build(cfg, []byte(minimalConfig))
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
	assert.Contains(t, err.Error(), "at most one sqlite output")
}

func TestBuild_SQLiteOutputRecordsRun(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Outputs = []OutputConfig{
		{Name: "events", Type: "sqlite", Path: filepath.Join(t.TempDir(), "events.db")},
	}

	eng, err := Build(cfg, []byte(minimalConfig))
	require.NoError(t, err)
	require.NotNil(t, eng.Store)
	require.NotEmpty(t, eng.RunID)

	require.NoError(t, eng.Run(context.Background()))

	terminals, err := eng.Store.Terminals(eng.RunID)
	require.NoError(t, err)
	assert.Len(t, terminals, 1)
	require.NoError(t, eng.Close())
}

func TestBuild_WithoutOutputsSkipsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.tsv")
	cfg := loadConfig(t, minimalConfig)
	cfg.Outputs = []OutputConfig{{Name: "out", Type: "tsv", Path: path}}

	eng, err := Build(cfg, nil, WithoutOutputs())
	require.NoError(t, err)
	defer eng.Close()

	assert.NoFileExists(t, path)
}

// Validate and replay rebuild engines without outputs; observers that
// reference declared outputs must still resolve, with nothing opened.
func TestBuild_WithoutOutputsResolvesDeclaredSinks(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, minimalConfig)
	cfg.Modules = append(cfg.Modules, ModuleConfig{
		Type:   "observer",
		Name:   "earth",
		Points: []float64{0},
		Sinks:  []string{"detections"},
	})
	cfg.Outputs = []OutputConfig{
		{Name: "detections", Type: "tsv", Path: filepath.Join(dir, "out.tsv")},
		{Name: "events", Type: "sqlite", Path: filepath.Join(dir, "events.db")},
	}

	eng, err := Build(cfg, nil, WithoutOutputs())
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, eng.Run(context.Background()))
	assert.NoFileExists(t, filepath.Join(dir, "out.tsv"))
	assert.NoFileExists(t, filepath.Join(dir, "events.db"))
}

func TestBuild_WithoutOutputsStillChecksDeclarations(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)
	cfg.Outputs = []OutputConfig{
		{Name: "out", Type: "tsv", Path: "out.tsv", Fields: []string{"momentum"}},
	}

	_, err := Build(cfg, nil, WithoutOutputs())
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
	assert.Contains(t, err.Error(), `unknown output field "momentum"`)
}

func TestBuild_TerminalFuncObservesCause(t *testing.T) {
	cfg := loadConfig(t, minimalConfig)

	causes := map[string]string{}
	eng, err := Build(cfg, nil, WithoutOutputs(), WithTerminalFunc(func(c *particle.Candidate) {
		causes[c.Lineage] = c.Cause()
	}))
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, eng.Run(context.Background()))
	assert.Equal(t, map[string]string{"c000001": "Exhausted"}, causes)
}

func TestBuildProperty_Invalid(t *testing.T) {
	cases := []struct {
		name string
		pc   PropertyConfig
	}{
		{"position wrong arity", PropertyConfig{Type: "position", Position: []float64{1, 2}}},
		{"uniform range arity", PropertyConfig{Type: "uniform_position", Range: []float64{1}}},
		{"zero direction", PropertyConfig{Type: "direction", Direction: []float64{0, 0, 0}}},
		{"unknown species", PropertyConfig{Type: "particle", Particle: "tachyon"}},
		{"unknown type", PropertyConfig{Type: "flavor"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildProperty(tc.pc)
			require.Error(t, err)
			assert.True(t, sim.IsConfigError(err))
		})
	}
}

func TestRedshiftRelation_Unknown(t *testing.T) {
	_, err := redshiftRelation(ModuleConfig{Redshift: "quadratic"})
	require.Error(t, err)
	assert.True(t, sim.IsConfigError(err))
}
