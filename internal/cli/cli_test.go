package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with the given args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func recordedRunConfig(dir string) string {
	return fmt.Sprintf(`
seed: 42
count: 3
source:
  properties:
    - type: position
      position: [100, 0, 0]
    - type: direction
      direction: [-1, 0, 0]
    - type: particle
      particle: proton
    - type: power_law
      emin: 1.0e19
      emax: 1.0e21
      index: -1
modules:
  - type: propagation
    min_step: 10
    max_step: 10
  - type: observer
    name: earth
    points: [0]
    sinks: [detections]
  - type: maximum_trajectory_length
    lmax: 2000
outputs:
  - name: detections
    type: tsv
    path: %s
  - name: events
    type: sqlite
    path: %s
`, filepath.Join(dir, "detections.tsv"), filepath.Join(dir, "events.db"))
}

func TestRunCommand_RecordsAndSummarizes(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, recordedRunConfig(dir))

	out, err := execute(t, "run", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Run complete (seed 42)")
	assert.Contains(t, out, "run id:")

	tsv, err := os.ReadFile(filepath.Join(dir, "detections.tsv"))
	require.NoError(t, err)
	// Header plus one row per detected primary.
	assert.Equal(t, 4, strings.Count(string(tsv), "\n"))
}

func TestRunCommand_ThenReplayDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, recordedRunConfig(dir))

	_, err := execute(t, "run", path)
	require.NoError(t, err)

	out, err := execute(t, "replay", "--db", filepath.Join(dir, "events.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Replay deterministic")
	assert.Contains(t, out, "3 candidates match")
}

func TestReplayCommand_MissingDatabaseRun(t *testing.T) {
	dir := t.TempDir()
	// An empty store opens fine but holds no runs.
	_, err := execute(t, "replay", "--db", filepath.Join(dir, "empty.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommand_Terminals(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, recordedRunConfig(dir))
	_, err := execute(t, "run", path)
	require.NoError(t, err)

	out, err := execute(t, "trace", "--db", filepath.Join(dir, "events.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "LINEAGE")
	assert.Contains(t, out, "c000001")
	assert.Contains(t, out, "Detected")
}

func TestTraceCommand_NoStepsForLineage(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, recordedRunConfig(dir))
	_, err := execute(t, "run", path)
	require.NoError(t, err)

	_, err = execute(t, "trace", "--db", filepath.Join(dir, "events.db"),
		"--lineage", "c999999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, recordedRunConfig(dir))

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Config valid")

	// Validation must not create the declared outputs.
	assert.NoFileExists(t, filepath.Join(dir, "detections.tsv"))
	assert.NoFileExists(t, filepath.Join(dir, "events.db"))
}

func TestValidateCommand_ValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, recordedRunConfig(dir))

	out, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "seed: 1\nnonsense_field: true\n")

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [invalid_config]")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_InvalidConfigExitCode(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "seed: 1\nnonsense_field: true\n")

	_, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "validate", "whatever.yaml")
	require.Error(t, err)
}
