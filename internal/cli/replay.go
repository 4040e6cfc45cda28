package cli

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/skoglund/rayprop/internal/config"
	"github.com/skoglund/rayprop/internal/output"
	"github.com/skoglund/rayprop/internal/particle"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
}

// ReplayResult holds the outcome of a determinism check.
type ReplayResult struct {
	RunID         string   `json:"run_id"`
	Seed          uint64   `json:"seed"`
	Candidates    int      `json:"candidates"`
	Divergences   []string `json:"divergences,omitempty"`
	Deterministic bool     `json:"deterministic"`
}

func (r ReplayResult) String() string {
	if r.Deterministic {
		return fmt.Sprintf("Replay deterministic: run %s, %d candidates match", r.RunID, r.Candidates)
	}
	return fmt.Sprintf("Replay DIVERGED: run %s, %d divergences", r.RunID, len(r.Divergences))
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute a recorded run and verify determinism",
		Long: `Re-execute a recorded run and verify determinism.

The run's configuration and seed are read back from the event store, the
engine is rebuilt without output sinks, and every candidate is driven to
its terminal state again. Terminal snapshots are compared by lineage
against the recorded ones: a fixed seed must reproduce identical physics
regardless of worker count or wall-clock timing.

Exit codes:
  0 - replay reproduced every recorded terminal state
  1 - replay diverged from the recorded run
  2 - command error (database not found, run not found)

Examples:
  rayprop replay --db run.db
  rayprop replay --db run.db --run 019234ab-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the event store (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run (default: latest)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	store, err := output.OpenStore(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open event store", err)
	}
	defer store.Close()

	var run output.Run
	if opts.RunID != "" {
		run, err = store.GetRun(opts.RunID)
	} else {
		run, err = store.LatestRun()
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "load run", err)
	}

	recorded, err := store.Terminals(run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "load terminal records", err)
	}
	want := make(map[string]string, len(recorded))
	for _, t := range recorded {
		want[t.Lineage] = t.Hash
	}

	got, err := replayRun(cmd.Context(), run)
	if err != nil {
		return WrapExitError(ExitFailure, "replay run", err)
	}

	result := ReplayResult{
		RunID:         run.ID,
		Seed:          run.Seed,
		Candidates:    len(want),
		Divergences:   diffTerminals(want, got),
		Deterministic: true,
	}
	result.Deterministic = len(result.Divergences) == 0

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if !result.Deterministic {
		_ = formatter.Error("divergent_replay", result.String(), result.Divergences)
		return NewExitError(ExitFailure, "replay diverged")
	}
	return formatter.Success(result)
}

// replayRun rebuilds the engine from the stored config and drives it,
// collecting terminal snapshot hashes by lineage.
func replayRun(ctx context.Context, run output.Run) (map[string]string, error) {
	cfg, err := config.Load(run.Config)
	if err != nil {
		return nil, err
	}
	cfg.Seed = run.Seed

	var mu sync.Mutex
	got := map[string]string{}
	eng, err := config.Build(cfg, run.Config,
		config.WithoutOutputs(),
		config.WithTerminalFunc(func(c *particle.Candidate) {
			snap := output.NewSnapshot(c)
			mu.Lock()
			got[snap.Lineage] = snap.Hash()
			mu.Unlock()
		}),
	)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := eng.Run(ctx); err != nil {
		return nil, err
	}
	return got, nil
}

// diffTerminals reports lineages whose terminal state differs between the
// recorded run and the replay, sorted for stable output.
func diffTerminals(want, got map[string]string) []string {
	var out []string
	for lineage, wantHash := range want {
		gotHash, ok := got[lineage]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s: missing from replay", lineage))
		case gotHash != wantHash:
			out = append(out, fmt.Sprintf("%s: hash %s != recorded %s", lineage, gotHash, wantHash))
		}
	}
	for lineage := range got {
		if _, ok := want[lineage]; !ok {
			out = append(out, fmt.Sprintf("%s: not present in recorded run", lineage))
		}
	}
	sort.Strings(out)
	return out
}
