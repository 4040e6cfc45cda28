package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skoglund/rayprop/internal/output"
	"github.com/skoglund/rayprop/internal/particle"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	RunID      string
	Lineage    string
	Detections bool
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded candidates, detections and trajectories",
		Long: `Inspect a recorded run in the event store.

Without flags, lists every candidate's terminal state. With --detections,
lists observer detections instead. With --lineage, prints the recorded
trajectory of a single candidate step by step (requires a run recorded
with a trajectory-stream sqlite output).

Examples:
  rayprop trace --db run.db
  rayprop trace --db run.db --detections
  rayprop trace --db run.db --lineage c000001.0 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the event store (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "inspect a specific run (default: latest)")
	cmd.Flags().StringVar(&opts.Lineage, "lineage", "", "print the trajectory of one candidate")
	cmd.Flags().BoolVar(&opts.Detections, "detections", false, "list observer detections")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	switch {
	case opts.Lineage != "":
		return traceSteps(store, run.ID, opts.Lineage, formatter, cmd)
	case opts.Detections:
		return traceDetections(store, run.ID, formatter, cmd)
	default:
		return traceTerminals(store, run.ID, formatter, cmd)
	}
}

func traceTerminals(store *output.Store, runID string, f *OutputFormatter, cmd *cobra.Command) error {
	terminals, err := store.Terminals(runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "load terminal records", err)
	}
	if f.Format == "json" {
		return f.Success(terminals)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINEAGE\tCAUSE\tHASH")
	for _, t := range terminals {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Lineage, t.Cause, t.Hash)
	}
	return w.Flush()
}

func traceDetections(store *output.Store, runID string, f *OutputFormatter, cmd *cobra.Command) error {
	detections, err := store.Detections(runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "load detections", err)
	}
	if f.Format == "json" {
		return f.Success(detections)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINEAGE\tOBSERVER\tPARTICLE\tENERGY\tX\tLENGTH")
	for _, d := range detections {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\n",
			d.Lineage, d.Observer, particle.SpeciesName(d.ParticleID),
			d.CurrentEnergy, d.X, d.TrajectoryLength)
	}
	return w.Flush()
}

func traceSteps(store *output.Store, runID, lineage string, f *OutputFormatter, cmd *cobra.Command) error {
	steps, err := store.Steps(runID, lineage)
	if err != nil {
		return WrapExitError(ExitCommandError, "load steps", err)
	}
	if len(steps) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no recorded steps for lineage %q", lineage))
	}
	if f.Format == "json" {
		return f.Success(steps)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPARTICLE\tENERGY\tX\tREDSHIFT\tLENGTH")
	for _, s := range steps {
		fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%g\t%g\n",
			s.Index, particle.SpeciesName(s.ParticleID), s.Energy, s.X, s.Redshift, s.TrajectoryLength)
	}
	return w.Flush()
}
