package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skoglund/rayprop/internal/config"
	"github.com/skoglund/rayprop/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MetricsListen string

	// Serials allows overriding the serial generator (for testing).
	Serials sim.SerialGenerator
}

// RunSummary is the result reported after a completed run.
type RunSummary struct {
	RunID        string `json:"run_id,omitempty"`
	Seed         uint64 `json:"seed"`
	Candidates   int64  `json:"candidates"`
	Steps        int64  `json:"steps"`
	Secondaries  int64  `json:"secondaries"`
	Detections   int64  `json:"detections"`
	DomainErrors int64  `json:"domain_errors"`
	SinkFailures int64  `json:"sink_failures"`
}

func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run complete (seed %d)\n", s.Seed)
	if s.RunID != "" {
		fmt.Fprintf(&b, "  run id:        %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "  candidates:    %d\n", s.Candidates)
	fmt.Fprintf(&b, "  steps:         %d\n", s.Steps)
	fmt.Fprintf(&b, "  secondaries:   %d\n", s.Secondaries)
	fmt.Fprintf(&b, "  detections:    %d\n", s.Detections)
	fmt.Fprintf(&b, "  domain errors: %d\n", s.DomainErrors)
	fmt.Fprintf(&b, "  sink failures: %d", s.SinkFailures)
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Execute a propagation run",
		Long: `Execute a propagation run from a YAML configuration.

The configuration declares the source, the module chain and the output
sinks. Candidates are generated, driven through the chain until every one
reaches a terminal state, and the configured sinks receive the results.

Exit codes:
  0 - run completed
  1 - run failed
  2 - invalid configuration or unreadable files

Examples:
  rayprop run gzk.yaml
  rayprop run gzk.yaml --metrics-listen :9090 --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read config", err)
	}
	cfg, err := config.Load(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	var buildOpts []config.BuildOption
	if opts.Serials != nil {
		buildOpts = append(buildOpts, config.WithSerials(opts.Serials))
	}
	eng, err := config.Build(cfg, raw, buildOpts...)
	if err != nil {
		if sim.IsConfigError(err) {
			return WrapExitError(ExitCommandError, "invalid config", err)
		}
		return WrapExitError(ExitFailure, "build engine", err)
	}

	if opts.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", eng.Metrics.Handler())
		srv := &http.Server{Addr: opts.MetricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("run starting", "config", path, "seed", cfg.Seed, "count", cfg.Count, "workers", cfg.Workers)
	runErr := eng.Run(ctx)
	closeErr := eng.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	if closeErr != nil {
		return WrapExitError(ExitFailure, "close outputs", closeErr)
	}

	counts := eng.Metrics.Snapshot()
	summary := RunSummary{
		RunID:        eng.RunID,
		Seed:         cfg.Seed,
		Candidates:   int64(counts["rayprop_candidates_total"]),
		Steps:        int64(counts["rayprop_steps_total"]),
		Secondaries:  int64(counts["rayprop_secondaries_total"]),
		Detections:   int64(counts["rayprop_detections_total"]),
		DomainErrors: int64(counts["rayprop_domain_errors_total"]),
		SinkFailures: int64(counts["rayprop_sink_failures_total"]),
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success(summary)
}
