package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/skoglund/rayprop/internal/config"
)

// ValidateResult reports the outcome of config validation.
type ValidateResult struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Modules int    `json:"modules"`
	Outputs int    `json:"outputs"`
}

func (r ValidateResult) String() string {
	return "Config valid: " + r.Path
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a run configuration without executing it",
		Long: `Validate a run configuration without executing it.

The document is checked against the configuration schema and then fully
wired (source, modules, observers) without opening any output sinks, so
validation has no filesystem side effects.

Exit codes:
  0 - configuration is valid
  1 - configuration is invalid
  2 - command error (file not readable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read config", err)
	}

	cfg, err := config.Load(raw)
	if err == nil {
		var eng *config.Engine
		eng, err = config.Build(cfg, raw, config.WithoutOutputs())
		if eng != nil {
			eng.Close()
		}
	}
	if err != nil {
		_ = formatter.Error("invalid_config", err.Error(), nil)
		return NewExitError(ExitFailure, "config invalid")
	}

	return formatter.Success(ValidateResult{
		Path:    path,
		Valid:   true,
		Modules: len(cfg.Modules),
		Outputs: len(cfg.Outputs),
	})
}
