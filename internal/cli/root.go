// Package cli wires the groundtrace commands: exec, verify, demo, info,
// and runs. Commands exit 0 on success, 1 on a rejected trace or failed
// verification, and 2 on command errors.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quotientlab/groundtrace/internal/universe"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional universe config YAML; default bounds when empty
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the groundtrace CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "groundtrace",
		Short: "groundtrace - certified universes and replayable traces",
		Long: `Interpret proposed traces against a certified rational universe,
record digest-chained step logs, and re-verify recorded runs bit for bit.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "universe config YAML (defaults to built-in QE bounds)")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig resolves the universe config from the --config flag.
func loadConfig(opts *RootOptions) (universe.Config, error) {
	if opts.Config == "" {
		return universe.Default(), nil
	}
	return universe.Load(opts.Config)
}

// buildUniverse loads the config and constructs the certified universe.
// Construction re-checks the certified constants on every invocation.
func buildUniverse(opts *RootOptions) (*universe.Universe, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("building universe",
		"den", fmt.Sprintf("[%d,%d]", cfg.MinDen, cfg.MaxDen),
		"num", fmt.Sprintf("[%d,%d]", cfg.MinNum, cfg.MaxNum))
	u, err := universe.Build(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("universe certified",
		"size", u.Len(), "max", u.Max().String())
	return u, nil
}
