package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotientlab/groundtrace/internal/chain"
	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/exec"
	"github.com/quotientlab/groundtrace/internal/runstore"
	"github.com/quotientlab/groundtrace/internal/trace"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Store string
	Save  bool
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Interpret the built-in demonstration trace",
		Long: `Interpret the built-in demonstration trace: load 7/200, mask to
denominators at most 6, and witness the nearest element to 7/200. Prints
the run artifact and the chain hash. With --save the run is recorded in
the store like any exec run.

Examples:
  groundtrace demo
  groundtrace demo --save --store ./runs`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Save, "save", false, "record the demo run in the store")
	cmd.Flags().StringVar(&opts.Store, "store", "runs", "run store root directory")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	u, err := buildUniverse(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build universe", err)
	}

	t := trace.Demo()
	res, err := exec.New(u).Run(t)
	if err != nil {
		return WrapExitError(ExitFailure, "demo trace rejected", err)
	}

	anchor, err := chain.Build(u.Config(), stepDigests(res.Steps))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build digest anchor", err)
	}
	artifact := exec.Artifact(u, res)

	if opts.Save {
		st, err := runstore.Open(opts.Store)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open run store", err)
		}
		defer st.Close()
		run, err := st.CreateRun()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create run", err)
		}
		if err := writeLog(run, res.Steps); err != nil {
			return WrapExitError(ExitCommandError, "failed to write trace log", err)
		}
		if err := run.WriteDigests(anchor); err != nil {
			return WrapExitError(ExitCommandError, "failed to write digests", err)
		}
		if err := run.WriteArtifact(artifact); err != nil {
			return WrapExitError(ExitCommandError, "failed to write artifact", err)
		}
		out := ExecResult{
			RunID:     run.ID,
			Verdict:   runstore.VerdictOK,
			Steps:     len(res.Steps),
			ChainHash: digest.Hex(anchor.Chain),
		}
		if err := finishRun(st, run, out); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved run %s\n\n", run.ID)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.JSON(map[string]any{
			"steps":      len(res.Steps),
			"chain_hash": digest.Hex(anchor.Chain),
			"artifact":   artifact,
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), artifact)
	fmt.Fprintf(cmd.OutOrStdout(), "chain_hash: %s\n", digest.Hex(anchor.Chain))
	return nil
}
