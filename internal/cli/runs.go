package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotientlab/groundtrace/internal/runstore"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Store string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List every run in the store index, oldest first, with its verdict and
chain hash.

Examples:
  groundtrace runs
  groundtrace runs --store ./runs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "runs", "run store root directory")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	st, err := runstore.Open(opts.Store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open run store", err)
	}
	defer st.Close()

	recs, err := st.ListRuns(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		if recs == nil {
			recs = []runstore.Record{}
		}
		return formatter.JSON(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	for _, rec := range recs {
		hash := rec.ChainHash
		if hash == "" {
			hash = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s  %s  %s\n", rec.RunID, rec.Verdict, hash, rec.CreatedAt)
	}
	return nil
}
