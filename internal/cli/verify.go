package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quotientlab/groundtrace/internal/runstore"
	"github.com/quotientlab/groundtrace/internal/verify"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Store string
	Dir   string
}

// VerifyResult is the verify command output payload.
type VerifyResult struct {
	RunID   string `json:"run_id"`
	Verdict string `json:"verdict"`
	Code    string `json:"code,omitempty"`
	Step    *int   `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify [run-id]",
		Short: "Replay a recorded run and check every digest",
		Long: `Replay a recorded run from its trace log and compare every step digest
and the chain hash against the recorded anchor. A run verifies only if
the rebuilt chain matches bit for bit.

Exit codes:
  0 - Run verified (VALID)
  1 - Verification failed (digest mismatch, tampered log, malformed records)
  2 - Command error (run not found, unreadable files)

Examples:
  groundtrace verify 0198f0a2-7b1c-7e58-9f21-3f6d2c9a11aa
  groundtrace verify --dir ./runs/0198f0a2-7b1c-7e58-9f21-3f6d2c9a11aa
  groundtrace verify --store ./runs 0198f0a2-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "runs", "run store root directory")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "verify a run folder directly, outside any store")

	return cmd
}

func runVerify(opts *VerifyOptions, args []string, cmd *cobra.Command) error {
	run, err := resolveRun(opts, args)
	if err != nil {
		return err
	}

	u, err := buildUniverse(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build universe", err)
	}

	lines, err := run.ReadLogLines()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace log", err)
	}
	anchorData, err := run.ReadDigestsRaw()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read digests", err)
	}

	verdict := verify.Log(u, lines, anchorData)
	slog.Info("run verified", "run_id", run.ID, "valid", verdict.Valid)

	out := VerifyResult{RunID: run.ID}
	if verdict.Valid {
		out.Verdict = runstore.VerdictValid
	} else {
		out.Verdict = runstore.VerdictMismatch
		out.Code = string(verdict.Code)
		out.Message = verdict.Message
		if verdict.Step >= 0 {
			step := verdict.Step
			out.Step = &step
		}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := formatter.JSON(out); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", out.RunID, verdict.String())
	}

	if !verdict.Valid {
		return NewExitError(ExitFailure, "verification failed")
	}
	return nil
}

// resolveRun locates the run folder from --dir or a store run ID.
func resolveRun(opts *VerifyOptions, args []string) (*runstore.Run, error) {
	if opts.Dir != "" {
		run, err := runstore.OpenDir(opts.Dir)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open run folder", err)
		}
		return run, nil
	}
	if len(args) == 0 {
		return nil, NewExitError(ExitCommandError, "a run ID or --dir is required")
	}
	st, err := runstore.Open(opts.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open run store", err)
	}
	defer st.Close()
	run, err := st.OpenRun(args[0])
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "run not found", err)
	}
	return run, nil
}
