package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quotientlab/groundtrace/internal/chain"
	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/exec"
	"github.com/quotientlab/groundtrace/internal/runstore"
	"github.com/quotientlab/groundtrace/internal/trace"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Store string
}

// ExecResult is the exec command output payload.
type ExecResult struct {
	RunID     string `json:"run_id"`
	Verdict   string `json:"verdict"`
	Steps     int    `json:"steps"`
	ChainHash string `json:"chain_hash,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <trace.json>",
		Short: "Interpret a proposed trace and record the run",
		Long: `Interpret a proposed trace against the certified universe and record
the run: an append-only step log, the digest anchor, a human-readable
artifact, and a result summary.

A rejected trace still records every step completed before the failure.

Exit codes:
  0 - Trace interpreted to completion
  1 - Trace rejected (lookup miss, empty working set, bad instruction)
  2 - Command error (malformed trace file, store errors)

Examples:
  groundtrace exec trace.json
  groundtrace exec --store ./runs trace.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "runs", "run store root directory")

	return cmd
}

func runExec(opts *ExecOptions, tracePath string, cmd *cobra.Command) error {
	u, err := buildUniverse(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build universe", err)
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	t, err := trace.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode trace", err)
	}

	st, err := runstore.Open(opts.Store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open run store", err)
	}
	defer st.Close()

	run, err := st.CreateRun()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create run", err)
	}
	slog.Info("run created", "run_id", run.ID, "ops", len(t.Ops))

	res, runErr := exec.New(u).Run(t)

	if err := writeLog(run, res.Steps); err != nil {
		return WrapExitError(ExitCommandError, "failed to write trace log", err)
	}

	out := ExecResult{RunID: run.ID, Steps: len(res.Steps)}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if runErr != nil {
		out.Verdict = runstore.VerdictError
		out.Error = runErr.Error()
		if err := finishRun(st, run, out); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		code := "TRACE_REJECTED"
		var traceErr *exec.TraceError
		var step *int
		if errors.As(runErr, &traceErr) {
			code = string(traceErr.Code)
			if traceErr.Step >= 0 {
				step = &traceErr.Step
			}
		}
		if err := formatter.ErrorOut(code, runErr.Error(), step); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return NewExitError(ExitFailure, "trace rejected")
	}

	anchor, err := chain.Build(u.Config(), stepDigests(res.Steps))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build digest anchor", err)
	}
	if err := run.WriteDigests(anchor); err != nil {
		return WrapExitError(ExitCommandError, "failed to write digests", err)
	}
	if err := run.WriteArtifact(exec.Artifact(u, res)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write artifact", err)
	}

	out.Verdict = runstore.VerdictOK
	out.ChainHash = digest.Hex(anchor.Chain)
	if err := finishRun(st, run, out); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}
	slog.Info("run complete", "run_id", run.ID, "steps", len(res.Steps), "chain_hash", out.ChainHash)

	if opts.Format == "json" {
		return formatter.JSON(out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", out.RunID, out.Verdict)
	fmt.Fprintf(cmd.OutOrStdout(), "  steps:      %d\n", out.Steps)
	fmt.Fprintf(cmd.OutOrStdout(), "  chain_hash: %s\n", out.ChainHash)
	return nil
}

// writeLog flushes step records to trace.log, closing on every path.
func writeLog(run *runstore.Run, steps []exec.StepRecord) error {
	w, err := run.NewLogWriter()
	if err != nil {
		return err
	}
	for _, rec := range steps {
		line, err := rec.EncodeLine()
		if err != nil {
			w.Close()
			return err
		}
		if err := w.Append(line); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// finishRun writes result.json and indexes the run.
func finishRun(st *runstore.Store, run *runstore.Run, out ExecResult) error {
	rec := runstore.Record{RunID: out.RunID, Verdict: out.Verdict, ChainHash: out.ChainHash}
	if err := run.WriteResult(rec); err != nil {
		return err
	}
	stored, err := run.ReadResult()
	if err != nil {
		return err
	}
	return st.IndexRun(context.Background(), stored)
}

func stepDigests(steps []exec.StepRecord) [][digest.Size]byte {
	out := make([][digest.Size]byte, len(steps))
	for i, rec := range steps {
		out[i] = rec.Digest
	}
	return out
}
