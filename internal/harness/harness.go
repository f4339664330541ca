// Package harness runs YAML conformance scenarios against the trace
// interpreter and compares their snapshots to golden files. Scenarios
// state the expected outcome of a proposed trace; the harness checks
// those expectations and a small set of working-set assertions.
package harness

import (
	"errors"
	"fmt"

	"github.com/quotientlab/groundtrace/internal/exec"
	"github.com/quotientlab/groundtrace/internal/universe"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when the verdict, expectations, and assertions all hold.
	Pass bool `json:"pass"`

	// Errors lists every expectation or assertion that failed.
	Errors []string `json:"errors,omitempty"`

	// Verdict is "OK" or "ERROR".
	Verdict string `json:"verdict"`

	// ErrorCode is the trace error code on an ERROR verdict.
	ErrorCode string `json:"error_code,omitempty"`

	// Steps lists the executed instructions in order.
	Steps []StepEvent `json:"steps"`

	// Final state of the run.
	Count   int      `json:"count"`
	Focus   string   `json:"focus,omitempty"`
	Witness string   `json:"witness,omitempty"`
	Working []string `json:"working"`
}

// StepEvent is one executed instruction in the result trace.
type StepEvent struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
}

// AddError records a failed expectation and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Runner executes scenarios against one universe.
type Runner struct {
	u *universe.Universe
}

// NewRunner returns a Runner over u.
func NewRunner(u *universe.Universe) *Runner {
	return &Runner{u: u}
}

// Run executes sc and checks its expectations. A failed expectation
// fails the result, not the call; the error covers scenarios that
// cannot be executed at all.
func (rn *Runner) Run(sc *Scenario) (*Result, error) {
	t, err := sc.BuildTrace()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	res := &Result{Pass: true, Steps: []StepEvent{}, Working: []string{}}
	out, runErr := exec.New(rn.u).Run(t)

	for _, rec := range out.Steps {
		res.Steps = append(res.Steps, StepEvent{Index: rec.Index, Op: rec.Instruction.Op()})
	}
	res.Count = out.Count
	if out.Focus != nil {
		res.Focus = out.Focus.String()
	}
	if out.Witness != nil {
		res.Witness = out.Witness.String()
	}
	for _, r := range out.Working {
		res.Working = append(res.Working, r.String())
	}

	if runErr != nil {
		res.Verdict = "ERROR"
		var traceErr *exec.TraceError
		if errors.As(runErr, &traceErr) {
			res.ErrorCode = string(traceErr.Code)
		}
	} else {
		res.Verdict = "OK"
	}

	rn.checkExpect(sc, res)
	rn.checkAssertions(sc, res)
	return res, nil
}

func (rn *Runner) checkExpect(sc *Scenario, res *Result) {
	exp := sc.Expect
	if res.Verdict != exp.Verdict {
		res.AddError("verdict = %s, want %s", res.Verdict, exp.Verdict)
	}
	if exp.ErrorCode != "" && res.ErrorCode != exp.ErrorCode {
		res.AddError("error_code = %s, want %s", res.ErrorCode, exp.ErrorCode)
	}
	if exp.Count != nil && res.Count != *exp.Count {
		res.AddError("count = %d, want %d", res.Count, *exp.Count)
	}
	if exp.Witness != "" && res.Witness != exp.Witness {
		res.AddError("witness = %s, want %s", res.Witness, exp.Witness)
	}
	if exp.Focus != "" && res.Focus != exp.Focus {
		res.AddError("focus = %s, want %s", res.Focus, exp.Focus)
	}
	if exp.Steps != nil && len(res.Steps) != *exp.Steps {
		res.AddError("steps = %d, want %d", len(res.Steps), *exp.Steps)
	}
}

func (rn *Runner) checkAssertions(sc *Scenario, res *Result) {
	for i, a := range sc.Assertions {
		switch a.Type {
		case "working_contains":
			if !containsElem(res.Working, a.Elem) {
				res.AddError("assertion %d: working set does not contain %s", i, a.Elem)
			}
		case "working_excludes":
			if containsElem(res.Working, a.Elem) {
				res.AddError("assertion %d: working set contains %s", i, a.Elem)
			}
		case "step_count":
			if len(res.Steps) != a.N {
				res.AddError("assertion %d: step count = %d, want %d", i, len(res.Steps), a.N)
			}
		default:
			res.AddError("assertion %d: unknown type %q", i, a.Type)
		}
	}
}

func containsElem(working []string, elem string) bool {
	for _, w := range working {
		if w == elem {
			return true
		}
	}
	return false
}
