// Package exec interprets proposed traces against an immutable universe.
// Each instruction consumes the prior execution state and produces exactly
// one new state and one digested step record; the interpreter itself
// performs no I/O, so any number of runs may execute concurrently against
// the same universe.
package exec

import (
	"errors"

	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/rat"
	"github.com/quotientlab/groundtrace/internal/sig"
	"github.com/quotientlab/groundtrace/internal/trace"
	"github.com/quotientlab/groundtrace/internal/universe"
)

// StepRecord is the immutable per-instruction output: the instruction as
// executed and the digest of the state it produced.
type StepRecord struct {
	Index       int
	Instruction trace.Instruction
	Digest      [digest.Size]byte
}

// Result is the outcome of one interpretation run. On a trace rejection
// the Result still carries every step completed before the failure, so
// the partial log can be flushed rather than dropped.
type Result struct {
	Steps   []StepRecord
	Count   int
	Focus   *rat.Rational
	Witness *rat.Rational
	Working []rat.Rational
}

// Executor runs traces against one universe. Stateless between runs and
// safe for concurrent use: each Run owns its execution state exclusively.
type Executor struct {
	u *universe.Universe
}

// New returns an Executor over u.
func New(u *universe.Universe) *Executor {
	return &Executor{u: u}
}

// state is the working state of one run, never shared.
type state struct {
	working    []rat.Rational
	focus      *rat.Rational
	witness    *rat.Rational
	constraint sig.Constraint
	exprs      []sig.Expr
}

// Run interprets t and returns the ordered step records. The returned
// error, when non-nil, is a *TraceError; the Result still holds the steps
// digested before the rejection.
func (e *Executor) Run(t trace.Trace) (Result, error) {
	var res Result

	if t.Universe != trace.UniverseName {
		return res, newTraceError(ErrCodeSyntax, -1, "unknown universe %q", t.Universe)
	}
	if t.Bits != sig.Bits {
		return res, newTraceError(ErrCodeSyntax, -1, "trace declares %d signature bits, universe has %d", t.Bits, sig.Bits)
	}
	if len(t.Ops) == 0 {
		return res, newTraceError(ErrCodeSyntax, -1, "empty trace")
	}

	var st state
	for i, ins := range t.Ops {
		if err := e.step(&st, i, ins); err != nil {
			e.snapshot(&res, st)
			return res, err
		}
		d, err := e.stateDigest(i, ins, st)
		if err != nil {
			// Digesting is total over executor-produced state; a failure
			// here is a programming error, not a trace rejection.
			e.snapshot(&res, st)
			return res, err
		}
		res.Steps = append(res.Steps, StepRecord{Index: i, Instruction: ins, Digest: d})
	}

	e.snapshot(&res, st)
	return res, nil
}

// step applies one instruction to st in place.
func (e *Executor) step(st *state, idx int, ins trace.Instruction) error {
	if err := e.checkInstruction(idx, ins); err != nil {
		return err
	}

	switch op := ins.(type) {
	case trace.Load:
		i, ok := e.u.Lookup(op.Elem)
		if !ok {
			return newTraceError(ErrCodeLookup, idx, "element %s not in universe", op.Elem)
		}
		elem := e.u.At(i)
		st.focus = &elem
		st.witness = nil
		st.exprs = nil
		// Narrowing is anchored at the focus: the facets the focus
		// exhibits stay required for the rest of the trace.
		st.constraint = sig.Constraint{}.WithSignature(e.u.SignatureAt(i))
		st.working = []rat.Rational{elem}

	case trace.MaskBit:
		st.constraint = st.constraint.WithBit(op.Bit, op.Value)
		st.working = e.narrow(st)

	case trace.Query:
		st.exprs = append(st.exprs, op.Expr)
		st.working = e.narrow(st)

	case trace.WitnessNearest:
		if len(st.working) == 0 {
			return newTraceError(ErrCodeEmptySet, idx, "witness over empty working set")
		}
		w := nearest(st.working, op.Target)
		st.witness = &w

	default:
		return newTraceError(ErrCodeSyntax, idx, "unhandled instruction %q", ins.Op())
	}
	return nil
}

// checkInstruction classifies static instruction validation failures.
func (e *Executor) checkInstruction(idx int, ins trace.Instruction) error {
	err := ins.Validate()
	if err == nil {
		return nil
	}
	var re *sig.RangeError
	if errors.As(err, &re) {
		return newTraceError(ErrCodeRange, idx, "%v", err)
	}
	return newTraceError(ErrCodeSyntax, idx, "%v", err)
}

// narrow recomputes the working set from the universe under every
// accumulated constraint. Cost is linear in universe size; an empty
// result is a legal state.
func (e *Executor) narrow(st *state) []rat.Rational {
	return e.u.Select(func(s sig.Signature) bool {
		if !st.constraint.Matches(s) {
			return false
		}
		for _, ex := range st.exprs {
			if !ex.Eval(s) {
				return false
			}
		}
		return true
	})
}

// nearest returns the working-set element minimizing the exact absolute
// difference to target. Ties break to the smaller denominator, then the
// smaller signed numerator; distinct reduced fractions never agree on
// both, so the winner is unique.
func nearest(working []rat.Rational, target rat.Rational) rat.Rational {
	best := working[0]
	bestDist := target.DistanceTo(best)
	for _, cand := range working[1:] {
		d := target.DistanceTo(cand)
		switch {
		case d.Less(bestDist):
			best, bestDist = cand, d
		case d.Equal(bestDist):
			if cand.Den < best.Den || (cand.Den == best.Den && cand.Num < best.Num) {
				best, bestDist = cand, d
			}
		}
	}
	return best
}

// stateDigest hashes the canonical summary of the state after one
// instruction. Field order and encodings are fixed by canonical JSON;
// optional fields are omitted when absent.
func (e *Executor) stateDigest(idx int, ins trace.Instruction, st state) ([digest.Size]byte, error) {
	summary := map[string]any{
		"index":       idx,
		"instruction": ins.Encode(),
		"count":       len(st.working),
		"set":         digest.Hex(setDigest(st.working)),
	}
	if st.focus != nil {
		summary["focus"] = st.focus.String()
	}
	if st.witness != nil {
		summary["witness"] = st.witness.String()
	}
	return digest.SumCanonical(digest.DomainStep, summary)
}

// setDigest is the Merkle root over the working set's element leaves in
// canonical order.
func setDigest(working []rat.Rational) [digest.Size]byte {
	leaves := make([][digest.Size]byte, len(working))
	for i, r := range working {
		b := r.CanonicalBytes()
		leaves[i] = digest.Sum(digest.DomainElem, b[:])
	}
	return digest.MerkleRoot(leaves)
}

func (e *Executor) snapshot(res *Result, st state) {
	res.Count = len(st.working)
	res.Focus = st.focus
	res.Witness = st.witness
	res.Working = st.working
}
