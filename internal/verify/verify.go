// Package verify independently replays recorded trace logs. Nothing the
// executor wrote is trusted: the universe is rebuilt (or supplied fresh),
// every instruction is re-interpreted, and every digest and the chain
// hash are recomputed from scratch and compared against the persisted
// values. A fabricated step is not "suspicious" here, it is simply a
// replay that disagrees.
package verify

import (
	"encoding/json"
	"fmt"

	"github.com/quotientlab/groundtrace/internal/chain"
	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/exec"
	"github.com/quotientlab/groundtrace/internal/sig"
	"github.com/quotientlab/groundtrace/internal/trace"
	"github.com/quotientlab/groundtrace/internal/universe"
)

// Verdict is the outcome of one verification. Exactly two shapes exist:
// Valid, or Invalid with a reason code. There is no partial validity.
type Verdict struct {
	Valid   bool
	Code    Code
	Step    int // offending step index, -1 when not step-specific
	Message string
}

// Code categorizes invalid verdicts.
type Code string

const (
	// CodeMalformed covers unreadable, empty, or gap-ridden logs.
	CodeMalformed Code = "MALFORMED_LOG"

	// CodeDomainMismatch means the recorded domain digest does not match
	// the universe parameters this verifier was configured with.
	CodeDomainMismatch Code = "DOMAIN_MISMATCH"

	// CodeStepMismatch means a recomputed step digest disagrees with the
	// recorded one.
	CodeStepMismatch Code = "STEP_DIGEST_MISMATCH"

	// CodeTraceRejected means re-interpreting the recorded instructions
	// failed where the log claims a successful step.
	CodeTraceRejected Code = "TRACE_REJECTED"

	// CodeChainMismatch means every step matched but the recorded chain
	// hash does not.
	CodeChainMismatch Code = "CHAIN_MISMATCH"
)

func (v Verdict) String() string {
	if v.Valid {
		return "VALID"
	}
	if v.Step >= 0 {
		return fmt.Sprintf("INVALID %s at step %d: %s", v.Code, v.Step, v.Message)
	}
	return fmt.Sprintf("INVALID %s: %s", v.Code, v.Message)
}

func valid() Verdict {
	return Verdict{Valid: true, Step: -1}
}

func invalid(code Code, step int, format string, args ...any) Verdict {
	return Verdict{Valid: false, Code: code, Step: step, Message: fmt.Sprintf(format, args...)}
}

// ParseLog parses raw trace-log lines into step records, enforcing the
// 0-based dense index contract. Blank lines are ignored.
func ParseLog(lines [][]byte) ([]exec.StepRecord, error) {
	var records []exec.StepRecord
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		rec, err := exec.ParseStepLine(line)
		if err != nil {
			return nil, err
		}
		if rec.Index != len(records) {
			return nil, fmt.Errorf("step index %d out of order, want %d", rec.Index, len(records))
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty trace log")
	}
	return records, nil
}

// Log parses and replays a complete persisted run: raw trace-log lines
// plus the digests.json bytes.
func Log(u *universe.Universe, lines [][]byte, anchorData []byte) Verdict {
	records, err := ParseLog(lines)
	if err != nil {
		return invalid(CodeMalformed, -1, "%v", err)
	}
	var anchor chain.Anchor
	if err := json.Unmarshal(anchorData, &anchor); err != nil {
		return invalid(CodeMalformed, -1, "%v", err)
	}
	return Replay(u, records, anchor)
}

// Replay re-interprets the recorded instruction sequence on a fresh
// executor over u and compares every recomputed digest against the
// recorded one. The first disagreement decides the verdict.
func Replay(u *universe.Universe, records []exec.StepRecord, anchor chain.Anchor) Verdict {
	if len(records) == 0 {
		return invalid(CodeMalformed, -1, "empty trace log")
	}

	domain, err := chain.DomainDigest(u.Config())
	if err != nil {
		return invalid(CodeMalformed, -1, "domain digest: %v", err)
	}
	if domain != anchor.Domain {
		return invalid(CodeDomainMismatch, -1,
			"recorded domain %s, universe parameters give %s",
			digest.Hex(anchor.Domain), digest.Hex(domain))
	}

	t := trace.Trace{
		Version:  trace.FormatVersion,
		Universe: trace.UniverseName,
		Bits:     sig.Bits,
		Ops:      make([]trace.Instruction, len(records)),
	}
	for i, rec := range records {
		t.Ops[i] = rec.Instruction
	}

	res, runErr := exec.New(u).Run(t)

	// Compare whatever replay produced, in order. A step the log records
	// but replay never reached is a fabricated step.
	for i, rec := range records {
		if i >= len(res.Steps) {
			return invalid(CodeTraceRejected, i,
				"recorded step cannot be reproduced: %v", runErr)
		}
		if res.Steps[i].Digest != rec.Digest {
			return invalid(CodeStepMismatch, i,
				"recorded %s, replay gives %s",
				digest.Hex(rec.Digest), digest.Hex(res.Steps[i].Digest))
		}
	}
	steps := make([][digest.Size]byte, len(records))
	for i := range records {
		steps[i] = res.Steps[i].Digest
	}
	if got := chain.Hash(domain, steps); got != anchor.Chain {
		return invalid(CodeChainMismatch, -1,
			"recorded chain %s, replay gives %s",
			digest.Hex(anchor.Chain), digest.Hex(got))
	}

	return valid()
}
