package exec

import (
	"encoding/json"
	"fmt"

	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/trace"
)

// stepLine is the wire form of one trace-log record.
type stepLine struct {
	Index       int             `json:"index"`
	Instruction json.RawMessage `json:"instruction"`
	Digest      string          `json:"digest"`
}

// EncodeLine renders the record as one JSON log line (without trailing
// newline). Log lines are read back by the verifier; the digest inside is
// the one recomputed and compared during replay.
func (r StepRecord) EncodeLine() ([]byte, error) {
	ins, err := json.Marshal(r.Instruction.Encode())
	if err != nil {
		return nil, fmt.Errorf("encode step %d: %w", r.Index, err)
	}
	return json.Marshal(stepLine{
		Index:       r.Index,
		Instruction: ins,
		Digest:      digest.Hex(r.Digest),
	})
}

// ParseStepLine parses one trace-log line back into a StepRecord. Any
// structural defect is an error; the verifier reports it as a malformed
// log rather than a digest mismatch.
func ParseStepLine(line []byte) (StepRecord, error) {
	var j stepLine
	if err := json.Unmarshal(line, &j); err != nil {
		return StepRecord{}, fmt.Errorf("parse step line: %w", err)
	}
	if len(j.Instruction) == 0 {
		return StepRecord{}, fmt.Errorf("parse step line %d: missing instruction", j.Index)
	}
	ins, err := trace.DecodeInstruction(j.Instruction)
	if err != nil {
		return StepRecord{}, fmt.Errorf("parse step line %d: %w", j.Index, err)
	}
	d, err := digest.ParseHex(j.Digest)
	if err != nil {
		return StepRecord{}, fmt.Errorf("parse step line %d: bad digest: %w", j.Index, err)
	}
	return StepRecord{Index: j.Index, Instruction: ins, Digest: d}, nil
}
