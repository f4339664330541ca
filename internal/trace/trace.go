// Package trace defines the proposer-facing trace document and the closed
// instruction variant set executed against the universe. Proposed traces
// are untrusted structured input: they are schema-checked, decoded into
// typed instructions, and validated — never interpreted as natural
// language.
package trace

import (
	"encoding/json"
	"fmt"

	"github.com/quotientlab/groundtrace/internal/rat"
	"github.com/quotientlab/groundtrace/internal/sig"
)

// FormatVersion is the trace document version this package reads and
// writes.
const FormatVersion = "1"

// UniverseName names the only universe traces may address.
const UniverseName = "QE"

// Trace is one proposed instruction sequence.
type Trace struct {
	Version  string
	Universe string
	Bits     uint8
	Ops      []Instruction
}

// Instruction is one member of the closed trace instruction set:
// Load, MaskBit, Query, WitnessNearest. Every consumer (executor,
// verifier, codec) switches exhaustively over these variants.
type Instruction interface {
	// Op returns the wire tag.
	Op() string
	// Validate performs input checks that need no universe: bit ranges
	// and expression arity. Universe membership is an execution concern.
	Validate() error
	// Encode renders the instruction as the tagged object used both in
	// trace logs and in step digests.
	Encode() map[string]any

	instruction()
}

// Load sets the focus to the universe element exactly equal to Elem.
type Load struct {
	Elem rat.Rational
}

// MaskBit narrows the working set to elements whose signature bit
// Bit equals Value.
type MaskBit struct {
	Bit   uint8
	Value bool
}

// Query narrows the working set by a boolean combination over
// signature bits.
type Query struct {
	Expr sig.Expr
}

// WitnessNearest selects the working-set element nearest to Target under
// the exact absolute-difference metric.
type WitnessNearest struct {
	Target rat.Rational
	Metric string
}

// MetricAbsDiff is the only supported witness metric.
const MetricAbsDiff = "ABS_DIFF"

func (Load) instruction()           {}
func (MaskBit) instruction()        {}
func (Query) instruction()          {}
func (WitnessNearest) instruction() {}

func (Load) Op() string           { return "LOAD" }
func (MaskBit) Op() string        { return "MASK_BIT" }
func (Query) Op() string          { return "QUERY" }
func (WitnessNearest) Op() string { return "WITNESS_NEAREST" }

func (i Load) Validate() error { return nil }

func (i MaskBit) Validate() error { return sig.CheckBit(i.Bit) }

func (i Query) Validate() error {
	if i.Expr == nil {
		return fmt.Errorf("QUERY: missing expr")
	}
	return i.Expr.Validate()
}

func (i WitnessNearest) Validate() error {
	if i.Metric != MetricAbsDiff {
		return fmt.Errorf("WITNESS_NEAREST: unsupported metric %q", i.Metric)
	}
	return nil
}

func (i Load) Encode() map[string]any {
	return map[string]any{"op": i.Op(), "elem": i.Elem.String()}
}

func (i MaskBit) Encode() map[string]any {
	return map[string]any{"op": i.Op(), "bit": int(i.Bit), "value": i.Value}
}

func (i Query) Encode() map[string]any {
	return map[string]any{"op": i.Op(), "expr": i.Expr.Encode()}
}

func (i WitnessNearest) Encode() map[string]any {
	return map[string]any{"op": i.Op(), "target": i.Target.String(), "metric": i.Metric}
}

type instructionJSON struct {
	Op     string          `json:"op"`
	Elem   string          `json:"elem,omitempty"`
	Bit    *uint8          `json:"bit,omitempty"`
	Value  *bool           `json:"value,omitempty"`
	Expr   json.RawMessage `json:"expr,omitempty"`
	Target string          `json:"target,omitempty"`
	Metric string          `json:"metric,omitempty"`
}

// DecodeInstruction parses one tagged instruction object. Malformed
// fields and unknown tags are decode errors; range and metric checks live
// in Validate.
func DecodeInstruction(raw json.RawMessage) (Instruction, error) {
	var j instructionJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode instruction: %w", err)
	}
	switch j.Op {
	case "LOAD":
		elem, err := rat.Parse(j.Elem)
		if err != nil {
			return nil, fmt.Errorf("decode LOAD: %w", err)
		}
		return Load{Elem: elem}, nil
	case "MASK_BIT":
		if j.Bit == nil || j.Value == nil {
			return nil, fmt.Errorf("decode MASK_BIT: needs bit and value fields")
		}
		return MaskBit{Bit: *j.Bit, Value: *j.Value}, nil
	case "QUERY":
		if len(j.Expr) == 0 {
			return nil, fmt.Errorf("decode QUERY: needs expr field")
		}
		expr, err := sig.DecodeExpr(j.Expr)
		if err != nil {
			return nil, fmt.Errorf("decode QUERY: %w", err)
		}
		return Query{Expr: expr}, nil
	case "WITNESS_NEAREST":
		target, err := rat.Parse(j.Target)
		if err != nil {
			return nil, fmt.Errorf("decode WITNESS_NEAREST: %w", err)
		}
		return WitnessNearest{Target: target, Metric: j.Metric}, nil
	default:
		return nil, fmt.Errorf("decode instruction: unknown op %q", j.Op)
	}
}

type traceJSON struct {
	Version  string            `json:"version"`
	Universe string            `json:"universe"`
	Bits     uint8             `json:"bits"`
	Ops      []json.RawMessage `json:"ops"`
}

// Decode schema-checks and parses a proposed trace document. The CUE
// schema rejects structurally invalid documents before any field is
// interpreted; the typed decode below can then assume shape.
func Decode(data []byte) (Trace, error) {
	if err := ValidateSchema(data); err != nil {
		return Trace{}, err
	}
	var j traceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return Trace{}, fmt.Errorf("decode trace: %w", err)
	}
	t := Trace{
		Version:  j.Version,
		Universe: j.Universe,
		Bits:     j.Bits,
		Ops:      make([]Instruction, len(j.Ops)),
	}
	for i, raw := range j.Ops {
		ins, err := DecodeInstruction(raw)
		if err != nil {
			return Trace{}, fmt.Errorf("ops[%d]: %w", i, err)
		}
		t.Ops[i] = ins
	}
	return t, nil
}

// Encode renders the trace back into its wire document.
func (t Trace) Encode() ([]byte, error) {
	ops := make([]any, len(t.Ops))
	for i, ins := range t.Ops {
		ops[i] = ins.Encode()
	}
	return json.MarshalIndent(map[string]any{
		"version":  t.Version,
		"universe": t.Universe,
		"bits":     int(t.Bits),
		"ops":      ops,
	}, "", "  ")
}

// Demo returns the fixed demonstration trace: start at 7/200, require
// the den<=6 facet, and pick the nearest witness to 7/200.
func Demo() Trace {
	return Trace{
		Version:  FormatVersion,
		Universe: UniverseName,
		Bits:     sig.Bits,
		Ops: []Instruction{
			Load{Elem: rat.MustNew(7, 200)},
			MaskBit{Bit: 2, Value: true},
			WitnessNearest{Target: rat.MustNew(7, 200), Metric: MetricAbsDiff},
		},
	}
}
