package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/quotientlab/groundtrace/internal/rat"
	"github.com/quotientlab/groundtrace/internal/sig"
	"github.com/quotientlab/groundtrace/internal/trace"
)

// Scenario defines a conformance scenario: a proposed trace, the
// expected outcome, and assertions on the final working set.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ops is the instruction sequence of the proposed trace.
	Ops []OpStep `yaml:"ops"`

	// Expect specifies the expected run outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the final working set.
	// Supported types: working_contains, working_excludes, step_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// OpStep is one instruction in YAML form. Exactly the fields of the
// declared op are read; the rest stay zero.
type OpStep struct {
	Op     string         `yaml:"op"`
	Elem   string         `yaml:"elem,omitempty"`
	Bit    *uint8         `yaml:"bit,omitempty"`
	Value  *bool          `yaml:"value,omitempty"`
	Expr   map[string]any `yaml:"expr,omitempty"`
	Target string         `yaml:"target,omitempty"`
	Metric string         `yaml:"metric,omitempty"`
}

// Expect specifies the expected outcome of interpreting the trace.
type Expect struct {
	// Verdict is "OK" or "ERROR".
	Verdict string `yaml:"verdict"`

	// ErrorCode is the expected trace error code when Verdict is ERROR.
	ErrorCode string `yaml:"error_code,omitempty"`

	// Count is the expected final working-set size, when given.
	Count *int `yaml:"count,omitempty"`

	// Witness and Focus are expected elements as "a/b", when given.
	Witness string `yaml:"witness,omitempty"`
	Focus   string `yaml:"focus,omitempty"`

	// Steps is the expected number of recorded steps, when given. On an
	// ERROR verdict this counts the steps completed before the failure.
	Steps *int `yaml:"steps,omitempty"`
}

// Assertion validates the final working set.
type Assertion struct {
	Type string `yaml:"type"`
	Elem string `yaml:"elem,omitempty"`
	N    int    `yaml:"n,omitempty"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// LoadScenarioDir loads every *.yaml scenario in dir, sorted by file
// name for stable test ordering.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", dir)
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func (sc *Scenario) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(sc.Ops) == 0 {
		return fmt.Errorf("no ops")
	}
	switch sc.Expect.Verdict {
	case "OK", "ERROR":
	default:
		return fmt.Errorf("expect.verdict must be OK or ERROR, got %q", sc.Expect.Verdict)
	}
	return nil
}

// BuildTrace converts the scenario ops into a proposed trace document.
func (sc *Scenario) BuildTrace() (trace.Trace, error) {
	t := trace.Trace{
		Version:  trace.FormatVersion,
		Universe: trace.UniverseName,
		Bits:     sig.Bits,
		Ops:      make([]trace.Instruction, len(sc.Ops)),
	}
	for i, step := range sc.Ops {
		ins, err := step.instruction()
		if err != nil {
			return trace.Trace{}, fmt.Errorf("ops[%d]: %w", i, err)
		}
		t.Ops[i] = ins
	}
	return t, nil
}

func (s OpStep) instruction() (trace.Instruction, error) {
	switch s.Op {
	case "LOAD":
		elem, err := rat.Parse(s.Elem)
		if err != nil {
			return nil, err
		}
		return trace.Load{Elem: elem}, nil
	case "MASK_BIT":
		if s.Bit == nil || s.Value == nil {
			return nil, fmt.Errorf("MASK_BIT needs bit and value")
		}
		return trace.MaskBit{Bit: *s.Bit, Value: *s.Value}, nil
	case "QUERY":
		raw, err := json.Marshal(s.Expr)
		if err != nil {
			return nil, err
		}
		expr, err := sig.DecodeExpr(raw)
		if err != nil {
			return nil, err
		}
		return trace.Query{Expr: expr}, nil
	case "WITNESS_NEAREST":
		target, err := rat.Parse(s.Target)
		if err != nil {
			return nil, err
		}
		metric := s.Metric
		if metric == "" {
			metric = trace.MetricAbsDiff
		}
		return trace.WitnessNearest{Target: target, Metric: metric}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", s.Op)
	}
}
