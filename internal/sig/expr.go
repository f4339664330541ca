package sig

import (
	"encoding/json"
	"fmt"
)

// Expr is a boolean combination over signature bits, the predicate
// language of the QUERY instruction. The variant set is closed: Bit, And,
// Or, Not. Every consumer switches exhaustively over these four, so
// adding a variant forces the executor, verifier, and codec to handle it.
type Expr interface {
	// Eval reports whether s satisfies the expression.
	Eval(s Signature) bool
	// Validate checks bit indexes and arity.
	Validate() error
	// Encode renders the expression as a plain tagged object for
	// canonical JSON digesting and log serialization.
	Encode() map[string]any

	sealed()
}

// Bit requires signature bit Index == Value.
type Bit struct {
	Index uint8
	Value bool
}

// And is satisfied when every argument is. And with no arguments is
// rejected by Validate rather than defaulting to true.
type And struct {
	Args []Expr
}

// Or is satisfied when at least one argument is.
type Or struct {
	Args []Expr
}

// Not negates its argument.
type Not struct {
	Arg Expr
}

func (Bit) sealed() {}
func (And) sealed() {}
func (Or) sealed()  {}
func (Not) sealed() {}

func (e Bit) Eval(s Signature) bool { return s.Bit(e.Index) == e.Value }

func (e And) Eval(s Signature) bool {
	for _, a := range e.Args {
		if !a.Eval(s) {
			return false
		}
	}
	return true
}

func (e Or) Eval(s Signature) bool {
	for _, a := range e.Args {
		if a.Eval(s) {
			return true
		}
	}
	return false
}

func (e Not) Eval(s Signature) bool { return !e.Arg.Eval(s) }

func (e Bit) Validate() error { return CheckBit(e.Index) }

func (e And) Validate() error { return validateArgs("and", e.Args) }

func (e Or) Validate() error { return validateArgs("or", e.Args) }

func (e Not) Validate() error {
	if e.Arg == nil {
		return fmt.Errorf("not: missing argument")
	}
	return e.Arg.Validate()
}

func validateArgs(kind string, args []Expr) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: needs at least one argument", kind)
	}
	for i, a := range args {
		if a == nil {
			return fmt.Errorf("%s[%d]: missing argument", kind, i)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
	}
	return nil
}

func (e Bit) Encode() map[string]any {
	return map[string]any{"kind": "bit", "bit": int(e.Index), "value": e.Value}
}

func (e And) Encode() map[string]any {
	return map[string]any{"kind": "and", "args": encodeArgs(e.Args)}
}

func (e Or) Encode() map[string]any {
	return map[string]any{"kind": "or", "args": encodeArgs(e.Args)}
}

func (e Not) Encode() map[string]any {
	return map[string]any{"kind": "not", "arg": e.Arg.Encode()}
}

func encodeArgs(args []Expr) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Encode()
	}
	return out
}

type exprJSON struct {
	Kind  string            `json:"kind"`
	Bit   *uint8            `json:"bit,omitempty"`
	Value *bool             `json:"value,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
	Arg   json.RawMessage   `json:"arg,omitempty"`
}

// DecodeExpr parses an untrusted tagged expression object. Unknown kinds
// and missing fields are decode errors; range errors are left to Validate
// so the two failure classes stay distinguishable.
func DecodeExpr(raw json.RawMessage) (Expr, error) {
	var j exprJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode expr: %w", err)
	}
	switch j.Kind {
	case "bit":
		if j.Bit == nil || j.Value == nil {
			return nil, fmt.Errorf("decode expr: bit needs bit and value fields")
		}
		return Bit{Index: *j.Bit, Value: *j.Value}, nil
	case "and", "or":
		args := make([]Expr, len(j.Args))
		for i, a := range j.Args {
			sub, err := DecodeExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = sub
		}
		if j.Kind == "and" {
			return And{Args: args}, nil
		}
		return Or{Args: args}, nil
	case "not":
		if len(j.Arg) == 0 {
			return nil, fmt.Errorf("decode expr: not needs arg field")
		}
		sub, err := DecodeExpr(j.Arg)
		if err != nil {
			return nil, err
		}
		return Not{Arg: sub}, nil
	default:
		return nil, fmt.Errorf("decode expr: unknown kind %q", j.Kind)
	}
}
