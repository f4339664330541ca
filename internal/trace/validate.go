package trace

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

type compiledSchema struct {
	ctx *cue.Context
	def cue.Value
}

// The schema is compiled once per process; cue.Context values are safe
// for concurrent use, so validation can run from many goroutines.
var loadSchema = sync.OnceValues(func() (*compiledSchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile trace schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Trace"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("trace schema missing #Trace: %w", err)
	}
	return &compiledSchema{ctx: ctx, def: def}, nil
})

// ValidateSchema checks a raw proposer document against the embedded CUE
// schema. A schema failure is a trace-level syntax error: the document is
// rejected without examining any individual instruction.
func ValidateSchema(data []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}
	expr, err := cuejson.Extract("trace.json", data)
	if err != nil {
		return fmt.Errorf("trace is not valid JSON: %w", err)
	}
	doc := sch.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("trace document: %w", err)
	}
	unified := sch.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fmt.Errorf("trace schema: %w", err)
	}
	return nil
}
