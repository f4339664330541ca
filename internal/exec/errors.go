package exec

import (
	"errors"
	"fmt"
)

// TraceError is an error detected while interpreting one proposed trace.
// It always means the trace is rejected, never that the tool failed: the
// universe itself is certified before any trace runs, and universe
// construction failures are a separate class (universe.ConstructionError).
type TraceError struct {
	// Code identifies the rejection category.
	Code TraceErrorCode

	// Step is the 0-based index of the offending instruction.
	Step int

	// Message is a human-readable description.
	Message string
}

// TraceErrorCode categorizes trace rejections.
type TraceErrorCode string

const (
	// ErrCodeLookup means LOAD named a value absent from the universe.
	// There is no nearest-match fallback.
	ErrCodeLookup TraceErrorCode = "ELEM_NOT_FOUND"

	// ErrCodeRange means a bit index fell outside the signature width.
	ErrCodeRange TraceErrorCode = "BIT_OUT_OF_RANGE"

	// ErrCodeSyntax means an instruction was structurally invalid:
	// bad metric, missing expression, malformed trace header.
	ErrCodeSyntax TraceErrorCode = "BAD_INSTRUCTION"

	// ErrCodeEmptySet means WITNESS_NEAREST ran against an empty
	// working set.
	ErrCodeEmptySet TraceErrorCode = "EMPTY_WORKING_SET"
)

// Error implements the error interface.
func (e *TraceError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("%s: %s (step=%d)", e.Code, e.Message, e.Step)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTraceError reports whether err is a trace rejection, as opposed to a
// system fault. Uses errors.As to handle wrapped errors.
func IsTraceError(err error) bool {
	var te *TraceError
	return errors.As(err, &te)
}

func newTraceError(code TraceErrorCode, step int, format string, args ...any) *TraceError {
	return &TraceError{Code: code, Step: step, Message: fmt.Sprintf(format, args...)}
}
