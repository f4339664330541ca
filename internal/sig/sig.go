// Package sig defines the versioned predicate signature scheme for
// universe elements. A Signature is a fixed-width bit vector computed by
// an ordered list of pure predicates over a rational's numerator and
// denominator. The predicate list is versioned: reordering or redefining
// a predicate is a breaking change that must bump Version, and Version is
// folded into the domain digest so traces cannot silently cross schemes.
package sig

import (
	"fmt"

	"github.com/quotientlab/groundtrace/internal/rat"
)

// Bits is the signature width. Valid bit indexes are [0, Bits).
const Bits = 7

// Version identifies the predicate list below. Bump on any change to
// predicate order or definition.
const Version = 1

// Signature is a 7-bit predicate vector. Bit i is predicate i's value.
type Signature uint8

// Bit reports the value of bit i. Callers must validate i < Bits first.
func (s Signature) Bit(i uint8) bool {
	return s&(1<<i) != 0
}

// Predicate is one named pure boolean predicate over a rational.
type Predicate struct {
	Name string
	Eval func(r rat.Rational) bool
}

// Predicates is the ordered v1 predicate list. Index in this slice is the
// bit index everywhere: instructions, legends, digests.
var Predicates = [Bits]Predicate{
	{Name: "positive", Eval: func(r rat.Rational) bool { return r.Num > 0 }},
	{Name: "integer", Eval: func(r rat.Rational) bool { return r.Den == 1 }},
	{Name: "den<=6", Eval: func(r rat.Rational) bool { return r.Den <= 6 }},
	{Name: "num_even", Eval: func(r rat.Rational) bool { return r.Num%2 == 0 }},
	{Name: "den_mod3", Eval: func(r rat.Rational) bool { return r.Den%3 == 0 }},
	{Name: "proper", Eval: func(r rat.Rational) bool { return absInt64(r.Num) < r.Den }},
	{Name: "num_abs<=5", Eval: func(r rat.Rational) bool { return absInt64(r.Num) <= 5 }},
}

// Of computes the signature of r. Pure and total: every rational has a
// signature and equal values always produce equal signatures.
func Of(r rat.Rational) Signature {
	var s Signature
	for i, p := range Predicates {
		if p.Eval(r) {
			s |= 1 << i
		}
	}
	return s
}

// Legend returns the predicate names in bit order.
func Legend() [Bits]string {
	var out [Bits]string
	for i, p := range Predicates {
		out[i] = p.Name
	}
	return out
}

// RangeError reports a bit index outside the signature width.
type RangeError struct {
	Bit uint8
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("bit index %d out of range [0,%d)", e.Bit, Bits)
}

// CheckBit validates a bit index against the signature width. The error,
// when non-nil, is a *RangeError so callers can classify it apart from
// structural syntax errors.
func CheckBit(i uint8) error {
	if i >= Bits {
		return &RangeError{Bit: i}
	}
	return nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
