// Package rat implements exact rational arithmetic for the certified
// universe. Every Rational is kept in lowest terms with a positive
// denominator, and all comparisons are done by cross-multiplication so
// no floating point ever enters the trust path.
package rat

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Rational is an exact fraction in lowest terms.
// Invariant: Den > 0 and gcd(|Num|, Den) == 1.
type Rational struct {
	Num int64
	Den int64
}

// New reduces num/den to lowest terms with a positive denominator.
// Returns an error if den is zero.
func New(num, den int64) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	return Rational{Num: num / g, Den: den / g}, nil
}

// MustNew is New for statically known values; panics on a zero denominator.
func MustNew(num, den int64) Rational {
	r, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse reads "a/b" (or a bare integer "a") into a reduced Rational.
func Parse(s string) (Rational, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return Rational{}, fmt.Errorf("rational: empty string")
	}
	parts := strings.Split(t, "/")
	switch len(parts) {
	case 1:
		num, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("rational: parse %q: %w", s, err)
		}
		return Rational{Num: num, Den: 1}, nil
	case 2:
		num, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("rational: parse %q: %w", s, err)
		}
		den, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("rational: parse %q: %w", s, err)
		}
		return New(num, den)
	default:
		return Rational{}, fmt.Errorf("rational: parse %q: want a/b", s)
	}
}

// String renders the fraction as "a/b", denominator included even when 1,
// so the textual form round-trips through Parse unchanged.
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// CompareValue orders two rationals by exact numeric value via
// cross-multiplication. Returns -1, 0, or +1.
func (r Rational) CompareValue(o Rational) int {
	lhs := r.Num * o.Den
	rhs := o.Num * r.Den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Compare applies the canonical total order used for universe ordering,
// Merkle leaves, and witness tie-breaking:
//  1. exact numeric value
//  2. |numerator| ascending
//  3. denominator ascending
//  4. signed numerator (negative before positive)
func (r Rational) Compare(o Rational) int {
	if c := r.CompareValue(o); c != 0 {
		return c
	}
	if c := cmpInt64(abs(r.Num), abs(o.Num)); c != 0 {
		return c
	}
	if c := cmpInt64(r.Den, o.Den); c != 0 {
		return c
	}
	return cmpInt64(r.Num, o.Num)
}

// Distance is the exact absolute difference |r - o| expressed as an
// unreduced (numerator, denominator) pair: (|r.Num*o.Den - o.Num*r.Den|,
// r.Den*o.Den). Kept unreduced because callers only ever compare distances.
type Distance struct {
	Num int64
	Den int64
}

// DistanceTo computes the exact absolute difference to o.
func (r Rational) DistanceTo(o Rational) Distance {
	return Distance{
		Num: abs(r.Num*o.Den - o.Num*r.Den),
		Den: r.Den * o.Den,
	}
}

// Less compares two distances exactly via cross-multiplication.
func (d Distance) Less(o Distance) bool {
	return d.Num*o.Den < o.Num*d.Den
}

// Equal reports whether two distances denote the same exact value.
func (d Distance) Equal(o Distance) bool {
	return d.Num*o.Den == o.Num*d.Den
}

// CanonicalBytes is the fixed 16-byte encoding used for hashing:
// int64 numerator then int64 denominator, both big-endian.
func (r Rational) CanonicalBytes() [16]byte {
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], uint64(r.Num))
	binary.BigEndian.PutUint64(out[8:16], uint64(r.Den))
	return out
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
