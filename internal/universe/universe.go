// Package universe deterministically enumerates the certified set of
// reduced rationals (QE) and indexes it by exact value and by signature.
// The enumeration order is part of the wire contract: independent rebuilds
// from the same Config must be element-for-element identical, because
// every digest downstream depends on indexable, order-stable state.
package universe

import (
	"fmt"
	"slices"

	"github.com/quotientlab/groundtrace/internal/rat"
	"github.com/quotientlab/groundtrace/internal/sig"
)

// ConstructionError means the built universe failed its certification
// check. This is fatal: it signals that the enumeration rule or predicate
// list silently changed, and no trace may execute against an uncertified
// universe.
type ConstructionError struct {
	Field string
	Got   string
	Want  string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("universe certification failed: %s = %s, certified %s",
		e.Field, e.Got, e.Want)
}

// Universe is the immutable enumerated set. Built once, then shared
// read-only across any number of concurrent executor and verifier runs.
type Universe struct {
	cfg   Config
	elems []rat.Rational
	sigs  []sig.Signature
	index map[rat.Rational]int
}

// Build enumerates every reduced fraction a/b with b in [MinDen,MaxDen]
// and a in [MinNum,MaxNum], deduplicates, sorts by the canonical total
// order, and certifies size, maximum, and realized class count against
// cfg.Certified. Any mismatch returns a *ConstructionError.
func Build(cfg Config) (*Universe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[rat.Rational]struct{})
	elems := make([]rat.Rational, 0, cfg.Certified.Size)
	for den := cfg.MinDen; den <= cfg.MaxDen; den++ {
		for num := cfg.MinNum; num <= cfg.MaxNum; num++ {
			r, err := rat.New(num, den)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			elems = append(elems, r)
		}
	}
	slices.SortFunc(elems, rat.Rational.Compare)

	u := &Universe{
		cfg:   cfg,
		elems: elems,
		sigs:  make([]sig.Signature, len(elems)),
		index: make(map[rat.Rational]int, len(elems)),
	}
	classes := make(map[sig.Signature]struct{})
	for i, r := range elems {
		s := sig.Of(r)
		u.sigs[i] = s
		u.index[r] = i
		classes[s] = struct{}{}
	}

	if len(elems) != cfg.Certified.Size {
		return nil, &ConstructionError{
			Field: "size",
			Got:   fmt.Sprintf("%d", len(elems)),
			Want:  fmt.Sprintf("%d", cfg.Certified.Size),
		}
	}
	max := elems[len(elems)-1]
	if max.String() != cfg.Certified.Max {
		return nil, &ConstructionError{
			Field: "max",
			Got:   max.String(),
			Want:  cfg.Certified.Max,
		}
	}
	if len(classes) != cfg.Certified.Classes {
		return nil, &ConstructionError{
			Field: "classes",
			Got:   fmt.Sprintf("%d", len(classes)),
			Want:  fmt.Sprintf("%d", cfg.Certified.Classes),
		}
	}

	return u, nil
}

// Config returns the configuration the universe was built from.
func (u *Universe) Config() Config { return u.cfg }

// Len is the certified element count.
func (u *Universe) Len() int { return len(u.elems) }

// At returns the element at canonical position i.
func (u *Universe) At(i int) rat.Rational { return u.elems[i] }

// Max is the largest element in the universe.
func (u *Universe) Max() rat.Rational { return u.elems[len(u.elems)-1] }

// Lookup finds the canonical position of an exact value. There is no
// nearest-match fallback: absent means absent.
func (u *Universe) Lookup(r rat.Rational) (int, bool) {
	i, ok := u.index[r]
	return i, ok
}

// SignatureAt returns the precomputed signature of the element at i.
func (u *Universe) SignatureAt(i int) sig.Signature { return u.sigs[i] }

// Select returns the elements whose signature satisfies keep, in
// canonical order. The returned slice is owned by the caller.
func (u *Universe) Select(keep func(sig.Signature) bool) []rat.Rational {
	var out []rat.Rational
	for i, r := range u.elems {
		if keep(u.sigs[i]) {
			out = append(out, r)
		}
	}
	return out
}

// Partition groups the universe by signature. Classes are exact: every
// element lands in the class of its own signature and nowhere else, so
// the classes are pairwise disjoint and cover the universe.
func (u *Universe) Partition() map[sig.Signature][]rat.Rational {
	out := make(map[sig.Signature][]rat.Rational)
	for i, r := range u.elems {
		out[u.sigs[i]] = append(out[u.sigs[i]], r)
	}
	return out
}
