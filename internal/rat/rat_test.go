package rat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReducesToLowestTerms(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		want     Rational
	}{
		{"already reduced", 7, 200, Rational{7, 200}},
		{"common factor", 4, 8, Rational{1, 2}},
		{"negative denominator", 1, -2, Rational{-1, 2}},
		{"double negative", -3, -9, Rational{1, 3}},
		{"zero numerator", 0, 17, Rational{0, 1}},
		{"integer", 200, 1, Rational{200, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.num, tt.den)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewZeroDenominator(t *testing.T) {
	_, err := New(1, 0)
	assert.Error(t, err)
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want Rational
	}{
		{"7/200", Rational{7, 200}},
		{" -1/6 ", Rational{-1, 6}},
		{"4/8", Rational{1, 2}},
		{"5", Rational{5, 1}},
		{"0/3", Rational{0, 1}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)

		// String form must parse back to the same value.
		back, err := Parse(got.String())
		require.NoError(t, err)
		assert.Equal(t, got, back)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "a/b", "1/0", "1/2/3", "1.5"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestCompareValueCrossMultiplies(t *testing.T) {
	a := MustNew(1, 3)
	b := MustNew(2, 6)
	c := MustNew(1, 2)

	assert.Equal(t, 0, a.CompareValue(b))
	assert.Equal(t, -1, a.CompareValue(c))
	assert.Equal(t, 1, c.CompareValue(a))
	assert.Equal(t, -1, MustNew(-1, 2).CompareValue(MustNew(0, 1)))
}

func TestCanonicalOrderTotal(t *testing.T) {
	// Ascending per the canonical order.
	ordered := []Rational{
		MustNew(-200, 1),
		MustNew(-1, 2),
		MustNew(0, 1),
		MustNew(1, 6),
		MustNew(1, 5),
		MustNew(1, 2),
		MustNew(200, 1),
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Equal(t, -1, ordered[i].Compare(ordered[i+1]),
			"%s < %s", ordered[i], ordered[i+1])
	}
}

func TestDistanceExact(t *testing.T) {
	target := MustNew(7, 200)
	cand := MustNew(1, 6)

	d := target.DistanceTo(cand)
	assert.Equal(t, int64(158), d.Num)
	assert.Equal(t, int64(1200), d.Den)

	// |7/200 - 0/1| = 7/200 < 158/1200 is false the other way around.
	zero := target.DistanceTo(MustNew(0, 1))
	assert.True(t, zero.Less(d))
	assert.False(t, d.Less(zero))
	assert.True(t, d.Equal(Distance{Num: 79, Den: 600}))
}

func TestCanonicalBytesFixedWidth(t *testing.T) {
	b := MustNew(-1, 6).CanonicalBytes()
	assert.Len(t, b[:], 16)
	// Big-endian int64 -1 is all 0xFF.
	for i := 0; i < 8; i++ {
		assert.Equal(t, byte(0xFF), b[i])
	}
	assert.Equal(t, byte(6), b[15])
}
