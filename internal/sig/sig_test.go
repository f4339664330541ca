package sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotientlab/groundtrace/internal/rat"
)

func TestOfPerBit(t *testing.T) {
	tests := []struct {
		elem string
		// bit values in index order: positive, integer, den<=6, num_even,
		// den_mod3, proper, num_abs<=5
		want [Bits]bool
	}{
		{"7/200", [Bits]bool{true, false, false, false, false, true, false}},
		{"0/1", [Bits]bool{false, true, true, true, false, true, true}},
		{"1/6", [Bits]bool{true, false, true, false, true, true, true}},
		{"-4/3", [Bits]bool{false, false, true, true, true, false, true}},
		{"200/1", [Bits]bool{true, true, true, true, false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.elem, func(t *testing.T) {
			r, err := rat.Parse(tt.elem)
			require.NoError(t, err)
			s := Of(r)
			for i := uint8(0); i < Bits; i++ {
				assert.Equal(t, tt.want[i], s.Bit(i),
					"bit %d (%s) of %s", i, Predicates[i].Name, tt.elem)
			}
		})
	}
}

func TestOfEqualValuesEqualSignatures(t *testing.T) {
	a, _ := rat.New(2, 4)
	b, _ := rat.New(1, 2)
	assert.Equal(t, Of(a), Of(b))
}

func TestLegendMatchesPredicateOrder(t *testing.T) {
	legend := Legend()
	assert.Equal(t, "positive", legend[0])
	assert.Equal(t, "den<=6", legend[2])
	assert.Equal(t, "num_abs<=5", legend[6])
}

func TestCheckBit(t *testing.T) {
	assert.NoError(t, CheckBit(0))
	assert.NoError(t, CheckBit(Bits-1))
	assert.Error(t, CheckBit(Bits))
	assert.Error(t, CheckBit(200))
}

func TestConstraintWithBit(t *testing.T) {
	c := Constraint{}.WithBit(2, true)
	assert.True(t, c.Matches(0b0000100))
	assert.False(t, c.Matches(0b0000000))

	// Unconstrained bits are ignored.
	assert.True(t, c.Matches(0b1111111))

	// Re-setting a bit keeps the latest value.
	c = c.WithBit(2, false)
	assert.True(t, c.Matches(0b0000000))
	assert.False(t, c.Matches(0b0000100))
}

func TestConstraintWithSignatureAnchorsTrueBits(t *testing.T) {
	r, _ := rat.Parse("7/200")
	c := Constraint{}.WithSignature(Of(r)) // positive + proper

	pos, _ := rat.Parse("1/6")
	neg, _ := rat.Parse("-1/6")
	zero, _ := rat.Parse("0/1")

	assert.True(t, c.Matches(Of(pos)))
	assert.False(t, c.Matches(Of(neg)), "negative fails the positivity facet")
	assert.False(t, c.Matches(Of(zero)), "zero fails the positivity facet")
}

func TestConstraintZeroMatchesAll(t *testing.T) {
	var c Constraint
	for s := 0; s < 1<<Bits; s++ {
		assert.True(t, c.Matches(Signature(s)))
	}
}
