package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotientlab/groundtrace/internal/rat"
	"github.com/quotientlab/groundtrace/internal/sig"
)

// buildDefault builds the full certified universe once per test binary.
var defaultUniverse *Universe

func mustDefault(t *testing.T) *Universe {
	t.Helper()
	if defaultUniverse == nil {
		u, err := Build(Default())
		require.NoError(t, err)
		defaultUniverse = u
	}
	return defaultUniverse
}

func TestBuildCertifiedConstants(t *testing.T) {
	u := mustDefault(t)

	assert.Equal(t, 48927, u.Len())
	assert.Equal(t, rat.MustNew(200, 1), u.Max())

	classes := u.Partition()
	assert.Len(t, classes, 55)
}

func TestBuildDeterministicAcrossRebuilds(t *testing.T) {
	u1 := mustDefault(t)
	u2, err := Build(Default())
	require.NoError(t, err)

	require.Equal(t, u1.Len(), u2.Len())
	for i := 0; i < u1.Len(); i++ {
		if u1.At(i) != u2.At(i) {
			t.Fatalf("rebuild diverged at index %d: %s vs %s", i, u1.At(i), u2.At(i))
		}
	}
}

func TestBuildNoDuplicatesAndSorted(t *testing.T) {
	u := mustDefault(t)
	for i := 1; i < u.Len(); i++ {
		c := u.At(i - 1).Compare(u.At(i))
		require.Equal(t, -1, c, "order violated at %d: %s vs %s", i, u.At(i-1), u.At(i))
	}
}

func TestBuildCertificationMismatchFatal(t *testing.T) {
	cfg := Default()
	cfg.Certified.Size = 48926

	_, err := Build(cfg)
	require.Error(t, err)
	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "size", ce.Field)

	cfg = Default()
	cfg.Certified.Classes = 54
	_, err = Build(cfg)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "classes", ce.Field)

	cfg = Default()
	cfg.Certified.Max = "199/1"
	_, err = Build(cfg)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "max", ce.Field)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min_den", func(c *Config) { c.MinDen = 0 }},
		{"den bounds inverted", func(c *Config) { c.MaxDen = 0 }},
		{"num bounds inverted", func(c *Config) { c.MinNum = 201 }},
		{"wrong sig version", func(c *Config) { c.SigVersion = 99 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLookupExactOnly(t *testing.T) {
	u := mustDefault(t)

	i, ok := u.Lookup(rat.MustNew(7, 200))
	require.True(t, ok)
	assert.Equal(t, rat.MustNew(7, 200), u.At(i))

	// 1/400 reduces to itself and is outside the denominator bound.
	_, ok = u.Lookup(rat.MustNew(1, 400))
	assert.False(t, ok)

	// 2/400 reduces to 1/200, which is present.
	_, ok = u.Lookup(rat.MustNew(2, 400))
	assert.True(t, ok)
}

func TestPartitionIsExact(t *testing.T) {
	u := mustDefault(t)
	classes := u.Partition()

	total := 0
	for s, members := range classes {
		total += len(members)
		for _, r := range members {
			require.Equal(t, s, sig.Of(r), "element %s misfiled", r)
		}
	}
	assert.Equal(t, u.Len(), total, "classes must cover the universe exactly")
}

func TestSelectCanonicalOrder(t *testing.T) {
	u := mustDefault(t)
	c := sig.Constraint{}.WithBit(2, true) // den<=6

	got := u.Select(c.Matches)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		require.Equal(t, -1, got[i-1].Compare(got[i]))
	}
	for _, r := range got {
		require.LessOrEqual(t, r.Den, int64(6))
	}
}
