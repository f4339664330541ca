package digest

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDomainSeparation(t *testing.T) {
	data := []byte("payload")

	a := Sum(DomainStep, data)
	b := Sum(DomainChain, data)
	assert.NotEqual(t, a, b, "same payload under different domains must differ")

	// Same domain and payload is stable.
	assert.Equal(t, a, Sum(DomainStep, data))

	// Moving bytes across the separator must change the hash.
	c := Sum(DomainStep+"p", []byte("ayload"))
	assert.NotEqual(t, a, c)
}

func TestMerkleRootEmpty(t *testing.T) {
	assert.Equal(t, sha256.Sum256(nil), MerkleRoot(nil))
	assert.Equal(t, EmptyRoot(), MerkleRoot([][Size]byte{}))
}

func TestMerkleRootSingleLeaf(t *testing.T) {
	leaf := sha256.Sum256([]byte("leaf"))
	assert.Equal(t, leaf, MerkleRoot([][Size]byte{leaf}))
}

func TestMerkleRootOddLeavesDuplicateLast(t *testing.T) {
	l0 := sha256.Sum256([]byte("a"))
	l1 := sha256.Sum256([]byte("b"))
	l2 := sha256.Sum256([]byte("c"))

	pair := func(a, b [Size]byte) [Size]byte {
		var buf [2 * Size]byte
		copy(buf[:Size], a[:])
		copy(buf[Size:], b[:])
		return sha256.Sum256(buf[:])
	}

	want := pair(pair(l0, l1), pair(l2, l2))
	assert.Equal(t, want, MerkleRoot([][Size]byte{l0, l1, l2}))
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	l0 := sha256.Sum256([]byte("a"))
	l1 := sha256.Sum256([]byte("b"))
	assert.NotEqual(t,
		MerkleRoot([][Size]byte{l0, l1}),
		MerkleRoot([][Size]byte{l1, l0}))
}

func TestHexRoundTrip(t *testing.T) {
	d := Sum(DomainElem, []byte("x"))
	s := Hex(d)
	assert.Len(t, s, 64)

	back, err := ParseHex(s)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestParseHexRejectsBadInput(t *testing.T) {
	_, err := ParseHex("zz")
	assert.Error(t, err)
	_, err = ParseHex("abcd")
	assert.Error(t, err, "wrong length")
}
