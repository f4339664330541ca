// Package digest provides the hashing primitives shared by the executor,
// the digest chain, and the verifier: domain-separated SHA-256, RFC 8785
// canonical JSON, and Merkle roots over 32-byte leaves.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed hashing. The version suffix allows
// future algorithm migration without colliding with v1 digests.
const (
	DomainElem  = "groundtrace/elem/v1"
	DomainStep  = "groundtrace/step/v1"
	DomainSpace = "groundtrace/domain/v1"
	DomainChain = "groundtrace/chain/v1"
)

// Size is the digest width in bytes.
const Size = sha256.Size

// Sum computes SHA256(domain + 0x00 + data). The null separator removes
// any ambiguity between domain and payload bytes.
func Sum(domain string, data []byte) [Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SumCanonical marshals v to canonical JSON and hashes it under domain.
func SumCanonical(domain string, v any) ([Size]byte, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return [Size]byte{}, err
	}
	return Sum(domain, data), nil
}

// EmptyRoot is the defined Merkle root of zero leaves: SHA-256 of the
// empty string, with no domain prefix. Fixed so an empty working set still
// has a well-defined digest.
func EmptyRoot() [Size]byte {
	return sha256.Sum256(nil)
}

// MerkleRoot folds leaves (already 32-byte hashes) into a single root.
// Odd levels duplicate the last node. Zero leaves yield EmptyRoot.
func MerkleRoot(leaves [][Size]byte) [Size]byte {
	if len(leaves) == 0 {
		return EmptyRoot()
	}
	level := make([][Size]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		var buf [2 * Size]byte
		next := make([][Size]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			copy(buf[:Size], left[:])
			copy(buf[Size:], right[:])
			next = append(next, sha256.Sum256(buf[:]))
		}
		level = next
	}
	return level[0]
}

// Hex encodes a digest as lowercase hex, the wire form used throughout
// trace logs and digest files.
func Hex(d [Size]byte) string {
	return hex.EncodeToString(d[:])
}

// ParseHex decodes a lowercase-hex digest. Length and alphabet errors are
// returned as-is for the verifier to classify as malformed input.
func ParseHex(s string) ([Size]byte, error) {
	var out [Size]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != Size {
		return out, hex.ErrLength
	}
	copy(out[:], b)
	return out, nil
}
