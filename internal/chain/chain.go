// Package chain builds the tamper-evident anchor of a run: the domain
// digest binding the universe parameters, and the chain hash over the
// ordered step digests. Identical trace and identical universe parameters
// must produce a byte-identical chain hash on any conforming
// implementation, so every input goes through the canonical encoding in
// the digest package.
package chain

import (
	"encoding/json"
	"fmt"

	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/universe"
)

// Anchor is the persisted digest companion of one run.
type Anchor struct {
	Domain [digest.Size]byte
	Chain  [digest.Size]byte
}

// DomainDigest hashes the universe build parameters, the certified
// constants, and the signature scheme version. Canonical JSON fixes the
// field order; integers are encoded base-10 with no padding.
func DomainDigest(cfg universe.Config) ([digest.Size]byte, error) {
	return digest.SumCanonical(digest.DomainSpace, map[string]any{
		"min_den":     cfg.MinDen,
		"max_den":     cfg.MaxDen,
		"min_num":     cfg.MinNum,
		"max_num":     cfg.MaxNum,
		"size":        cfg.Certified.Size,
		"max":         cfg.Certified.Max,
		"sig_version": cfg.SigVersion,
	})
}

// Hash computes the chain hash: SHA-256 over the domain digest followed
// by every step digest in order, each as raw 32 bytes, under the chain
// domain prefix.
func Hash(domain [digest.Size]byte, steps [][digest.Size]byte) [digest.Size]byte {
	buf := make([]byte, 0, (len(steps)+1)*digest.Size)
	buf = append(buf, domain[:]...)
	for _, s := range steps {
		buf = append(buf, s[:]...)
	}
	return digest.Sum(digest.DomainChain, buf)
}

// Build computes the full anchor for a run.
func Build(cfg universe.Config, steps [][digest.Size]byte) (Anchor, error) {
	domain, err := DomainDigest(cfg)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{Domain: domain, Chain: Hash(domain, steps)}, nil
}

type anchorJSON struct {
	DomainDigest string `json:"domain_digest"`
	ChainHash    string `json:"chain_hash"`
}

// MarshalJSON renders the anchor as the digests.json wire object.
func (a Anchor) MarshalJSON() ([]byte, error) {
	return json.Marshal(anchorJSON{
		DomainDigest: digest.Hex(a.Domain),
		ChainHash:    digest.Hex(a.Chain),
	})
}

// UnmarshalJSON parses a digests.json object, rejecting malformed or
// truncated digests.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	var j anchorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("parse digests: %w", err)
	}
	domain, err := digest.ParseHex(j.DomainDigest)
	if err != nil {
		return fmt.Errorf("parse domain digest: %w", err)
	}
	ch, err := digest.ParseHex(j.ChainHash)
	if err != nil {
		return fmt.Errorf("parse chain hash: %w", err)
	}
	a.Domain = domain
	a.Chain = ch
	return nil
}
