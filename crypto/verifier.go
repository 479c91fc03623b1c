// Package crypto is the concrete cryptographic collaborator spec.md
// §1 places out of scope as a fixed external interface: authority
// signature verification for slot claims, header seals, and GRANDPA
// pre-commits. No VRF or Schnorr (sr25519) library appears anywhere
// in the reference corpus; secp256k1/ecdsa
// (github.com/decred/dcrd/dcrec/secp256k1/v4) is the one signature
// primitive it offers, so it stands in for BABE's VRF and Substrate's
// sr25519 stack: a slot claim becomes an ECDSA signature over the
// epoch randomness, with a bit of its digest selecting primary vs.
// secondary, in place of a VRF output threshold.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/types"
)

// KeyRegistry resolves an authority index to its public key.
type KeyRegistry struct {
	keys map[uint32]*secp256k1.PublicKey
}

// NewKeyRegistry parses a set of compressed secp256k1 public keys,
// indexed by authority index (as they appear in a digest.AuthoritySet).
func NewKeyRegistry(compressed map[uint32][]byte) (*KeyRegistry, error) {
	keys := make(map[uint32]*secp256k1.PublicKey, len(compressed))
	for idx, raw := range compressed {
		pk, err := secp256k1.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse authority %d public key: %w", idx, err)
		}
		keys[idx] = pk
	}
	return &KeyRegistry{keys: keys}, nil
}

func (r *KeyRegistry) lookup(idx uint32) (*secp256k1.PublicKey, bool) {
	pk, ok := r.keys[idx]
	return pk, ok
}

// Verifier implements validation.Verifier and finality.Verifier
// (structurally; neither package is imported here to keep this
// package a pure leaf).
type Verifier struct {
	keys *KeyRegistry
}

func NewVerifier(keys *KeyRegistry) *Verifier { return &Verifier{keys: keys} }

// VerifySlotClaim checks proof as a DER-encoded ECDSA signature over
// randomness by the claiming authority. The low bit of the sha256 of
// the signature's raw bytes selects primary vs. secondary, standing
// in for a VRF output compared against the primary-claim threshold.
func (v *Verifier) VerifySlotClaim(randomness [32]byte, authorityIdx uint32, proof []byte) (primary bool, ok bool) {
	pk, found := v.keys.lookup(authorityIdx)
	if !found {
		return false, false
	}
	sig, err := ecdsa.ParseDERSignature(proof)
	if err != nil {
		return false, false
	}
	if !sig.Verify(randomness[:], pk) {
		return false, false
	}
	sum := sha256.Sum256(sig.Serialize())
	return sum[0]&1 == 0, true
}

// VerifyHeaderSignature checks seal as a DER-encoded ECDSA signature
// over headerHash by the scheduled authority.
func (v *Verifier) VerifyHeaderSignature(headerHash types.Hash, seal []byte, authorityIdx uint32) bool {
	pk, found := v.keys.lookup(authorityIdx)
	if !found {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(seal)
	if err != nil {
		return false
	}
	return sig.Verify(headerHash[:], pk)
}

// VerifyJustification checks every pre-commit in just was signed by
// an authority present in set, over the (round, target) it commits to.
func (v *Verifier) VerifyJustification(just types.Justification, set digest.AuthoritySet) bool {
	known := make(map[uint32]bool, len(set.Authorities))
	for _, a := range set.Authorities {
		known[a.Index] = true
	}
	for _, pc := range just.PreCommits {
		if !known[pc.AuthorityIdx] {
			return false
		}
		pk, found := v.keys.lookup(pc.AuthorityIdx)
		if !found {
			return false
		}
		sig, err := ecdsa.ParseDERSignature(pc.Signature)
		if err != nil {
			return false
		}
		if !sig.Verify(preCommitSigningHash(just.Round, pc), pk) {
			return false
		}
	}
	return true
}

// preCommitSigningHash is the message a pre-commit signature covers:
// the GRANDPA round plus the vote's target.
func preCommitSigningHash(round uint64, pc types.PreCommit) []byte {
	buf := make([]byte, 8+32+8)
	binary.LittleEndian.PutUint64(buf[0:8], round)
	copy(buf[8:40], pc.TargetHash[:])
	binary.LittleEndian.PutUint64(buf[40:48], uint64(pc.TargetNumber))
	sum := sha256.Sum256(buf)
	return sum[:]
}
