// Package validation implements header verification and the scoped
// digest-observation guard the import loop wraps every candidate
// block in (spec.md §4.4-4.5), grounded on the teacher's
// internal/state/validation.go header/commit checks generalized from
// Tendermint's single-signer-per-height model to BABE's VRF slot
// claims and per-authority signatures.
package validation

import (
	"fmt"

	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// Verifier is the injected cryptographic collaborator (spec.md §1
// places signature verification and VRF checking out of scope as a
// fixed external interface). Production wiring backs it with
// github.com/decred/dcrd/dcrec/secp256k1/v4.
type Verifier interface {
	// VerifySlotClaim checks a BABE VRF proof against the epoch
	// randomness and the claiming authority's public key, reporting
	// whether the output clears the primary/secondary threshold.
	VerifySlotClaim(randomness [32]byte, authorityIdx uint32, proof []byte) (primary bool, ok bool)

	// VerifyHeaderSignature checks the seal digest's signature was
	// produced by the authority scheduled for this slot.
	VerifyHeaderSignature(headerHash types.Hash, seal []byte, authorityIdx uint32) bool

	// VerifyJustification checks a set of pre-commit signatures
	// against the given authority set.
	VerifyJustification(just types.Justification, set digest.AuthoritySet) bool
}

// BlockValidator performs the static and cryptographic checks spec.md
// §4.1's "BlockValidator" component describes: parent link, VRF slot
// output, authority signature, digest well-formedness.
type BlockValidator struct {
	verifier Verifier
	tracker  *digest.DigestTracker
	logger   log.Logger
}

func NewBlockValidator(verifier Verifier, tracker *digest.DigestTracker, logger log.Logger) *BlockValidator {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &BlockValidator{verifier: verifier, tracker: tracker, logger: logger}
}

// ValidateStructure checks a header's parent link against the
// expected parent hash and rejects malformed digest ordering (seal
// digests, if present, must come last). This step runs before any
// cryptography and does not require the digest tracker.
func (v *BlockValidator) ValidateStructure(expectedParent types.Hash, h types.Header) error {
	if h.ParentHash != expectedParent {
		return ErrBadParentLink
	}
	sawSeal := false
	for _, d := range h.Digests {
		if d.Kind == types.DigestSeal {
			sawSeal = true
			continue
		}
		if sawSeal {
			return ErrMalformedDigests
		}
	}
	return nil
}

// ObserveDigestsAndValidateHeader is spec.md §4.4's named operation:
// it interprets h's digests via the DigestTracker and performs
// cryptographic verification against the resulting consensus config,
// returning a ConsistencyGuard the caller must Commit on success or
// Rollback on any later failure in the same import (spec.md §4.5,
// invariant "no partial digest application survives a failed
// import").
func (v *BlockValidator) ObserveDigestsAndValidateHeader(hash types.Hash, h types.Header) (*ConsistencyGuard, error) {
	scope := v.tracker.Observe(hash, h)

	cfg := scope.PreviewConfig()
	if err := v.verifyClaimAndSignature(hash, h, cfg); err != nil {
		scope.Rollback()
		return nil, err
	}

	return &ConsistencyGuard{scope: scope}, nil
}

func (v *BlockValidator) verifyClaimAndSignature(hash types.Hash, h types.Header, cfg digest.Config) error {
	var (
		claimAuthority uint32
		vrfProof       []byte
		seal           []byte
	)
	for _, d := range h.Digests {
		switch d.Kind {
		case types.DigestPreRuntime:
			if len(d.Payload) >= 5 {
				claimAuthority = beUint32(d.Payload[1:5])
				vrfProof = d.Payload[5:]
			}
		case types.DigestSeal:
			seal = d.Payload
		}
	}

	if vrfProof != nil {
		primary, ok := v.verifier.VerifySlotClaim(cfg.Epoch.Randomness, claimAuthority, vrfProof)
		if !ok {
			return ErrBadSlotClaim
		}
		if primary != h.PrimaryClaim() {
			return ErrBadSlotClaim
		}
	}
	if seal != nil {
		if !v.verifier.VerifyHeaderSignature(hash, seal, claimAuthority) {
			return ErrBadSignature
		}
	}
	return nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ConsistencyGuard is spec.md §4.5's scoped acquisition object: it
// wraps the digest.ObservationScope produced while validating a
// header, so the import loop has a single guard to commit or roll
// back regardless of which later stage (execution, tree insertion)
// fails.
type ConsistencyGuard struct {
	scope *digest.ObservationScope
}

// Commit makes the observed consensus-config change durable. Called
// once the block has been fully applied and inserted into the tree.
func (g *ConsistencyGuard) Commit() {
	g.scope.Commit()
}

// Rollback discards the observed consensus-config change. Called when
// execution or tree insertion fails after header validation
// succeeded.
func (g *ConsistencyGuard) Rollback() {
	g.scope.Rollback()
}

// String aids test failure output and debug logging.
func (g *ConsistencyGuard) String() string {
	return fmt.Sprintf("ConsistencyGuard{%p}", g.scope)
}
