package types

// Header is a block header: parent link, height, state commitment,
// extrinsics commitment, and a digest list (spec.md §3).
type Header struct {
	ParentHash     Hash
	Number         BlockNumber
	StateRoot      Hash
	ExtrinsicsRoot Hash
	Digests        []DigestItem
}

// ComputeHash computes the content hash of the header by calling the
// package-level DefaultHasher.
func (h Header) ComputeHash() Hash {
	return DefaultHasher(h)
}

// DefaultHasher is a package variable so it can be swapped; nothing in
// this module replaces it, so it is always sha256 over the SCALE
// encoding (spec.md §1 places hashing out of scope as an external
// collaborator).
var DefaultHasher = func(h Header) Hash {
	return scaleHashHeader(h)
}

// PrimaryClaim reports whether any BABE digest on this header claims
// a primary slot, feeding BlockTree's chain-weight accumulation.
func (h Header) PrimaryClaim() bool {
	for _, d := range h.Digests {
		if d.PrimaryClaim() {
			return true
		}
	}
	return false
}

// ScheduledAuthorityChange reports whether the header schedules a
// GRANDPA authority-set change, used by the synchronizer's
// finality-lag trigger.
func (h Header) ScheduledAuthorityChange() bool {
	for _, d := range h.Digests {
		if d.IsScheduledAuthorityChange() {
			return true
		}
	}
	return false
}

// Extrinsic is an opaque, already SCALE-encoded transaction body.
type Extrinsic []byte

// Body is the ordered extrinsic list of a block.
type Body struct {
	Extrinsics []Extrinsic
}

// PreCommit is one signed GRANDPA pre-commit vote.
type PreCommit struct {
	TargetHash   Hash
	TargetNumber BlockNumber
	AuthorityIdx uint32
	Signature    []byte
}

// Justification is a GRANDPA justification: a set of pre-commits from
// the authority set active at the target block, proving finality.
type Justification struct {
	Round        uint64
	TargetHash   Hash
	TargetNumber BlockNumber
	PreCommits   []PreCommit
}

// BlockData is a header, optionally paired with a body and/or
// justification, as returned by the peer protocol's BlocksResponse
// (spec.md §6).
type BlockData struct {
	Hash          Hash
	Header        *Header
	Body          *Body
	Justification *Justification
}

// BlockAttributes is the request bitmask of spec.md §6.
type BlockAttributes uint32

const (
	AttrHeader        BlockAttributes = 1 << 0
	AttrBody          BlockAttributes = 1 << 1
	AttrJustification BlockAttributes = 1 << 2
)

func (a BlockAttributes) Has(bit BlockAttributes) bool { return a&bit != 0 }
