package types

// DigestKind tags the closed union of digest item payloads a header
// can carry (spec.md §3).
type DigestKind uint8

const (
	DigestPreRuntime DigestKind = iota
	DigestConsensus
	DigestSeal
	DigestOther
)

func (k DigestKind) String() string {
	switch k {
	case DigestPreRuntime:
		return "pre-runtime"
	case DigestConsensus:
		return "consensus"
	case DigestSeal:
		return "seal"
	default:
		return "other"
	}
}

// ConsensusEngineID identifies which consensus engine a Consensus or
// PreRuntime digest belongs to, e.g. "BABE", "FRNK" (GRANDPA).
type ConsensusEngineID [4]byte

var (
	EngineBABE    = ConsensusEngineID{'B', 'A', 'B', 'E'}
	EngineGRANDPA = ConsensusEngineID{'F', 'R', 'N', 'K'}
)

// DigestItem is a single tagged-union digest entry attached to a
// header. Only Kind, Engine and Payload are semantically defined by
// the wire format; higher layers (digest.DigestTracker) interpret
// Payload according to Engine.
type DigestItem struct {
	Kind    DigestKind
	Engine  ConsensusEngineID
	Payload []byte
}

// IsScheduledAuthorityChange reports whether this digest announces a
// scheduled GRANDPA authority-set change, used by the synchronizer's
// finality-lag trigger (spec.md §4.2.3).
func (d DigestItem) IsScheduledAuthorityChange() bool {
	return d.Kind == DigestConsensus && d.Engine == EngineGRANDPA && len(d.Payload) > 0 && d.Payload[0] == authorityChangeTag
}

const authorityChangeTag = 0x01

// PrimaryClaim reports whether a BABE PreRuntime digest declares a
// primary (as opposed to secondary) slot claim, used by BlockTree's
// weight computation (spec.md §4.1).
func (d DigestItem) PrimaryClaim() bool {
	return d.Kind == DigestPreRuntime && d.Engine == EngineBABE && len(d.Payload) > 0 && d.Payload[0] == PrimarySlotTag
}

const PrimarySlotTag = 0x01
