package sync

import (
	"fmt"

	"github.com/polkadot-go/synccore/types"
)

// ErrEmptyResponse means a peer's probed header could never resolve
// to a common ancestor — the peer is on a chain incompatible with
// ours (spec.md §4.2.1).
var ErrEmptyResponse = fmt.Errorf("sync: peer chain shares no ancestor with local chain")

// KnownFunc reports whether hash/number is known locally, either
// already in the BlockTree or already sitting in the import queue —
// the two places spec.md §4.2.1 says to consult ("known locally: in
// tree or in queue").
type KnownFunc func(hash types.Hash) bool

// ancestorSearch drives the binary-search probe of spec.md §4.2.1 for
// a single peer. It is not safe for concurrent use; the Synchronizer
// keeps exactly one per busy, Probing peer.
type ancestorSearch struct {
	lower types.BlockNumber
	upper types.BlockNumber
	hint  types.BlockNumber

	memo  map[types.BlockNumber]types.Hash
	known KnownFunc
}

// startAncestorSearch begins a search bounded by the local
// last-finalized number L and the smaller of the peer's announced
// number and the local best number.
func startAncestorSearch(localFinalized, localBest, peerBest types.BlockNumber, known KnownFunc) *ancestorSearch {
	upperBound := localBest
	if peerBest < upperBound {
		upperBound = peerBest
	}
	return &ancestorSearch{
		lower: localFinalized,
		upper: upperBound + 1,
		hint:  upperBound,
		memo:  make(map[types.BlockNumber]types.Hash),
		known: known,
	}
}

// NextProbe returns the number to request a single header for next,
// or ok=false if the search has already converged.
func (s *ancestorSearch) NextProbe() (types.BlockNumber, bool) {
	if s.hint == s.lower {
		return 0, false
	}
	return s.hint, true
}

// Observe feeds back the header a peer returned for the last probe
// and narrows the search window. When the search converges it returns
// the common ancestor's BlockInfo.
func (s *ancestorSearch) Observe(hash types.Hash) (*types.BlockInfo, error) {
	s.memo[s.hint] = hash

	if s.known(hash) {
		s.lower = s.hint
	} else {
		s.upper = s.hint
	}
	s.hint = (s.lower + s.upper) / 2

	if s.hint == s.lower {
		finalHash, ok := s.memo[s.lower]
		if !ok || !s.known(finalHash) {
			return nil, ErrEmptyResponse
		}
		return &types.BlockInfo{Number: s.lower, Hash: finalHash}, nil
	}
	return nil, nil
}
