package sync

import (
	"fmt"
	"sync"
	"time"

	"github.com/polkadot-go/synccore/types"
)

// maxPeerStrikes and cooldownWindow implement spec.md §7's otherwise
// unspecified "disconnect or cool-down that peer" policy: a peer that
// accrues this many protocol strikes (failed verification, empty
// responses, cascade-discarded blocks) is excluded from IdlePeers for
// cooldownWindow, then given a fresh start. Grounded on
// core/network/impl's reputation-cooldown idiom from original_source/.
const (
	maxPeerStrikes  = 3
	cooldownWindow  = 30 * time.Second
)

// PeerSyncState is the per-peer state machine of spec.md §4.2.7.
type PeerSyncState uint8

const (
	PeerIdle PeerSyncState = iota
	PeerProbing
	PeerFetching
)

func (s PeerSyncState) String() string {
	switch s {
	case PeerProbing:
		return "probing"
	case PeerFetching:
		return "fetching"
	default:
		return "idle"
	}
}

// ErrPeerBusy is returned when a caller tries to start work against a
// peer already in a non-Idle state (spec.md §7, "Duplicate/busy").
var ErrPeerBusy = fmt.Errorf("sync: peer busy")

// peerRecord tracks one peer's sync state plus its announced best
// block and any in-progress ancestor search.
type peerRecord struct {
	id          string
	state       PeerSyncState
	best        types.BlockInfo
	ancestor    *ancestorSearch
	strikes     int
	cooldownEnd time.Time
}

// PeerTracker owns busy_peers and per-peer bookkeeping (spec.md §3),
// generalizing the teacher's v1/pool.go peer map from a single best
// height to a full per-peer state machine.
type PeerTracker struct {
	mu    sync.Mutex
	peers map[string]*peerRecord
}

func NewPeerTracker() *PeerTracker {
	return &PeerTracker{peers: make(map[string]*peerRecord)}
}

// AddPeer registers a newly connected peer as Idle.
func (t *PeerTracker) AddPeer(id string, best types.BlockInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[id] = &peerRecord{id: id, state: PeerIdle, best: best}
}

// RemovePeer drops a disconnected peer.
func (t *PeerTracker) RemovePeer(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

// UpdateBest records a peer's newly announced chain tip.
func (t *PeerTracker) UpdateBest(id string, best types.BlockInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.best = best
	}
}

// TryTransition moves a peer from Idle into the given non-Idle state,
// failing with ErrPeerBusy if it isn't Idle — the enforcement point
// for "at most one in-flight request per peer" (spec.md §3
// busy_peers).
func (t *PeerTracker) TryTransition(id string, to PeerSyncState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		return fmt.Errorf("sync: unknown peer %s", id)
	}
	if p.state != PeerIdle {
		return ErrPeerBusy
	}
	p.state = to
	return nil
}

// Release returns a peer to Idle, regardless of its current state —
// called on completion, error, or timeout of its in-flight request.
func (t *PeerTracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.state = PeerIdle
		p.ancestor = nil
	}
}

// State reports a peer's current sync state.
func (t *PeerTracker) State(id string) PeerSyncState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		return p.state
	}
	return PeerIdle
}

// Best returns a peer's last-announced chain tip.
func (t *PeerTracker) Best(id string) (types.BlockInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		return types.BlockInfo{}, false
	}
	return p.best, true
}

// IdlePeers returns every peer currently in the Idle state and not
// under cooldown, the pool a work-scheduling pass draws from.
func (t *PeerTracker) IdlePeers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	var out []string
	for id, p := range t.peers {
		if p.state == PeerIdle && !p.cooldownEnd.After(now) {
			out = append(out, id)
		}
	}
	return out
}

// Penalize records a protocol strike against a peer (a failed
// verification, an empty response, a cascade-discarded block) and, once
// maxPeerStrikes is reached, puts it on cooldown and resets the strike
// count, standing in for spec.md §7's "disconnect or cool-down that
// peer" policy on top of the plain busy_peers removal.
func (t *PeerTracker) Penalize(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		return
	}
	p.strikes++
	if p.strikes >= maxPeerStrikes {
		p.cooldownEnd = time.Now().Add(cooldownWindow)
		p.strikes = 0
	}
}

// OnCooldown reports whether a peer is currently excluded from
// IdlePeers due to accumulated strikes.
func (t *PeerTracker) OnCooldown(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		return false
	}
	return p.cooldownEnd.After(time.Now())
}

// Count returns the number of known peers, regardless of state.
func (t *PeerTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

func (t *PeerTracker) setAncestorSearch(id string, s *ancestorSearch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.ancestor = s
	}
}

func (t *PeerTracker) getAncestorSearch(id string) *ancestorSearch {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		return p.ancestor
	}
	return nil
}
