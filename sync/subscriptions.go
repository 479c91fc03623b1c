package sync

import (
	"sync"

	"github.com/polkadot-go/synccore/types"
)

// SubscriptionResult is delivered to a subscriber's callback (spec.md
// §4.2.6).
type SubscriptionResult uint8

const (
	ResultImported SubscriptionResult = iota
	ResultDiscarded
	ResultArrivedTooEarly
)

// SubscriptionCallback is invoked asynchronously with the outcome for
// the subscribed block.
type SubscriptionCallback func(info types.BlockInfo, result SubscriptionResult)

// SubscriptionRegistry implements spec.md §4.2.6's subscribe_to_block:
// callers register interest in a specific block and are notified
// exactly once, asynchronously, when it is imported or discarded.
type SubscriptionRegistry struct {
	mu   sync.Mutex
	byHash map[types.Hash][]SubscriptionCallback
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{byHash: make(map[types.Hash][]SubscriptionCallback)}
}

// Subscribe registers cb for info, evaluating the three immediate
// branches spec.md describes before falling back to storing it:
// already-known blocks fire immediately, blocks behind the finalized
// cursor are reported discarded, blocks too far ahead of best are
// reported as arrived too early.
func (r *SubscriptionRegistry) Subscribe(
	info types.BlockInfo,
	alreadyInTree bool,
	lastFinalized types.BlockNumber,
	best types.BlockNumber,
	maxDistance types.BlockNumber,
	cb SubscriptionCallback,
) {
	switch {
	case alreadyInTree:
		go cb(info, ResultImported)
	case info.Number <= lastFinalized:
		go cb(info, ResultDiscarded)
	case info.Number > best+maxDistance:
		go cb(info, ResultArrivedTooEarly)
	default:
		r.mu.Lock()
		r.byHash[info.Hash] = append(r.byHash[info.Hash], cb)
		r.mu.Unlock()
	}
}

// Notify drains and fires every callback registered for hash with
// result, asynchronously on its own goroutine per callback so a slow
// subscriber never blocks the import loop.
func (r *SubscriptionRegistry) Notify(info types.BlockInfo, result SubscriptionResult) {
	r.mu.Lock()
	cbs := r.byHash[info.Hash]
	delete(r.byHash, info.Hash)
	r.mu.Unlock()

	for _, cb := range cbs {
		cb := cb
		go cb(info, result)
	}
}
