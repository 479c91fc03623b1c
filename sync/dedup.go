package sync

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrDuplicateRequest is returned when an identical, still-live
// request is already outstanding to the same peer (spec.md §4.2.5,
// invariant I7).
var ErrDuplicateRequest = fmt.Errorf("sync: duplicate request")

// RequestTracker deduplicates outgoing requests per peer within a TTL
// window, backed by an expirable LRU rather than a hand-rolled
// timer-based map so eviction is O(1) amortized and bounded in size.
type RequestTracker struct {
	cache *expirable.LRU[string, string]
}

// NewRequestTracker builds a tracker with the given recentness window
// (spec.md's `kRecentnessDuration`, e.g. 30s) and a generous capacity
// bound to protect memory under a byzantine or very active peer set.
func NewRequestTracker(ttl time.Duration) *RequestTracker {
	return &RequestTracker{cache: expirable.NewLRU[string, string](4096, nil, ttl)}
}

func trackerKey(peerID string, fp Fingerprint) string {
	return fmt.Sprintf("%s:%d", peerID, fp)
}

// Reserve records a new outgoing request's fingerprint against peerID
// with reason, or reports ErrDuplicateRequest if one is already
// outstanding.
func (t *RequestTracker) Reserve(peerID string, fp Fingerprint, reason string) error {
	key := trackerKey(peerID, fp)
	if _, ok := t.cache.Get(key); ok {
		return ErrDuplicateRequest
	}
	t.cache.Add(key, reason)
	return nil
}

// Release removes a fingerprint before its TTL expires, used when a
// request completes (successfully or not) so a legitimate re-fetch
// isn't blocked for the full window.
func (t *RequestTracker) Release(peerID string, fp Fingerprint) {
	t.cache.Remove(trackerKey(peerID, fp))
}
