package sync

import (
	"container/heap"
	"sync"

	"github.com/polkadot-go/synccore/types"
)

// queuedBlock is one entry in known_blocks (spec.md §3): the fetched
// data plus the set of peers that offered it, so a validation failure
// can penalize every contributing source.
type queuedBlock struct {
	data  types.BlockData
	peers map[string]bool
}

// generationHeap is a min-heap over (number, hash) pairs, giving
// generations' "pop oldest first" semantics without a hand-rolled
// ordered multimap.
type generationHeap []types.BlockInfo

func (h generationHeap) Len() int { return len(h) }
func (h generationHeap) Less(i, j int) bool {
	if h[i].Number != h[j].Number {
		return h[i].Number < h[j].Number
	}
	return h[i].Hash.Less(h[j].Hash)
}
func (h generationHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *generationHeap) Push(x any)   { *h = append(*h, x.(types.BlockInfo)) }
func (h *generationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// importQueue holds the synchronizer's exclusively-owned queue state:
// known_blocks, generations, and ancestry (spec.md §3). It is touched
// only from the Synchronizer's single-writer context, per spec.md §5,
// but carries its own mutex since tests and the node package's
// metrics polling read it from other goroutines.
type importQueue struct {
	mu sync.Mutex

	known      map[types.Hash]*queuedBlock
	generation generationHeap
	inHeap     map[types.Hash]bool
	ancestry   map[types.Hash][]types.Hash // parent -> children
}

func newImportQueue() *importQueue {
	return &importQueue{
		known:    make(map[types.Hash]*queuedBlock),
		inHeap:   make(map[types.Hash]bool),
		ancestry: make(map[types.Hash][]types.Hash),
	}
}

// Insert adds a fetched block into the queue, recording peerID as a
// source. Re-offering an already-queued block just adds the peer to
// its source set.
func (q *importQueue) Insert(bd types.BlockData, peerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.known[bd.Hash]; ok {
		existing.peers[peerID] = true
		return
	}
	q.known[bd.Hash] = &queuedBlock{data: bd, peers: map[string]bool{peerID: true}}
	if bd.Header != nil {
		info := types.BlockInfo{Number: bd.Header.Number, Hash: bd.Hash}
		heap.Push(&q.generation, info)
		q.inHeap[bd.Hash] = true
		q.ancestry[bd.Header.ParentHash] = append(q.ancestry[bd.Header.ParentHash], bd.Hash)
	}
}

// Len reports the current queue depth, used against
// kMinPreloadedBlockAmount for backpressure (spec.md §5).
func (q *importQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.generation)
}

// PopLowest removes and returns the lowest-numbered queued block
// along with the set of peers that offered it, or ok=false if the
// queue is empty. The peer set is returned here, not looked up later
// via PeersFor, because popping deletes the block's known_blocks
// entry immediately — after this call nothing else can recover which
// peers served it.
func (q *importQueue) PopLowest() (types.BlockData, []string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.generation) > 0 {
		info := heap.Pop(&q.generation).(types.BlockInfo)
		delete(q.inHeap, info.Hash)
		entry, ok := q.known[info.Hash]
		if !ok {
			continue // already discarded
		}
		delete(q.known, info.Hash)
		peers := make([]string, 0, len(entry.peers))
		for p := range entry.peers {
			peers = append(peers, p)
		}
		return entry.data, peers, true
	}
	return types.BlockData{}, nil, false
}

// CascadeDiscard removes hash and every descendant reachable through
// ancestry from the queue, returning every hash removed so callers
// can notify subscribers and BlockTree's discard path.
func (q *importQueue) CascadeDiscard(hash types.Hash) []types.Hash {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed []types.Hash
	stack := []types.Hash{hash}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := q.known[h]; ok {
			delete(q.known, h)
			removed = append(removed, h)
		}
		children := q.ancestry[h]
		delete(q.ancestry, h)
		stack = append(stack, children...)
	}
	return removed
}

// Contains reports whether hash is currently queued (invariant I6
// support: generations/ancestry entries always resolve in known).
func (q *importQueue) Contains(hash types.Hash) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.known[hash]
	return ok
}

// PeersFor returns the set of peers known to have offered hash, used
// to penalize sources of a block that later fails validation.
func (q *importQueue) PeersFor(hash types.Hash) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.known[hash]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entry.peers))
	for p := range entry.peers {
		out = append(out, p)
	}
	return out
}
