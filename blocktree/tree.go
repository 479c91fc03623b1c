// Package blocktree implements the in-memory DAG of unfinalized
// blocks above the last-finalized root described in spec.md §3-4.1:
// leaf tracking, best-chain selection by chain weight, and
// finality-driven pruning. All public operations acquire a single
// exclusive lock (spec.md §5) — callers never need their own
// synchronization around a *BlockTree.
package blocktree

import (
	"fmt"
	"sync"

	"github.com/polkadot-go/synccore/blockstore"
	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// DiscardFunc is invoked once per hash removed from the tree by a
// finalize-driven prune or an explicit RemoveLeaf, so the
// synchronizer can clear matching entries out of its own queue state
// (spec.md §4.1 "Pruning on finalize").
type DiscardFunc func(hash types.Hash)

// Metrics is the narrow surface BlockTree reports to, implemented by
// the metrics package's prometheus collectors. Nil is a valid,
// no-op Metrics.
type Metrics interface {
	SetLeafCount(int)
	SetBestHeight(types.BlockNumber)
	SetFinalizedHeight(types.BlockNumber)
}

type nopMetrics struct{}

func (nopMetrics) SetLeafCount(int)                    {}
func (nopMetrics) SetBestHeight(types.BlockNumber)     {}
func (nopMetrics) SetFinalizedHeight(types.BlockNumber) {}

// BlockTree is the fork-tracking structure of spec.md §3-4.1.
type BlockTree struct {
	mu sync.Mutex

	store   blockstore.Store
	logger  log.Logger
	metrics Metrics

	nodes map[types.Hash]*node
	root  *node

	leaves   map[types.Hash]*node
	bestLeaf *node

	onDiscard DiscardFunc
}

// Option configures a BlockTree at construction time.
type Option func(*BlockTree)

func WithLogger(l log.Logger) Option { return func(t *BlockTree) { t.logger = l } }
func WithMetrics(m Metrics) Option   { return func(t *BlockTree) { t.metrics = m } }
func WithDiscardFunc(f DiscardFunc) Option {
	return func(t *BlockTree) { t.onDiscard = f }
}

// New creates a BlockTree rooted at genesisHash/genesisHeader. The
// header is expected to already be persisted in store (or is
// persisted here if absent).
func New(store blockstore.Store, genesisHash types.Hash, genesisHeader types.Header, opts ...Option) (*BlockTree, error) {
	if has, _ := store.HasHeader(genesisHash); !has {
		if err := store.PutHeader(genesisHash, genesisHeader); err != nil {
			return nil, fmt.Errorf("persist genesis header: %w", err)
		}
	}
	if err := store.PutLookup(genesisHeader.Number, genesisHash); err != nil {
		return nil, fmt.Errorf("persist genesis lookup: %w", err)
	}

	root := newNode(types.BlockInfo{Number: genesisHeader.Number, Hash: genesisHash}, nil, Weight{Number: genesisHeader.Number}, true)
	root.finalized = true

	t := &BlockTree{
		store:    store,
		logger:   log.NopLogger(),
		metrics:  nopMetrics{},
		nodes:    map[types.Hash]*node{genesisHash: root},
		root:     root,
		leaves:   map[types.Hash]*node{genesisHash: root},
		bestLeaf: root,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.reportMetrics()
	return t, nil
}

func (t *BlockTree) reportMetrics() {
	t.metrics.SetLeafCount(len(t.leaves))
	t.metrics.SetBestHeight(t.bestLeaf.info.Number)
	t.metrics.SetFinalizedHeight(t.root.info.Number)
}

// AddHeader inserts a header-only TreeNode (spec.md §4.1 "add_header").
func (t *BlockTree) AddHeader(hash types.Hash, h types.Header) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.insert(hash, h, false)
	return err
}

// AddBlock inserts a header+body TreeNode (spec.md §4.1 "add_block").
// A duplicate hash returns ErrBlockExists, which callers treat as an
// idempotent, non-fatal signal (spec.md §7).
func (t *BlockTree) AddBlock(hash types.Hash, h types.Header, body types.Body) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.nodes[hash]; exists {
		return ErrBlockExists
	}
	if err := t.store.PutBody(hash, body); err != nil {
		return fmt.Errorf("persist body: %w", err)
	}
	_, err := t.insert(hash, h, true)
	return err
}

// AddExistingBlock re-inserts a node already persisted to storage,
// recomputing its weight from its parent — the recovery path used
// when replaying blocks the store already has after a restart
// (spec.md §4.1 "add_existing_block").
func (t *BlockTree) AddExistingBlock(hash types.Hash, h types.Header) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.nodes[hash]; exists {
		return nil
	}
	hasBody, _ := t.store.HasBody(hash)
	_, err := t.insert(hash, h, hasBody)
	return err
}

// insert is the common body of AddHeader/AddBlock/AddExistingBlock. It
// assumes the caller holds t.mu.
func (t *BlockTree) insert(hash types.Hash, h types.Header, hasBody bool) (*node, error) {
	if existing, ok := t.nodes[hash]; ok {
		return existing, ErrBlockExists
	}
	parent, ok := t.nodes[h.ParentHash]
	if !ok {
		return nil, ErrParentNotFound
	}

	if err := t.store.PutHeader(hash, h); err != nil {
		return nil, fmt.Errorf("persist header: %w", err)
	}
	if err := t.store.PutLookup(h.Number, hash); err != nil {
		return nil, fmt.Errorf("persist lookup: %w", err)
	}

	weight := parent.weight.Child(h.PrimaryClaim())
	n := newNode(types.BlockInfo{Number: h.Number, Hash: hash}, parent, weight, hasBody)
	t.nodes[hash] = n

	if parent.isLeaf() {
		delete(t.leaves, parent.info.Hash)
	}
	parent.children[hash] = n
	t.leaves[hash] = n

	t.recomputeBestLeaf()
	t.reportMetrics()
	return n, nil
}

// RemoveLeaf removes a leaf node (spec.md §4.1 "remove_leaf"). Fails
// with ErrNotALeaf if hash has children.
func (t *BlockTree) RemoveLeaf(hash types.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[hash]
	if !ok {
		return ErrBlockNotFound
	}
	if !n.isLeaf() {
		return ErrNotALeaf
	}
	if n == t.root {
		return ErrNotALeaf
	}

	delete(n.parent.children, hash)
	delete(t.nodes, hash)
	delete(t.leaves, hash)
	if n.parent.isLeaf() {
		t.leaves[n.parent.info.Hash] = n.parent
	}

	t.recomputeBestLeaf()
	t.reportMetrics()
	if t.onDiscard != nil {
		t.onDiscard(hash)
	}
	return nil
}

// Finalize advances the finalized cursor to hash, pruning every
// branch that does not pass through it (spec.md §4.1 "finalize",
// invariants I4-I6). Calling Finalize twice on the same, already
// finalized hash is a documented no-op.
func (t *BlockTree) Finalize(hash types.Hash, just *types.Justification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if hash == t.root.info.Hash {
		if just != nil {
			if err := t.store.PutJustification(hash, *just); err != nil {
				return fmt.Errorf("persist justification: %w", err)
			}
			t.root.hasJustification = true
		}
		return nil
	}

	target, ok := t.nodes[hash]
	if !ok {
		return ErrBlockNotFound
	}
	if !target.isDescendantOf(t.root) {
		return ErrNotDescendant
	}

	keep := make(map[types.Hash]*node)
	t.collectDescendants(target, keep)

	for h := range t.nodes {
		if _, ok := keep[h]; ok {
			continue
		}
		delete(t.nodes, h)
		delete(t.leaves, h)
		if t.onDiscard != nil {
			t.onDiscard(h)
		}
	}

	target.parent = nil
	target.finalized = true
	t.root = target

	if just != nil {
		if err := t.store.PutJustification(hash, *just); err != nil {
			return fmt.Errorf("persist justification: %w", err)
		}
		target.hasJustification = true
	}
	if err := t.store.PutMeta(blockstore.MetaLastFinalized, hash[:]); err != nil {
		return fmt.Errorf("persist last finalized: %w", err)
	}

	t.leaves = make(map[types.Hash]*node)
	for h, n := range keep {
		if n.isLeaf() {
			t.leaves[h] = n
		}
	}

	t.recomputeBestLeaf()
	t.reportMetrics()
	return nil
}

func (t *BlockTree) collectDescendants(from *node, into map[types.Hash]*node) {
	into[from.info.Hash] = from
	for _, c := range from.children {
		t.collectDescendants(c, into)
	}
}

func (t *BlockTree) recomputeBestLeaf() {
	var best *node
	for _, l := range t.leaves {
		if best == nil || l.weight.Greater(l.info.Hash, best.weight, best.info.Hash) {
			best = l
		}
	}
	t.bestLeaf = best
}

// BestLeaf returns the current best-chain tip (spec.md invariant I3).
func (t *BlockTree) BestLeaf() types.BlockInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bestLeaf.info
}

// GetLastFinalized returns the current root/finalized block.
func (t *BlockTree) GetLastFinalized() types.BlockInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.info
}

// Contains reports whether hash is a live node in the tree.
func (t *BlockTree) Contains(hash types.Hash) (types.BlockInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[hash]
	if !ok {
		return types.BlockInfo{}, false
	}
	return n.info, true
}

// GetLeaves returns every current leaf (fork tip).
func (t *BlockTree) GetLeaves() []types.BlockInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.BlockInfo, 0, len(t.leaves))
	for _, n := range t.leaves {
		out = append(out, n.info)
	}
	return out
}

// GetBestContaining returns the best leaf whose branch contains
// target, optionally capped at maxNumber (spec.md §4.1
// "get_best_containing").
func (t *BlockTree) GetBestContaining(target types.Hash, maxNumber *types.BlockNumber) (types.BlockInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	targetNode, ok := t.nodes[target]
	if !ok {
		return types.BlockInfo{}, ErrBlockNotFound
	}
	if maxNumber != nil && targetNode.info.Number > *maxNumber {
		return types.BlockInfo{}, ErrTargetIsPastMax
	}

	var best *node
	for _, l := range t.leaves {
		if !l.isDescendantOf(targetNode) {
			continue
		}
		candidate := l
		if maxNumber != nil && candidate.info.Number > *maxNumber {
			candidate = t.ancestorAtOrBelow(candidate, *maxNumber)
			if candidate == nil {
				continue
			}
		}
		if best == nil || candidate.weight.Greater(candidate.info.Hash, best.weight, best.info.Hash) {
			best = candidate
		}
	}
	if best == nil {
		return types.BlockInfo{}, ErrBlockNotFound
	}
	return best.info, nil
}

func (t *BlockTree) ancestorAtOrBelow(n *node, max types.BlockNumber) *node {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.info.Number <= max {
			return cur
		}
	}
	return nil
}

// GetChainByBlocks returns the ordered hash sequence from ancestor
// (exclusive) to descendant (inclusive) (spec.md §4.1
// "get_chain_by_blocks").
func (t *BlockTree) GetChainByBlocks(ancestor, descendant types.Hash) ([]types.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	descNode, ok := t.nodes[descendant]
	if !ok {
		return nil, ErrNoSuchChain
	}
	ancNode, ok := t.nodes[ancestor]
	if !ok {
		return nil, ErrNoSuchChain
	}
	if !descNode.isDescendantOf(ancNode) {
		return nil, ErrNoSuchChain
	}

	var chain []types.Hash
	for cur := descNode; cur != ancNode; cur = cur.parent {
		chain = append(chain, cur.info.Hash)
	}
	// reverse into ascending order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// HasDirectChain reports whether d descends from a, either in the
// live tree or (for a below the finalized root) via persistent
// storage lookups (spec.md §4.1 "has_direct_chain", invariant I5).
func (t *BlockTree) HasDirectChain(a, d types.Hash) bool {
	t.mu.Lock()
	dNode, dInTree := t.nodes[d]
	aNode, aInTree := t.nodes[a]
	root := t.root
	t.mu.Unlock()

	if dInTree && aInTree {
		return dNode.isDescendantOf(aNode)
	}
	if dInTree && !aInTree {
		// a might be a finalized ancestor of root itself.
		return a == root.info.Hash || t.storeHasAncestor(a, root.info.Hash)
	}
	return false
}

// storeHasAncestor walks the persistent lookup index to check whether
// a is an ancestor of upTo, for blocks that have already been pruned
// out of the live tree.
func (t *BlockTree) storeHasAncestor(a, upTo types.Hash) bool {
	cur := upTo
	for {
		h, err := t.store.GetHeader(cur)
		if err != nil {
			return false
		}
		if cur == a {
			return true
		}
		if h.ParentHash == cur || h.ParentHash.IsZero() {
			return false
		}
		cur = h.ParentHash
	}
}
