package commands

import (
	"context"
	"crypto/sha256"
	"sort"
	"sync"

	"github.com/polkadot-go/synccore/chainspec"
	"github.com/polkadot-go/synccore/statesync"
	"github.com/polkadot-go/synccore/types"
)

// devTrieBuilder is a minimal, non-production chainspec.TrieBuilder:
// spec.md §1 places the trie storage engine out of scope as a fixed
// external interface, and the corpus carries no trie library the
// domain packages could be handed instead. It folds every inserted
// key/value pair into a single running digest in sorted-key order,
// which is enough to give ComputeStateRoot a deterministic root
// without claiming to be a real Merkle-Patricia trie.
type devTrieBuilder struct {
	kv map[string][]byte
}

func newDevTrieBuilder() chainspec.TrieBuilder {
	return &devTrieBuilder{kv: make(map[string][]byte)}
}

func (b *devTrieBuilder) Put(key, value []byte) error {
	b.kv[string(key)] = append([]byte(nil), value...)
	return nil
}

func (b *devTrieBuilder) Root() (types.Hash, error) {
	keys := make([]string, 0, len(b.kv))
	for k := range b.kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write(b.kv[k])
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// devExecutor is a minimal, non-production executor.Executor: spec.md
// §1 places the WASM runtime out of scope as a fixed external
// interface, and no runtime is available in this corpus. It never
// actually interprets extrinsics; it folds the header and body into
// the parent state root so ApplyBlock's root check exercises real
// data rather than a constant, and returns a state root that
// changes deterministically block to block.
type devExecutor struct{}

func newDevExecutor() *devExecutor { return &devExecutor{} }

func (devExecutor) ApplyExtrinsics(_ context.Context, parentStateRoot types.Hash, header types.Header, body types.Body) (types.Hash, error) {
	h := sha256.New()
	h.Write(parentStateRoot[:])
	h.Write(header.ExtrinsicsRoot[:])
	for _, xt := range body.Extrinsics {
		h.Write(xt)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// devTrieBackend is a minimal, non-production statesync.TrieBackend:
// the trie storage engine spec.md §1 excludes has no substitute
// anywhere in the corpus, so state-sync accumulation is backed by a
// plain in-memory map keyed by target block, rooted the same way
// devTrieBuilder is.
type devTrieBackend struct {
	mu sync.Mutex
	kv map[types.Hash]map[string][]byte
}

func newDevTrieBackend() *devTrieBackend {
	return &devTrieBackend{kv: make(map[types.Hash]map[string][]byte)}
}

func (b *devTrieBackend) InsertBatch(target types.Hash, entries []statesync.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.kv[target]
	if !ok {
		m = make(map[string][]byte)
		b.kv[target] = m
	}
	for _, e := range entries {
		m[string(e.Key)] = append([]byte(nil), e.Value...)
	}
	return nil
}

func (b *devTrieBackend) Root(target types.Hash) (types.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.kv[target]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write(m[k])
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

func (b *devTrieBackend) Commit(types.Hash) error { return nil }
