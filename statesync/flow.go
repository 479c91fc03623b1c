// Package statesync implements the fast-sync trie-paging download of
// spec.md §4.3, grounded on the teacher's internal/statesync
// dispatcher/reactor chunked-snapshot-fetch idiom, generalized from
// whole application-state snapshots to trie-node key-range paging.
package statesync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// ErrAlreadyInProgress enforces spec.md §4.3's "at most one state-sync
// in flight" (state_sync_mutex).
var ErrAlreadyInProgress = errors.New("statesync: a state sync is already in progress")

// ErrRootMismatch is returned when the accumulated trie's root does
// not match the target block's declared state root once the server
// reports end-of-trie.
var ErrRootMismatch = errors.New("statesync: recomputed state root does not match target block")

// Entry is one (key, value) pair paged in from the remote trie.
type Entry struct {
	Key   []byte
	Value []byte
}

// TrieBackend is the injected trie storage collaborator (spec.md §1
// places the trie storage engine out of scope as a fixed external
// interface).
type TrieBackend interface {
	// InsertBatch stages entries into the accumulating trie under
	// construction for target.
	InsertBatch(target types.Hash, entries []Entry) error
	// Root returns the current computed root of the trie under
	// construction for target.
	Root(target types.Hash) (types.Hash, error)
	// Commit finalizes the trie under construction as the durable
	// state trie for target.
	Commit(target types.Hash) error
}

// StateFetcher is the narrow peer surface this package needs; backed
// by sync.Peer's RequestState in production wiring.
type StateFetcher interface {
	RequestState(ctx context.Context, block types.Hash, start []byte, proof bool) (entries []Entry, complete bool, err error)
}

// NewRuntimeEvent is emitted once a state sync completes and commits,
// matching spec.md's `kNewRuntime` event.
type NewRuntimeEvent struct {
	Target types.Hash
}

// Listener receives StateSyncFlow lifecycle events.
type Listener func(NewRuntimeEvent)

// StateSyncFlow drives the chunked trie-paging download of spec.md
// §4.3. Its cursor state is exclusively owned by the single in-flight
// download; the mutex here only guards the in-progress flag and cursor
// fields that Start shares with InProgress and Cursor, not the
// download loop itself, which runs sequentially.
type StateSyncFlow struct {
	mu sync.Mutex

	backend  TrieBackend
	logger   log.Logger
	listener Listener

	inProgress bool
	target     types.BlockInfo
	startKey   []byte
	lastKey    []byte
}

func NewStateSyncFlow(backend TrieBackend, logger log.Logger, listener Listener) *StateSyncFlow {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &StateSyncFlow{backend: backend, logger: logger, listener: listener}
}

// Start begins downloading the state trie of target via fetcher,
// paging until the server signals completion or the accumulated root
// matches target.StateRoot. It blocks for the duration of the
// download; callers run it on a dedicated goroutine.
func (f *StateSyncFlow) Start(ctx context.Context, target types.Header, targetHash types.Hash, fetcher StateFetcher) error {
	f.mu.Lock()
	if f.inProgress {
		f.mu.Unlock()
		return ErrAlreadyInProgress
	}
	f.inProgress = true
	f.target = types.BlockInfo{Number: target.Number, Hash: targetHash}
	f.startKey = nil
	f.lastKey = nil
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inProgress = false
		f.mu.Unlock()
	}()

	cursor := f.startKey
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, complete, err := fetcher.RequestState(ctx, targetHash, cursor, false)
		if err != nil {
			return fmt.Errorf("request state chunk: %w", err)
		}
		if len(entries) > 0 {
			if err := f.backend.InsertBatch(targetHash, entries); err != nil {
				return fmt.Errorf("insert trie batch: %w", err)
			}
			cursor = entries[len(entries)-1].Key
			f.mu.Lock()
			f.lastKey = cursor
			f.mu.Unlock()
		}

		root, err := f.backend.Root(targetHash)
		if err != nil {
			return fmt.Errorf("compute trie root: %w", err)
		}

		if complete || root == target.StateRoot {
			if root != target.StateRoot {
				return ErrRootMismatch
			}
			if err := f.backend.Commit(targetHash); err != nil {
				return fmt.Errorf("commit trie: %w", err)
			}
			if f.listener != nil {
				f.listener(NewRuntimeEvent{Target: targetHash})
			}
			f.logger.Info("state sync complete", "target", f.target)
			return nil
		}
	}
}

// InProgress reports whether a download is currently running.
func (f *StateSyncFlow) InProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgress
}

// Cursor returns the (start, last-observed) key pair of the current
// download, for progress reporting.
func (f *StateSyncFlow) Cursor() (start, last []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startKey, f.lastKey
}
