package node

import (
	"context"
	"errors"
	"fmt"

	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"

	"github.com/polkadot-go/synccore/blockstore"
	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

// ErrStateServingUnsupported is returned when a peer requests trie
// state and this node was built without an injected StateReader —
// the common case for a node that only ever runs Fast or Warp sync
// itself and never backs another peer's state sync.
var ErrStateServingUnsupported = errors.New("node: this node does not serve trie state to peers")

// StateReader is the injected read-side counterpart of
// statesync.TrieBackend (spec.md §1's trie-storage-engine exclusion
// applies to reads as much as writes): it lets this node answer
// another peer's state-sync requests out of its own trie. Optional —
// a node built without one simply can't serve state.
type StateReader interface {
	ReadRange(block types.Hash, start []byte, limit int) (entries []sync.StateEntry, complete bool, err error)
}

const maxBlocksPerResponse = 128
const stateEntriesPerPage = 256

// storeBlockResponder answers block-range requests directly out of
// blockstore.Store, the same storage the local BlockTree is backed
// by, so a peer's sync request costs no more than what this node
// already persisted for itself.
type storeBlockResponder struct {
	store blockstore.Store
}

func newStoreBlockResponder(store blockstore.Store) *storeBlockResponder {
	return &storeBlockResponder{store: store}
}

func (r *storeBlockResponder) ServeBlocks(_ context.Context, _ libp2ppeer.ID, req sync.BlockRequest) (sync.BlocksResponse, error) {
	hash, err := r.resolveFrom(req.From)
	if err != nil {
		return sync.BlocksResponse{}, err
	}

	max := maxBlocksPerResponse
	if req.Max != nil && int(*req.Max) < max {
		max = int(*req.Max)
	}

	var out []types.BlockData
	for i := 0; i < max; i++ {
		header, err := r.store.GetHeader(hash)
		if err != nil {
			break
		}
		bd := types.BlockData{Hash: hash}
		if req.Fields.Has(types.AttrHeader) {
			h := header
			bd.Header = &h
		}
		if req.Fields.Has(types.AttrBody) {
			if body, err := r.store.GetBody(hash); err == nil {
				b := body
				bd.Body = &b
			}
		}
		if req.Fields.Has(types.AttrJustification) {
			if just, err := r.store.GetJustification(hash); err == nil {
				j := just
				bd.Justification = &j
			}
		}
		out = append(out, bd)

		if req.To != nil && hash == *req.To {
			break
		}
		next, ok := r.step(header, req.Direction)
		if !ok {
			break
		}
		hash = next
	}
	return sync.BlocksResponse{Blocks: out}, nil
}

func (r *storeBlockResponder) step(h types.Header, dir sync.Direction) (types.Hash, bool) {
	if dir == sync.Ascending {
		child, err := r.store.GetHashByNumber(h.Number + 1)
		if err != nil {
			return types.Hash{}, false
		}
		return child, true
	}
	if h.Number == 0 {
		return types.Hash{}, false
	}
	return h.ParentHash, true
}

func (r *storeBlockResponder) resolveFrom(from sync.FromID) (types.Hash, error) {
	if from.Hash != nil {
		return *from.Hash, nil
	}
	if from.Number != nil {
		return r.store.GetHashByNumber(*from.Number)
	}
	return types.Hash{}, fmt.Errorf("node: block request names neither hash nor number")
}

// optionalStateResponder answers state-sync requests via an injected
// StateReader, or ErrStateServingUnsupported when none was configured.
type optionalStateResponder struct {
	reader StateReader
}

func newOptionalStateResponder(reader StateReader) *optionalStateResponder {
	return &optionalStateResponder{reader: reader}
}

func (r *optionalStateResponder) ServeState(_ context.Context, _ libp2ppeer.ID, req sync.StateRequest) (sync.StateResponse, error) {
	if r.reader == nil {
		return sync.StateResponse{}, ErrStateServingUnsupported
	}
	entries, complete, err := r.reader.ReadRange(req.Block, req.Start, stateEntriesPerPage)
	if err != nil {
		return sync.StateResponse{}, err
	}
	return sync.StateResponse{Entries: entries, Complete: complete}, nil
}
