// Package sync implements the Synchronizer: per-peer common-ancestor
// search, block-range and justification fetch, the import queue and
// its single-writer apply loop, duplicate-request suppression, and
// block subscriptions (spec.md §4.2). Grounded directly on the
// teacher's internal/blocksync/reactor.go channel topology and
// internal/blocksync/v1/pool.go per-peer bookkeeping, generalized from
// Tendermint's single linear chain to Polkadot's fork-tracking
// BlockTree.
package sync

import (
	"context"

	"github.com/polkadot-go/synccore/types"
)

// Direction is the peer-protocol fetch direction (spec.md §6).
type Direction uint8

const (
	Ascending Direction = iota
	Descending
)

// FromID names the start of a range request either by hash or by
// number, matching spec.md §6's `from: BlockId (hash or number)`.
type FromID struct {
	Hash   *types.Hash
	Number *types.BlockNumber
}

func FromHash(h types.Hash) FromID           { return FromID{Hash: &h} }
func FromNumber(n types.BlockNumber) FromID { return FromID{Number: &n} }

// BlockRequest is the peer-protocol sync request (spec.md §6).
type BlockRequest struct {
	ID        uint64
	Fields    types.BlockAttributes
	From      FromID
	To        *types.Hash
	Direction Direction
	Max       *uint32
}

// BlocksResponse is the peer-protocol sync response (spec.md §6).
type BlocksResponse struct {
	Blocks []types.BlockData
}

// StateRequest/StateResponse are the peer-protocol state-sync request
// shapes (spec.md §6), used by statesync.StateSyncFlow through the
// same Peer interface.
type StateRequest struct {
	Block types.Hash
	Start []byte
	Proof bool
}

type StateEntry struct {
	Key   []byte
	Value []byte
}

type StateResponse struct {
	Entries    []StateEntry
	Proof      [][]byte
	Complete   bool
}

// Peer is the transport-level collaborator (spec.md §1 places the
// wire codec and transport out of scope as a fixed external
// interface). Production wiring backs this with the p2p package's
// go-libp2p adapter.
type Peer interface {
	ID() string
	BestBlock() types.BlockInfo
	RequestBlocks(ctx context.Context, req BlockRequest) (BlocksResponse, error)
	RequestState(ctx context.Context, req StateRequest) (StateResponse, error)
}
