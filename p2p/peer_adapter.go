package p2p

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/polkadot-go/synccore/statesync"
	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

// PeerAdapter implements sync.Peer (StateFetcherAdapter below wraps it
// as a statesync.StateFetcher) over a single remote peer reached
// through a shared Host, translating
// sync's request/response types to and from the SCALE-encoded
// Envelope payloads defined in wire.go.
type PeerAdapter struct {
	host *Host
	pid  peer.ID

	best types.BlockInfo
}

var _ sync.Peer = (*PeerAdapter)(nil)

// NewPeerAdapter wraps pid, reachable through host, as a sync.Peer.
// best is updated by whatever drives the best-block gossip
// subscription (see Host.SubscribeBestBlock).
func NewPeerAdapter(host *Host, pid peer.ID, best types.BlockInfo) *PeerAdapter {
	return &PeerAdapter{host: host, pid: pid, best: best}
}

func (a *PeerAdapter) ID() string                 { return a.pid.String() }
func (a *PeerAdapter) BestBlock() types.BlockInfo { return a.best }

// SetBestBlock updates the last-known best block, called when a
// best-block gossip announcement arrives from this peer.
func (a *PeerAdapter) SetBestBlock(info types.BlockInfo) { a.best = info }

func (a *PeerAdapter) RequestBlocks(ctx context.Context, req sync.BlockRequest) (sync.BlocksResponse, error) {
	env := &Envelope{
		ChannelID: uint32(0),
		Kind:      uint32(KindBlockRequest),
		RequestID: req.ID,
		Payload:   encodeBlockRequest(req),
	}
	resp, err := a.host.Request(ctx, a.pid, ChannelBlockSync, env)
	if err != nil {
		return sync.BlocksResponse{}, fmt.Errorf("request blocks from %s: %w", a.pid, err)
	}
	if resp.Kind == uint32(KindError) {
		return sync.BlocksResponse{}, fmt.Errorf("peer %s returned error for block request %d", a.pid, req.ID)
	}
	blocks, err := decodeBlocksResponse(resp.Payload)
	if err != nil {
		return sync.BlocksResponse{}, fmt.Errorf("decode blocks response: %w", err)
	}
	return blocks, nil
}

func (a *PeerAdapter) RequestState(ctx context.Context, req sync.StateRequest) (sync.StateResponse, error) {
	env := &Envelope{
		ChannelID: uint32(0),
		Kind:      uint32(KindStateRequest),
		Payload:   encodeStateRequest(req),
	}
	resp, err := a.host.Request(ctx, a.pid, ChannelStateSync, env)
	if err != nil {
		return sync.StateResponse{}, fmt.Errorf("request state from %s: %w", a.pid, err)
	}
	if resp.Kind == uint32(KindError) {
		return sync.StateResponse{}, fmt.Errorf("peer %s returned error for state request", a.pid)
	}
	state, err := decodeStateResponse(resp.Payload)
	if err != nil {
		return sync.StateResponse{}, fmt.Errorf("decode state response: %w", err)
	}
	return state, nil
}

// StateFetcherAdapter narrows a PeerAdapter to statesync.StateFetcher's
// (key, value, complete) shape, used directly by
// statesync.StateSyncFlow instead of the wider sync.Peer interface.
type StateFetcherAdapter struct {
	peer *PeerAdapter
}

var _ statesync.StateFetcher = (*StateFetcherAdapter)(nil)

func NewStateFetcherAdapter(peer *PeerAdapter) *StateFetcherAdapter {
	return &StateFetcherAdapter{peer: peer}
}

func (f *StateFetcherAdapter) RequestState(ctx context.Context, block types.Hash, start []byte, proof bool) ([]statesync.Entry, bool, error) {
	resp, err := f.peer.RequestState(ctx, sync.StateRequest{Block: block, Start: start, Proof: proof})
	if err != nil {
		return nil, false, err
	}
	entries := make([]statesync.Entry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		entries = append(entries, statesync.Entry{Key: e.Key, Value: e.Value})
	}
	return entries, resp.Complete, nil
}
