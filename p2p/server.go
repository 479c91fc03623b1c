package p2p

import (
	"context"
	"fmt"

	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"

	"github.com/polkadot-go/synccore/sync"
)

// BlockResponder answers a decoded block-range request from local
// storage, backed in production by the node package's blockstore-
// reading implementation.
type BlockResponder interface {
	ServeBlocks(ctx context.Context, from libp2ppeer.ID, req sync.BlockRequest) (sync.BlocksResponse, error)
}

// StateResponder answers a decoded state-trie paging request from the
// local trie, backed in production by the node package's
// optionalStateResponder, which reads through an injected StateReader.
type StateResponder interface {
	ServeState(ctx context.Context, from libp2ppeer.ID, req sync.StateRequest) (sync.StateResponse, error)
}

// RegisterBlockSyncHandler wires responder to answer every inbound
// request on ChannelBlockSync.
func RegisterBlockSyncHandler(host *Host, responder BlockResponder) {
	host.Handle(ChannelBlockSync, func(ctx context.Context, from libp2ppeer.ID, req *Envelope) (*Envelope, error) {
		blockReq, err := decodeBlockRequest(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode block request: %w", err)
		}
		resp, err := responder.ServeBlocks(ctx, from, blockReq)
		if err != nil {
			return &Envelope{Kind: uint32(KindError), RequestID: req.RequestID}, nil
		}
		return &Envelope{
			ChannelID: req.ChannelID,
			Kind:      uint32(KindBlockResponse),
			RequestID: req.RequestID,
			Payload:   encodeBlocksResponse(resp),
		}, nil
	})
}

// RegisterStateSyncHandler wires responder to answer every inbound
// request on ChannelStateSync.
func RegisterStateSyncHandler(host *Host, responder StateResponder) {
	host.Handle(ChannelStateSync, func(ctx context.Context, from libp2ppeer.ID, req *Envelope) (*Envelope, error) {
		stateReq, err := decodeStateRequest(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode state request: %w", err)
		}
		resp, err := responder.ServeState(ctx, from, stateReq)
		if err != nil {
			return &Envelope{Kind: uint32(KindError), RequestID: req.RequestID}, nil
		}
		return &Envelope{
			ChannelID: req.ChannelID,
			Kind:      uint32(KindStateResponse),
			RequestID: req.RequestID,
			Payload:   encodeStateResponse(resp),
		}, nil
	})
}
