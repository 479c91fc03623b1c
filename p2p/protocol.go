// Package p2p implements the peer-transport layer that backs
// sync.Peer and statesync.StateFetcher: a request/response leg over
// go-libp2p streams for block/state fetches, and a pubsub leg for
// best-block gossip. Grounded on the teacher's own p2p package shape
// (ChannelDescriptor, Envelope, PeerUpdate) with the concrete
// transport swapped from the teacher's bespoke reactor multiplex to
// real go-libp2p, since spec.md §6's peer protocol is host-network
// facing.
package p2p

import "github.com/libp2p/go-libp2p/core/protocol"

// ChannelDescriptor names one logical stream multiplexed over a
// libp2p host, mirroring the teacher's own channel-ID concept but
// keyed by libp2p protocol.ID rather than a single-byte channel
// number.
type ChannelDescriptor struct {
	ID          protocol.ID
	Priority    int
	SendQueueCapacity int
}

// Channel IDs used by this node.
const (
	ChannelBlockSync   protocol.ID = "/synccore/blocksync/1.0.0"
	ChannelStateSync   protocol.ID = "/synccore/statesync/1.0.0"
	TopicBestBlock                 = "/synccore/best-block/1.0.0"
)

// EnvelopeKind tags what a p2p.Envelope carries.
type EnvelopeKind uint32

const (
	KindBlockRequest EnvelopeKind = iota
	KindBlockResponse
	KindStateRequest
	KindStateResponse
	KindError
)

// PeerUpdate reports a connection lifecycle event, mirroring the
// teacher's own PeerUpdate shape. Nothing in this module consumes it:
// the node package drives sync.PeerTracker.AddPeer/RemovePeer from a
// libp2p network notifiee (connTracker) instead.
type PeerUpdate struct {
	PeerID    string
	Connected bool
}
