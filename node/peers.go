package node

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/polkadot-go/synccore/p2p"
	"github.com/polkadot-go/synccore/types"
)

// connTracker bridges libp2p connection lifecycle events into
// sync.PeerTracker and drives one catch-up cycle (common-ancestor
// search plus a range fetch) for every newly connected peer,
// mirroring the teacher's own AddPeer-triggers-a-pool-request idiom
// in internal/blocksync/reactor.go's Receive/AddPeer handling.
type connTracker struct {
	n *Node

	mu    sync.Mutex
	peers map[libp2ppeer.ID]*p2p.PeerAdapter
}

func newConnTracker(n *Node) *connTracker {
	return &connTracker{n: n, peers: make(map[libp2ppeer.ID]*p2p.PeerAdapter)}
}

func (c *connTracker) Listen(network.Network, multiaddr.Multiaddr)      {}
func (c *connTracker) ListenClose(network.Network, multiaddr.Multiaddr) {}

func (c *connTracker) Connected(_ network.Network, conn network.Conn) {
	pid := conn.RemotePeer()

	adapter := p2p.NewPeerAdapter(c.n.host, pid, types.BlockInfo{})
	c.mu.Lock()
	c.peers[pid] = adapter
	c.mu.Unlock()

	c.n.synchronizer.Peers().AddPeer(pid.String(), types.BlockInfo{})
	c.n.logger.Info("peer connected", "peer", pid.String())

	go c.catchUp(adapter)
}

func (c *connTracker) Disconnected(_ network.Network, conn network.Conn) {
	pid := conn.RemotePeer()

	c.mu.Lock()
	delete(c.peers, pid)
	c.mu.Unlock()

	c.n.synchronizer.Peers().RemovePeer(pid.String())
	c.n.logger.Info("peer disconnected", "peer", pid.String())
}

// catchUp runs one common-ancestor search and range fetch against a
// freshly connected peer, giving the import queue something to work
// on without waiting for the next gossip announcement.
func (c *connTracker) catchUp(peer *p2p.PeerAdapter) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ancestor, err := c.n.synchronizer.FindCommonAncestor(ctx, peer)
	if err != nil {
		c.n.logger.Debug("common ancestor search failed", "peer", peer.ID(), "err", err)
		return
	}
	if err := c.n.synchronizer.FetchBlockRange(ctx, peer, ancestor, nil); err != nil {
		c.n.logger.Debug("range fetch failed", "peer", peer.ID(), "err", err)
	}
}

// RequestJustifications implements sync.JustificationRequester: it
// resolves peerID back to the live adapter connTracker holds and runs
// FetchJustifications against it in the background, the same
// fire-and-forget shape catchUp uses for the initial range fetch.
func (c *connTracker) RequestJustifications(peerID string, from types.BlockInfo, window types.BlockNumber) {
	c.mu.Lock()
	var target *p2p.PeerAdapter
	for pid, adapter := range c.peers {
		if pid.String() == peerID {
			target = adapter
			break
		}
	}
	c.mu.Unlock()
	if target == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.n.synchronizer.FetchJustifications(ctx, target, from, window); err != nil {
			c.n.logger.Debug("justification fetch failed", "peer", peerID, "err", err)
		}
	}()
}

// updateBest applies a gossiped best-block announcement to the
// announcing peer's adapter and the synchronizer's peer state.
func (c *connTracker) updateBest(from libp2ppeer.ID, info types.BlockInfo) {
	c.mu.Lock()
	adapter, ok := c.peers[from]
	c.mu.Unlock()
	if ok {
		adapter.SetBestBlock(info)
	}
	c.n.synchronizer.Peers().UpdateBest(from.String(), info)
}
