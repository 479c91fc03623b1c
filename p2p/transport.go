package p2p

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/gogo/protobuf/proto"
	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"

	"github.com/polkadot-go/synccore/log"
)

const maxEnvelopeSize = 16 << 20 // 16 MiB, generous for a state-sync page

// RequestHandler answers an inbound Envelope on a given channel with
// a response Envelope, or an error to close the stream.
type RequestHandler func(ctx context.Context, from peer.ID, req *Envelope) (*Envelope, error)

// Host wraps a go-libp2p host.Host plus a gossipsub instance for
// best-block announcements, providing the two legs spec.md §6's peer
// protocol needs: request/response and broadcast.
type Host struct {
	logger log.Logger
	h      host.Host
	pubsub *pubsub.PubSub

	mu        sync.Mutex
	handlers  map[protocol.ID]RequestHandler
	bestTopic *pubsub.Topic
}

// NewHost starts a libp2p host listening on listenAddrs and joins the
// best-block gossip topic.
func NewHost(ctx context.Context, listenAddrs []string, logger log.Logger) (*Host, error) {
	if logger == nil {
		logger = log.NopLogger()
	}
	var opts []libp2p.Option
	for _, a := range listenAddrs {
		maddr, err := multiaddr.NewMultiaddr(a)
		if err != nil {
			return nil, fmt.Errorf("parse listen addr %q: %w", a, err)
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("start libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("start gossipsub: %w", err)
	}

	topic, err := ps.Join(TopicBestBlock)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("join best-block topic: %w", err)
	}

	return &Host{
		logger:    logger,
		h:         h,
		pubsub:    ps,
		handlers:  make(map[protocol.ID]RequestHandler),
		bestTopic: topic,
	}, nil
}

func (h *Host) ID() string   { return h.h.ID().String() }
func (h *Host) Close() error { return h.h.Close() }

// Notify registers n against the host's underlying network, so the
// node package can learn of connect/disconnect events without
// reaching into the wrapped host.Host itself.
func (h *Host) Notify(n network.Notifiee) { h.h.Network().Notify(n) }

// Connect dials a peer by multiaddr string (e.g. from a chain spec's
// bootnode list).
func (h *Host) Connect(ctx context.Context, addr string) (peer.ID, error) {
	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return "", fmt.Errorf("parse bootnode addr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return "", fmt.Errorf("resolve peer info: %w", err)
	}
	if err := h.h.Connect(ctx, *info); err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	return info.ID, nil
}

// Handle registers a RequestHandler for a channel.
func (h *Host) Handle(ch protocol.ID, handler RequestHandler) {
	h.mu.Lock()
	h.handlers[ch] = handler
	h.mu.Unlock()

	h.h.SetStreamHandler(ch, func(s network.Stream) {
		defer s.Close()
		req, err := readEnvelope(s)
		if err != nil {
			h.logger.Debug("read envelope failed", "err", err)
			return
		}
		resp, err := handler(context.Background(), s.Conn().RemotePeer(), req)
		if err != nil {
			h.logger.Debug("request handler failed", "err", err)
			return
		}
		if err := writeEnvelope(s, resp); err != nil {
			h.logger.Debug("write envelope failed", "err", err)
		}
	})
}

// Request opens a stream to pid on channel ch, writes req, and reads
// back one response Envelope.
func (h *Host) Request(ctx context.Context, pid peer.ID, ch protocol.ID, req *Envelope) (*Envelope, error) {
	s, err := h.h.NewStream(ctx, pid, ch)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer s.Close()

	if err := writeEnvelope(s, req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	return readEnvelope(s)
}

// PublishBestBlock gossips a best-block announcement payload
// (SCALE-encoded BlockInfo) to the pubsub topic.
func (h *Host) PublishBestBlock(ctx context.Context, payload []byte) error {
	return h.bestTopic.Publish(ctx, payload)
}

// BestBlockAnnouncement pairs a gossiped best-block payload with the
// peer it arrived from, so a caller can route it to that peer's
// sync.PeerTracker entry.
type BestBlockAnnouncement struct {
	From    peer.ID
	Payload []byte
}

// SubscribeBestBlock returns a channel of announcements from peers,
// backed by a pubsub subscription drained on its own goroutine until
// ctx is canceled.
func (h *Host) SubscribeBestBlock(ctx context.Context) (<-chan BestBlockAnnouncement, error) {
	sub, err := h.bestTopic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe best-block topic: %w", err)
	}
	out := make(chan BestBlockAnnouncement, 32)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				return
			}
			if msg.ReceivedFrom == h.h.ID() {
				continue
			}
			select {
			case out <- BestBlockAnnouncement{From: msg.ReceivedFrom, Payload: msg.Data}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func writeEnvelope(w io.Writer, env *Envelope) error {
	data, err := proto.Marshal(env)
	if err != nil {
		return err
	}
	if len(data) > maxEnvelopeSize {
		return fmt.Errorf("envelope too large: %d bytes", len(data))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readEnvelope(r io.Reader) (*Envelope, error) {
	br := bufio.NewReader(r)
	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxEnvelopeSize {
		return nil, fmt.Errorf("envelope too large: %d bytes", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, err
	}
	env := &Envelope{}
	if err := proto.Unmarshal(data, env); err != nil {
		return nil, err
	}
	return env, nil
}
