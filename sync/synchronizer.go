package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/polkadot-go/synccore/blockstore"
	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// SyncMode selects how imported blocks are applied (spec.md §6).
type SyncMode uint8

const (
	Full SyncMode = iota
	Fast
	FastWithoutState
	Warp
	Auto
)

// Config holds the tunables spec.md names inline (kMinPreloadedBlockAmount
// and friends).
type Config struct {
	MinPreloadedBlockAmount         int
	MinPreloadedBlockAmountFastSync int
	JustificationInterval           types.BlockNumber
	MaxJustificationLag             types.BlockNumber
	MaxDistanceToBlockForSubscribe  types.BlockNumber
	RecentnessDuration              time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinPreloadedBlockAmount:         64,
		MinPreloadedBlockAmountFastSync: 256,
		JustificationInterval:           512,
		MaxJustificationLag:             5,
		MaxDistanceToBlockForSubscribe:  128,
		RecentnessDuration:              30 * time.Second,
	}
}

// Protocol/block-tree error category (spec.md §7).
var (
	ErrResponseWithoutHeader = errors.New("sync: response block missing header")
	ErrResponseWithoutBody   = errors.New("sync: response block missing body")
	ErrDiscardedBlock        = errors.New("sync: block at or below finalized height does not match local chain")
	ErrWrongOrder            = errors.New("sync: response blocks are not linked in order")
	ErrInvalidHash           = errors.New("sync: recomputed hash does not match advertised hash")
	ErrShuttingDown          = errors.New("sync: shutting down")
)

// Tree is the narrow BlockTree surface the Synchronizer drives.
type Tree interface {
	AddHeader(hash types.Hash, h types.Header) error
	AddBlock(hash types.Hash, h types.Header, body types.Body) error
	Contains(hash types.Hash) (types.BlockInfo, bool)
	BestLeaf() types.BlockInfo
	GetLastFinalized() types.BlockInfo
	HasDirectChain(a, d types.Hash) bool
}

// FullExecutor is the surface executor.BlockExecutor exposes.
type FullExecutor interface {
	ApplyBlock(ctx context.Context, parentStateRoot types.Hash, header types.Header, body types.Body) error
}

// FastAppender is the surface executor.HeaderAppender exposes.
type FastAppender interface {
	AppendHeader(header types.Header) error
}

// ConsistencyScope is the surface validation.ConsistencyGuard
// exposes — declared as an interface here rather than the concrete
// type so callers other than validation.BlockValidator can satisfy it
// in tests.
type ConsistencyScope interface {
	Commit()
	Rollback()
}

// Validator is the surface validation.BlockValidator exposes.
type Validator interface {
	ValidateStructure(expectedParent types.Hash, h types.Header) error
	ObserveDigestsAndValidateHeader(hash types.Hash, h types.Header) (ConsistencyScope, error)
}

// JustificationApplier is the surface finality.JustificationApplier exposes.
type JustificationApplier interface {
	ApplyJustification(target types.BlockInfo, just types.Justification, imported bool) error
	RetryPostponed(imported types.BlockInfo)
}

// JustificationRequester issues an out-of-band HEADER|JUSTIFICATION
// fetch to a specific peer, addressed by the peer ID string
// Synchronizer already tracks in PeerTracker. Synchronizer itself
// never holds a live Peer value outside a request in flight, so the
// post-apply hook of spec.md §4.2.3 hands off through this interface
// rather than calling FetchJustifications directly; node.connTracker
// is the production implementation, resolving the ID back to the
// peer's p2p.PeerAdapter.
type JustificationRequester interface {
	RequestJustifications(peerID string, from types.BlockInfo, window types.BlockNumber)
}

// Synchronizer is spec.md §4.2's central component: it owns the
// import queue, the per-peer state machines, request deduplication,
// and the single-writer apply_next_block loop. Grounded on
// internal/blocksync/reactor.go's Reactor, generalized from a single
// linear chain to fork-aware application against a BlockTree.
type Synchronizer struct {
	tree      Tree
	store     blockstore.Store
	validator Validator
	executor  FullExecutor
	appender  FastAppender
	justifier JustificationApplier
	logger    log.Logger
	cfg       Config

	justificationRequester JustificationRequester

	mode atomic.Int32

	queue *importQueue
	peers *PeerTracker
	dedup *RequestTracker
	subs  *SubscriptionRegistry

	applying     atomic.Bool
	shuttingDown atomic.Bool
	stateSyncing atomic.Bool
	nextReqID    atomic.Uint64
}

func NewSynchronizer(
	tree Tree,
	store blockstore.Store,
	validator Validator,
	executor FullExecutor,
	appender FastAppender,
	justifier JustificationApplier,
	mode SyncMode,
	cfg Config,
	logger log.Logger,
) *Synchronizer {
	if logger == nil {
		logger = log.NopLogger()
	}
	s := &Synchronizer{
		tree:      tree,
		store:     store,
		validator: validator,
		executor:  executor,
		appender:  appender,
		justifier: justifier,
		logger:    logger,
		cfg:       cfg,
		queue:     newImportQueue(),
		peers:     NewPeerTracker(),
		dedup:     NewRequestTracker(cfg.RecentnessDuration),
		subs:      NewSubscriptionRegistry(),
	}
	s.mode.Store(int32(mode))
	return s
}

func (s *Synchronizer) Mode() SyncMode          { return SyncMode(s.mode.Load()) }
func (s *Synchronizer) SetMode(m SyncMode)      { s.mode.Store(int32(m)) }
func (s *Synchronizer) Peers() *PeerTracker     { return s.peers }
func (s *Synchronizer) Shutdown()               { s.shuttingDown.Store(true) }
func (s *Synchronizer) IsShuttingDown() bool     { return s.shuttingDown.Load() }
func (s *Synchronizer) StateSyncInProgress() bool { return s.stateSyncing.Load() }
func (s *Synchronizer) SetStateSyncInProgress(v bool) { s.stateSyncing.Store(v) }
func (s *Synchronizer) QueueLen() int            { return s.queue.Len() }

// SetJustificationRequester registers the collaborator the post-apply
// hook hands justification-fetch requests off to (spec.md §4.2.3).
// Left nil, the trigger is still evaluated but nothing is fetched —
// the state a Synchronizer built without p2p wiring (e.g. in tests)
// is left in.
func (s *Synchronizer) SetJustificationRequester(r JustificationRequester) {
	s.justificationRequester = r
}

func (s *Synchronizer) nextRequestID() uint64 { return s.nextReqID.Add(1) }

// SubscribeToBlock implements spec.md §4.2.6.
func (s *Synchronizer) SubscribeToBlock(info types.BlockInfo, cb SubscriptionCallback) {
	_, inTree := s.tree.Contains(info.Hash)
	lastFinalized := s.tree.GetLastFinalized()
	best := s.tree.BestLeaf()
	s.subs.Subscribe(info, inTree, lastFinalized.Number, best.Number, s.cfg.MaxDistanceToBlockForSubscribe, cb)
}

// FindCommonAncestor drives spec.md §4.2.1's binary-search probe
// against a single peer, issuing one single-header request per
// iteration and narrowing the window from the response.
func (s *Synchronizer) FindCommonAncestor(ctx context.Context, peer Peer) (types.BlockInfo, error) {
	if s.shuttingDown.Load() {
		return types.BlockInfo{}, ErrShuttingDown
	}
	if err := s.peers.TryTransition(peer.ID(), PeerProbing); err != nil {
		return types.BlockInfo{}, err
	}
	defer s.peers.Release(peer.ID())

	lastFinalized := s.tree.GetLastFinalized()
	best := s.tree.BestLeaf()
	peerBest := peer.BestBlock()

	search := startAncestorSearch(lastFinalized.Number, best.Number, peerBest.Number, s.knownLocally)
	s.peers.setAncestorSearch(peer.ID(), search)

	for {
		probe, ok := search.NextProbe()
		if !ok {
			return lastFinalized, nil
		}

		req := BlockRequest{
			ID:        s.nextRequestID(),
			Fields:    types.AttrHeader,
			From:      FromNumber(probe),
			Direction: Ascending,
			Max:       uint32Ptr(1),
		}
		resp, err := peer.RequestBlocks(ctx, req)
		if err != nil {
			return types.BlockInfo{}, fmt.Errorf("probe request: %w", err)
		}
		if len(resp.Blocks) == 0 || resp.Blocks[0].Header == nil {
			return types.BlockInfo{}, ErrEmptyResponse
		}

		result, err := search.Observe(resp.Blocks[0].Hash)
		if err != nil {
			return types.BlockInfo{}, err
		}
		if result != nil {
			return *result, nil
		}
	}
}

// knownLocally reports whether hash is known in the tree or the
// import queue (spec.md §4.2.1).
func (s *Synchronizer) knownLocally(hash types.Hash) bool {
	if _, ok := s.tree.Contains(hash); ok {
		return true
	}
	return s.queue.Contains(hash)
}

func uint32Ptr(v uint32) *uint32 { return &v }

// FetchBlockRange implements spec.md §4.2.2: request an ascending
// range from common ancestor c, validate each returned block in
// order, and insert accepted blocks into the import queue.
func (s *Synchronizer) FetchBlockRange(ctx context.Context, peer Peer, ancestor types.BlockInfo, max *uint32) error {
	if s.shuttingDown.Load() {
		return ErrShuttingDown
	}
	if err := s.peers.TryTransition(peer.ID(), PeerFetching); err != nil {
		return err
	}
	defer s.peers.Release(peer.ID())

	fields := types.AttrHeader | types.AttrBody
	if s.Mode() != Full {
		fields = types.AttrHeader
	}

	req := BlockRequest{
		ID:        s.nextRequestID(),
		Fields:    fields,
		From:      FromHash(ancestor.Hash),
		Direction: Ascending,
		Max:       max,
	}
	fp := ComputeFingerprint(req)
	if err := s.dedup.Reserve(peer.ID(), fp, "block-range fetch"); err != nil {
		return err
	}

	resp, err := peer.RequestBlocks(ctx, req)
	if err != nil {
		return fmt.Errorf("range request: %w", err)
	}

	lastFinalized := s.tree.GetLastFinalized()
	prevHash := ancestor.Hash

	for _, bd := range resp.Blocks {
		if bd.Header == nil {
			return ErrResponseWithoutHeader
		}
		if fields.Has(types.AttrBody) && bd.Body == nil {
			return ErrResponseWithoutBody
		}

		if bd.Header.Number <= lastFinalized.Number {
			if bd.Hash == lastFinalized.Hash {
				prevHash = bd.Hash
				continue
			}
			return ErrDiscardedBlock
		}
		if bd.Header.Number == lastFinalized.Number+1 && bd.Header.ParentHash != lastFinalized.Hash {
			return ErrDiscardedBlock
		}
		if bd.Header.ParentHash != prevHash {
			return ErrWrongOrder
		}
		if bd.Header.ComputeHash() != bd.Hash {
			return ErrInvalidHash
		}

		s.queue.Insert(bd, peer.ID())
		prevHash = bd.Hash
	}
	return nil
}

// FetchJustifications implements spec.md §4.2.3: the same
// range-request protocol as FetchBlockRange but masked to
// HEADER|JUSTIFICATION, covering a window of blocks starting at from.
// It paginates by re-requesting from the last-observed block until
// window blocks have been covered or the peer's response runs short
// of what was asked for (limit exhausted).
func (s *Synchronizer) FetchJustifications(ctx context.Context, peer Peer, from types.BlockInfo, window types.BlockNumber) error {
	if s.shuttingDown.Load() {
		return ErrShuttingDown
	}
	if err := s.peers.TryTransition(peer.ID(), PeerFetching); err != nil {
		return err
	}
	defer s.peers.Release(peer.ID())

	target := from.Number + window
	cursor := from.Hash
	cursorNumber := from.Number

	for cursorNumber < target {
		remaining := uint32(target - cursorNumber)
		req := BlockRequest{
			ID:        s.nextRequestID(),
			Fields:    types.AttrHeader | types.AttrJustification,
			From:      FromHash(cursor),
			Direction: Ascending,
			Max:       &remaining,
		}
		fp := ComputeFingerprint(req)
		if err := s.dedup.Reserve(peer.ID(), fp, "justification fetch"); err != nil {
			return err
		}

		resp, err := peer.RequestBlocks(ctx, req)
		if err != nil {
			return fmt.Errorf("justification request: %w", err)
		}
		if len(resp.Blocks) == 0 {
			return nil
		}

		for _, bd := range resp.Blocks {
			if bd.Header == nil {
				return ErrResponseWithoutHeader
			}
			if bd.Justification != nil {
				info := types.BlockInfo{Number: bd.Header.Number, Hash: bd.Hash}
				if err := s.justifier.ApplyJustification(info, *bd.Justification, true); err != nil {
					s.logger.Error("justification rejected", "block", info, "err", err)
				}
			}
			cursor = bd.Hash
			cursorNumber = bd.Header.Number
		}

		if uint32(len(resp.Blocks)) < remaining {
			return nil
		}
		cursorNumber++
	}
	return nil
}

// ApplyNextBlock is spec.md §4.2.4's single-writer import step,
// serialized by the applying CAS guard (invariant I8).
func (s *Synchronizer) ApplyNextBlock(ctx context.Context) error {
	if s.shuttingDown.Load() {
		return ErrShuttingDown
	}
	if !s.applying.CompareAndSwap(false, true) {
		return nil
	}
	defer s.applying.Store(false)

	bd, sourcePeers, ok := s.queue.PopLowest()
	if !ok {
		return nil
	}

	lastFinalized := s.tree.GetLastFinalized()
	if bd.Header.Number <= lastFinalized.Number {
		if _, inTree := s.tree.Contains(bd.Hash); !inTree {
			s.discardCascade(bd.Hash)
			return nil
		}
	}

	if s.stateSyncing.Load() && s.Mode() != Full {
		s.discardCascade(bd.Hash)
		return nil
	}

	if err := s.validator.ValidateStructure(bd.Header.ParentHash, *bd.Header); err != nil {
		s.penalizeAndDiscard(bd.Hash, sourcePeers, err)
		return err
	}

	guard, err := s.validator.ObserveDigestsAndValidateHeader(bd.Hash, *bd.Header)
	if err != nil {
		s.penalizeAndDiscard(bd.Hash, sourcePeers, err)
		return err
	}

	if err := s.applyByMode(ctx, bd); err != nil {
		guard.Rollback()
		s.penalizeAndDiscard(bd.Hash, sourcePeers, err)
		return err
	}
	guard.Commit()

	imported := types.BlockInfo{Number: bd.Header.Number, Hash: bd.Hash}
	s.justifier.RetryPostponed(imported)
	if bd.Justification != nil {
		if err := s.justifier.ApplyJustification(imported, *bd.Justification, true); err != nil {
			s.logger.Error("justification rejected", "block", imported, "err", err)
		}
	}
	s.subs.Notify(imported, ResultImported)

	if s.justificationRequester != nil && s.ShouldRequestJustifications(imported, bd.Header.ScheduledAuthorityChange()) {
		window := 2 * s.cfg.JustificationInterval
		for _, id := range sourcePeers {
			s.justificationRequester.RequestJustifications(id, imported, window)
		}
	}

	return nil
}

func (s *Synchronizer) applyByMode(ctx context.Context, bd types.BlockData) error {
	switch s.Mode() {
	case Full:
		if bd.Body == nil {
			return ErrResponseWithoutBody
		}
		parent, err := s.store.GetHeader(bd.Header.ParentHash)
		if err != nil {
			return fmt.Errorf("load parent header: %w", err)
		}
		if err := s.executor.ApplyBlock(ctx, parent.StateRoot, *bd.Header, *bd.Body); err != nil {
			return err
		}
		return s.tree.AddBlock(bd.Hash, *bd.Header, *bd.Body)
	default:
		if err := s.appender.AppendHeader(*bd.Header); err != nil {
			return err
		}
		return s.tree.AddHeader(bd.Hash, *bd.Header)
	}
}

func (s *Synchronizer) discardCascade(hash types.Hash) {
	removed := s.queue.CascadeDiscard(hash)
	for _, h := range removed {
		s.subs.Notify(types.BlockInfo{Hash: h}, ResultDiscarded)
	}
}

func (s *Synchronizer) penalizeAndDiscard(hash types.Hash, peers []string, cause error) {
	s.logger.Info("discarding block after failed import", "block", hash, "err", cause, "peers", peers)
	for _, id := range peers {
		s.peers.Penalize(id)
	}
	s.discardCascade(hash)
}

// ShouldRequestJustifications implements spec.md §4.2.3's
// finality-lag trigger, evaluated in the post-apply hook.
func (s *Synchronizer) ShouldRequestJustifications(imported types.BlockInfo, scheduledAuthorityChange bool) bool {
	if scheduledAuthorityChange {
		return true
	}
	lastFinalized := s.tree.GetLastFinalized()
	interval := s.cfg.JustificationInterval
	if interval == 0 {
		return false
	}
	if imported.Number <= s.cfg.MaxJustificationLag {
		return false
	}
	left := (imported.Number - s.cfg.MaxJustificationLag) / interval
	right := lastFinalized.Number / interval
	return left > right
}

// NeedsMoreBlocks reports whether the import queue is below its
// backpressure target for the current sync mode (spec.md §5).
func (s *Synchronizer) NeedsMoreBlocks() bool {
	target := s.cfg.MinPreloadedBlockAmount
	if s.Mode() != Full {
		target = s.cfg.MinPreloadedBlockAmountFastSync
	}
	return s.queue.Len() < target
}
