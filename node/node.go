package node

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polkadot-go/synccore/blockstore"
	"github.com/polkadot-go/synccore/blocktree"
	"github.com/polkadot-go/synccore/chainspec"
	"github.com/polkadot-go/synccore/config"
	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/executor"
	"github.com/polkadot-go/synccore/finality"
	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/metrics"
	"github.com/polkadot-go/synccore/p2p"
	"github.com/polkadot-go/synccore/service"
	"github.com/polkadot-go/synccore/statesync"
	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
	"github.com/polkadot-go/synccore/validation"
)

// metricsPollInterval is how often the pull-style gauges (queue
// length, peer counts, state-sync flag) are resampled, mirroring the
// teacher's own periodic node.go sampling goroutines.
const metricsPollInterval = 5 * time.Second

// Node wires every collaborator package into one runnable service:
// storage, the fork tree, digest tracking, validation, execution,
// finality, the synchronizer, state sync, and the libp2p transport.
// Grounded on the teacher's node/node.go, which plays the identical
// "one struct, one constructor, OnStart/OnStop" role for Tendermint's
// own component graph.
type Node struct {
	*service.BaseService

	cfg    *config.Config
	logger log.Logger

	verifier       validation.Verifier
	runtime        executor.Executor
	trieBackend    statesync.TrieBackend
	newTrieBuilder chainspec.NewTrieBuilder
	stateReader    StateReader

	spec  *chainspec.Spec
	store blockstore.Store

	tree          *blocktree.BlockTree
	digestRepo    *digest.ConfigRepository
	digestTracker *digest.DigestTracker
	justifier     *finality.JustificationApplier
	synchronizer  *sync.Synchronizer
	stateSync     *statesync.StateSyncFlow
	metrics       *metrics.Metrics
	host          *p2p.Host
	conns         *connTracker

	cancel context.CancelFunc
}

// New builds a Node from cfg without touching disk or network; call
// Start to actually open storage and bring up the p2p transport.
// verifier, runtime, trieBackend, newTrieBuilder, and stateReader are
// the collaborators spec.md §1 places out of scope as fixed external
// interfaces — production wiring supplies crypto.Verifier, a WASM
// executor, and a trie implementation; stateReader may be nil for a
// node that never serves state to peers.
func New(
	cfg *config.Config,
	logger log.Logger,
	verifier validation.Verifier,
	runtime executor.Executor,
	trieBackend statesync.TrieBackend,
	newTrieBuilder chainspec.NewTrieBuilder,
	stateReader StateReader,
) (*Node, error) {
	if logger == nil {
		logger = log.NopLogger()
	}
	n := &Node{
		cfg:            cfg,
		logger:         logger,
		verifier:       verifier,
		runtime:        runtime,
		trieBackend:    trieBackend,
		newTrieBuilder: newTrieBuilder,
		stateReader:    stateReader,
	}
	n.BaseService = service.NewBaseService(logger, "node", n)
	return n, nil
}

func (n *Node) syncMode() sync.SyncMode {
	switch n.cfg.SyncMethod {
	case "fast":
		return sync.Fast
	case "fast_without_state":
		return sync.FastWithoutState
	case "warp":
		return sync.Warp
	case "auto":
		return sync.Auto
	default:
		return sync.Full
	}
}

// OnStart opens storage, loads the chain spec, builds the genesis
// block tree, and wires the synchronizer and p2p transport. It
// performs every side-effecting step deferred out of New.
func (n *Node) OnStart(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	if err := config.EnsureRoot(n.cfg.RootDir); err != nil {
		return fmt.Errorf("node: ensure root dir: %w", err)
	}

	spec, err := chainspec.FromFile(n.cfg.ChainSpecPath())
	if err != nil {
		return fmt.Errorf("node: load chain spec: %w", err)
	}
	n.spec = spec

	store, err := n.openStore()
	if err != nil {
		return fmt.Errorf("node: open block store: %w", err)
	}
	n.store = store

	genesisHash, genesisHeader, err := n.buildGenesis(spec)
	if err != nil {
		return fmt.Errorf("node: build genesis: %w", err)
	}

	reg := prometheus.NewRegistry()
	n.metrics = metrics.NewPrometheusMetrics(n.cfg.Instrumentation.Namespace, reg)
	if n.cfg.Instrumentation.Enabled {
		go n.serveMetrics(ctx, reg)
	}

	n.digestRepo = digest.NewConfigRepository(digest.Config{})
	n.digestTracker = digest.NewDigestTracker(n.digestRepo, n.logger.With("component", "digest"))

	tree, err := blocktree.New(store, genesisHash, genesisHeader,
		blocktree.WithLogger(n.logger.With("component", "blocktree")),
		blocktree.WithMetrics(n.metrics),
		blocktree.WithDiscardFunc(n.digestTracker.Forget),
	)
	if err != nil {
		return fmt.Errorf("node: build block tree: %w", err)
	}
	n.tree = tree

	blockValidator := validation.NewBlockValidator(n.verifier, n.digestTracker, n.logger.With("component", "validation"))
	n.justifier = finality.NewJustificationApplier(tree, n.verifier, n.digestRepo, n.logger.With("component", "finality"))

	blockExecutor := executor.NewBlockExecutor(n.runtime, n.logger.With("component", "executor"))
	headerAppender := executor.NewHeaderAppender(n.logger.With("component", "executor"))

	n.synchronizer = sync.NewSynchronizer(
		tree, store,
		newSyncValidator(blockValidator),
		blockExecutor, headerAppender, n.justifier,
		n.syncMode(), n.cfg.Sync.ToSyncConfig(),
		n.logger.With("component", "sync"),
	)

	n.stateSync = statesync.NewStateSyncFlow(n.trieBackend, n.logger.With("component", "statesync"), func(ev statesync.NewRuntimeEvent) {
		n.logger.Info("state sync committed new runtime state", "target", ev.Target)
		n.synchronizer.SetStateSyncInProgress(false)
		n.synchronizer.SetMode(sync.Full)
	})

	host, err := p2p.NewHost(ctx, n.cfg.P2P.ListenAddresses, n.logger.With("component", "p2p"))
	if err != nil {
		return fmt.Errorf("node: start p2p host: %w", err)
	}
	n.host = host

	p2p.RegisterBlockSyncHandler(host, newStoreBlockResponder(store))
	p2p.RegisterStateSyncHandler(host, newOptionalStateResponder(n.stateReader))
	n.conns = newConnTracker(n)
	n.synchronizer.SetJustificationRequester(n.conns)
	host.Notify(n.conns)

	metrics.PollSync(ctx, n.metrics, n.synchronizer, metricsPollInterval)

	go n.dialBootnodes(ctx)
	go n.announceBestBlock(ctx)
	go n.consumeBestBlockGossip(ctx)
	go n.runImportLoop(ctx)

	n.logger.Info("node started", "chain", spec.ID, "moniker", n.cfg.Moniker, "peer_id", host.ID())
	return nil
}

// OnStop tears down the p2p host and storage handle. The synchronizer
// and block tree hold no OS resources of their own.
func (n *Node) OnStop() {
	if n.cancel != nil {
		n.cancel()
	}
	if n.synchronizer != nil {
		n.synchronizer.Shutdown()
	}
	if n.host != nil {
		if err := n.host.Close(); err != nil {
			n.logger.Error("close p2p host failed", "err", err)
		}
	}
	if n.store != nil {
		if err := n.store.Close(); err != nil {
			n.logger.Error("close block store failed", "err", err)
		}
	}
}

// serveMetrics runs a bare Prometheus scrape endpoint for the
// lifetime of ctx, mirroring the teacher's own instrumentation.Server.
func (n *Node) serveMetrics(ctx context.Context, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: n.cfg.Instrumentation.ListenAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		n.logger.Error("metrics server failed", "err", err)
	}
}

func (n *Node) openStore() (blockstore.Store, error) {
	path := n.cfg.AbsDataDir()
	switch n.cfg.DBBackend {
	case "badger":
		return blockstore.NewBadgerStore(path)
	default:
		return blockstore.NewBoltStore(path)
	}
}

// buildGenesis computes the genesis state root from the chain spec's
// raw storage and derives the genesis header/hash from it.
func (n *Node) buildGenesis(spec *chainspec.Spec) (types.Hash, types.Header, error) {
	root, err := chainspec.ComputeStateRoot(spec.Genesis, n.newTrieBuilder)
	if err != nil {
		return types.Hash{}, types.Header{}, fmt.Errorf("compute genesis state root: %w", err)
	}
	header := types.Header{
		ParentHash: types.ZeroHash,
		Number:     0,
		StateRoot:  root,
	}
	return header.ComputeHash(), header, nil
}

// runImportLoop drives spec.md §4.2's single-writer apply_next_block
// loop for as long as the node runs. The bolt and badger storage
// backends panic when stored data fails to decode (blockstore.Store)
// rather than surfacing an error
// through the call chain (spec.md §7); recover once here and fold the
// panic into the same controlled shutdown a returned fatal error would
// trigger, instead of letting it crash the process without running
// OnStop.
func (n *Node) runImportLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("fatal storage error, shutting down", "err", r)
			go func() { _ = n.Stop() }()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := n.synchronizer.ApplyNextBlock(ctx); err != nil {
			if err == sync.ErrShuttingDown {
				return
			}
			n.logger.Debug("apply next block", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
}

// dialBootnodes connects to every bootnode named in the chain spec or
// the local p2p config.
func (n *Node) dialBootnodes(ctx context.Context) {
	boot := append(append([]string{}, n.spec.BootNodes...), n.cfg.P2P.BootNodes...)
	for _, addr := range boot {
		if _, err := n.host.Connect(ctx, addr); err != nil {
			n.logger.Error("connect bootnode failed", "addr", addr, "err", err)
		}
	}
}

// announceBestBlock periodically gossips this node's best block over
// pubsub, so peers waiting on FindCommonAncestor learn of new tips
// without polling.
func (n *Node) announceBestBlock(ctx context.Context) {
	ticker := time.NewTicker(metricsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			best := n.tree.BestLeaf()
			if err := n.host.PublishBestBlock(ctx, p2p.EncodeBestBlock(best)); err != nil {
				n.logger.Debug("publish best block failed", "err", err)
			}
		}
	}
}

// consumeBestBlockGossip updates the synchronizer's peer state as
// remote best-block announcements arrive.
func (n *Node) consumeBestBlockGossip(ctx context.Context) {
	updates, err := n.host.SubscribeBestBlock(ctx)
	if err != nil {
		n.logger.Error("subscribe best-block gossip failed", "err", err)
		return
	}
	for ann := range updates {
		info, err := p2p.DecodeBestBlock(ann.Payload)
		if err != nil {
			n.logger.Debug("decode best-block announcement failed", "err", err)
			continue
		}
		n.conns.updateBest(ann.From, info)
	}
}
