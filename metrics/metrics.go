// Package metrics exposes this node's block-import and sync state as
// Prometheus collectors. Grounded on the teacher's own
// blockchain/hot/metrics.go (subsystem "hot_sync", one gauge per
// tracked quantity, a PrometheusMetrics constructor), adapted to call
// github.com/prometheus/client_golang directly rather than through
// the go-kit metrics facade, since this module carries no go-kit
// dependency.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

// Subsystem groups every metric this package exposes under one
// Prometheus subsystem name, mirroring MetricsSubsystem in the
// teacher's own metrics.go files.
const Subsystem = "blocksync"

// Metrics holds every gauge this node reports. It implements
// blocktree.Metrics directly so a BlockTree can be constructed with
// blocktree.WithMetrics(m) with no adapter.
type Metrics struct {
	LeafCount        prometheus.Gauge
	BestHeight       prometheus.Gauge
	FinalizedHeight  prometheus.Gauge
	QueueLength      prometheus.Gauge
	PeerCount        prometheus.Gauge
	IdlePeerCount    prometheus.Gauge
	StateSyncing     prometheus.Gauge
}

// NewPrometheusMetrics builds Metrics registered against reg, with
// namespace as the metric name prefix (e.g. the binary name).
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      name,
			Help:      help,
		})
		if reg != nil {
			reg.MustRegister(g)
		}
		return g
	}

	return &Metrics{
		LeafCount:       gauge("leaf_count", "Number of leaves in the block tree."),
		BestHeight:      gauge("best_height", "Height of the current best chain."),
		FinalizedHeight: gauge("finalized_height", "Height of the last finalized block."),
		QueueLength:     gauge("import_queue_length", "Number of blocks waiting to be imported."),
		PeerCount:       gauge("peer_count", "Number of known sync peers."),
		IdlePeerCount:   gauge("idle_peer_count", "Number of sync peers not currently busy with a request."),
		StateSyncing:    gauge("state_syncing", "1 if a state sync download is in progress, 0 otherwise."),
	}
}

// SetLeafCount implements blocktree.Metrics.
func (m *Metrics) SetLeafCount(n int) { m.LeafCount.Set(float64(n)) }

// SetBestHeight implements blocktree.Metrics.
func (m *Metrics) SetBestHeight(n types.BlockNumber) { m.BestHeight.Set(float64(n)) }

// SetFinalizedHeight implements blocktree.Metrics.
func (m *Metrics) SetFinalizedHeight(n types.BlockNumber) { m.FinalizedHeight.Set(float64(n)) }

// SyncSource is the narrow view of a Synchronizer this package polls
// for gauges that change too often, or in too many places, to push
// eagerly (queue depth, state-sync status).
type SyncSource interface {
	QueueLen() int
	Peers() *sync.PeerTracker
	StateSyncInProgress() bool
}

// PollSync starts a goroutine that samples src into m every interval,
// until ctx is canceled. Grounded on the teacher's node.go periodic
// metrics-refresh goroutines (e.g. mempool size sampling).
func PollSync(ctx context.Context, m *Metrics, src SyncSource, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.QueueLength.Set(float64(src.QueueLen()))
				peers := src.Peers()
				m.PeerCount.Set(float64(peers.Count()))
				m.IdlePeerCount.Set(float64(len(peers.IdlePeers())))
				if src.StateSyncInProgress() {
					m.StateSyncing.Set(1)
				} else {
					m.StateSyncing.Set(0)
				}
			}
		}
	}()
}
