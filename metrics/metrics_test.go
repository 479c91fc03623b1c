package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestSetLeafCountAndHeights(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics("test", reg)

	m.SetLeafCount(3)
	m.SetBestHeight(types.BlockNumber(10))
	m.SetFinalizedHeight(types.BlockNumber(4))

	require.Equal(t, float64(3), gaugeValue(t, m.LeafCount))
	require.Equal(t, float64(10), gaugeValue(t, m.BestHeight))
	require.Equal(t, float64(4), gaugeValue(t, m.FinalizedHeight))
}

type fakeSyncSource struct {
	queueLen   int
	peers      *sync.PeerTracker
	syncing    bool
}

func (f *fakeSyncSource) QueueLen() int                 { return f.queueLen }
func (f *fakeSyncSource) Peers() *sync.PeerTracker      { return f.peers }
func (f *fakeSyncSource) StateSyncInProgress() bool     { return f.syncing }

func TestPollSyncSamplesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics("test", reg)

	peers := sync.NewPeerTracker()
	peers.AddPeer("p1", types.BlockInfo{})
	peers.AddPeer("p2", types.BlockInfo{})
	require.NoError(t, peers.TryTransition("p1", sync.PeerFetching))

	src := &fakeSyncSource{queueLen: 7, peers: peers, syncing: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	PollSync(ctx, m, src, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return gaugeValue(t, m.QueueLength) == 7 &&
			gaugeValue(t, m.PeerCount) == 2 &&
			gaugeValue(t, m.IdlePeerCount) == 1 &&
			gaugeValue(t, m.StateSyncing) == 1
	}, time.Second, 5*time.Millisecond)
}
