package digest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/types"
)

func TestConfigAtFallsBackToParent(t *testing.T) {
	genesis := Config{Epoch: Epoch{Index: 0, SlotDuration: 100}}
	repo := NewConfigRepository(genesis)

	unknown := types.Hash{0x01}
	require.Equal(t, genesis, repo.ConfigAt(unknown))
}

func TestObservationScopeCommit(t *testing.T) {
	genesis := Config{Epoch: Epoch{Index: 0, SlotDuration: 10}}
	repo := NewConfigRepository(genesis)
	tracker := NewDigestTracker(repo, nil)

	h := types.Header{Number: 10, Digests: []types.DigestItem{}}
	scope := tracker.Observe(types.Hash{0x02}, h)
	scope.Commit()

	got := repo.ConfigAt(types.Hash{0x02})
	require.Equal(t, uint64(1), got.Epoch.Index)
}

func TestObservationScopeRollbackLeavesConfigUnchanged(t *testing.T) {
	genesis := Config{Epoch: Epoch{Index: 0, SlotDuration: 10}}
	repo := NewConfigRepository(genesis)
	tracker := NewDigestTracker(repo, nil)

	h := types.Header{Number: 10}
	scope := tracker.Observe(types.Hash{0x03}, h)
	scope.Rollback()

	got := repo.ConfigAt(types.Hash{0x03})
	require.Equal(t, genesis, got)
}

func TestAuthorityChangeDigestUpdatesConfig(t *testing.T) {
	genesis := Config{}
	repo := NewConfigRepository(genesis)
	tracker := NewDigestTracker(repo, nil)

	payload := make([]byte, 9+12)
	payload[0] = 0x01
	payload[8] = 0x2A // authority set id = 42, low byte
	// one authority: index=1, weight=100
	payload[9+3] = 0x01
	payload[9+11] = 100

	h := types.Header{
		Number: 1,
		Digests: []types.DigestItem{
			{Kind: types.DigestConsensus, Engine: types.EngineGRANDPA, Payload: payload},
		},
	}
	scope := tracker.Observe(types.Hash{0x04}, h)
	scope.Commit()

	got := repo.ConfigAt(types.Hash{0x04})
	require.Equal(t, uint64(42), got.Authorities.ID)
	require.Len(t, got.Authorities.Authorities, 1)
	require.Equal(t, uint64(100), got.Authorities.TotalWeight())
}
