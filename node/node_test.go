package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/blockstore"
	"github.com/polkadot-go/synccore/chainspec"
	"github.com/polkadot-go/synccore/config"
	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/statesync"
	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
	"github.com/polkadot-go/synccore/validation"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifySlotClaim([32]byte, uint32, []byte) (bool, bool) { return true, true }
func (fakeVerifier) VerifyHeaderSignature(types.Hash, []byte, uint32) bool { return true }
func (fakeVerifier) VerifyJustification(types.Justification, digest.AuthoritySet) bool {
	return true
}

type fakeExecutor struct{}

func (fakeExecutor) ApplyExtrinsics(context.Context, types.Hash, types.Header, types.Body) (types.Hash, error) {
	return types.Hash{}, nil
}

type fakeTrieBackend struct{}

func (fakeTrieBackend) InsertBatch(types.Hash, []statesync.Entry) error { return nil }
func (fakeTrieBackend) Root(types.Hash) (types.Hash, error)             { return types.Hash{}, nil }
func (fakeTrieBackend) Commit(types.Hash) error                         { return nil }

type fakeTrieBuilder struct {
	kv map[string][]byte
}

func newFakeTrieBuilder() chainspec.TrieBuilder {
	return &fakeTrieBuilder{kv: make(map[string][]byte)}
}

func (b *fakeTrieBuilder) Put(key, value []byte) error {
	b.kv[string(key)] = value
	return nil
}

func (b *fakeTrieBuilder) Root() (types.Hash, error) {
	var h types.Hash
	for k := range b.kv {
		if len(k) > 0 {
			h[0] ^= k[0]
		}
	}
	return h, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SetRoot(t.TempDir())
	return cfg
}

func newTestNode(t *testing.T) *Node {
	t.Helper()
	n, err := New(testConfig(t), nil, fakeVerifier{}, fakeExecutor{}, fakeTrieBackend{}, newFakeTrieBuilder, nil)
	require.NoError(t, err)
	return n
}

func TestNewDoesNotTouchDiskOrNetwork(t *testing.T) {
	n := newTestNode(t)
	require.False(t, n.IsRunning())
	require.Nil(t, n.store)
	require.Nil(t, n.host)
}

func TestBuildGenesisIsDeterministic(t *testing.T) {
	n := newTestNode(t)
	spec := &chainspec.Spec{
		ID: "test",
		Genesis: chainspec.RawGenesis{
			Top: map[string][]byte{"code": []byte("runtime-bytes")},
		},
	}

	hash1, header1, err := n.buildGenesis(spec)
	require.NoError(t, err)
	hash2, header2, err := n.buildGenesis(spec)
	require.NoError(t, err)

	require.Equal(t, hash1, hash2)
	require.Equal(t, header1.StateRoot, header2.StateRoot)
	require.Equal(t, types.BlockNumber(0), header1.Number)
	require.True(t, header1.ParentHash.IsZero())
}

func TestSyncValidatorAdapterSatisfiesSyncValidator(t *testing.T) {
	repo := digest.NewConfigRepository(digest.Config{})
	tracker := digest.NewDigestTracker(repo, nil)
	bv := validation.NewBlockValidator(fakeVerifier{}, tracker, nil)
	adapter := newSyncValidator(bv)

	var _ sync.Validator = adapter

	require.NoError(t, adapter.ValidateStructure(types.ZeroHash, types.Header{ParentHash: types.ZeroHash, Number: 1}))

	scope, err := adapter.ObserveDigestsAndValidateHeader(types.Hash{0x01}, types.Header{ParentHash: types.ZeroHash, Number: 1})
	require.NoError(t, err)
	require.NotNil(t, scope)
	scope.Commit()
}

func TestStoreBlockResponderServesHeaderOnly(t *testing.T) {
	store := blockstore.NewMemStore()
	header := types.Header{Number: 0, StateRoot: types.Hash{0x9}}
	hash := header.ComputeHash()
	require.NoError(t, store.PutHeader(hash, header))
	require.NoError(t, store.PutLookup(0, hash))

	responder := newStoreBlockResponder(store)
	resp, err := responder.ServeBlocks(context.Background(), "", sync.BlockRequest{
		Fields:    types.AttrHeader,
		From:      sync.FromHash(hash),
		Direction: sync.Ascending,
		Max:       uint32Ptr(1),
	})
	require.NoError(t, err)
	require.Len(t, resp.Blocks, 1)
	require.NotNil(t, resp.Blocks[0].Header)
	require.Nil(t, resp.Blocks[0].Body)
}

func TestOptionalStateResponderWithoutReader(t *testing.T) {
	responder := newOptionalStateResponder(nil)
	_, err := responder.ServeState(context.Background(), "", sync.StateRequest{})
	require.ErrorIs(t, err, ErrStateServingUnsupported)
}

func uint32Ptr(v uint32) *uint32 { return &v }
