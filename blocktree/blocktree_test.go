package blocktree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/blockstore"
	"github.com/polkadot-go/synccore/types"
)

func testHeader(parent types.Hash, number types.BlockNumber, primary bool, salt byte) (types.Hash, types.Header) {
	payload := []byte{0}
	if primary {
		payload = []byte{types.PrimarySlotTag}
	}
	h := types.Header{
		ParentHash: parent,
		Number:     number,
		StateRoot:  types.Hash{salt},
		Digests: []types.DigestItem{
			{Kind: types.DigestPreRuntime, Engine: types.EngineBABE, Payload: payload},
		},
	}
	hash := types.Hash{salt, byte(number)}
	return hash, h
}

func newTestTree(t *testing.T) (*BlockTree, types.Hash) {
	t.Helper()
	store := blockstore.NewMemStore()
	genesisHash := types.Hash{0xFF}
	genesis := types.Header{Number: 0}
	tree, err := New(store, genesisHash, genesis)
	require.NoError(t, err)
	return tree, genesisHash
}

// Scenario 1 (spec.md §8): genesis-only tree.
func TestGenesisOnly(t *testing.T) {
	tree, genesisHash := newTestTree(t)

	require.Equal(t, types.GenesisInfo(genesisHash), tree.BestLeaf())
	require.Equal(t, types.GenesisInfo(genesisHash), tree.GetLastFinalized())
	require.Equal(t, []types.BlockInfo{types.GenesisInfo(genesisHash)}, tree.GetLeaves())
}

// Scenario 2 (spec.md §8): simple linear extension keeps a single leaf
// and advances BestLeaf monotonically.
func TestSimpleExtension(t *testing.T) {
	tree, genesisHash := newTestTree(t)

	parent := genesisHash
	for i := types.BlockNumber(1); i <= 5; i++ {
		hash, h := testHeader(parent, i, false, byte(i))
		require.NoError(t, tree.AddHeader(hash, h))
		parent = hash
	}

	require.Equal(t, types.BlockNumber(5), tree.BestLeaf().Number)
	require.Len(t, tree.GetLeaves(), 1)
}

// Scenario 3 (spec.md §8): fork-then-finalize prunes the losing branch
// and reparents the tree at the finalized block (invariants I4-I6).
func TestForkThenFinalize(t *testing.T) {
	tree, genesisHash := newTestTree(t)

	aHash, aHeader := testHeader(genesisHash, 1, true, 0xA1)
	require.NoError(t, tree.AddHeader(aHash, aHeader))

	bHash, bHeader := testHeader(genesisHash, 1, false, 0xB1)
	require.NoError(t, tree.AddHeader(bHash, bHeader))

	require.Len(t, tree.GetLeaves(), 2)
	// A claims a primary slot, B does not: A must win best-chain selection.
	require.Equal(t, aHash, tree.BestLeaf().Hash)

	require.NoError(t, tree.Finalize(aHash, nil))

	require.Equal(t, aHash, tree.GetLastFinalized().Hash)
	require.Equal(t, []types.BlockInfo{{Number: 1, Hash: aHash}}, tree.GetLeaves())

	// B's branch is gone: extending it now fails with ErrParentNotFound.
	cHash, cHeader := testHeader(bHash, 2, false, 0xB2)
	require.ErrorIs(t, tree.AddHeader(cHash, cHeader), ErrParentNotFound)
}

// Finalizing the current root is an idempotent no-op (spec.md §4.1).
func TestFinalizeRootIsNoop(t *testing.T) {
	tree, genesisHash := newTestTree(t)
	require.NoError(t, tree.Finalize(genesisHash, nil))
	require.Equal(t, types.GenesisInfo(genesisHash), tree.GetLastFinalized())
}

// AddBlock on a duplicate hash reports ErrBlockExists rather than
// silently overwriting (spec.md §7).
func TestAddBlockDuplicate(t *testing.T) {
	tree, genesisHash := newTestTree(t)
	hash, h := testHeader(genesisHash, 1, false, 0x01)
	require.NoError(t, tree.AddBlock(hash, h, types.Body{}))
	require.ErrorIs(t, tree.AddBlock(hash, h, types.Body{}), ErrBlockExists)
}

// RemoveLeaf refuses to remove an internal node (invariant: only
// leaves are ever removed directly).
func TestRemoveLeafRejectsInternalNode(t *testing.T) {
	tree, genesisHash := newTestTree(t)
	h1, header1 := testHeader(genesisHash, 1, false, 0x01)
	require.NoError(t, tree.AddHeader(h1, header1))
	h2, header2 := testHeader(h1, 2, false, 0x02)
	require.NoError(t, tree.AddHeader(h2, header2))

	require.ErrorIs(t, tree.RemoveLeaf(h1), ErrNotALeaf)
	require.NoError(t, tree.RemoveLeaf(h2))
}

// GetChainByBlocks returns the ascending hash sequence from ancestor
// (exclusive) to descendant (inclusive).
func TestGetChainByBlocks(t *testing.T) {
	tree, genesisHash := newTestTree(t)
	h1, header1 := testHeader(genesisHash, 1, false, 0x01)
	require.NoError(t, tree.AddHeader(h1, header1))
	h2, header2 := testHeader(h1, 2, false, 0x02)
	require.NoError(t, tree.AddHeader(h2, header2))
	h3, header3 := testHeader(h2, 3, false, 0x03)
	require.NoError(t, tree.AddHeader(h3, header3))

	chain, err := tree.GetChainByBlocks(genesisHash, h3)
	require.NoError(t, err)
	require.Equal(t, []types.Hash{h1, h2, h3}, chain)
}

// HasDirectChain answers descent queries both within the live tree and
// across a finalized boundary (invariant I5).
func TestHasDirectChain(t *testing.T) {
	tree, genesisHash := newTestTree(t)
	h1, header1 := testHeader(genesisHash, 1, false, 0x01)
	require.NoError(t, tree.AddHeader(h1, header1))
	h2, header2 := testHeader(h1, 2, false, 0x02)
	require.NoError(t, tree.AddHeader(h2, header2))

	require.True(t, tree.HasDirectChain(genesisHash, h2))
	require.False(t, tree.HasDirectChain(h2, genesisHash))

	require.NoError(t, tree.Finalize(h1, nil))
	require.True(t, tree.HasDirectChain(h1, h2))
	require.True(t, tree.HasDirectChain(genesisHash, h2))
}

// GetBestContaining respects an optional max-number cap, walking back
// to the highest qualifying ancestor of the best leaf.
func TestGetBestContainingWithMax(t *testing.T) {
	tree, genesisHash := newTestTree(t)
	h1, header1 := testHeader(genesisHash, 1, false, 0x01)
	require.NoError(t, tree.AddHeader(h1, header1))
	h2, header2 := testHeader(h1, 2, false, 0x02)
	require.NoError(t, tree.AddHeader(h2, header2))
	h3, header3 := testHeader(h2, 3, false, 0x03)
	require.NoError(t, tree.AddHeader(h3, header3))

	max := types.BlockNumber(2)
	info, err := tree.GetBestContaining(genesisHash, &max)
	require.NoError(t, err)
	require.Equal(t, h2, info.Hash)

	_, err = tree.GetBestContaining(h3, nil)
	require.NoError(t, err)

	tooLow := types.BlockNumber(0)
	_, err = tree.GetBestContaining(h3, &tooLow)
	require.ErrorIs(t, err, ErrTargetIsPastMax)
}

// Finalizing a hash outside the current tree (already pruned or
// unknown) is rejected rather than silently ignored.
func TestFinalizeUnknownHash(t *testing.T) {
	tree, _ := newTestTree(t)
	require.ErrorIs(t, tree.Finalize(types.Hash{0x99}, nil), ErrBlockNotFound)
}
