package finality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/types"
)

type fakeTree struct {
	lastFinalized types.BlockInfo
	chain         map[types.Hash]bool
	finalizedHash types.Hash
	finalizeErr   error
}

func (f *fakeTree) Finalize(hash types.Hash, just *types.Justification) error {
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalizedHash = hash
	return nil
}
func (f *fakeTree) HasDirectChain(a, d types.Hash) bool { return f.chain[d] }
func (f *fakeTree) GetLastFinalized() types.BlockInfo   { return f.lastFinalized }

type alwaysVerifier struct{ ok bool }

func (v alwaysVerifier) VerifyJustification(types.Justification, digest.AuthoritySet) bool { return v.ok }

func testAuthoritySet() digest.AuthoritySet {
	return digest.AuthoritySet{
		ID: 1,
		Authorities: []digest.Authority{
			{Index: 0, Weight: 1},
			{Index: 1, Weight: 1},
			{Index: 2, Weight: 1},
		},
	}
}

func TestApplyJustificationSucceedsWithQuorum(t *testing.T) {
	target := types.Hash{0x01}
	repo := digest.NewConfigRepository(digest.Config{Authorities: testAuthoritySet()})
	tree := &fakeTree{chain: map[types.Hash]bool{target: true}}
	applier := NewJustificationApplier(tree, alwaysVerifier{ok: true}, repo, nil)

	just := types.Justification{
		TargetHash: target,
		PreCommits: []types.PreCommit{{AuthorityIdx: 0}, {AuthorityIdx: 1}},
	}
	err := applier.ApplyJustification(types.BlockInfo{Hash: target}, just, true)
	require.NoError(t, err)
	require.Equal(t, target, tree.finalizedHash)
}

func TestApplyJustificationRejectsInsufficientWeight(t *testing.T) {
	target := types.Hash{0x02}
	repo := digest.NewConfigRepository(digest.Config{Authorities: testAuthoritySet()})
	tree := &fakeTree{chain: map[types.Hash]bool{target: true}}
	applier := NewJustificationApplier(tree, alwaysVerifier{ok: true}, repo, nil)

	just := types.Justification{
		TargetHash: target,
		PreCommits: []types.PreCommit{{AuthorityIdx: 0}},
	}
	err := applier.ApplyJustification(types.BlockInfo{Hash: target}, just, true)
	require.ErrorIs(t, err, ErrInsufficientWeight)
}

func TestApplyJustificationRejectsBadSignature(t *testing.T) {
	target := types.Hash{0x03}
	repo := digest.NewConfigRepository(digest.Config{Authorities: testAuthoritySet()})
	tree := &fakeTree{chain: map[types.Hash]bool{target: true}}
	applier := NewJustificationApplier(tree, alwaysVerifier{ok: false}, repo, nil)

	just := types.Justification{TargetHash: target, PreCommits: []types.PreCommit{{AuthorityIdx: 0}, {AuthorityIdx: 1}}}
	err := applier.ApplyJustification(types.BlockInfo{Hash: target}, just, true)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestApplyJustificationPostponesUnimportedTarget(t *testing.T) {
	target := types.Hash{0x04}
	repo := digest.NewConfigRepository(digest.Config{Authorities: testAuthoritySet()})
	tree := &fakeTree{chain: map[types.Hash]bool{target: true}}
	applier := NewJustificationApplier(tree, alwaysVerifier{ok: true}, repo, nil)

	just := types.Justification{TargetHash: target, PreCommits: []types.PreCommit{{AuthorityIdx: 0}, {AuthorityIdx: 1}}}
	require.NoError(t, applier.ApplyJustification(types.BlockInfo{Hash: target}, just, false))
	require.Equal(t, types.Hash{}, tree.finalizedHash)

	applier.RetryPostponed(types.BlockInfo{Hash: target})
	require.Equal(t, target, tree.finalizedHash)
}
