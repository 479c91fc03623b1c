package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/types"
)

type fakeTree struct {
	nodes         map[types.Hash]types.BlockInfo
	best          types.BlockInfo
	lastFinalized types.BlockInfo
}

func newFakeTree() *fakeTree {
	genesis := types.BlockInfo{Number: 0, Hash: types.Hash{0xFF}}
	return &fakeTree{
		nodes:         map[types.Hash]types.BlockInfo{genesis.Hash: genesis},
		best:          genesis,
		lastFinalized: genesis,
	}
}

func (f *fakeTree) AddHeader(hash types.Hash, h types.Header) error {
	info := types.BlockInfo{Number: h.Number, Hash: hash}
	f.nodes[hash] = info
	f.best = info
	return nil
}
func (f *fakeTree) AddBlock(hash types.Hash, h types.Header, body types.Body) error {
	return f.AddHeader(hash, h)
}
func (f *fakeTree) Contains(hash types.Hash) (types.BlockInfo, bool) {
	info, ok := f.nodes[hash]
	return info, ok
}
func (f *fakeTree) BestLeaf() types.BlockInfo          { return f.best }
func (f *fakeTree) GetLastFinalized() types.BlockInfo  { return f.lastFinalized }
func (f *fakeTree) HasDirectChain(a, d types.Hash) bool { return true }

type fakeScope struct{}

func (fakeScope) Commit()   {}
func (fakeScope) Rollback() {}

type fakeValidator struct{ err error }

func (v fakeValidator) ValidateStructure(types.Hash, types.Header) error { return nil }
func (v fakeValidator) ObserveDigestsAndValidateHeader(types.Hash, types.Header) (ConsistencyScope, error) {
	return fakeScope{}, v.err
}

type fakeAppender struct{ err error }

func (a fakeAppender) AppendHeader(types.Header) error { return a.err }

type fakeJustifier struct{}

func (fakeJustifier) ApplyJustification(types.BlockInfo, types.Justification, bool) error { return nil }
func (fakeJustifier) RetryPostponed(types.BlockInfo)                                      {}

type fakePeer struct {
	id       string
	best     types.BlockInfo
	response BlocksResponse
	err      error
}

func (p fakePeer) ID() string                                { return p.id }
func (p fakePeer) BestBlock() types.BlockInfo                { return p.best }
func (p fakePeer) RequestBlocks(context.Context, BlockRequest) (BlocksResponse, error) {
	return p.response, p.err
}
func (p fakePeer) RequestState(context.Context, StateRequest) (StateResponse, error) {
	return StateResponse{}, nil
}

func newTestSynchronizer(tree Tree) *Synchronizer {
	return NewSynchronizer(tree, nil, fakeValidator{}, nil, fakeAppender{}, fakeJustifier{}, Fast, DefaultConfig(), nil)
}

func TestApplyNextBlockFastMode(t *testing.T) {
	tree := newFakeTree()
	s := newTestSynchronizer(tree)

	genesis := types.Hash{0xFF}
	h := types.Header{ParentHash: genesis, Number: 1}
	hash := h.ComputeHash()
	s.queue.Insert(types.BlockData{Hash: hash, Header: &h}, "peer1")

	require.NoError(t, s.ApplyNextBlock(context.Background()))
	_, ok := tree.Contains(hash)
	require.True(t, ok)
}

func TestApplyNextBlockDiscardsBelowFinalized(t *testing.T) {
	tree := newFakeTree()
	tree.lastFinalized = types.BlockInfo{Number: 10, Hash: types.Hash{0x01}}
	s := newTestSynchronizer(tree)

	h := types.Header{Number: 5}
	hash := h.ComputeHash()
	s.queue.Insert(types.BlockData{Hash: hash, Header: &h}, "peer1")

	require.NoError(t, s.ApplyNextBlock(context.Background()))
	require.False(t, s.queue.Contains(hash))
}

func TestFindCommonAncestorConverges(t *testing.T) {
	tree := newFakeTree()
	genesisHash := types.Hash{0xFF}
	tree.best = types.BlockInfo{Number: 2, Hash: types.Hash{0x02}}
	tree.nodes[types.Hash{0x01}] = types.BlockInfo{Number: 1, Hash: types.Hash{0x01}}
	tree.nodes[types.Hash{0x02}] = types.BlockInfo{Number: 2, Hash: types.Hash{0x02}}

	s := newTestSynchronizer(tree)

	peer := fakePeer{
		id:   "peer1",
		best: types.BlockInfo{Number: 5, Hash: types.Hash{0x05}},
		response: BlocksResponse{
			Blocks: []types.BlockData{{Hash: types.Hash{0x02}, Header: &types.Header{Number: 2}}},
		},
	}
	s.Peers().AddPeer("peer1", peer.best)

	ancestor, err := s.FindCommonAncestor(context.Background(), peer)
	require.NoError(t, err)
	require.Equal(t, types.BlockNumber(2), ancestor.Number)
	require.Equal(t, types.Hash{0x02}, ancestor.Hash)
	require.NotEqual(t, genesisHash, ancestor.Hash)
}

func TestShouldRequestJustificationsOnLag(t *testing.T) {
	tree := newFakeTree()
	tree.lastFinalized = types.BlockInfo{Number: 100}
	s := newTestSynchronizer(tree)

	require.True(t, s.ShouldRequestJustifications(types.BlockInfo{Number: 700}, false))
	require.False(t, s.ShouldRequestJustifications(types.BlockInfo{Number: 150}, false))
	require.True(t, s.ShouldRequestJustifications(types.BlockInfo{Number: 150}, true))
}
