package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/types"
)

type fakeRuntime struct {
	root types.Hash
	err  error
}

func (f fakeRuntime) ApplyExtrinsics(context.Context, types.Hash, types.Header, types.Body) (types.Hash, error) {
	return f.root, f.err
}

func TestApplyBlockSucceedsOnMatchingRoot(t *testing.T) {
	root := types.Hash{0x42}
	e := NewBlockExecutor(fakeRuntime{root: root}, nil)
	h := types.Header{StateRoot: root}
	require.NoError(t, e.ApplyBlock(context.Background(), types.Hash{}, h, types.Body{}))
}

func TestApplyBlockRejectsMismatchedRoot(t *testing.T) {
	e := NewBlockExecutor(fakeRuntime{root: types.Hash{0x01}}, nil)
	h := types.Header{StateRoot: types.Hash{0x02}}
	require.ErrorIs(t, e.ApplyBlock(context.Background(), types.Hash{}, h, types.Body{}), ErrStateRootMismatch)
}

func TestHeaderAppenderAlwaysSucceeds(t *testing.T) {
	a := NewHeaderAppender(nil)
	require.NoError(t, a.AppendHeader(types.Header{Number: 7}))
}
