package p2p

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

func TestBlockRequestRoundTripByHash(t *testing.T) {
	to := types.Hash{0x02}
	max := uint32(64)
	req := sync.BlockRequest{
		ID:        7,
		Fields:    types.AttrHeader | types.AttrBody,
		From:      sync.FromHash(types.Hash{0x01}),
		To:        &to,
		Direction: sync.Ascending,
		Max:       &max,
	}

	got, err := decodeBlockRequest(encodeBlockRequest(req))
	require.NoError(t, err)
	require.Equal(t, req.ID, got.ID)
	require.Equal(t, req.Fields, got.Fields)
	require.Equal(t, *req.From.Hash, *got.From.Hash)
	require.Equal(t, *req.To, *got.To)
	require.Equal(t, req.Direction, got.Direction)
	require.Equal(t, *req.Max, *got.Max)
}

func TestBlockRequestRoundTripByNumber(t *testing.T) {
	req := sync.BlockRequest{
		ID:        3,
		Fields:    types.AttrHeader,
		From:      sync.FromNumber(42),
		Direction: sync.Descending,
	}

	got, err := decodeBlockRequest(encodeBlockRequest(req))
	require.NoError(t, err)
	require.Nil(t, got.To)
	require.Nil(t, got.Max)
	require.Equal(t, types.BlockNumber(42), *got.From.Number)
}

func TestBlocksResponseRoundTrip(t *testing.T) {
	h := types.Header{Number: 5, ParentHash: types.Hash{0x01}}
	body := types.Body{Extrinsics: []types.Extrinsic{[]byte("ext1")}}
	just := types.Justification{Round: 1, TargetHash: types.Hash{0x09}, TargetNumber: 5}

	resp := sync.BlocksResponse{Blocks: []types.BlockData{
		{Hash: types.Hash{0x05}, Header: &h, Body: &body, Justification: &just},
		{Hash: types.Hash{0x06}},
	}}

	got, err := decodeBlocksResponse(encodeBlocksResponse(resp))
	require.NoError(t, err)
	require.Len(t, got.Blocks, 2)
	require.Equal(t, resp.Blocks[0].Hash, got.Blocks[0].Hash)
	require.Equal(t, h.Number, got.Blocks[0].Header.Number)
	require.Equal(t, body.Extrinsics[0], got.Blocks[0].Body.Extrinsics[0])
	require.Equal(t, just.Round, got.Blocks[0].Justification.Round)
	require.Nil(t, got.Blocks[1].Header)
}

func TestStateRequestResponseRoundTrip(t *testing.T) {
	req := sync.StateRequest{Block: types.Hash{0x04}, Start: []byte("key-1"), Proof: true}
	got, err := decodeStateRequest(encodeStateRequest(req))
	require.NoError(t, err)
	require.Equal(t, req.Block, got.Block)
	require.Equal(t, req.Start, got.Start)
	require.True(t, got.Proof)

	resp := sync.StateResponse{
		Entries:  []sync.StateEntry{{Key: []byte("a"), Value: []byte("1")}},
		Proof:    [][]byte{[]byte("proofnode")},
		Complete: true,
	}
	gotResp, err := decodeStateResponse(encodeStateResponse(resp))
	require.NoError(t, err)
	require.Equal(t, resp.Entries, gotResp.Entries)
	require.Equal(t, resp.Proof, gotResp.Proof)
	require.True(t, gotResp.Complete)
}
