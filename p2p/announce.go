package p2p

import (
	"fmt"

	"github.com/polkadot-go/synccore/scale"
	"github.com/polkadot-go/synccore/types"
)

// EncodeBestBlock SCALE-encodes a best-block gossip announcement,
// mirroring wire.go's own encode/decode idiom for the request/response
// types.
func EncodeBestBlock(info types.BlockInfo) []byte {
	e := scale.NewEncoder()
	e.WriteCompactUint(uint64(info.Number))
	e.WriteFixed(info.Hash[:])
	return e.Bytes()
}

// DecodeBestBlock reverses EncodeBestBlock.
func DecodeBestBlock(raw []byte) (types.BlockInfo, error) {
	d := scale.NewDecoder(raw)
	n, err := d.ReadCompactUint()
	if err != nil {
		return types.BlockInfo{}, fmt.Errorf("decode best-block number: %w", err)
	}
	h, err := d.ReadFixed(32)
	if err != nil {
		return types.BlockInfo{}, fmt.Errorf("decode best-block hash: %w", err)
	}
	hash, err := types.HashFromBytes(h)
	if err != nil {
		return types.BlockInfo{}, err
	}
	return types.BlockInfo{Number: types.BlockNumber(n), Hash: hash}, nil
}
