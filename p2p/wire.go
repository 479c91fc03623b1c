package p2p

import (
	"fmt"

	"github.com/polkadot-go/synccore/scale"
	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

// encodeBlockRequest/decodeBlockRequest SCALE-encode sync.BlockRequest
// (spec.md §6's sync request shape) for the block-sync channel.
func encodeBlockRequest(req sync.BlockRequest) []byte {
	e := scale.NewEncoder()
	e.WriteCompactUint(req.ID)
	e.WriteByte(byte(req.Fields))
	if req.From.Hash != nil {
		e.WriteByte(1)
		e.WriteFixed(req.From.Hash[:])
	} else {
		e.WriteByte(2)
		e.WriteCompactUint(uint64(*req.From.Number))
	}
	if req.To != nil {
		e.WriteByte(1)
		e.WriteFixed(req.To[:])
	} else {
		e.WriteByte(0)
	}
	e.WriteByte(byte(req.Direction))
	if req.Max != nil {
		e.WriteByte(1)
		e.WriteCompactUint(uint64(*req.Max))
	} else {
		e.WriteByte(0)
	}
	return e.Bytes()
}

func decodeBlockRequest(raw []byte) (sync.BlockRequest, error) {
	d := scale.NewDecoder(raw)
	var req sync.BlockRequest

	id, err := d.ReadCompactUint()
	if err != nil {
		return req, fmt.Errorf("decode id: %w", err)
	}
	req.ID = id

	fields, err := d.ReadByte()
	if err != nil {
		return req, fmt.Errorf("decode fields: %w", err)
	}
	req.Fields = types.BlockAttributes(fields)

	fromTag, err := d.ReadByte()
	if err != nil {
		return req, fmt.Errorf("decode from tag: %w", err)
	}
	switch fromTag {
	case 1:
		raw, err := d.ReadFixed(32)
		if err != nil {
			return req, fmt.Errorf("decode from hash: %w", err)
		}
		h, err := types.HashFromBytes(raw)
		if err != nil {
			return req, err
		}
		req.From = sync.FromHash(h)
	case 2:
		n, err := d.ReadCompactUint()
		if err != nil {
			return req, fmt.Errorf("decode from number: %w", err)
		}
		req.From = sync.FromNumber(types.BlockNumber(n))
	}

	toTag, err := d.ReadByte()
	if err != nil {
		return req, fmt.Errorf("decode to tag: %w", err)
	}
	if toTag == 1 {
		raw, err := d.ReadFixed(32)
		if err != nil {
			return req, fmt.Errorf("decode to hash: %w", err)
		}
		h, err := types.HashFromBytes(raw)
		if err != nil {
			return req, err
		}
		req.To = &h
	}

	dir, err := d.ReadByte()
	if err != nil {
		return req, fmt.Errorf("decode direction: %w", err)
	}
	req.Direction = sync.Direction(dir)

	maxTag, err := d.ReadByte()
	if err != nil {
		return req, fmt.Errorf("decode max tag: %w", err)
	}
	if maxTag == 1 {
		m, err := d.ReadCompactUint()
		if err != nil {
			return req, fmt.Errorf("decode max: %w", err)
		}
		v := uint32(m)
		req.Max = &v
	}
	return req, nil
}

func encodeBlockData(bd types.BlockData) []byte {
	e := scale.NewEncoder()
	e.WriteFixed(bd.Hash[:])
	if bd.Header != nil {
		e.WriteByte(1)
		e.WriteBytes(types.EncodeHeader(*bd.Header))
	} else {
		e.WriteByte(0)
	}
	if bd.Body != nil {
		e.WriteByte(1)
		e.WriteBytes(types.EncodeBody(*bd.Body))
	} else {
		e.WriteByte(0)
	}
	if bd.Justification != nil {
		e.WriteByte(1)
		e.WriteBytes(types.EncodeJustification(*bd.Justification))
	} else {
		e.WriteByte(0)
	}
	return e.Bytes()
}

func decodeBlockData(d *scale.Decoder) (types.BlockData, error) {
	var bd types.BlockData
	raw, err := d.ReadFixed(32)
	if err != nil {
		return bd, err
	}
	bd.Hash, err = types.HashFromBytes(raw)
	if err != nil {
		return bd, err
	}

	hasHeader, err := d.ReadByte()
	if err != nil {
		return bd, err
	}
	if hasHeader == 1 {
		raw, err := d.ReadBytes()
		if err != nil {
			return bd, err
		}
		h, err := types.DecodeHeader(raw)
		if err != nil {
			return bd, err
		}
		bd.Header = &h
	}

	hasBody, err := d.ReadByte()
	if err != nil {
		return bd, err
	}
	if hasBody == 1 {
		raw, err := d.ReadBytes()
		if err != nil {
			return bd, err
		}
		b, err := types.DecodeBody(raw)
		if err != nil {
			return bd, err
		}
		bd.Body = &b
	}

	hasJust, err := d.ReadByte()
	if err != nil {
		return bd, err
	}
	if hasJust == 1 {
		raw, err := d.ReadBytes()
		if err != nil {
			return bd, err
		}
		j, err := types.DecodeJustification(raw)
		if err != nil {
			return bd, err
		}
		bd.Justification = &j
	}
	return bd, nil
}

func encodeBlocksResponse(resp sync.BlocksResponse) []byte {
	e := scale.NewEncoder()
	e.WriteCompactUint(uint64(len(resp.Blocks)))
	for _, bd := range resp.Blocks {
		e.WriteBytes(encodeBlockData(bd))
	}
	return e.Bytes()
}

func decodeBlocksResponse(raw []byte) (sync.BlocksResponse, error) {
	d := scale.NewDecoder(raw)
	var resp sync.BlocksResponse
	count, err := d.ReadCompactUint()
	if err != nil {
		return resp, err
	}
	resp.Blocks = make([]types.BlockData, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := d.ReadBytes()
		if err != nil {
			return resp, err
		}
		bd, err := decodeBlockData(scale.NewDecoder(raw))
		if err != nil {
			return resp, err
		}
		resp.Blocks = append(resp.Blocks, bd)
	}
	return resp, nil
}

func encodeStateRequest(req sync.StateRequest) []byte {
	e := scale.NewEncoder()
	e.WriteFixed(req.Block[:])
	e.WriteBytes(req.Start)
	if req.Proof {
		e.WriteByte(1)
	} else {
		e.WriteByte(0)
	}
	return e.Bytes()
}

func decodeStateRequest(raw []byte) (sync.StateRequest, error) {
	d := scale.NewDecoder(raw)
	var req sync.StateRequest
	blockRaw, err := d.ReadFixed(32)
	if err != nil {
		return req, err
	}
	req.Block, err = types.HashFromBytes(blockRaw)
	if err != nil {
		return req, err
	}
	req.Start, err = d.ReadBytes()
	if err != nil {
		return req, err
	}
	proofByte, err := d.ReadByte()
	if err != nil {
		return req, err
	}
	req.Proof = proofByte == 1
	return req, nil
}

func encodeStateResponse(resp sync.StateResponse) []byte {
	e := scale.NewEncoder()
	e.WriteCompactUint(uint64(len(resp.Entries)))
	for _, entry := range resp.Entries {
		e.WriteBytes(entry.Key)
		e.WriteBytes(entry.Value)
	}
	e.WriteCompactUint(uint64(len(resp.Proof)))
	for _, p := range resp.Proof {
		e.WriteBytes(p)
	}
	if resp.Complete {
		e.WriteByte(1)
	} else {
		e.WriteByte(0)
	}
	return e.Bytes()
}

func decodeStateResponse(raw []byte) (sync.StateResponse, error) {
	d := scale.NewDecoder(raw)
	var resp sync.StateResponse
	count, err := d.ReadCompactUint()
	if err != nil {
		return resp, err
	}
	resp.Entries = make([]sync.StateEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		key, err := d.ReadBytes()
		if err != nil {
			return resp, err
		}
		value, err := d.ReadBytes()
		if err != nil {
			return resp, err
		}
		resp.Entries = append(resp.Entries, sync.StateEntry{Key: key, Value: value})
	}
	proofCount, err := d.ReadCompactUint()
	if err != nil {
		return resp, err
	}
	resp.Proof = make([][]byte, 0, proofCount)
	for i := uint64(0); i < proofCount; i++ {
		p, err := d.ReadBytes()
		if err != nil {
			return resp, err
		}
		resp.Proof = append(resp.Proof, p)
	}
	completeByte, err := d.ReadByte()
	if err != nil {
		return resp, err
	}
	resp.Complete = completeByte == 1
	return resp, nil
}
