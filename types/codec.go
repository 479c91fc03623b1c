package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/polkadot-go/synccore/scale"
)

// EncodeHeader SCALE-encodes a header for hashing and wire transfer.
func EncodeHeader(h Header) []byte {
	e := scale.NewEncoder()
	e.WriteFixed(h.ParentHash[:])
	e.WriteCompactUint(uint64(h.Number))
	e.WriteFixed(h.StateRoot[:])
	e.WriteFixed(h.ExtrinsicsRoot[:])
	e.WriteCompactUint(uint64(len(h.Digests)))
	for _, d := range h.Digests {
		e.WriteByte(byte(d.Kind))
		e.WriteFixed(d.Engine[:])
		e.WriteBytes(d.Payload)
	}
	return e.Bytes()
}

// DecodeHeader decodes a header previously written by EncodeHeader.
func DecodeHeader(b []byte) (Header, error) {
	d := scale.NewDecoder(b)
	var h Header

	parent, err := d.ReadFixed(32)
	if err != nil {
		return h, fmt.Errorf("decode parent hash: %w", err)
	}
	copy(h.ParentHash[:], parent)

	number, err := d.ReadCompactUint()
	if err != nil {
		return h, fmt.Errorf("decode number: %w", err)
	}
	h.Number = BlockNumber(number)

	stateRoot, err := d.ReadFixed(32)
	if err != nil {
		return h, fmt.Errorf("decode state root: %w", err)
	}
	copy(h.StateRoot[:], stateRoot)

	extrinsicsRoot, err := d.ReadFixed(32)
	if err != nil {
		return h, fmt.Errorf("decode extrinsics root: %w", err)
	}
	copy(h.ExtrinsicsRoot[:], extrinsicsRoot)

	count, err := d.ReadCompactUint()
	if err != nil {
		return h, fmt.Errorf("decode digest count: %w", err)
	}
	if count > 0 {
		h.Digests = make([]DigestItem, 0, count)
	}
	for i := uint64(0); i < count; i++ {
		kind, err := d.ReadByte()
		if err != nil {
			return h, fmt.Errorf("decode digest kind: %w", err)
		}
		engine, err := d.ReadFixed(4)
		if err != nil {
			return h, fmt.Errorf("decode digest engine: %w", err)
		}
		payload, err := d.ReadBytes()
		if err != nil {
			return h, fmt.Errorf("decode digest payload: %w", err)
		}
		var eng ConsensusEngineID
		copy(eng[:], engine)
		h.Digests = append(h.Digests, DigestItem{
			Kind:    DigestKind(kind),
			Engine:  eng,
			Payload: append([]byte(nil), payload...),
		})
	}
	return h, nil
}

// EncodeBody SCALE-encodes a block body.
func EncodeBody(b Body) []byte {
	e := scale.NewEncoder()
	e.WriteCompactUint(uint64(len(b.Extrinsics)))
	for _, ext := range b.Extrinsics {
		e.WriteBytes(ext)
	}
	return e.Bytes()
}

// DecodeBody decodes a block body previously written by EncodeBody.
func DecodeBody(raw []byte) (Body, error) {
	d := scale.NewDecoder(raw)
	var b Body
	count, err := d.ReadCompactUint()
	if err != nil {
		return b, fmt.Errorf("decode extrinsic count: %w", err)
	}
	b.Extrinsics = make([]Extrinsic, 0, count)
	for i := uint64(0); i < count; i++ {
		ext, err := d.ReadBytes()
		if err != nil {
			return b, fmt.Errorf("decode extrinsic: %w", err)
		}
		b.Extrinsics = append(b.Extrinsics, append([]byte(nil), ext...))
	}
	return b, nil
}

// EncodeJustification SCALE-encodes a GRANDPA justification.
func EncodeJustification(j Justification) []byte {
	e := scale.NewEncoder()
	e.WriteCompactUint(j.Round)
	e.WriteFixed(j.TargetHash[:])
	e.WriteCompactUint(uint64(j.TargetNumber))
	e.WriteCompactUint(uint64(len(j.PreCommits)))
	for _, pc := range j.PreCommits {
		e.WriteFixed(pc.TargetHash[:])
		e.WriteCompactUint(uint64(pc.TargetNumber))
		e.WriteCompactUint(uint64(pc.AuthorityIdx))
		e.WriteBytes(pc.Signature)
	}
	return e.Bytes()
}

// DecodeJustification decodes a justification previously written by
// EncodeJustification.
func DecodeJustification(raw []byte) (Justification, error) {
	d := scale.NewDecoder(raw)
	var j Justification

	round, err := d.ReadCompactUint()
	if err != nil {
		return j, fmt.Errorf("decode round: %w", err)
	}
	j.Round = round

	target, err := d.ReadFixed(32)
	if err != nil {
		return j, fmt.Errorf("decode target hash: %w", err)
	}
	copy(j.TargetHash[:], target)

	number, err := d.ReadCompactUint()
	if err != nil {
		return j, fmt.Errorf("decode target number: %w", err)
	}
	j.TargetNumber = BlockNumber(number)

	count, err := d.ReadCompactUint()
	if err != nil {
		return j, fmt.Errorf("decode precommit count: %w", err)
	}
	j.PreCommits = make([]PreCommit, 0, count)
	for i := uint64(0); i < count; i++ {
		targetHash, err := d.ReadFixed(32)
		if err != nil {
			return j, fmt.Errorf("decode precommit target: %w", err)
		}
		targetNumber, err := d.ReadCompactUint()
		if err != nil {
			return j, fmt.Errorf("decode precommit number: %w", err)
		}
		authIdx, err := d.ReadCompactUint()
		if err != nil {
			return j, fmt.Errorf("decode precommit authority: %w", err)
		}
		sig, err := d.ReadBytes()
		if err != nil {
			return j, fmt.Errorf("decode precommit signature: %w", err)
		}
		var th Hash
		copy(th[:], targetHash)
		j.PreCommits = append(j.PreCommits, PreCommit{
			TargetHash:   th,
			TargetNumber: BlockNumber(targetNumber),
			AuthorityIdx: uint32(authIdx),
			Signature:    append([]byte(nil), sig...),
		})
	}
	return j, nil
}

// scaleHashHeader is the default (placeholder) header hasher: sha256
// over the SCALE encoding. Nothing in this module replaces
// DefaultHasher, so every header hash is computed this way (Substrate
// chains use blake2b-256).
func scaleHashHeader(h Header) Hash {
	sum := sha256.Sum256(EncodeHeader(h))
	return Hash(sum)
}
