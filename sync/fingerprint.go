package sync

import (
	"encoding/binary"
	"hash/fnv"
)

// Fingerprint is a stable hash over a request's semantic fields,
// excluding its monotonic `id` (spec.md §4.2.5), used to detect and
// reject duplicate in-flight requests to the same peer.
type Fingerprint uint64

// ComputeFingerprint hashes (fields, from, to, direction, max) — every
// BlockRequest field except ID.
func ComputeFingerprint(req BlockRequest) Fingerprint {
	h := fnv.New64a()
	var buf [9]byte

	buf[0] = byte(req.Fields)
	h.Write(buf[:1])

	if req.From.Hash != nil {
		h.Write([]byte{1})
		h.Write(req.From.Hash[:])
	} else if req.From.Number != nil {
		h.Write([]byte{2})
		binary.BigEndian.PutUint64(buf[1:9], uint64(*req.From.Number))
		h.Write(buf[1:9])
	} else {
		h.Write([]byte{0})
	}

	if req.To != nil {
		h.Write([]byte{1})
		h.Write(req.To[:])
	} else {
		h.Write([]byte{0})
	}

	h.Write([]byte{byte(req.Direction)})

	if req.Max != nil {
		binary.BigEndian.PutUint32(buf[0:4], *req.Max)
		h.Write(buf[0:4])
	}

	return Fingerprint(h.Sum64())
}
