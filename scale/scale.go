// Package scale implements the subset of Parity's SCALE codec that
// this core's wire types need: compact (LEB128-like) integers, fixed
// byte arrays, and length-prefixed vectors. No example repo in the
// reference corpus speaks this format — the pack's serialization
// dependencies (gogo/protobuf, msgpack, cbor) all target different
// wire formats — so this one codec is hand-written against the
// public SCALE specification rather than borrowed from a library.
package scale

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortBuffer is returned when decoding runs out of input.
var ErrShortBuffer = errors.New("scale: short buffer")

// Encoder appends SCALE-encoded values to an internal buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Bytes() []byte { return e.buf }

// WriteCompactUint encodes n using SCALE's compact integer format.
func (e *Encoder) WriteCompactUint(n uint64) {
	switch {
	case n < 1<<6:
		e.buf = append(e.buf, byte(n<<2))
	case n < 1<<14:
		v := uint16(n<<2) | 0b01
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], v)
		e.buf = append(e.buf, tmp[:]...)
	case n < 1<<30:
		v := uint32(n<<2) | 0b10
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		e.buf = append(e.buf, tmp[:]...)
	default:
		// big-integer mode: byte-length prefix then little-endian bytes.
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], n)
		nbytes := 8
		for nbytes > 1 && tmp[nbytes-1] == 0 {
			nbytes--
		}
		e.buf = append(e.buf, byte((nbytes-4)<<2|0b11))
		e.buf = append(e.buf, tmp[:nbytes]...)
	}
}

// WriteFixed appends raw bytes with no length prefix.
func (e *Encoder) WriteFixed(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteByte appends a single byte.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends a compact-length-prefixed byte vector.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteCompactUint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// Decoder reads SCALE-encoded values from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.EOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) ReadFixed(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, ErrShortBuffer
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// ReadCompactUint decodes a SCALE compact integer.
func (d *Decoder) ReadCompactUint() (uint64, error) {
	first, err := d.ReadByte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0b00:
		return uint64(first >> 2), nil
	case 0b01:
		b2, err := d.ReadByte()
		if err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint16([]byte{first, b2})
		return uint64(v >> 2), nil
	case 0b10:
		rest, err := d.ReadFixed(3)
		if err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint32([]byte{first, rest[0], rest[1], rest[2]})
		return uint64(v >> 2), nil
	default:
		nbytes := int(first>>2) + 4
		rest, err := d.ReadFixed(nbytes)
		if err != nil {
			return 0, err
		}
		var tmp [8]byte
		copy(tmp[:], rest)
		return binary.LittleEndian.Uint64(tmp[:]), nil
	}
}

// ReadBytes decodes a compact-length-prefixed byte vector.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadCompactUint()
	if err != nil {
		return nil, err
	}
	return d.ReadFixed(int(n))
}
