package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// Limits applied while decoding untrusted input.
const (
	// DefaultMaxAllocation bounds a single decoded string (4MB).
	DefaultMaxAllocation = 4 << 20

	// HardMaxAllocation bounds a frame payload and any decoded length (16MB).
	HardMaxAllocation = 16 << 20

	// MaxCollectionCount bounds the item count of one collection.
	MaxCollectionCount = 100_000
)

// Decoding errors.
var (
	ErrBufferTooShort     = errors.New("protocol: buffer too short")
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrTrailingBytes      = errors.New("protocol: trailing bytes after payload")
)

// Decoder consumes primitives written by an Encoder.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder reads from buf without copying it.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// EOF reports whether every byte has been consumed.
func (d *Decoder) EOF() bool { return d.off >= len(d.buf) }

// take consumes the next n bytes.
func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, ErrBufferTooShort
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// ReadByte consumes one byte.
func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes consumes n bytes. The result aliases the input buffer.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	return d.take(n)
}

// ReadUvarint consumes a base-128 varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	switch {
	case n == 0:
		return 0, ErrBufferTooShort
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.off += n
	return v, nil
}

// ReadSvarint consumes a zig-zag varint.
func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.off:])
	switch {
	case n == 0:
		return 0, ErrBufferTooShort
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.off += n
	return v, nil
}

// ReadLen consumes a value written by WriteLen, bounded by
// HardMaxAllocation.
func (d *Decoder) ReadLen() (int, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > HardMaxAllocation {
		return 0, ErrAllocationTooLarge
	}
	return int(v), nil
}

// ReadString consumes a length-prefixed string of at most
// DefaultMaxAllocation bytes.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > DefaultMaxAllocation {
		return "", ErrAllocationTooLarge
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBool consumes one byte; anything but 0 is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

// ReadFloat64 consumes eight big-endian bytes of IEEE 754 bits.
func (d *Decoder) ReadFloat64() (float64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadCollectionCount consumes an item count. Items occupy at least one
// byte each, so a count larger than the unread input is rejected before
// anything is allocated.
func (d *Decoder) ReadCollectionCount() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if n > uint64(d.Remaining()) {
		return 0, ErrBufferTooShort
	}
	return int(n), nil
}
