package protocol

import (
	"encoding/binary"
	"math"
)

// Encoder builds a payload by appending primitives to a growing buffer.
// Writes cannot fail.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Reset truncates the buffer for reuse.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the payload so far. It aliases the encoder's buffer until
// the next write or Reset.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len is the payload size so far.
func (e *Encoder) Len() int { return len(e.buf) }

// WriteByte appends b. Unlike io.ByteWriter it returns nothing.
func (e *Encoder) WriteByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends b verbatim, without a length prefix.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteUvarint appends v as a base-128 varint.
func (e *Encoder) WriteUvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }

// WriteSvarint appends v zig-zag encoded, so small negative numbers stay
// short.
func (e *Encoder) WriteSvarint(v int64) { e.buf = binary.AppendVarint(e.buf, v) }

// WriteLen appends a count, position or length. n must not be negative.
func (e *Encoder) WriteLen(n int) { e.WriteUvarint(uint64(n)) }

// WriteString appends len(s) followed by the bytes of s.
func (e *Encoder) WriteString(s string) {
	e.WriteLen(len(s))
	e.buf = append(e.buf, s...)
}

// WriteBool appends 1 for true and 0 for false.
func (e *Encoder) WriteBool(v bool) {
	var b byte
	if v {
		b = 1
	}
	e.buf = append(e.buf, b)
}

// WriteFloat64 appends the IEEE 754 bits of v, big-endian.
func (e *Encoder) WriteFloat64(v float64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
}
