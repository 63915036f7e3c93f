package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// FrameHeaderSize is the size of the frame header in bytes.
const FrameHeaderSize = 5

// MaxPayloadSize is the largest payload a frame may carry.
const MaxPayloadSize = HardMaxAllocation

// FrameType identifies the payload of a frame.
type FrameType uint8

const (
	FramePatches  FrameType = 0x01 // Sequenced patch list
	FrameSnapshot FrameType = 0x02 // Current tree and its HTML
	FrameError    FrameType = 0x03 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FramePatches:
		return "Patches"
	case FrameSnapshot:
		return "Snapshot"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (ft FrameType) valid() bool {
	return ft >= FramePatches && ft <= FrameError
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a typed, length-prefixed payload.
//
// Wire format (5 bytes header + variable payload):
//
//	┌─────────────┬───────────────────────────────┐
//	│ Frame Type  │ Payload Length                │
//	│ (1 byte)    │ (4 bytes, big-endian)         │
//	└─────────────┴───────────────────────────────┘
//	│  Payload (variable length)                  │
//	└─────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame including the header.
func (f *Frame) Encode() []byte {
	e := NewEncoder()
	f.EncodeTo(e)
	return e.Bytes()
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	var header [FrameHeaderSize]byte
	header[0] = byte(f.Type)
	binary.BigEndian.PutUint32(header[1:], uint32(len(f.Payload)))
	e.WriteBytes(header[:])
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes one frame from data and returns it with the number of
// bytes it occupied.
func DecodeFrame(data []byte) (*Frame, int, error) {
	ft, length, err := decodeFrameHeader(data)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < FrameHeaderSize+length {
		return nil, 0, ErrBufferTooShort
	}
	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:FrameHeaderSize+length])
	return &Frame{Type: ft, Payload: payload}, FrameHeaderSize + length, nil
}

func decodeFrameHeader(header []byte) (FrameType, int, error) {
	if len(header) < FrameHeaderSize {
		return 0, 0, ErrBufferTooShort
	}
	ft := FrameType(header[0])
	if !ft.valid() {
		return 0, 0, ErrInvalidFrameType
	}
	length := binary.BigEndian.Uint32(header[1:FrameHeaderSize])
	if length > MaxPayloadSize {
		return 0, 0, ErrFrameTooLarge
	}
	return ft, int(length), nil
}

// ReadFrame reads a complete frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft, length, err := decodeFrameHeader(header)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &Frame{Type: ft, Payload: payload}, nil
}

// WriteFrame writes a complete frame to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
