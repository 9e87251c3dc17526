package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the largest payload a frame can carry.
	MaxPayloadSize = 65535
)

// FrameType identifies the payload of a frame.
type FrameType uint8

const (
	FrameHello     FrameType = 0x00 // Server → client session setup
	FrameEvent     FrameType = 0x01 // Client → server host events
	FrameMutations FrameType = 0x02 // Server → client host mutations
	FrameControl   FrameType = 0x03 // Ping / pong
	FrameError     FrameType = 0x04 // Error report, either direction
)

var frameTypeNames = [...]string{
	FrameHello:     "Hello",
	FrameEvent:     "Event",
	FrameMutations: "Mutations",
	FrameControl:   "Control",
	FrameError:     "Error",
}

func (ft FrameType) String() string {
	if int(ft) < len(frameTypeNames) {
		return frameTypeNames[ft]
	}
	return "Unknown"
}

// FrameFlags modify how a frame is processed.
type FrameFlags uint8

const (
	// FlagFinal marks the last frame of a mutation batch. A batch larger
	// than MaxPayloadSize is split across frames; only the last has it.
	FlagFinal FrameFlags = 0x01
)

// Has reports whether ff contains flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a header plus payload.
//
// Wire format:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with no flags.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the header followed by the payload.
func (f *Frame) Encode() []byte {
	buf := make([]byte, 0, FrameHeaderSize+len(f.Payload))
	buf = append(buf, byte(f.Type), byte(f.Flags))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(f.Payload)))
	return append(buf, f.Payload...)
}

// parseHeader validates a frame header and returns the frame shell and
// its payload length.
func parseHeader(h []byte) (*Frame, int, error) {
	ft := FrameType(h[0])
	if ft > FrameError {
		return nil, 0, ErrInvalidFrameType
	}
	return &Frame{Type: ft, Flags: FrameFlags(h[1])}, int(binary.BigEndian.Uint16(h[2:4])), nil
}

// DecodeFrame decodes one frame. data must hold the header and the full
// payload; trailing bytes are ignored.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	f, n, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[FrameHeaderSize:]
	if len(body) < n {
		return nil, io.ErrUnexpectedEOF
	}
	f.Payload = append([]byte(nil), body[:n]...)
	return f, nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	f, n, err := parseHeader(header[:])
	if err != nil {
		return nil, err
	}
	f.Payload = make([]byte, n)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteFrame writes f to w. Payloads over MaxPayloadSize are rejected.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
