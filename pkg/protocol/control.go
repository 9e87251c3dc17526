package protocol

import (
	"errors"
	"fmt"
)

// ProtocolVersion is sent in Hello. Clients reject other versions.
const ProtocolVersion = 1

// Hello opens a session: it names the session and the node ID of the
// container the mutation stream is rooted at.
type Hello struct {
	Version   uint8
	SessionID string
	Root      string
}

// EncodeHello encodes a hello payload.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteByte(h.Version)
	e.WriteString(h.SessionID)
	e.WriteString(h.Root)
	return e.Bytes()
}

// DecodeHello decodes a hello payload.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	var h Hello
	var err error
	if h.Version, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if h.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if h.Root, err = d.ReadString(); err != nil {
		return nil, err
	}
	return &h, nil
}

// ControlType is the subtype of a FrameControl payload.
type ControlType uint8

const (
	ControlPing ControlType = 0x01
	ControlPong ControlType = 0x02
)

// ErrUnknownControl is returned for a control subtype this version does
// not know.
var ErrUnknownControl = errors.New("protocol: unknown control type")

// Control is a ping or pong. Timestamp is the sender's Unix milliseconds,
// echoed back in the pong.
type Control struct {
	Type      ControlType
	Timestamp uint64
}

// EncodeControl encodes a control payload.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	e.WriteUint64(c.Timestamp)
	return e.Bytes()
}

// DecodeControl decodes a control payload.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := Control{Type: ControlType(t)}
	if c.Type != ControlPing && c.Type != ControlPong {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownControl, t)
	}
	if c.Timestamp, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ErrorMessage reports a failure to the peer. Code is a diagnostic code
// such as "R001"; Fatal tells the peer the session is closing.
type ErrorMessage struct {
	Code    string
	Message string
	Fatal   bool
}

// Error implements the error interface.
func (m *ErrorMessage) Error() string {
	if m.Code == "" {
		return m.Message
	}
	return m.Code + ": " + m.Message
}

// EncodeErrorMessage encodes an error payload.
func EncodeErrorMessage(m *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteString(m.Code)
	e.WriteString(m.Message)
	e.WriteBool(m.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an error payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	var m ErrorMessage
	var err error
	if m.Code, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return &m, nil
}
