package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Decode limits. Length prefixes come from the peer and are checked before
// anything is allocated.
const (
	// MaxStringSize bounds a single decoded string (1MB).
	MaxStringSize = 1 << 20

	// MaxCollectionCount bounds the item count of a decoded list.
	MaxCollectionCount = 100_000
)

// Decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads wire values from a byte slice. Reads past the end return
// io.ErrUnexpectedEOF.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) }

// ReadByte reads one byte.
func (d *Decoder) ReadByte() (byte, error) {
	if len(d.buf) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b, nil
}

// ReadUvarint reads a LEB128 varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf)
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.buf = d.buf[n:]
	return v, nil
}

// ReadString reads a varint-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > uint64(len(d.buf)) {
		return "", io.ErrUnexpectedEOF
	}
	if length > MaxStringSize {
		return "", ErrAllocationTooLarge
	}
	s := string(d.buf[:length])
	d.buf = d.buf[length:]
	return s, nil
}

// ReadBool reads one byte; anything but zero is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

// ReadUint64 reads a big-endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	if len(d.buf) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return v, nil
}

// ReadCollectionCount reads a list length and checks it against
// MaxCollectionCount and the bytes left, since every item takes at
// least one byte.
func (d *Decoder) ReadCollectionCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(len(d.buf)) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}
