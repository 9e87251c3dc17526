package protocol

import (
	"errors"
	"fmt"
)

// MutationOp identifies a host mutation.
type MutationOp uint8

const (
	OpCreateElement MutationOp = 0x01 // Node, Key=tag
	OpCreateText    MutationOp = 0x02 // Node, Value=text
	OpInsert        MutationOp = 0x03 // Parent, Node, Index
	OpRemove        MutationOp = 0x04 // Parent, Node
	OpSetAttr       MutationOp = 0x05 // Node, Key, Value
	OpRemoveAttr    MutationOp = 0x06 // Node, Key
	OpSetText       MutationOp = 0x07 // Node, Value
	OpListen        MutationOp = 0x08 // Node, Key=event
	OpUnlisten      MutationOp = 0x09 // Node, Key=event
)

// String returns the string representation of the op.
func (op MutationOp) String() string {
	switch op {
	case OpCreateElement:
		return "CreateElement"
	case OpCreateText:
		return "CreateText"
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpSetText:
		return "SetText"
	case OpListen:
		return "Listen"
	case OpUnlisten:
		return "Unlisten"
	default:
		return fmt.Sprintf("MutationOp(%d)", uint8(op))
	}
}

// ErrUnknownOp is returned when decoding an op byte this version does not
// know.
var ErrUnknownOp = errors.New("protocol: unknown mutation op")

// Mutation is one host operation addressed by node ID. Only the fields
// listed next to the op are encoded.
type Mutation struct {
	Op     MutationOp
	Node   string
	Parent string
	Index  int
	Key    string
	Value  string
}

// Batch is the ordered set of mutations produced by one commit.
type Batch struct {
	Seq       uint64 // Per-session, increasing
	Epoch     uint64 // Engine epoch of the committed tree
	Mutations []Mutation
}

// EncodeMutationTo appends m to e.
func EncodeMutationTo(e *Encoder, m Mutation) {
	e.WriteByte(byte(m.Op))
	switch m.Op {
	case OpCreateElement, OpRemoveAttr, OpListen, OpUnlisten:
		e.WriteString(m.Node)
		e.WriteString(m.Key)
	case OpCreateText, OpSetText:
		e.WriteString(m.Node)
		e.WriteString(m.Value)
	case OpInsert:
		e.WriteString(m.Parent)
		e.WriteString(m.Node)
		e.WriteUvarint(uint64(m.Index))
	case OpRemove:
		e.WriteString(m.Parent)
		e.WriteString(m.Node)
	case OpSetAttr:
		e.WriteString(m.Node)
		e.WriteString(m.Key)
		e.WriteString(m.Value)
	}
}

// DecodeMutationFrom reads one mutation from d.
func DecodeMutationFrom(d *Decoder) (Mutation, error) {
	b, err := d.ReadByte()
	if err != nil {
		return Mutation{}, err
	}
	m := Mutation{Op: MutationOp(b)}

	// Each op reads a fixed list of fields.
	var fields []*string
	switch m.Op {
	case OpCreateElement, OpRemoveAttr, OpListen, OpUnlisten:
		fields = []*string{&m.Node, &m.Key}
	case OpCreateText, OpSetText:
		fields = []*string{&m.Node, &m.Value}
	case OpInsert, OpRemove:
		fields = []*string{&m.Parent, &m.Node}
	case OpSetAttr:
		fields = []*string{&m.Node, &m.Key, &m.Value}
	default:
		return Mutation{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, b)
	}
	for _, f := range fields {
		if *f, err = d.ReadString(); err != nil {
			return Mutation{}, err
		}
	}

	if m.Op == OpInsert {
		idx, err := d.ReadUvarint()
		if err != nil {
			return Mutation{}, err
		}
		m.Index = int(idx)
	}
	return m, nil
}

// batchHeaderMax bounds the encoded seq, epoch and count prefix.
const batchHeaderMax = 3 * 10

// Frames encodes b as one or more FrameMutations frames. Every frame
// repeats Seq and Epoch; the last one carries FlagFinal. A single mutation
// that cannot fit in one frame is an error.
func (b *Batch) Frames() ([]*Frame, error) {
	var frames []*Frame
	var chunk [][]byte
	size := 0

	flush := func(final bool) {
		e := NewEncoder()
		e.WriteUvarint(b.Seq)
		e.WriteUvarint(b.Epoch)
		e.WriteUvarint(uint64(len(chunk)))
		for _, m := range chunk {
			e.WriteBytes(m)
		}
		f := NewFrame(FrameMutations, e.Bytes())
		if final {
			f.Flags |= FlagFinal
		}
		frames = append(frames, f)
		chunk = chunk[:0]
		size = 0
	}

	for _, m := range b.Mutations {
		e := NewEncoder()
		EncodeMutationTo(e, m)
		enc := e.Bytes()
		if len(enc)+batchHeaderMax > MaxPayloadSize {
			return nil, fmt.Errorf("%w: %s on %s is %d bytes", ErrFrameTooLarge, m.Op, m.Node, len(enc))
		}
		if size+len(enc)+batchHeaderMax > MaxPayloadSize {
			flush(false)
		}
		chunk = append(chunk, enc)
		size += len(enc)
	}
	flush(true)
	return frames, nil
}

// decodeBatchPayload decodes one FrameMutations payload.
func decodeBatchPayload(payload []byte) (*Batch, error) {
	d := NewDecoder(payload)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	epoch, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	b := &Batch{Seq: seq, Epoch: epoch, Mutations: make([]Mutation, 0, count)}
	for i := 0; i < count; i++ {
		m, err := DecodeMutationFrom(d)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		b.Mutations = append(b.Mutations, m)
	}
	return b, nil
}

// ErrBatchInterleaved is returned when a mutation frame for a new batch
// arrives before the previous batch was finished.
var ErrBatchInterleaved = errors.New("protocol: mutation batches interleaved")

// Assembler joins the frames of split mutation batches.
type Assembler struct {
	pending *Batch
}

// Add consumes one FrameMutations frame. It returns the complete batch
// when f carries FlagFinal, and nil otherwise.
func (a *Assembler) Add(f *Frame) (*Batch, error) {
	if f.Type != FrameMutations {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrameType, f.Type)
	}
	part, err := decodeBatchPayload(f.Payload)
	if err != nil {
		a.pending = nil
		return nil, err
	}

	if a.pending == nil {
		a.pending = part
	} else {
		if part.Seq != a.pending.Seq {
			a.pending = nil
			return nil, ErrBatchInterleaved
		}
		a.pending.Mutations = append(a.pending.Mutations, part.Mutations...)
	}

	if !f.Flags.Has(FlagFinal) {
		return nil, nil
	}
	b := a.pending
	a.pending = nil
	return b, nil
}
