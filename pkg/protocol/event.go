package protocol

// Event is a host event raised on the client, addressed to the node the
// listener was bound to.
type Event struct {
	Seq   uint64
	Node  string // Node ID from the mutation stream
	Type  string // Event name without the "on" prefix, e.g. "click"
	Value string // Input value for input/change events
}

// EncodeEvent encodes an event payload.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo appends ev to e.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(ev.Seq)
	e.WriteString(ev.Node)
	e.WriteString(ev.Type)
	e.WriteString(ev.Value)
}

// DecodeEvent decodes an event payload.
func DecodeEvent(data []byte) (*Event, error) {
	return DecodeEventFrom(NewDecoder(data))
}

// DecodeEventFrom reads an event from d.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	var ev Event
	var err error
	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Node, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Type, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Value, err = d.ReadString(); err != nil {
		return nil, err
	}
	return &ev, nil
}
