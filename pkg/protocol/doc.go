// Package protocol implements the binary wire format used by the remote
// host: the server streams host mutations to a client, and the client
// sends back the events its listeners receive.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): session ID and root node ID
//   - FrameEvent (0x01): client → server events
//   - FrameMutations (0x02): server → client mutation batches
//   - FrameControl (0x03): ping / pong
//   - FrameError (0x04): coded error report
//
// # Encoding
//
// Integers are unsigned varints unless noted; strings are a varint length
// followed by UTF-8 bytes. Control timestamps are big-endian uint64.
//
// # Mutation Batches
//
// Each engine commit becomes one Batch: sequence number, epoch, and the
// mutations in the order the host received them. Each mutation starts
// with its op byte:
//
//	CreateElement  node, tag
//	CreateText     node, text
//	Insert         parent, node, index
//	Remove         parent, node
//	SetAttr        node, key, value
//	RemoveAttr     node, key
//	SetText        node, text
//	Listen         node, event
//	Unlisten       node, event
//
// A batch too large for one frame is split; every frame repeats the
// sequence number and only the last has FlagFinal. Assembler rejoins them.
//
// # Example
//
//	b := &protocol.Batch{Seq: 1, Epoch: 3, Mutations: muts}
//	frames, err := b.Frames()
//	...
//	var a protocol.Assembler
//	for _, f := range frames {
//	    if batch, err := a.Add(f); batch != nil {
//	        apply(batch)
//	    }
//	}
package protocol
