package remote

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Host is a host.Host whose nodes live on a remote client. It keeps a
// server-side mirror in a host.Memory, so listeners can be dispatched and
// the tree rendered, and records every mutation as a protocol.Mutation
// addressed by node ID ("n1", "n2", ...).
//
// Like the engine driving it, a Host is not safe for concurrent use.
type Host struct {
	mirror    *host.Memory
	container *host.Node
	nodes     map[string]*host.Node
	pending   []protocol.Mutation
}

var _ host.Host = (*Host)(nil)

// NewHost creates a remote host with a container element of the given tag.
// The client must already have a node with the container's ID.
func NewHost(containerTag string) *Host {
	mirror := host.NewMemory()
	container := mirror.NewContainer(containerTag)
	return &Host{
		mirror:    mirror,
		container: container,
		nodes:     map[string]*host.Node{NodeID(container): container},
	}
}

// NodeID returns the wire ID of a mirror node.
func NodeID(n *host.Node) string {
	return "n" + strconv.Itoa(n.ID)
}

// Container returns the mount point.
func (h *Host) Container() *host.Node {
	return h.container
}

// Mirror returns the server-side copy of the client's tree.
func (h *Host) Mirror() *host.Memory {
	return h.mirror
}

// Lookup returns the live node with the given wire ID.
func (h *Host) Lookup(id string) *host.Node {
	n := h.nodes[id]
	if n == nil || n.Disposed() {
		return nil
	}
	return n
}

// Take returns the mutations recorded since the last call.
func (h *Host) Take() []protocol.Mutation {
	muts := h.pending
	h.pending = nil
	return muts
}

// Pending returns how many mutations are waiting for Take.
func (h *Host) Pending() int {
	return len(h.pending)
}

// CreateNode implements host.Host. The node is not sent to the client
// until it is first inserted, so nodes built for a pass that never
// commits cost nothing on the wire and are not kept in the ID map.
func (h *Host) CreateNode(kind vdom.VKind, tag string, props vdom.Props) (host.Handle, error) {
	hd, err := h.mirror.CreateNode(kind, tag, props)
	if err != nil {
		return nil, err
	}
	h.mirror.ResetLog()
	return hd, nil
}

// announce registers n and emits its creation. Initial attributes and
// listeners are sent as SetAttr and Listen mutations in key order.
func (h *Host) announce(n *host.Node) {
	id := NodeID(n)
	if _, ok := h.nodes[id]; ok {
		return
	}
	h.nodes[id] = n

	if n.Kind == vdom.KindText {
		h.emit(protocol.Mutation{Op: protocol.OpCreateText, Node: id, Value: n.Text})
		return
	}

	h.emit(protocol.Mutation{Op: protocol.OpCreateElement, Node: id, Key: n.Tag})
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.emit(protocol.Mutation{Op: protocol.OpSetAttr, Node: id, Key: k, Value: n.Attrs[k]})
	}
	for _, name := range n.Listeners() {
		h.emit(protocol.Mutation{Op: protocol.OpListen, Node: id, Key: name})
	}
}

// InsertNode implements host.Host. Nodes not yet known to the client are
// created first.
func (h *Host) InsertNode(parent, child host.Handle, index int) error {
	if err := h.mirror.InsertNode(parent, child, index); err != nil {
		return err
	}
	// the mirror accepted both handles
	h.announce(parent.(*host.Node))
	h.announce(child.(*host.Node))
	return h.drain()
}

// RemoveNode implements host.Host. The removed subtree is forgotten.
func (h *Host) RemoveNode(parent, child host.Handle) error {
	if err := h.mirror.RemoveNode(parent, child); err != nil {
		return err
	}
	if c, ok := child.(*host.Node); ok {
		c.Find(func(n *host.Node) bool {
			delete(h.nodes, NodeID(n))
			return false
		})
	}
	return h.drain()
}

// ApplyProps implements host.Host.
func (h *Host) ApplyProps(hd host.Handle, prev, next vdom.Props) error {
	err := h.mirror.ApplyProps(hd, prev, next)
	// Changes applied before a failure still reached the mirror.
	if derr := h.drain(); err == nil {
		err = derr
	}
	return err
}

// Dispatch delivers a client event to the listener bound on its node. It
// returns false if the node is gone or has no listener for the event.
func (h *Host) Dispatch(ev *protocol.Event) bool {
	n := h.Lookup(ev.Node)
	if n == nil {
		return false
	}
	return h.mirror.Dispatch(n, ev.Type, vdom.Event{Type: ev.Type, Value: ev.Value})
}

func (h *Host) emit(m protocol.Mutation) {
	h.pending = append(h.pending, m)
}

// drain translates the mirror's log into wire mutations.
func (h *Host) drain() error {
	log := h.mirror.Log()
	h.mirror.ResetLog()
	for _, op := range log {
		m, err := toMutation(op)
		if err != nil {
			return err
		}
		h.emit(m)
	}
	return nil
}

func toMutation(op host.Op) (protocol.Mutation, error) {
	id := "n" + strconv.Itoa(op.Node)
	switch op.Kind {
	case host.OpInsert:
		return protocol.Mutation{Op: protocol.OpInsert, Parent: "n" + strconv.Itoa(op.Parent), Node: id, Index: op.Index}, nil
	case host.OpRemove:
		return protocol.Mutation{Op: protocol.OpRemove, Parent: "n" + strconv.Itoa(op.Parent), Node: id}, nil
	case host.OpSetAttr:
		return protocol.Mutation{Op: protocol.OpSetAttr, Node: id, Key: op.Key, Value: op.Value}, nil
	case host.OpRemoveAttr:
		return protocol.Mutation{Op: protocol.OpRemoveAttr, Node: id, Key: op.Key}, nil
	case host.OpSetText:
		return protocol.Mutation{Op: protocol.OpSetText, Node: id, Value: op.Value}, nil
	case host.OpListen:
		return protocol.Mutation{Op: protocol.OpListen, Node: id, Key: op.Key}, nil
	case host.OpUnlisten:
		return protocol.Mutation{Op: protocol.OpUnlisten, Node: id, Key: op.Key}, nil
	default:
		return protocol.Mutation{}, fmt.Errorf("remote: unexpected %s in mirror log", op.Kind)
	}
}
