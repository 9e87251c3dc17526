package host

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// OpKind identifies a recorded host mutation.
type OpKind uint8

const (
	OpCreate OpKind = iota + 1
	OpInsert
	OpRemove
	OpSetAttr
	OpRemoveAttr
	OpSetText
	OpListen
	OpUnlisten
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "Create"
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
		return "Unknown"
	}
}

// Op is one entry of the Memory host's mutation log.
type Op struct {
	Kind   OpKind
	Node   int    // Target node ID
	Parent int    // Parent node ID (Insert/Remove)
	Index  int    // Insert position
	Key    string // Tag (Create), attribute or event name
	Value  string // Attribute or text value
}

// String renders the op compactly for test failure output.
func (o Op) String() string {
	switch o.Kind {
	case OpCreate:
		return fmt.Sprintf("Create(%d %s)", o.Node, o.Key)
	case OpInsert:
		return fmt.Sprintf("Insert(%d into %d at %d)", o.Node, o.Parent, o.Index)
	case OpRemove:
		return fmt.Sprintf("Remove(%d from %d)", o.Node, o.Parent)
	case OpSetAttr:
		return fmt.Sprintf("SetAttr(%d %s=%q)", o.Node, o.Key, o.Value)
	case OpRemoveAttr:
		return fmt.Sprintf("RemoveAttr(%d %s)", o.Node, o.Key)
	case OpSetText:
		return fmt.Sprintf("SetText(%d %q)", o.Node, o.Value)
	case OpListen:
		return fmt.Sprintf("Listen(%d %s)", o.Node, o.Key)
	case OpUnlisten:
		return fmt.Sprintf("Unlisten(%d %s)", o.Node, o.Key)
	default:
		return "Unknown"
	}
}

// Node is an in-memory host node.
type Node struct {
	ID       int
	Kind     vdom.VKind
	Tag      string
	Attrs    map[string]string
	Text     string
	Parent   *Node
	Children []*Node

	listeners map[string]any
	disposed  bool
}

// Listeners returns the names of the events bound on the node, sorted.
func (n *Node) Listeners() []string {
	names := make([]string, 0, len(n.listeners))
	for name := range n.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disposed returns true once the node has been removed from its parent.
func (n *Node) Disposed() bool {
	return n.disposed
}

// Find returns the first node in pre-order for which match returns true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// ByID returns the first descendant-or-self whose id attribute equals id.
func (n *Node) ByID(id string) *Node {
	return n.Find(func(x *Node) bool { return x.Attrs["id"] == id })
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	if n.Kind == vdom.KindText {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.writeText(b)
	}
}

// String renders the subtree as compact markup with sorted attributes.
// Listeners are not shown. Text is not escaped.
func (n *Node) String() string {
	var b strings.Builder
	n.writeMarkup(&b)
	return b.String()
}

func (n *Node) writeMarkup(b *strings.Builder) {
	if n.Kind == vdom.KindText {
		b.WriteString(n.Text)
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%q", k, n.Attrs[k])
	}
	b.WriteByte('>')
	for _, c := range n.Children {
		c.writeMarkup(b)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}

// Memory is a Host that keeps its node tree in memory and records every
// mutation. It stands in for a real UI toolkit in tests, the CLI and
// snapshot rendering.
type Memory struct {
	nextID int
	log    []Op

	// FailOn, when set, is consulted before each mutation is applied;
	// a non-nil result is returned from the mutation unchanged.
	FailOn func(op Op) error
}

var _ Host = (*Memory)(nil)

// NewMemory creates an empty Memory host.
func NewMemory() *Memory {
	return &Memory{}
}

// NewContainer creates a detached element to mount a tree into. It is not
// recorded in the mutation log.
func (m *Memory) NewContainer(tag string) *Node {
	m.nextID++
	return &Node{
		ID:    m.nextID,
		Kind:  vdom.KindElement,
		Tag:   tag,
		Attrs: make(map[string]string),
	}
}

// Log returns a copy of the recorded mutations.
func (m *Memory) Log() []Op {
	return append([]Op(nil), m.log...)
}

// ResetLog clears the recorded mutations.
func (m *Memory) ResetLog() {
	m.log = m.log[:0]
}

func (m *Memory) record(op Op) error {
	if m.FailOn != nil {
		if err := m.FailOn(op); err != nil {
			return err
		}
	}
	m.log = append(m.log, op)
	return nil
}

func (m *Memory) node(h Handle) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidHandle, h)
	}
	if n.disposed {
		return nil, fmt.Errorf("%w: node %d", ErrDisposed, n.ID)
	}
	return n, nil
}

// CreateNode implements Host.
func (m *Memory) CreateNode(kind vdom.VKind, tag string, props vdom.Props) (Handle, error) {
	if !kind.IsHost() {
		return nil, fmt.Errorf("host: cannot create node of kind %s", kind)
	}
	m.nextID++
	n := &Node{
		ID:    m.nextID,
		Kind:  kind,
		Tag:   tag,
		Attrs: make(map[string]string),
	}
	if kind == vdom.KindText {
		n.Tag = ""
	}
	if err := m.record(Op{Kind: OpCreate, Node: n.ID, Key: n.Tag}); err != nil {
		m.nextID--
		return nil, err
	}

	if kind == vdom.KindText {
		n.Text = vdom.PropToString(props[vdom.TextProp])
		return n, nil
	}
	for key, val := range props {
		if vdom.IsEventKey(key) {
			if n.listeners == nil {
				n.listeners = make(map[string]any)
			}
			n.listeners[vdom.EventName(key)] = val
			continue
		}
		n.Attrs[key] = vdom.PropToString(val)
	}
	return n, nil
}

// InsertNode implements Host.
func (m *Memory) InsertNode(parent, child Handle, index int) error {
	p, err := m.node(parent)
	if err != nil {
		return err
	}
	c, err := m.node(child)
	if err != nil {
		return err
	}
	if err := m.record(Op{Kind: OpInsert, Node: c.ID, Parent: p.ID, Index: index}); err != nil {
		return err
	}
	if c.Parent != nil {
		c.Parent.detach(c)
	}
	if index < 0 || index > len(p.Children) {
		index = len(p.Children)
	}
	p.Children = append(p.Children, nil)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = c
	c.Parent = p
	return nil
}

// RemoveNode implements Host.
func (m *Memory) RemoveNode(parent, child Handle) error {
	p, err := m.node(parent)
	if err != nil {
		return err
	}
	c, err := m.node(child)
	if err != nil {
		return err
	}
	if c.Parent != p {
		return fmt.Errorf("%w: node %d under %d", ErrNotChild, c.ID, p.ID)
	}
	if err := m.record(Op{Kind: OpRemove, Node: c.ID, Parent: p.ID}); err != nil {
		return err
	}
	p.detach(c)
	c.dispose()
	return nil
}

func (n *Node) detach(c *Node) {
	for i, x := range n.Children {
		if x == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			break
		}
	}
	c.Parent = nil
}

func (n *Node) dispose() {
	n.disposed = true
	n.listeners = nil
	for _, c := range n.Children {
		c.dispose()
	}
}

// ApplyProps implements Host.
func (m *Memory) ApplyProps(h Handle, prev, next vdom.Props) error {
	n, err := m.node(h)
	if err != nil {
		return err
	}

	for _, ch := range vdom.DiffProps(prev, next) {
		switch {
		case n.Kind == vdom.KindText:
			if ch.Key != vdom.TextProp {
				continue
			}
			text := vdom.PropToString(ch.Next)
			if err := m.record(Op{Kind: OpSetText, Node: n.ID, Value: text}); err != nil {
				return err
			}
			n.Text = text

		case ch.IsEvent():
			name := vdom.EventName(ch.Key)
			if ch.Removed {
				if err := m.record(Op{Kind: OpUnlisten, Node: n.ID, Key: name}); err != nil {
					return err
				}
				delete(n.listeners, name)
				continue
			}
			if err := m.record(Op{Kind: OpListen, Node: n.ID, Key: name}); err != nil {
				return err
			}
			if n.listeners == nil {
				n.listeners = make(map[string]any)
			}
			n.listeners[name] = ch.Next

		case ch.Removed:
			if err := m.record(Op{Kind: OpRemoveAttr, Node: n.ID, Key: ch.Key}); err != nil {
				return err
			}
			delete(n.Attrs, ch.Key)

		default:
			val := vdom.PropToString(ch.Next)
			if err := m.record(Op{Kind: OpSetAttr, Node: n.ID, Key: ch.Key, Value: val}); err != nil {
				return err
			}
			n.Attrs[ch.Key] = val
		}
	}
	return nil
}

// Dispatch invokes the listener bound for event on n. It returns false if
// no listener is bound or the node has been disposed.
func (m *Memory) Dispatch(n *Node, event string, ev vdom.Event) bool {
	if n == nil || n.disposed {
		return false
	}
	handler, ok := n.listeners[event]
	if !ok {
		return false
	}
	ev.Type = event
	return vdom.Invoke(handler, ev)
}
