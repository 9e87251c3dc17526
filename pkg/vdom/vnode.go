package vdom

import "strings"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindComponent              // Stateful component
	KindRoot                   // Engine root, never produced by builders
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComponent:
		return "Component"
	case KindRoot:
		return "Root"
	default:
		return "Unknown"
	}
}

// IsHost returns true if nodes of this kind are backed by a host node.
func (k VKind) IsHost() bool {
	return k == KindElement || k == KindText
}

// TextProp is the prop key carrying a text node's value.
const TextProp = "nodeValue"

// Type identifies what a node renders as. Two nodes at the same position
// with equal Types are reconciled as the same node.
type Type struct {
	Kind VKind          // Node type
	Tag  string         // Element tag name (e.g., "div")
	Comp *ComponentType // For KindComponent
}

// String returns a short human-readable name for the type.
func (t Type) String() string {
	switch t.Kind {
	case KindElement:
		return t.Tag
	case KindText:
		return "#text"
	case KindComponent:
		if t.Comp != nil {
			return t.Comp.Name
		}
		return "component"
	case KindRoot:
		return "#root"
	default:
		return "unknown"
	}
}

// VNode is an immutable description of one node of the desired tree.
// A fresh tree is produced for every reconciliation pass.
type VNode struct {
	Type
	Props    Props    // Attributes and event handlers
	Children []*VNode // Child nodes, order is significant
}

// Props holds attributes and event handlers.
type Props map[string]any

// Text returns the value of a text node.
func (v *VNode) Text() string {
	if v == nil || v.Kind != KindText {
		return ""
	}
	s, _ := v.Props[TextProp].(string)
	return s
}

// IsInteractive returns true if this node has event handlers.
func (v *VNode) IsInteractive() bool {
	if v == nil || v.Kind != KindElement {
		return false
	}
	for key := range v.Props {
		if IsEventKey(key) {
			return true
		}
	}
	return false
}

// SameType returns true if a and b reconcile as the same node.
func SameType(a, b *VNode) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Type == b.Type
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// IsEventKey returns true if the prop key binds an event listener.
// Matching is case-insensitive: onclick, onClick and ONCLICK all bind.
func IsEventKey(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on")
}

// EventName returns the event a listener key binds ("onClick" -> "click").
func EventName(key string) string {
	if !IsEventKey(key) {
		return ""
	}
	return strings.ToLower(key[2:])
}
