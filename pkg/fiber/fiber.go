package fiber

import (
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// ID indexes a fiber within one Tree. IDs are only meaningful together
// with the tree (and its epoch) that issued them.
type ID int32

// None is the absent link.
const None ID = 0

// Effect is the commit action recorded for a fiber.
type Effect uint8

const (
	EffectNone   Effect = iota // Root, or not yet reconciled
	EffectPlace                // Insert a new host node
	EffectUpdate               // Reuse the host node, patch props
	EffectDelete               // Remove (recorded in the deletions list only)
)

// String returns the string representation of the Effect.
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "None"
	case EffectPlace:
		return "Place"
	case EffectUpdate:
		return "Update"
	case EffectDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Update is one queued state change. When Fn is nil, Value replaces the
// state.
type Update struct {
	Value any
	Fn    func(any) any
}

// Apply returns the state after this update.
func (u Update) Apply(prev any) any {
	if u.Fn != nil {
		return u.Fn(prev)
	}
	return u.Value
}

// Slot is one positional unit of retained component state.
type Slot struct {
	State any
	Queue []Update
}

// Resolve returns the state with every queued update applied in order.
// The queue itself is left untouched.
func (s Slot) Resolve() any {
	state := s.State
	for _, u := range s.Queue {
		state = u.Apply(state)
	}
	return state
}

// Fiber is the per-node work record. Links are IDs into the owning Tree;
// Alternate is an ID into the other generation.
type Fiber struct {
	vdom.Type
	Props    vdom.Props
	Children []*vdom.VNode // Pending element children, unused by components

	Handle host.Handle

	Parent    ID
	Child     ID
	Sibling   ID
	Alternate ID

	Effect Effect
	Slots  []Slot
}

// IsHost returns true if the fiber owns a host node.
func (f *Fiber) IsHost() bool {
	return f.Kind.IsHost()
}
