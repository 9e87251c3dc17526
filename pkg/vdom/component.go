package vdom

// Hooks is the render-time handle a component body uses to reach its
// fiber's retained state. The engine supplies the implementation for the
// duration of one render; it must not be retained after the body returns.
type Hooks interface {
	// AcquireSlot returns the effective value of the next positional state
	// slot, seeding the slot with initial when it does not exist yet.
	AcquireSlot(initial any) (any, SlotHandle, error)
}

// SlotHandle addresses one retained state slot. It stays usable after the
// render that produced it; updates are queued and applied on the next pass.
type SlotHandle interface {
	// Enqueue appends a state update. When fn is nil, value replaces the
	// state; otherwise fn maps the previous state to the next one.
	Enqueue(value any, fn func(any) any) error
}

// RenderFunc renders a component from its props.
type RenderFunc func(h Hooks, props Props) *VNode

// ComponentType is a stateful component definition. Component identity is
// pointer identity: define each component once and reuse the value.
type ComponentType struct {
	Name   string
	Render RenderFunc
}

// Define creates a component type.
func Define(name string, render RenderFunc) *ComponentType {
	return &ComponentType{Name: name, Render: render}
}

// C creates a component node. Arguments follow the same rules as El for
// attributes; child nodes are not accepted.
func C(ct *ComponentType, args ...any) *VNode {
	node := &VNode{
		Type:  Type{Kind: KindComponent, Comp: ct},
		Props: make(Props),
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			if v.Key != "" {
				node.Props[v.Key] = v.Value
			}
		case []Attr:
			for _, a := range v {
				if a.Key != "" {
					node.Props[a.Key] = a.Value
				}
			}
		case Props:
			for k, val := range v {
				node.Props[k] = val
			}
		}
	}
	return node
}
