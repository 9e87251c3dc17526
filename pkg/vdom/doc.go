// Package vdom provides the virtual tree model consumed by the reconciler.
//
// A VNode is an immutable description of desired structure for one
// reconciliation pass. Its Type is a closed variant: an element (host tag),
// a text node, or a stateful component. Props holds attributes and event
// handlers; keys starting with "on" bind listeners.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1("Title"),
//	    P(Text("Content")),
//	    OnClick(handler),
//	)
//
// # Components
//
// A component is defined once and instantiated with C:
//
//	var Counter = Define("Counter", func(h Hooks, props Props) *VNode {
//	    n, set := engine.State(h, 0)
//	    return Button(OnClick(func() { set.Update(func(v int) int { return v + 1 }) }), n)
//	})
//
//	Div(C(Counter, Prop("label", "clicks")))
//
// Component identity is pointer identity of the *ComponentType.
//
// # Prop diffing
//
// DiffProps computes the per-key changes between two renders of a node.
// Hosts use it to touch only the attributes and listeners that changed.
package vdom
