package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Type:  Type{Kind: KindText},
		Props: Props{TextProp: content},
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Range maps items to nodes. Nil results are dropped, so fn can filter.
func Range[T any](items []T, fn func(item T, index int) *VNode) []*VNode {
	out := make([]*VNode, 0, len(items))
	for i := range items {
		if n := fn(items[i], i); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Repeat calls fn for 0..n-1 and keeps the non-nil results.
func Repeat(n int, fn func(i int) *VNode) []*VNode {
	if n <= 0 {
		return nil
	}
	out := make([]*VNode, 0, n)
	for i := 0; i < n; i++ {
		if node := fn(i); node != nil {
			out = append(out, node)
		}
	}
	return out
}

// Count returns the number of nodes in the tree rooted at node.
// Component nodes count as one; their rendered output is not known here.
func Count(node *VNode) int {
	if node == nil {
		return 0
	}
	n := 1
	for _, child := range node.Children {
		n += Count(child)
	}
	return n
}
