package vdom

import "strconv"

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// El creates an element node with the given tag.
// Arguments can be: nil, Attr, []Attr, Props, *VNode, []*VNode, string,
// int, int64, float64. Strings and numbers become text children; nil and
// booleans are dropped so conditionals can be inlined.
func El(tag string, args ...any) *VNode {
	return createElement(tag, args)
}

// createElement creates a new VNode with the given tag and arguments.
func createElement(tag string, args []any) *VNode {
	node := &VNode{
		Type:     Type{Kind: KindElement, Tag: tag},
		Props:    make(Props),
		Children: make([]*VNode, 0),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil, bool:
			// Ignore nil and booleans (allows conditional children)
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

		case *VNode:
			if v != nil {
				node.Children = append(node.Children, v)
			}

		case []*VNode:
			for _, child := range v {
				if child != nil {
					node.Children = append(node.Children, child)
				}
			}

		case string:
			node.Children = append(node.Children, Text(v))

		case int:
			node.Children = append(node.Children, Text(strconv.Itoa(v)))

		case int64:
			node.Children = append(node.Children, Text(strconv.FormatInt(v, 10)))

		case float64:
			node.Children = append(node.Children, Text(strconv.FormatFloat(v, 'f', -1, 64)))
		}
	}

	return node
}

func Div(args ...any) *VNode     { return createElement("div", args) }
func P(args ...any) *VNode       { return createElement("p", args) }
func Span(args ...any) *VNode    { return createElement("span", args) }
func H1(args ...any) *VNode      { return createElement("h1", args) }
func H2(args ...any) *VNode      { return createElement("h2", args) }
func Ul(args ...any) *VNode      { return createElement("ul", args) }
func Ol(args ...any) *VNode      { return createElement("ol", args) }
func Li(args ...any) *VNode      { return createElement("li", args) }
func Button(args ...any) *VNode  { return createElement("button", args) }
func Input(args ...any) *VNode   { return createElement("input", args) }
func Label(args ...any) *VNode   { return createElement("label", args) }
func Section(args ...any) *VNode { return createElement("section", args) }
