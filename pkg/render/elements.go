package render

import "github.com/vango-dev/reconciler/pkg/vdom"

func isVoidElement(tag string) bool {
	return vdom.IsVoidElement(tag)
}

// inlineElements keep their content on one line in pretty output.
var inlineElements = setOf(
	"a", "abbr", "b", "bdi", "bdo", "br", "cite", "code", "data", "dfn",
	"em", "i", "kbd", "label", "mark", "q", "s", "samp", "small", "span",
	"strong", "sub", "sup", "time", "u", "var", "wbr",
)

func isInlineElement(tag string) bool {
	return inlineElements[tag]
}

// booleanAttrs are written as a bare name when set and omitted otherwise.
var booleanAttrs = setOf(
	"allowfullscreen", "async", "autofocus", "autoplay", "checked",
	"controls", "default", "defer", "disabled", "formnovalidate", "hidden",
	"ismap", "loop", "multiple", "muted", "novalidate", "open",
	"playsinline", "readonly", "required", "reversed", "selected",
)

func isBooleanAttr(name string) bool {
	return booleanAttrs[name]
}

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
