// Package demo holds the components served and benchmarked by the CLI.
package demo

import (
	"strconv"
	"strings"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Counter shows a number with buttons to change it. The "start" prop
// seeds the first render.
var Counter = vdom.Define("Counter", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
	start, _ := props["start"].(int)
	n, set := engine.State(h, start)

	return vdom.Div(vdom.Class("counter"),
		vdom.Button(vdom.ID("dec"), vdom.OnClick(func() { _ = set.Update(func(n int) int { return n - 1 }) }), "-"),
		vdom.Span(vdom.ID("count"), vdom.Textf("%d", n)),
		vdom.Button(vdom.ID("inc"), vdom.OnClick(func() { _ = set.Update(func(n int) int { return n + 1 }) }), "+"),
	)
})

// Item is one todo entry.
type Item struct {
	Text string
	Done bool
}

// Todo is a todo list: an input, an add button, and one row per item
// with toggle and remove controls.
var Todo = vdom.Define("Todo", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
	items, setItems := engine.State[[]Item](h, nil)
	draft, setDraft := engine.State(h, "")

	add := func() {
		text := strings.TrimSpace(draft)
		if text == "" {
			return
		}
		_ = setItems.Update(func(items []Item) []Item {
			return append(append([]Item(nil), items...), Item{Text: text})
		})
		_ = setDraft.Set("")
	}

	left := 0
	for _, it := range items {
		if !it.Done {
			left++
		}
	}

	return vdom.Section(vdom.Class("todo"),
		vdom.Input(
			vdom.ID("draft"),
			vdom.Placeholder("What needs doing?"),
			vdom.Value(draft),
			vdom.OnInput(func(ev vdom.Event) { _ = setDraft.Set(ev.Value) }),
		),
		vdom.Button(vdom.ID("add"), vdom.Disabled(strings.TrimSpace(draft) == ""), vdom.OnClick(add), "Add"),
		vdom.Ul(vdom.Range(items, func(it Item, i int) *vdom.VNode {
			return vdom.Li(
				vdom.Class(itemClass(it)),
				vdom.Span(vdom.ID("toggle-"+strconv.Itoa(i)), vdom.OnClick(func() { _ = setItems.Update(toggle(i)) }), it.Text),
				vdom.Button(vdom.ID("remove-"+strconv.Itoa(i)), vdom.OnClick(func() { _ = setItems.Update(remove(i)) }), "x"),
			)
		})),
		vdom.P(vdom.ID("left"), vdom.Textf("%d left", left)),
	)
})

func itemClass(it Item) string {
	if it.Done {
		return "done"
	}
	return "open"
}

func toggle(i int) func([]Item) []Item {
	return func(items []Item) []Item {
		if i >= len(items) {
			return items
		}
		out := append([]Item(nil), items...)
		out[i].Done = !out[i].Done
		return out
	}
}

func remove(i int) func([]Item) []Item {
	return func(items []Item) []Item {
		if i >= len(items) {
			return items
		}
		out := make([]Item, 0, len(items)-1)
		out = append(out, items[:i]...)
		return append(out, items[i+1:]...)
	}
}

// Rows renders "n" rows labelled with a tick counter. Clicking "tick"
// re-renders every row; it is the bench workload.
var Rows = vdom.Define("Rows", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
	n, _ := props["n"].(int)
	tick, setTick := engine.State(h, 0)

	return vdom.Div(
		vdom.Button(vdom.ID("tick"), vdom.OnClick(func() { _ = setTick.Update(func(t int) int { return t + 1 }) }), "tick"),
		vdom.Ul(vdom.Repeat(n, func(i int) *vdom.VNode {
			return vdom.Li(vdom.Textf("row %d @ %d", i, tick))
		})),
	)
})

// App is the page served by "reconciler serve".
func App() *vdom.VNode {
	return vdom.Div(vdom.ID("app"),
		vdom.H1("reconciler"),
		vdom.C(Counter),
		vdom.C(Todo),
	)
}
