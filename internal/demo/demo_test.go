package demo

import (
	"testing"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vdom"
	"github.com/vango-dev/reconciler/pkg/vtest"
)

func TestCounter(t *testing.T) {
	h := vtest.Mount(t, vdom.C(Counter, vdom.Prop("start", 5)))

	steps := []struct {
		click string
		want  string
	}{
		{"", "5"},
		{"inc", "6"},
		{"inc", "7"},
		{"dec", "6"},
	}
	for _, s := range steps {
		if s.click != "" {
			h.Click(s.click)
		}
		if got := h.Text("count"); got != s.want {
			t.Errorf("after %q: count = %q, want %q", s.click, got, s.want)
		}
	}
}

func TestTodo(t *testing.T) {
	h := vtest.Mount(t, vdom.C(Todo))

	h.ExpectText("left", "0 left")
	h.ExpectAttr("add", "disabled", "true")

	// Blank drafts are ignored.
	h.Input("draft", "   ")
	h.Click("add")
	if h.Container.ByID("toggle-0") != nil {
		t.Fatal("blank draft was added")
	}

	for _, text := range []string{"milk", "eggs"} {
		h.Input("draft", text)
		h.ExpectAttr("draft", "value", text)
		h.Click("add")
	}
	h.ExpectAttr("draft", "value", "")
	h.ExpectText("toggle-1", "eggs")
	h.ExpectText("left", "2 left")

	h.Click("toggle-0")
	if got := h.Node("toggle-0").Parent.Attrs["class"]; got != "done" {
		t.Errorf("toggled item class = %q, want done", got)
	}
	h.ExpectText("left", "1 left")

	h.Click("remove-0")
	h.ExpectText("toggle-0", "eggs")
	h.ExpectAbsent("toggle-1")
	if got := h.Node("toggle-0").Parent.Attrs["class"]; got != "open" {
		t.Errorf("remaining item class = %q, want open", got)
	}
}

func TestRows(t *testing.T) {
	h := vtest.Mount(t, vdom.C(Rows, vdom.Prop("n", 3)))

	ul := h.Container.Find(func(n *host.Node) bool { return n.Tag == "ul" })
	if ul == nil || len(ul.Children) != 3 {
		t.Fatalf("rows = %v", ul)
	}
	h.Click("tick")
	if got := ul.Children[2].TextContent(); got != "row 2 @ 1" {
		t.Errorf("last row = %q, want row 2 @ 1", got)
	}
}

func TestApp(t *testing.T) {
	h := vtest.Mount(t, App())

	h.Node("app")
	h.Click("inc")
	h.ExpectText("count", "1")
	h.ExpectText("left", "0 left")
	h.ExpectContains("<h1>reconciler</h1>")
}
