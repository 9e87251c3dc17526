package vtest_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vdom"
	"github.com/vango-dev/reconciler/pkg/vtest"
)

var greeter = vdom.Define("Greeter", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
	name, setName := engine.State(h, "world")
	return vdom.Div(
		vdom.Input(vdom.ID("name"), vdom.Value(name), vdom.OnInput(func(e vdom.Event) { _ = setName.Set(e.Value) })),
		vdom.P(vdom.ID("greeting"), vdom.Textf("hello %s", name)),
		vdom.Button(vdom.ID("clear"), vdom.OnClick(func() { _ = setName.Set("") }), vdom.Text("clear")),
	)
})

func TestMountAndInteract(t *testing.T) {
	h := vtest.Mount(t, vdom.C(greeter))

	h.ExpectText("greeting", "hello world")
	h.ExpectAttr("name", "value", "world")

	h.Input("name", "gopher")
	h.ExpectText("greeting", "hello gopher")
	h.ExpectContains(`<p id="greeting">hello gopher</p>`)

	h.Click("clear")
	h.ExpectText("greeting", "hello ")
	h.ExpectNotContains("gopher")
	h.ExpectAbsent("missing")
}

func TestOps(t *testing.T) {
	h := vtest.Mount(t, vdom.C(greeter))
	if len(h.Ops()) == 0 {
		t.Fatal("mount produced no mutations")
	}
	if ops := h.Ops(); len(ops) != 0 {
		t.Fatalf("Ops not cleared: %v", ops)
	}

	h.Input("name", "x")
	var kinds []host.OpKind
	for _, op := range h.Ops() {
		if op.Kind != host.OpListen {
			kinds = append(kinds, op.Kind)
		}
	}
	want := []host.OpKind{host.OpSetAttr, host.OpSetText}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestOnCommitOption(t *testing.T) {
	var commits []engine.CommitInfo
	h := vtest.Mount(t, vdom.C(greeter), engine.OnCommit(func(ci engine.CommitInfo) {
		commits = append(commits, ci)
	}))
	h.Click("clear")
	if len(commits) != 2 {
		t.Fatalf("commits = %d, want 2", len(commits))
	}
	if commits[1].Epoch <= commits[0].Epoch {
		t.Errorf("epochs not increasing: %+v", commits)
	}
	if !strings.Contains(h.HTML(), `<p id="greeting">`) {
		t.Errorf("HTML = %s", h.HTML())
	}
}
