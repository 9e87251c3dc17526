package fiber

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// build mounts a tree of plain fibers from a VNode, with fake handles on
// host fibers, and returns the root ID.
func build(t *Tree, parent ID, n *vdom.VNode) ID {
	f := Fiber{Type: n.Type, Props: n.Props, Parent: parent}
	if n.Kind.IsHost() {
		f.Handle = n.Type.String()
	}
	id := t.New(f)
	prev := None
	for _, c := range n.Children {
		cid := build(t, id, c)
		if prev == None {
			t.At(id).Child = cid
		} else {
			t.At(prev).Sibling = cid
		}
		prev = cid
	}
	return id
}

func kinds(t *Tree, root ID) []string {
	var out []string
	_ = t.Walk(root, func(_ ID, f *Fiber) error {
		out = append(out, f.Type.String())
		return nil
	})
	return out
}

func TestTreeResetKeepsEpoch(t *testing.T) {
	tr := NewTree()
	if tr.Root() != None {
		t.Error("empty tree should have no root")
	}
	id := tr.New(Fiber{Type: vdom.Type{Kind: vdom.KindRoot}})
	if id != 1 || tr.Root() != id || tr.Len() != 1 {
		t.Errorf("id = %d, root = %d, len = %d", id, tr.Root(), tr.Len())
	}

	tr.Reset(7)
	if tr.Epoch() != 7 {
		t.Errorf("Epoch = %d, want 7", tr.Epoch())
	}
	if tr.Valid(id) {
		t.Error("IDs should be invalid after Reset")
	}
	if tr.At(None) != nil || tr.At(-3) != nil {
		t.Error("At(None) should be nil")
	}
}

func TestTreeResetReusesIDs(t *testing.T) {
	tr := NewTree()
	for _, tag := range []string{"a", "b", "c"} {
		tr.New(Fiber{Type: vdom.Type{Kind: vdom.KindElement, Tag: tag}})
	}

	tr.Reset(1)
	if tr.Len() != 0 || tr.Root() != None {
		t.Fatalf("len = %d, root = %d after Reset", tr.Len(), tr.Root())
	}
	for id := ID(1); id <= 3; id++ {
		if tr.At(id) != nil {
			t.Errorf("At(%d) still resolves after Reset", id)
		}
	}

	id := tr.New(Fiber{Type: vdom.Type{Kind: vdom.KindElement, Tag: "x"}})
	if id != 1 {
		t.Errorf("first ID after Reset = %d, want 1", id)
	}
	if got := tr.At(id).Type.Tag; got != "x" {
		t.Errorf("At(1).Type.Tag = %q, want x", got)
	}
	if tr.Valid(2) {
		t.Error("ID 2 from the previous generation is still valid")
	}
}

func TestTreeNextOrder(t *testing.T) {
	tr := NewTree()
	root := build(tr, None, vdom.El("root",
		vdom.El("a", vdom.El("a1"), vdom.El("a2")),
		vdom.El("b"),
		vdom.El("c", vdom.El("c1")),
	))

	var got []string
	for id := root; id != None; id = tr.Next(id) {
		got = append(got, tr.At(id).Tag)
	}
	want := []string{"root", "a", "a1", "a2", "b", "c", "c1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Next order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, kinds(tr, root)); diff != "" {
		t.Errorf("Walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeHostParentSkipsComponents(t *testing.T) {
	comp := vdom.Define("Wrap", nil)
	tr := NewTree()
	root := build(tr, None, vdom.Div(vdom.C(comp)))
	compID := tr.At(root).Child
	span := tr.New(Fiber{Type: vdom.Type{Kind: vdom.KindElement, Tag: "span"}, Parent: compID, Handle: "span"})
	tr.At(compID).Child = span

	if got := tr.HostParent(span); got != root {
		t.Errorf("HostParent = %d, want %d", got, root)
	}
	if got := tr.HostParent(root); got != None {
		t.Errorf("HostParent(root) = %d, want None", got)
	}

	var tops []ID
	_ = tr.TopHosts(compID, func(id ID, _ *Fiber) error {
		tops = append(tops, id)
		return nil
	})
	if diff := cmp.Diff([]ID{span}, tops); diff != "" {
		t.Errorf("TopHosts mismatch (-want +got):\n%s", diff)
	}
}

func TestSlotResolve(t *testing.T) {
	s := Slot{
		State: 1,
		Queue: []Update{
			{Fn: func(v any) any { return v.(int) + 1 }},
			{Value: 10},
			{Fn: func(v any) any { return v.(int) * 2 }},
		},
	}
	if got := s.Resolve(); got != 20 {
		t.Errorf("Resolve = %v, want 20", got)
	}
	if s.State != 1 || len(s.Queue) != 3 {
		t.Error("Resolve should not consume the queue")
	}
}

func TestEffectString(t *testing.T) {
	for e, want := range map[Effect]string{
		EffectNone:   "None",
		EffectPlace:  "Place",
		EffectUpdate: "Update",
		EffectDelete: "Delete",
		Effect(99):   "Unknown",
	} {
		if got := e.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", e, got, want)
		}
	}
}
