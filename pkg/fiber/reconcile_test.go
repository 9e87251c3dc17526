package fiber

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

type childResult struct {
	Tag       string
	Effect    Effect
	Handle    any
	Alternate ID
}

// reconcile mounts oldTree into a fresh "current" arena, then reconciles
// the children of next against it under a wip root linked to the old root.
func reconcile(oldTree, next *vdom.VNode) (wip, old *Tree, deletions []ID) {
	old = NewTree()
	oldRoot := build(old, None, oldTree)

	wip = NewTree()
	wip.Reset(1)
	root := wip.New(Fiber{Type: next.Type, Props: next.Props, Handle: "root", Alternate: oldRoot})
	deletions = ReconcileChildren(wip, old, root, next.Children, nil)
	return wip, old, deletions
}

func children(tr *Tree) []childResult {
	var out []childResult
	for c := tr.At(tr.Root()).Child; c != None; c = tr.At(c).Sibling {
		f := tr.At(c)
		out = append(out, childResult{Tag: f.Type.String(), Effect: f.Effect, Handle: f.Handle, Alternate: f.Alternate})
	}
	return out
}

func deletedTags(old *Tree, deletions []ID) []string {
	var out []string
	for _, id := range deletions {
		out = append(out, old.At(id).Type.String())
	}
	return out
}

func TestReconcileSameShapeUpdates(t *testing.T) {
	wip, old, dels := reconcile(
		vdom.Div(vdom.P(), vdom.Span()),
		vdom.Div(vdom.P(), vdom.Span()),
	)

	want := []childResult{
		{Tag: "p", Effect: EffectUpdate, Handle: "p", Alternate: 2},
		{Tag: "span", Effect: EffectUpdate, Handle: "span", Alternate: 3},
	}
	if diff := cmp.Diff(want, children(wip)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if len(dels) != 0 {
		t.Errorf("deletions = %v, want none", deletedTags(old, dels))
	}
}

func TestReconcileMountFromEmpty(t *testing.T) {
	wip, _, dels := reconcile(vdom.Div(), vdom.Div(vdom.P(), "x"))

	want := []childResult{
		{Tag: "p", Effect: EffectPlace},
		{Tag: "#text", Effect: EffectPlace},
	}
	if diff := cmp.Diff(want, children(wip)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if len(dels) != 0 {
		t.Errorf("deletions = %d, want 0", len(dels))
	}
}

func TestReconcileIsPositional(t *testing.T) {
	// Removing the middle child shifts C into B's slot: no key matching.
	wip, old, dels := reconcile(
		vdom.Div(vdom.El("a"), vdom.El("b"), vdom.El("c")),
		vdom.Div(vdom.El("a"), vdom.El("c")),
	)

	want := []childResult{
		{Tag: "a", Effect: EffectUpdate, Handle: "a", Alternate: 2},
		{Tag: "c", Effect: EffectPlace},
	}
	if diff := cmp.Diff(want, children(wip)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c"}, deletedTags(old, dels)); diff != "" {
		t.Errorf("deletions mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileTypeChange(t *testing.T) {
	a := vdom.Define("A", nil)
	b := vdom.Define("B", nil)

	tests := []struct {
		name    string
		old     *vdom.VNode
		next    *vdom.VNode
		effects []Effect
		deleted []string
	}{
		{
			name:    "tag change",
			old:     vdom.Div(vdom.P()),
			next:    vdom.Div(vdom.Span()),
			effects: []Effect{EffectPlace},
			deleted: []string{"p"},
		},
		{
			name:    "element to text",
			old:     vdom.Div(vdom.P()),
			next:    vdom.Div("hi"),
			effects: []Effect{EffectPlace},
			deleted: []string{"p"},
		},
		{
			name:    "different component",
			old:     vdom.Div(vdom.C(a)),
			next:    vdom.Div(vdom.C(b)),
			effects: []Effect{EffectPlace},
			deleted: []string{"A"},
		},
		{
			name:    "same component",
			old:     vdom.Div(vdom.C(a)),
			next:    vdom.Div(vdom.C(a, vdom.Prop("n", 2))),
			effects: []Effect{EffectUpdate},
		},
		{
			name:    "all removed",
			old:     vdom.Div(vdom.P(), vdom.P()),
			next:    vdom.Div(),
			deleted: []string{"p", "p"},
		},
		{
			name:    "appended",
			old:     vdom.Div(vdom.P()),
			next:    vdom.Div(vdom.P(), vdom.P()),
			effects: []Effect{EffectUpdate, EffectPlace},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wip, old, dels := reconcile(tt.old, tt.next)

			var effects []Effect
			for _, c := range children(wip) {
				effects = append(effects, c.Effect)
			}
			if diff := cmp.Diff(tt.effects, effects); diff != "" {
				t.Errorf("effects mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.deleted, deletedTags(old, dels)); diff != "" {
				t.Errorf("deletions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcileSkipsNilChildren(t *testing.T) {
	wip, _, dels := reconcile(
		vdom.Div(vdom.P(), vdom.Span()),
		&vdom.VNode{
			Type:     vdom.Type{Kind: vdom.KindElement, Tag: "div"},
			Children: []*vdom.VNode{nil, vdom.P(), nil, vdom.Span()},
		},
	)

	if got := len(children(wip)); got != 2 {
		t.Errorf("children = %d, want 2", got)
	}
	if len(dels) != 0 {
		t.Errorf("deletions = %d, want 0", len(dels))
	}
}

func TestReconcileLeavesOldTreeUntouched(t *testing.T) {
	old := NewTree()
	oldRoot := build(old, None, vdom.Div(vdom.P(), vdom.Span()))
	before := kinds(old, oldRoot)
	firstChild := old.At(oldRoot).Child

	wip := NewTree()
	wip.Reset(1)
	root := wip.New(Fiber{Type: vdom.Type{Kind: vdom.KindElement, Tag: "div"}, Alternate: oldRoot})
	ReconcileChildren(wip, old, root, []*vdom.VNode{vdom.Ul()}, nil)

	if diff := cmp.Diff(before, kinds(old, oldRoot)); diff != "" {
		t.Errorf("old tree changed (-want +got):\n%s", diff)
	}
	if old.At(firstChild).Effect != EffectNone {
		t.Error("old fibers should not be marked")
	}
}
