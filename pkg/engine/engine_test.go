package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

type fixture struct {
	engine    *Engine
	host      *host.Memory
	container *host.Node
	sched     *sched.Manual
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	m := host.NewMemory()
	s := sched.NewManual()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return &fixture{
		engine:    New(m, s, opts...),
		host:      m,
		container: m.NewContainer("root"),
		sched:     s,
	}
}

// render mounts el and flushes the pass.
func (f *fixture) render(t *testing.T, el *vdom.VNode) {
	t.Helper()
	if err := f.engine.Mount(f.container, el); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.engine.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func (f *fixture) markup() string {
	return f.container.String()
}

func TestMountRendersTree(t *testing.T) {
	f := newFixture(t)
	f.render(t, vdom.Div(vdom.Class("box"), vdom.P("hello"), vdom.Span()))

	want := `<root><div class="box"><p>hello</p><span></span></div></root>`
	if got := f.markup(); got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
	if f.engine.Phase() != PhaseIdle {
		t.Errorf("Phase = %v, want Idle", f.engine.Phase())
	}
	if f.engine.Epoch() != 1 {
		t.Errorf("Epoch = %d, want 1", f.engine.Epoch())
	}
}

func TestMountNilContainer(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Mount(nil, vdom.Div()); !errors.Is(err, host.ErrInvalidHandle) {
		t.Errorf("err = %v, want ErrInvalidHandle", err)
	}
}

func TestMountDifferentContainer(t *testing.T) {
	f := newFixture(t)
	f.render(t, vdom.Div())

	other := f.host.NewContainer("other")
	if err := f.engine.Mount(other, vdom.Div()); !errors.Is(err, ErrContainerChanged) {
		t.Errorf("err = %v, want ErrContainerChanged", err)
	}
}

func TestRerenderSameTreeIsNoop(t *testing.T) {
	tree := func() *vdom.VNode {
		return vdom.Div(vdom.ID("app"),
			vdom.Ul(vdom.Li("one"), vdom.Li("two")),
			vdom.P(vdom.Class("note"), "done"),
		)
	}

	f := newFixture(t)
	f.render(t, tree())
	before := f.markup()
	f.host.ResetLog()

	f.render(t, tree())

	if log := f.host.Log(); len(log) != 0 {
		t.Errorf("expected no host mutations, got %v", log)
	}
	if got := f.markup(); got != before {
		t.Errorf("tree = %s, want %s", got, before)
	}
}

func TestPositionalDiff(t *testing.T) {
	f := newFixture(t)
	f.render(t, vdom.Div(vdom.El("a"), vdom.El("b"), vdom.El("c")))
	div := f.container.Children[0]
	b, c := div.Children[1], div.Children[2]
	f.host.ResetLog()

	f.render(t, vdom.Div(vdom.El("a"), vdom.El("c")))

	newC := div.Children[1]
	want := []host.Op{
		{Kind: host.OpCreate, Node: newC.ID, Key: "c"},
		{Kind: host.OpRemove, Node: b.ID, Parent: div.ID},
		{Kind: host.OpRemove, Node: c.ID, Parent: div.ID},
		{Kind: host.OpInsert, Node: newC.ID, Parent: div.ID, Index: 1},
	}
	if diff := cmp.Diff(want, f.host.Log()); diff != "" {
		t.Errorf("Log() mismatch (-want +got):\n%s", diff)
	}
	if got, want := f.markup(), "<root><div><a></a><c></c></div></root>"; got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
	if newC == c {
		t.Error("c should be a new host node")
	}
}

func TestPropsPatchedInPlace(t *testing.T) {
	f := newFixture(t)
	f.render(t, vdom.Div(vdom.Class("a"), vdom.Data("x", "1"), "text"))
	div := f.container.Children[0]
	f.host.ResetLog()

	f.render(t, vdom.Div(vdom.Class("b"), "changed"))

	want := []host.Op{
		{Kind: host.OpSetAttr, Node: div.ID, Key: "class", Value: "b"},
		{Kind: host.OpRemoveAttr, Node: div.ID, Key: "data-x"},
		{Kind: host.OpSetText, Node: div.Children[0].ID, Value: "changed"},
	}
	if diff := cmp.Diff(want, f.host.Log()); diff != "" {
		t.Errorf("Log() mismatch (-want +got):\n%s", diff)
	}
	if f.container.Children[0] != div {
		t.Error("div host node should be reused")
	}
}

func TestTypeChangeReplacesNode(t *testing.T) {
	f := newFixture(t)
	f.render(t, vdom.Div(vdom.P("x")))
	p := f.container.Children[0].Children[0]

	f.render(t, vdom.Div(vdom.Span("x")))

	if got, want := f.markup(), "<root><div><span>x</span></div></root>"; got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
	if !p.Disposed() {
		t.Error("replaced node should be disposed")
	}
}

func TestDeletionThroughComponent(t *testing.T) {
	wrap := vdom.Define("Wrap", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
		return vdom.Span(vdom.Span("inner"))
	})
	outer := vdom.Define("Outer", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
		return vdom.C(wrap)
	})

	f := newFixture(t)
	f.render(t, vdom.Div(vdom.C(outer), vdom.P()))
	div := f.container.Children[0]
	span := div.Children[0]
	f.host.ResetLog()

	f.render(t, vdom.Div(vdom.P()))

	// Position 0 changes from Outer to p, position 1 (p) is removed.
	log := f.host.Log()
	var removed []int
	for _, op := range log {
		if op.Kind == host.OpRemove {
			if op.Parent != div.ID {
				t.Errorf("removal from %d, want %d", op.Parent, div.ID)
			}
			removed = append(removed, op.Node)
		}
	}
	if len(removed) != 2 || removed[0] != span.ID {
		t.Errorf("removed = %v, want span %d first", removed, span.ID)
	}
	if !span.Disposed() {
		t.Error("component's host node should be disposed")
	}
	if got, want := f.markup(), "<root><div><p></p></div></root>"; got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestComponentChildrenPlacedUnderHostAncestor(t *testing.T) {
	item := vdom.Define("Item", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
		return vdom.Li(props["label"].(string))
	})

	f := newFixture(t)
	f.render(t, vdom.Ul(
		vdom.Li("first"),
		vdom.C(item, vdom.Prop("label", "second")),
		vdom.Li("third"),
	))

	want := "<root><ul><li>first</li><li>second</li><li>third</li></ul></root>"
	if got := f.markup(); got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestUnmount(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Unmount(); !errors.Is(err, ErrNotMounted) {
		t.Errorf("Unmount before Mount = %v, want ErrNotMounted", err)
	}
	f.render(t, vdom.Div(vdom.P()))

	if err := f.engine.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if err := f.engine.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(f.container.Children) != 0 {
		t.Errorf("container should be empty, got %s", f.markup())
	}
}

func TestInterruptedPassCommitsAtomically(t *testing.T) {
	tree := vdom.Div(vdom.P("a"), vdom.P("b"))

	ref := newFixture(t)
	ref.render(t, tree)

	var info CommitInfo
	f := newFixture(t, OnCommit(func(ci CommitInfo) { info = ci }))
	if err := f.engine.Mount(f.container, tree); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// root, div, p, #text, p, #text
	const units = 6
	for i := 1; i <= units; i++ {
		if !f.sched.RunNext(sched.Units(1)) {
			t.Fatalf("quantum %d: nothing scheduled", i)
		}
		if i < units {
			if len(f.container.Children) != 0 {
				t.Fatalf("quantum %d: host mutated before commit: %s", i, f.markup())
			}
			if f.engine.Phase() != PhaseReconciling {
				t.Fatalf("quantum %d: Phase = %v, want Reconciling", i, f.engine.Phase())
			}
		}
	}

	if f.engine.Phase() != PhaseIdle {
		t.Errorf("Phase = %v, want Idle", f.engine.Phase())
	}
	if got, want := f.markup(), ref.markup(); got != want {
		t.Errorf("interrupted tree = %s, uninterrupted = %s", got, want)
	}
	if info.Quanta != units || info.Units != units {
		t.Errorf("CommitInfo = %+v, want %d quanta and units", info, units)
	}
	if f.sched.Pending() != 0 {
		t.Errorf("Pending = %d after commit, want 0", f.sched.Pending())
	}
}

func TestDeadlineBelowMinimumYields(t *testing.T) {
	f := newFixture(t, WithConfig(Config{MinRemaining: 5 * time.Millisecond}))
	if err := f.engine.Mount(f.container, vdom.Div()); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// 5ms left is not more than the 5ms minimum.
	frozen := time.Unix(0, 0)
	f.sched.RunNext(sched.AfterClock(5*time.Millisecond, func() time.Time { return frozen }))
	if f.engine.Phase() != PhaseReconciling || f.sched.Pending() != 1 {
		t.Errorf("Phase = %v, Pending = %d: want rescheduled", f.engine.Phase(), f.sched.Pending())
	}
	f.sched.Drain(sched.Unlimited, 0)
	if f.engine.Epoch() != 1 {
		t.Errorf("Epoch = %d, want 1", f.engine.Epoch())
	}
}

func TestSchedulerDrivenPass(t *testing.T) {
	var commits []CommitInfo
	f := newFixture(t, OnCommit(func(ci CommitInfo) { commits = append(commits, ci) }))
	if err := f.engine.Mount(f.container, vdom.Div(vdom.P())); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if f.sched.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", f.sched.Pending())
	}

	f.sched.Drain(sched.Unlimited, 0)

	if len(commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(commits))
	}
	if commits[0].Epoch != 1 || commits[0].Units != 3 || commits[0].Quanta != 1 {
		t.Errorf("CommitInfo = %+v", commits[0])
	}
}

func TestRemountDiscardsInFlightPass(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Mount(f.container, vdom.Div(vdom.P("old"))); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.sched.RunNext(sched.Units(2))

	if err := f.engine.Mount(f.container, vdom.Div(vdom.P("new"))); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.sched.Drain(sched.Unlimited, 0)

	if got, want := f.markup(), "<root><div><p>new</p></div></root>"; got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
	if f.engine.Epoch() != 2 {
		t.Errorf("Epoch = %d, want 2", f.engine.Epoch())
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))
	f := newFixture(t, WithMetrics(m))

	f.render(t, vdom.Div(vdom.P()))
	f.render(t, vdom.Div(vdom.Span()))

	if got := testutil.ToFloat64(m.passes.WithLabelValues(resultCommitted)); got != 2 {
		t.Errorf("committed passes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.units); got != 6 {
		t.Errorf("units = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.hostOps.WithLabelValues("remove")); got != 1 {
		t.Errorf("remove ops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.hostOps.WithLabelValues("insert")); got != 3 {
		t.Errorf("insert ops = %v, want 3", got)
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseIdle:          "Idle",
		PhaseReconciling:   "Reconciling",
		PhaseCommitPending: "CommitPending",
		Phase(9):           "Unknown",
	} {
		if got := p.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
