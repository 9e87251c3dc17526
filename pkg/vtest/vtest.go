package vtest

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/render"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Harness is an engine mounted on an in-memory host. Every helper flushes
// the engine after acting, so assertions always see committed output.
type Harness struct {
	t testing.TB

	Engine    *engine.Engine
	Host      *host.Memory
	Container *host.Node
	Scheduler *sched.Manual
}

// Mount renders el into a fresh container and flushes the first pass.
// Engine logs are discarded unless a WithLogger option is given.
//
// Example:
//
//	h := vtest.Mount(t, vdom.C(Counter))
//	h.Click("inc")
//	h.ExpectText("count", "1")
func Mount(t testing.TB, el *vdom.VNode, opts ...engine.Option) *Harness {
	t.Helper()
	m := host.NewMemory()
	s := sched.NewManual()
	base := []engine.Option{engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	h := &Harness{
		t:         t,
		Engine:    engine.New(m, s, append(base, opts...)...),
		Host:      m,
		Container: m.NewContainer("root"),
		Scheduler: s,
	}
	if err := h.Engine.Mount(h.Container, el); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	h.Flush()
	return h
}

// Flush runs pending work to completion.
func (h *Harness) Flush() {
	h.t.Helper()
	if err := h.Engine.Flush(); err != nil {
		h.t.Fatalf("Flush: %v", err)
	}
}

// Node returns the element with the given id, failing the test if absent.
func (h *Harness) Node(id string) *host.Node {
	h.t.Helper()
	n := h.Container.ByID(id)
	if n == nil {
		h.t.Fatalf("no element #%s in %s", id, truncate(h.Container.String(), 500))
	}
	return n
}

// Fire dispatches event on #id and flushes.
func (h *Harness) Fire(id, event, value string) {
	h.t.Helper()
	if !h.Host.Dispatch(h.Node(id), event, vdom.Event{Value: value}) {
		h.t.Fatalf("no %s listener on #%s", event, id)
	}
	h.Flush()
}

// Click is Fire(id, "click", "").
func (h *Harness) Click(id string) {
	h.t.Helper()
	h.Fire(id, "click", "")
}

// Input is Fire(id, "input", value).
func (h *Harness) Input(id, value string) {
	h.t.Helper()
	h.Fire(id, "input", value)
}

// Text returns the text content of #id.
func (h *Harness) Text(id string) string {
	h.t.Helper()
	return h.Node(id).TextContent()
}

// HTML renders the container's children.
func (h *Harness) HTML() string {
	h.t.Helper()
	var b strings.Builder
	if err := render.NewRenderer(render.RendererConfig{}).RenderChildren(&b, h.Container); err != nil {
		h.t.Fatalf("render: %v", err)
	}
	return b.String()
}

// Ops returns and clears the host mutation log.
func (h *Harness) Ops() []host.Op {
	ops := h.Host.Log()
	h.Host.ResetLog()
	return ops
}

// ExpectText asserts the text content of #id.
func (h *Harness) ExpectText(id, want string) {
	h.t.Helper()
	if got := h.Text(id); got != want {
		h.t.Errorf("#%s text = %q, want %q", id, got, want)
	}
}

// ExpectAttr asserts an attribute of #id.
func (h *Harness) ExpectAttr(id, attr, want string) {
	h.t.Helper()
	if got := h.Node(id).Attrs[attr]; got != want {
		h.t.Errorf("#%s %s = %q, want %q", id, attr, got, want)
	}
}

// ExpectAbsent asserts that no element has the given id.
func (h *Harness) ExpectAbsent(id string) {
	h.t.Helper()
	if h.Container.ByID(id) != nil {
		h.t.Errorf("#%s still present in %s", id, truncate(h.Container.String(), 500))
	}
}

// ExpectContains asserts that the rendered HTML contains expected.
func (h *Harness) ExpectContains(expected string) {
	h.t.Helper()
	html := h.HTML()
	if !strings.Contains(html, expected) {
		h.t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the rendered HTML does not contain unexpected.
func (h *Harness) ExpectNotContains(unexpected string) {
	h.t.Helper()
	html := h.HTML()
	if strings.Contains(html, unexpected) {
		h.t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
