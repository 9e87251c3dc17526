package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reconciler/pkg/fiber"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Phase is the engine's position in the pass lifecycle.
type Phase uint8

const (
	PhaseIdle          Phase = iota // No pass in flight
	PhaseReconciling                // Building the work-in-progress tree
	PhaseCommitPending              // All units done, commit not yet applied
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseReconciling:
		return "Reconciling"
	case PhaseCommitPending:
		return "CommitPending"
	default:
		return "Unknown"
	}
}

// Engine reconciles a desired tree into a host, one fiber per unit of
// work, yielding to its scheduler between quanta.
//
// An Engine is not safe for concurrent use. Drive it from one goroutine;
// sched.Loop provides one with Dispatch for callers elsewhere.
type Engine struct {
	host   host.Host
	sched  sched.Scheduler
	cfg    Config
	logger *slog.Logger

	metrics  *Metrics
	tracer   trace.Tracer
	onCommit []func(CommitInfo)
	onError  []func(error)

	// Generations. current is the committed tree, wip the one being
	// built; spare is recycled storage.
	current *fiber.Tree
	wip     *fiber.Tree
	spare   *fiber.Tree
	epoch   uint64

	container host.Handle
	element   *vdom.VNode
	mounted   bool

	phase     Phase
	next      fiber.ID
	deletions []fiber.ID
	scheduled bool
	rendering bool
	lastErr   error

	// Per-pass accounting
	passStart time.Time
	units     int
	quanta    int
	passCtx   context.Context
	passSpan  trace.Span
}

// New creates an engine that mutates h and runs its passes on s.
func New(h host.Host, s sched.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		host:    h,
		sched:   s,
		cfg:     DefaultConfig(),
		logger:  slog.Default(),
		tracer:  defaultTracer(),
		current: fiber.NewTree(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mount renders element into container on the next pass. Calling Mount
// again with the same container replaces the root element; the new tree
// is reconciled against the committed one.
func (e *Engine) Mount(container host.Handle, element *vdom.VNode) error {
	if container == nil {
		return fmt.Errorf("engine: mount: %w", host.ErrInvalidHandle)
	}
	if e.mounted && container != e.container {
		return ErrContainerChanged
	}
	e.container = container
	e.element = element
	e.mounted = true
	e.requestPass()
	return nil
}

// Unmount schedules a pass that removes everything under the container.
func (e *Engine) Unmount() error {
	if !e.mounted {
		return ErrNotMounted
	}
	e.element = nil
	e.requestPass()
	return nil
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Epoch returns the epoch of the committed tree, 0 before the first
// commit.
func (e *Engine) Epoch() uint64 {
	return e.current.Epoch()
}

// Current returns the committed fiber tree. Callers must not modify it or
// retain it across passes.
func (e *Engine) Current() *fiber.Tree {
	return e.current
}

// Err returns the error that aborted the most recent pass, or nil if the
// most recent pass committed.
func (e *Engine) Err() error {
	return e.lastErr
}

// Work runs units of the in-flight pass while d leaves more than the
// configured minimum. If the pass completes, it is committed in the same
// call; otherwise another callback is scheduled.
func (e *Engine) Work(d sched.Deadline) error {
	if e.phase == PhaseIdle {
		return nil
	}
	e.quanta++

	for e.next != fiber.None && d.TimeRemaining() > e.cfg.MinRemaining {
		if err := e.performUnit(e.next); err != nil {
			e.abort(err)
			return err
		}
	}

	if e.next != fiber.None {
		e.schedule()
		return nil
	}

	e.phase = PhaseCommitPending
	if err := e.commit(); err != nil {
		e.abort(err)
		return err
	}
	return nil
}

// Flush runs the in-flight pass to completion, including its commit,
// without yielding.
func (e *Engine) Flush() error {
	return e.Work(sched.Unlimited())
}

// callback is the scheduler entry point.
func (e *Engine) callback(d sched.Deadline) {
	e.scheduled = false
	if err := e.Work(d); err != nil {
		for _, fn := range e.onError {
			fn(err)
		}
	}
}

func (e *Engine) schedule() {
	if e.scheduled {
		return
	}
	e.scheduled = true
	e.sched.ScheduleWork(e.callback)
}

// requestPass discards any in-flight work and starts a pass from the root.
func (e *Engine) requestPass() {
	if !e.mounted {
		return
	}
	if e.wip != nil {
		e.metrics.pass(resultDiscarded)
		e.endPassSpan(resultDiscarded, nil)
		e.discard()
	}

	e.epoch++
	t := e.spare
	e.spare = nil
	if t == nil {
		t = fiber.NewTree()
	}
	t.Reset(e.epoch)
	e.wip = t

	var children []*vdom.VNode
	if e.element != nil {
		children = []*vdom.VNode{e.element}
	}
	e.next = e.wip.New(fiber.Fiber{
		Type:      vdom.Type{Kind: vdom.KindRoot},
		Children:  children,
		Handle:    e.container,
		Alternate: e.current.Root(),
	})
	e.deletions = e.deletions[:0]
	e.phase = PhaseReconciling
	e.passStart = time.Now()
	e.units = 0
	e.quanta = 0
	e.startPassSpan()
	e.schedule()
}

// discard drops the work-in-progress tree. Host nodes it created were
// never inserted; the host may not hold on to them.
func (e *Engine) discard() {
	e.spare = e.wip
	e.wip = nil
	e.next = fiber.None
	e.deletions = e.deletions[:0]
	e.phase = PhaseIdle
}

func (e *Engine) abort(err error) {
	e.lastErr = err
	e.metrics.pass(resultAborted)
	e.endPassSpan(resultAborted, err)
	e.logger.Error("pass aborted",
		"epoch", e.wip.Epoch(),
		"units", e.units,
		"error", err)
	e.discard()
}

// performUnit processes one fiber and advances e.next.
func (e *Engine) performUnit(id fiber.ID) error {
	f := e.wip.At(id)

	switch f.Kind {
	case vdom.KindComponent:
		if err := e.renderComponent(id, f); err != nil {
			return err
		}
	case vdom.KindRoot:
		e.deletions = fiber.ReconcileChildren(e.wip, e.current, id, f.Children, e.deletions)
	default:
		if f.Handle == nil {
			h, err := e.host.CreateNode(f.Kind, f.Tag, f.Props)
			if err != nil {
				return &RenderError{Component: f.Type.String(), Fiber: id, Err: err, code: CodeHostCreate}
			}
			f.Handle = h
		}
		e.deletions = fiber.ReconcileChildren(e.wip, e.current, id, f.Children, e.deletions)
	}

	if e.cfg.Debug {
		e.logger.Debug("unit",
			"epoch", e.wip.Epoch(),
			"fiber", id,
			"type", f.Type.String(),
			"effect", f.Effect.String())
	}
	e.units++
	e.metrics.unit()
	e.next = e.wip.Next(id)
	return nil
}

// renderComponent runs a component body and reconciles its output.
func (e *Engine) renderComponent(id fiber.ID, f *fiber.Fiber) (err error) {
	alt := e.current.At(f.Alternate)
	scope := &renderScope{
		engine: e,
		epoch:  e.wip.Epoch(),
		id:     id,
		fiber:  f,
		alt:    alt,
	}

	defer func() {
		e.rendering = false
		scope.closed = true
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				rerr = fmt.Errorf("panic: %v", r)
			}
			code := CodeRenderPanic
			if Code(rerr) == CodeHookOrder {
				code = CodeHookOrder
			}
			err = &RenderError{
				Component: f.Type.String(),
				Fiber:     id,
				Err:       rerr,
				Stack:     debug.Stack(),
				code:      code,
			}
		}
	}()

	e.rendering = true
	var child *vdom.VNode
	if f.Comp != nil && f.Comp.Render != nil {
		child = f.Comp.Render(scope, f.Props)
	}
	e.rendering = false

	if alt != nil && scope.cursor != len(alt.Slots) {
		return &RenderError{
			Component: f.Type.String(),
			Fiber:     id,
			Err:       fmt.Errorf("%w: acquired %d slots, previous render acquired %d", ErrHookOrder, scope.cursor, len(alt.Slots)),
			code:      CodeHookOrder,
		}
	}

	var children []*vdom.VNode
	if child != nil {
		children = []*vdom.VNode{child}
	}
	e.deletions = fiber.ReconcileChildren(e.wip, e.current, id, children, e.deletions)
	return nil
}
