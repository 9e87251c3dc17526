package engine

import (
	"fmt"

	"github.com/vango-dev/reconciler/pkg/fiber"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// renderScope is the vdom.Hooks implementation handed to one component
// render. It is only valid until the body returns.
type renderScope struct {
	engine *Engine
	epoch  uint64
	id     fiber.ID
	fiber  *fiber.Fiber
	alt    *fiber.Fiber
	cursor int
	closed bool
}

// AcquireSlot implements vdom.Hooks.
//
// The slot is borrowed from the alternate, or synthesized from initial on
// first mount. Its queued updates are applied to a copy of the state and
// the wip fiber receives a fresh slot with an empty queue. The committed
// slot is left as is, so a discarded pass re-applies the same updates.
func (s *renderScope) AcquireSlot(initial any) (any, vdom.SlotHandle, error) {
	if s.closed {
		return nil, nil, fmt.Errorf("%w: hooks used after render returned", ErrHookOrder)
	}
	i := s.cursor
	s.cursor++

	slot := fiber.Slot{State: initial}
	if s.alt != nil {
		if i >= len(s.alt.Slots) {
			return nil, nil, fmt.Errorf("%w: slot %d did not exist on the previous render", ErrHookOrder, i)
		}
		slot = s.alt.Slots[i]
	}

	state := slot.Resolve()
	s.fiber.Slots = append(s.fiber.Slots, fiber.Slot{State: state})
	return state, slotRef{engine: s.engine, epoch: s.epoch, id: s.id, slot: i}, nil
}

// slotRef addresses a slot by the epoch and fiber that produced it, never
// by pointer into a tree.
type slotRef struct {
	engine *Engine
	epoch  uint64
	id     fiber.ID
	slot   int
}

// Enqueue implements vdom.SlotHandle.
func (r slotRef) Enqueue(value any, fn func(any) any) error {
	return r.engine.enqueue(r, fiber.Update{Value: value, Fn: fn})
}

// enqueue appends u to the committed slot r addresses and requests a new
// pass. Refs from superseded trees are ignored.
func (e *Engine) enqueue(r slotRef, u fiber.Update) error {
	if e.rendering || (e.wip != nil && r.epoch == e.wip.Epoch()) {
		return ErrSetDuringRender
	}

	var f *fiber.Fiber
	if r.epoch == e.current.Epoch() {
		f = e.current.At(r.id)
	}
	if f == nil || r.slot >= len(f.Slots) {
		e.metrics.update(true)
		e.logger.Debug("stale state update dropped",
			"epoch", r.epoch,
			"committed", e.current.Epoch(),
			"fiber", r.id,
			"slot", r.slot)
		return nil
	}

	f.Slots[r.slot].Queue = append(f.Slots[r.slot].Queue, u)
	e.metrics.update(false)
	e.requestPass()
	return nil
}

// State returns the current value of the component's next state slot and
// a setter for it. On first mount the slot is seeded with initial.
//
// Like every slot acquisition, State must be called unconditionally and in
// the same order on each render. Violations abort the pass with an error
// matching ErrHookOrder.
func State[T any](h vdom.Hooks, initial T) (T, Setter[T]) {
	v, ref, err := h.AcquireSlot(initial)
	if err != nil {
		panic(err)
	}
	if v == nil {
		var zero T
		return zero, Setter[T]{ref: ref}
	}
	value, ok := v.(T)
	if !ok {
		var zero T
		panic(fmt.Errorf("%w: slot holds %T, want %T", ErrHookOrder, v, zero))
	}
	return value, Setter[T]{ref: ref}
}

// Setter queues updates to one state slot. It is a small value that may be
// copied into event handlers and kept after the render returns.
type Setter[T any] struct {
	ref vdom.SlotHandle
}

// Set queues v as the slot's next value and schedules a pass.
func (s Setter[T]) Set(v T) error {
	if s.ref == nil {
		return ErrNotMounted
	}
	return s.ref.Enqueue(v, nil)
}

// Update queues fn, applied to the previous value on the next pass.
func (s Setter[T]) Update(fn func(T) T) error {
	if s.ref == nil {
		return ErrNotMounted
	}
	return s.ref.Enqueue(nil, func(prev any) any {
		p, _ := prev.(T)
		return fn(p)
	})
}
