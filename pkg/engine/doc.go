// Package engine drives incremental reconciliation of a vdom tree into a
// host.
//
// Each pass builds a work-in-progress fiber tree from the root, one fiber
// per unit of work. Between units the engine checks its Deadline and, when
// the quantum is spent, yields back to its sched.Scheduler. The committed
// tree is only read during a pass. When every unit is done, the commit
// phase removes deleted subtrees, inserts placed nodes, patches updated
// ones and promotes the wip tree to committed.
//
// Components keep state in positional slots:
//
//	var Counter = vdom.Define("Counter", func(h vdom.Hooks, props vdom.Props) *vdom.VNode {
//	    count, setCount := engine.State(h, 0)
//	    return vdom.Button(
//	        vdom.OnClick(func() { setCount.Update(func(n int) int { return n + 1 }) }),
//	        vdom.Textf("%d", count),
//	    )
//	})
//
// A setter queues its update on the committed slot and requests a new
// pass, discarding any pass in flight. Setters from a tree that has since
// been replaced are ignored.
//
// Errors:
//   - *RenderError: a component panicked, broke slot order, or the host
//     could not create a node. The wip tree is dropped.
//   - *CommitError: the host failed during commit. The host may be partly
//     mutated; the committed tree is kept and nothing is retried.
package engine
