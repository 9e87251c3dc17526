package engine

import (
	"time"

	"github.com/vango-dev/reconciler/pkg/fiber"
)

// commit applies the finished wip tree to the host and promotes it.
//
// Deletions run first, against the committed tree; insert indices taken
// from the wip tree assume the deleted host nodes are gone. The wip tree
// is then walked in pre-order: each host fiber takes the next index under
// its host parent. Place fibers are inserted there; Update fibers have
// their props patched against their alternate.
func (e *Engine) commit() error {
	start := time.Now()
	span := e.startCommitSpan()
	defer span.End()

	for _, id := range e.deletions {
		if err := e.commitDeletion(id); err != nil {
			span.RecordError(err)
			return err
		}
	}

	counters := make(map[fiber.ID]int)
	root := e.wip.Root()
	err := e.wip.Walk(root, func(id fiber.ID, f *fiber.Fiber) error {
		if id == root || f.Handle == nil {
			return nil
		}
		hp := e.wip.HostParent(id)
		index := counters[hp]
		counters[hp]++

		switch f.Effect {
		case fiber.EffectPlace:
			if e.cfg.Debug {
				e.logger.Debug("insert", "fiber", id, "type", f.Type.String(), "index", index)
			}
			if err := e.host.InsertNode(e.wip.At(hp).Handle, f.Handle, index); err != nil {
				return &CommitError{Op: "insert", Target: f.Type.String(), Err: err}
			}
			e.metrics.hostOp("insert")

		case fiber.EffectUpdate:
			prev := e.current.At(f.Alternate)
			if err := e.host.ApplyProps(f.Handle, prev.Props, f.Props); err != nil {
				return &CommitError{Op: "props", Target: f.Type.String(), Err: err}
			}
			e.metrics.hostOp("props")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	info := CommitInfo{
		Epoch:     e.wip.Epoch(),
		Units:     e.units,
		Quanta:    e.quanta,
		Deletions: len(e.deletions),
		Duration:  time.Since(e.passStart),
	}

	e.spare = e.current
	e.current = e.wip
	e.wip = nil
	e.next = fiber.None
	e.deletions = e.deletions[:0]
	e.phase = PhaseIdle
	e.lastErr = nil

	e.metrics.committed(info, time.Since(start))
	e.endPassSpan(resultCommitted, nil)
	e.logger.Debug("committed",
		"epoch", info.Epoch,
		"units", info.Units,
		"quanta", info.Quanta,
		"deletions", info.Deletions,
		"duration", info.Duration)

	for _, fn := range e.onCommit {
		fn(info)
	}
	return nil
}

// commitDeletion removes the host nodes of the committed subtree rooted at
// id from its nearest host ancestor. Component fibers own no host node, so
// the topmost host descendants under them are removed instead.
func (e *Engine) commitDeletion(id fiber.ID) error {
	parent := e.current.At(e.current.HostParent(id))
	if parent == nil {
		return nil
	}
	return e.current.TopHosts(id, func(cid fiber.ID, f *fiber.Fiber) error {
		if e.cfg.Debug {
			e.logger.Debug("remove", "fiber", cid, "type", f.Type.String())
		}
		if err := e.host.RemoveNode(parent.Handle, f.Handle); err != nil {
			return &CommitError{Op: "remove", Target: f.Type.String(), Err: err}
		}
		e.metrics.hostOp("remove")
		return nil
	})
}
