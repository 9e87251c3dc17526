package fiber

// Tree is an arena holding one generation of fibers. IDs are stable for
// the lifetime of an epoch; Reset invalidates all of them at once.
type Tree struct {
	epoch  uint64
	fibers []*Fiber
}

// NewTree creates an empty tree at epoch 0.
func NewTree() *Tree {
	return &Tree{fibers: make([]*Fiber, 1, 64)}
}

// Reset empties the tree and stamps it with epoch in constant time. The
// backing storage is kept for reuse; fibers past the new length stay
// reachable from it until New overwrites their slots.
func (t *Tree) Reset(epoch uint64) {
	t.fibers = t.fibers[:1]
	t.epoch = epoch
}

// Epoch returns the epoch stamped by the last Reset.
func (t *Tree) Epoch() uint64 {
	return t.epoch
}

// Len returns the number of fibers in the tree.
func (t *Tree) Len() int {
	return len(t.fibers) - 1
}

// Root returns the first fiber added since the last Reset, or None.
func (t *Tree) Root() ID {
	if len(t.fibers) < 2 {
		return None
	}
	return 1
}

// New adds f to the tree and returns its ID.
func (t *Tree) New(f Fiber) ID {
	t.fibers = append(t.fibers, &f)
	return ID(len(t.fibers) - 1)
}

// At returns the fiber for id, or nil if id is None or out of range.
func (t *Tree) At(id ID) *Fiber {
	if id <= None || int(id) >= len(t.fibers) {
		return nil
	}
	return t.fibers[id]
}

// Valid returns true if id addresses a fiber in the tree.
func (t *Tree) Valid(id ID) bool {
	return t.At(id) != nil
}

// Next returns the fiber processed after id in depth-first order: its
// first child, else its sibling, else the sibling of the nearest ancestor
// that has one. It returns None when the walk is complete.
func (t *Tree) Next(id ID) ID {
	f := t.At(id)
	if f == nil {
		return None
	}
	if f.Child != None {
		return f.Child
	}
	for f != nil {
		if f.Sibling != None {
			return f.Sibling
		}
		f = t.At(f.Parent)
	}
	return None
}

// HostParent returns the nearest proper ancestor of id that owns a host
// handle, or None.
func (t *Tree) HostParent(id ID) ID {
	f := t.At(id)
	if f == nil {
		return None
	}
	for p := f.Parent; p != None; {
		pf := t.At(p)
		if pf.Handle != nil {
			return p
		}
		p = pf.Parent
	}
	return None
}

// Walk visits id and its descendants in pre-order, stopping at the first
// error fn returns.
func (t *Tree) Walk(id ID, fn func(ID, *Fiber) error) error {
	f := t.At(id)
	if f == nil {
		return nil
	}
	if err := fn(id, f); err != nil {
		return err
	}
	for c := f.Child; c != None; c = t.At(c).Sibling {
		if err := t.Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// TopHosts visits the topmost handle-bearing fibers of the subtree rooted
// at id, in order. Fibers without a handle are descended through.
func (t *Tree) TopHosts(id ID, fn func(ID, *Fiber) error) error {
	f := t.At(id)
	if f == nil {
		return nil
	}
	if f.Handle != nil {
		return fn(id, f)
	}
	for c := f.Child; c != None; c = t.At(c).Sibling {
		if err := t.TopHosts(c, fn); err != nil {
			return err
		}
	}
	return nil
}
