package fiber

import "github.com/vango-dev/reconciler/pkg/vdom"

// ReconcileChildren builds wip fibers for children under parent by walking
// them in lockstep with the old child list of parent's alternate.
//
// At each position, an old fiber of the same type becomes an Update that
// inherits its handle; a new node with no same-typed old fiber becomes a
// Place; an old fiber with no same-typed new node is appended to deletions
// by its ID in old. There is no key matching and no move detection. The
// old tree is never written.
//
// Nil entries in children are skipped and do not occupy a position.
func ReconcileChildren(wip, old *Tree, parent ID, children []*vdom.VNode, deletions []ID) []ID {
	oldChild := None
	if pf := wip.At(parent); pf != nil && pf.Alternate != None {
		if alt := old.At(pf.Alternate); alt != nil {
			oldChild = alt.Child
		}
	}

	prev := None
	i := 0
	for {
		for i < len(children) && children[i] == nil {
			i++
		}
		if i >= len(children) && oldChild == None {
			break
		}

		var el *vdom.VNode
		if i < len(children) {
			el = children[i]
		}
		of := old.At(oldChild)
		same := el != nil && of != nil && of.Type == el.Type

		id := None
		switch {
		case same:
			id = wip.New(Fiber{
				Type:      el.Type,
				Props:     el.Props,
				Children:  el.Children,
				Handle:    of.Handle,
				Parent:    parent,
				Alternate: oldChild,
				Effect:    EffectUpdate,
			})
		case el != nil:
			id = wip.New(Fiber{
				Type:     el.Type,
				Props:    el.Props,
				Children: el.Children,
				Parent:   parent,
				Effect:   EffectPlace,
			})
		}
		if of != nil && !same {
			deletions = append(deletions, oldChild)
		}

		if of != nil {
			oldChild = of.Sibling
		}
		if id != None {
			if prev == None {
				wip.At(parent).Child = id
			} else {
				wip.At(prev).Sibling = id
			}
			prev = id
		}
		if el != nil {
			i++
		}
	}
	return deletions
}
