package host

import (
	"errors"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Handle is an opaque reference to a host-side node. The fiber that
// created it owns it exclusively; Update fibers inherit it by copy.
type Handle any

// Host applies reconciler output to a concrete node tree.
//
// Implementations are called from the engine's goroutine only and must
// not block. A returned error aborts the current commit; the engine does
// not retry.
type Host interface {
	// CreateNode allocates a detached host node. For vdom.KindText the
	// props carry only vdom.TextProp.
	CreateNode(kind vdom.VKind, tag string, props vdom.Props) (Handle, error)

	// InsertNode attaches child under parent at index among parent's
	// host children.
	InsertNode(parent, child Handle, index int) error

	// RemoveNode detaches child from parent and disposes it.
	RemoveNode(parent, child Handle) error

	// ApplyProps updates attributes and listener bindings of h, touching
	// only keys that differ between prev and next (see vdom.DiffProps).
	ApplyProps(h Handle, prev, next vdom.Props) error
}

// Errors returned by hosts in this package.
var (
	ErrInvalidHandle = errors.New("host: handle does not belong to this host")
	ErrNotChild      = errors.New("host: node is not a child of parent")
	ErrDisposed      = errors.New("host: node has been disposed")
)
