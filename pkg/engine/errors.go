package engine

import (
	"errors"
	"fmt"

	"github.com/vango-dev/reconciler/pkg/fiber"
)

// ErrNotMounted is returned when an operation needs a mounted root, or a
// zero Setter is used.
var ErrNotMounted = errors.New("engine: not mounted")

// ErrContainerChanged is returned when Mount is called again with a
// different container.
var ErrContainerChanged = errors.New("engine: already mounted into a different container")

// ErrSetDuringRender is returned when state is set from inside a component
// body, or through a setter produced by a render that has not committed.
var ErrSetDuringRender = errors.New("engine: state set during render")

// ErrHookOrder is raised when a component acquires a different number of
// state slots than on its previous render, or a slot's type changes.
// State slots are positional, so they must be acquired unconditionally
// and in the same order on every render.
var ErrHookOrder = errors.New("engine: state slot order changed between renders")

// Diagnostic codes attached to engine errors.
const (
	CodeRenderPanic     = "R001"
	CodeHostCreate      = "R002"
	CodeHookOrder       = "R003"
	CodeSetDuringRender = "R004"
	CodeCommitFailed    = "C001"
)

// RenderError reports a failure while building the work-in-progress tree:
// a component body panicked, broke slot ordering, or the host refused to
// create a node. The pass is discarded and the committed tree is intact.
type RenderError struct {
	Component string   // Component or tag name of the failing fiber
	Fiber     fiber.ID // ID within the discarded tree
	Err       error
	Stack     []byte // Set for panics

	code string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("engine: render %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Code returns the diagnostic code for the failure.
func (e *RenderError) Code() string {
	return e.code
}

// CommitError reports a host failure while applying a commit. The host
// may be partially mutated; the engine keeps the previously committed tree
// and does not retry.
type CommitError struct {
	Op     string // "insert", "remove" or "props"
	Target string // Type of the fiber being applied
	Err    error
}

// Error implements the error interface.
func (e *CommitError) Error() string {
	return fmt.Sprintf("engine: commit %s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// Code returns the diagnostic code for the failure.
func (e *CommitError) Code() string {
	return CodeCommitFailed
}

// Code returns the diagnostic code for an error produced by the engine, or
// "" if err is not one.
func Code(err error) string {
	var coded interface{ Code() string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &coded):
		return coded.Code()
	case errors.Is(err, ErrHookOrder):
		return CodeHookOrder
	case errors.Is(err, ErrSetDuringRender):
		return CodeSetDuringRender
	default:
		return ""
	}
}
