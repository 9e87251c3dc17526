package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/protocol"
)

// Category represents the type of error.
type Category string

const (
	CategoryRender   Category = "render"
	CategoryCommit   Category = "commit"
	CategoryConfig   Category = "config"
	CategoryProtocol Category = "protocol"
	CategorySnapshot Category = "snapshot"
	CategoryCLI      Category = "cli"
)

// Diagnostic is a coded error with an explanation and a fix hint.
type Diagnostic struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type (render, commit, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Component names the component or host element that failed.
	Component string

	// Stack is the goroutine stack captured for a panic.
	Stack []byte

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Diagnostic) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Diagnostic) Unwrap() error {
	return e.Wrapped
}

// WithComponent records the failing component.
func (e *Diagnostic) WithComponent(name string) *Diagnostic {
	e.Component = name
	return e
}

// WithStack attaches a panic stack.
func (e *Diagnostic) WithStack(stack []byte) *Diagnostic {
	e.Stack = stack
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Diagnostic) WithSuggestion(s string) *Diagnostic {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Diagnostic) WithDetail(d string) *Diagnostic {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Diagnostic) Wrap(err error) *Diagnostic {
	e.Wrapped = err
	return e
}

// New creates a Diagnostic from a registered error code.
func New(code string) *Diagnostic {
	template, ok := registry[code]
	if !ok {
		return &Diagnostic{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Diagnostic{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a new Diagnostic with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError converts an error into a Diagnostic. Engine errors get their
// registered code, with the failing component and panic stack when known;
// anything else keeps its own message under CategoryCLI.
func FromError(err error) *Diagnostic {
	if err == nil {
		return nil
	}
	var d *Diagnostic
	if stderrors.As(err, &d) {
		return d
	}

	code := engine.Code(err)
	if code == "" {
		if isProtocolError(err) {
			return New("P001").WithDetail(err.Error()).Wrap(err)
		}
		return Newf(CategoryCLI, "%s", err.Error()).Wrap(err)
	}
	d = New(code).Wrap(err)

	var re *engine.RenderError
	var ce *engine.CommitError
	switch {
	case stderrors.As(err, &re):
		d.Component = re.Component
		d.Stack = re.Stack
		d.Detail = fmt.Sprintf("%s %v", d.Detail, re.Err)
	case stderrors.As(err, &ce):
		d.Component = ce.Target
		d.Detail = fmt.Sprintf("%s The host rejected %s: %v", d.Detail, ce.Op, ce.Err)
	}
	return d
}

var protocolErrors = []error{
	protocol.ErrVarintOverflow,
	protocol.ErrAllocationTooLarge,
	protocol.ErrCollectionTooLarge,
	protocol.ErrFrameTooLarge,
	protocol.ErrInvalidFrameType,
	protocol.ErrUnknownOp,
	protocol.ErrUnknownControl,
	protocol.ErrBatchInterleaved,
}

func isProtocolError(err error) bool {
	for _, target := range protocolErrors {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
