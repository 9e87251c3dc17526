package vdom

// Event is the payload delivered to listeners bound with On*.
type Event struct {
	Type  string // "click", "input", ...
	Value string // Current value for input-like targets
}

// On binds a listener for the named event. The handler may be a func()
// or a func(Event); hosts ignore other types.
func On(name string, handler any) Attr {
	return attr("on"+name, handler)
}

// OnClick handles click events.
func OnClick(handler any) Attr { return On("click", handler) }

// OnInput handles input events (fired when value changes).
func OnInput(handler any) Attr { return On("input", handler) }

// OnChange handles change events (fired when value is committed).
func OnChange(handler any) Attr { return On("change", handler) }

// OnSubmit handles form submit events.
func OnSubmit(handler any) Attr { return On("submit", handler) }

// OnKeyDown handles keydown events.
func OnKeyDown(handler any) Attr { return On("keydown", handler) }

// Invoke calls a listener value with the event. It returns false when the
// value is not a supported handler type.
func Invoke(handler any, ev Event) bool {
	switch h := handler.(type) {
	case func():
		h()
	case func(Event):
		h(ev)
	default:
		return false
	}
	return true
}
