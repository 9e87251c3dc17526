package vdom

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// PropChange describes one prop key whose value differs between two
// renders of the same node.
type PropChange struct {
	Key     string
	Prev    any
	Next    any
	Removed bool // Key present before, absent now
}

// IsEvent returns true if the change rebinds an event listener.
func (c PropChange) IsEvent() bool {
	return IsEventKey(c.Key)
}

// DiffProps returns the changes needed to turn prev into next, sorted by
// key. Only keys whose values differ are reported. Event handler values
// are compared like any other value; function values never compare equal,
// so a freshly created closure is always reported as a rebinding.
func DiffProps(prev, next Props) []PropChange {
	var changes []PropChange

	// Check for removed/changed props
	for key, prevVal := range prev {
		nextVal, exists := next[key]
		if !exists {
			changes = append(changes, PropChange{Key: key, Prev: prevVal, Removed: true})
		} else if !PropsEqual(prevVal, nextVal) {
			changes = append(changes, PropChange{Key: key, Prev: prevVal, Next: nextVal})
		}
	}

	// Check for added props
	for key, nextVal := range next {
		if _, exists := prev[key]; !exists {
			changes = append(changes, PropChange{Key: key, Next: nextVal})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

// PropsEqual compares two prop values for equality.
func PropsEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
		return false
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
		return false
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
		return false
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
		return false
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
		return false
	case nil:
		return b == nil
	}
	if reflect.TypeOf(a).Kind() == reflect.Func {
		return false
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}

// PropToString converts a prop value to its attribute string form.
func PropToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
