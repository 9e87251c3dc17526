package vdom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiffPropsUnchanged(t *testing.T) {
	prev := Props{"class": "a", "id": "x", "n": 3}
	next := Props{"class": "a", "id": "x", "n": 3}

	if changes := DiffProps(prev, next); len(changes) != 0 {
		t.Errorf("Expected 0 changes, got %d: %+v", len(changes), changes)
	}
}

func TestDiffPropsAddChangeRemove(t *testing.T) {
	prev := Props{"class": "old", "title": "gone"}
	next := Props{"class": "new", "id": "added"}

	got := DiffProps(prev, next)
	want := []PropChange{
		{Key: "class", Prev: "old", Next: "new"},
		{Key: "id", Next: "added"},
		{Key: "title", Prev: "gone", Removed: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiffProps() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffPropsHandlersAlwaysRebind(t *testing.T) {
	h := func() {}
	changes := DiffProps(Props{"onclick": h}, Props{"onclick": h})

	if len(changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(changes))
	}
	if !changes[0].IsEvent() {
		t.Error("onclick change should be an event change")
	}
}

func TestDiffPropsNilMaps(t *testing.T) {
	if changes := DiffProps(nil, nil); len(changes) != 0 {
		t.Errorf("Expected 0 changes, got %d", len(changes))
	}
	changes := DiffProps(nil, Props{"a": "1"})
	if len(changes) != 1 || changes[0].Key != "a" || changes[0].Removed {
		t.Errorf("unexpected changes: %+v", changes)
	}
}

func TestPropsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"string vs int", "1", 1, false},
		{"equal ints", 1, 1, true},
		{"equal bools", true, true, true},
		{"both nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"equal slices", []string{"a"}, []string{"a"}, true},
		{"functions", func() {}, func() {}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PropsEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("PropsEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropToString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{true, "true"},
		{false, "false"},
		{42, "42"},
		{int64(7), "7"},
		{1.5, "1.5"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := PropToString(tt.in); got != tt.want {
			t.Errorf("PropToString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
