// Package vtest provides a test harness for components.
//
// Mount renders a tree into an in-memory host on a manual scheduler.
// Every action flushes the engine, so assertions see committed output:
//
//	func TestCounter(t *testing.T) {
//	    h := vtest.Mount(t, vdom.C(Counter))
//	    h.Click("inc")
//	    h.ExpectText("count", "1")
//	    h.ExpectContains(`<span id="count">1</span>`)
//	}
//
// Ops returns the host mutation log since the last call, for tests that
// care about which mutations a pass produced rather than the final tree.
package vtest
