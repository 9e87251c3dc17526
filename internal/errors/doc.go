// Package errors provides coded, actionable diagnostics for the reconciler
// CLI.
//
// Engine failures carry a short code (see engine.Code). This package maps
// each code to a message, an explanation, a fix hint and a documentation
// link, and formats the result for a terminal.
//
// # Error Codes
//
//   - R001: a component panicked during render
//   - R002: the host refused to create a node
//   - R003: state slot order changed between renders
//   - R004: state set during render
//   - C001: a host mutation failed during commit
//   - K001-K003: configuration
//   - P001: protocol
//   - S001-S002: snapshots
//
// # Usage
//
//	if err := e.Flush(); err != nil {
//	    errors.PrintError(err)
//	}
//	// Output:
//	// ERROR R001: Component panicked during render
//	//
//	//   in Counter
//	//
//	//   A component body panicked while the work-in-progress tree was
//	//   built. ...
//	//
//	//   Hint: Check the component for nil props or out-of-range indexes
//
// Colors are used only when stderr is a terminal and NO_COLOR is unset.
package errors
