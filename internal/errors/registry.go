package errors

import (
	"sort"

	"github.com/vango-dev/reconciler/pkg/engine"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

const docBase = "https://github.com/vango-dev/reconciler/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Render Errors (R001-R099)
	// ============================================

	engine.CodeRenderPanic: {
		Category:   CategoryRender,
		Message:    "Component panicked during render",
		Detail:     "A component body panicked while the work-in-progress tree was built. The pass was discarded and the committed tree is unchanged.",
		Suggestion: "Check the component for nil props or out-of-range indexes",
		DocURL:     docBase + "r001",
	},
	engine.CodeHostCreate: {
		Category:   CategoryRender,
		Message:    "Host refused to create a node",
		Detail:     "The host returned an error from CreateNode. The pass was discarded and the committed tree is unchanged.",
		Suggestion: "Check the element tag and the props passed to it",
		DocURL:     docBase + "r002",
	},
	engine.CodeHookOrder: {
		Category:   CategoryRender,
		Message:    "State slot order changed between renders",
		Detail:     "State slots are matched by call order. A component acquired a different number of slots than on its previous render, or a slot changed type.",
		Suggestion: "Call State unconditionally and in the same order on every render",
		DocURL:     docBase + "r003",
	},
	engine.CodeSetDuringRender: {
		Category:   CategoryRender,
		Message:    "State set during render",
		Detail:     "A setter was called from inside a component body, or through a setter produced by a render that has not committed yet.",
		Suggestion: "Set state from event handlers only",
		DocURL:     docBase + "r004",
	},

	// ============================================
	// Commit Errors (C001-C099)
	// ============================================

	engine.CodeCommitFailed: {
		Category:   CategoryCommit,
		Message:    "Host mutation failed during commit",
		Detail:     "The host returned an error while the commit was applied. It may be partially mutated; the engine kept the previously committed tree.",
		Suggestion: "Remount the tree or restart the session",
		DocURL:     docBase + "c001",
	},

	// ============================================
	// Configuration Errors (K001-K099)
	// ============================================

	"K001": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create reconciler.yaml or reconciler.json, or pass --config",
		DocURL:     docBase + "k001",
	},
	"K002": {
		Category:   CategoryConfig,
		Message:    "Configuration file could not be parsed",
		Suggestion: "Check that the file is valid JSON or YAML",
		DocURL:     docBase + "k002",
	},
	"K003": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   docBase + "k003",
	},

	// ============================================
	// Protocol Errors (P001-P099)
	// ============================================

	"P001": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "A frame header or payload could not be decoded.",
		DocURL:   docBase + "p001",
	},

	// ============================================
	// Snapshot Errors (S001-S099)
	// ============================================

	"S001": {
		Category:   CategorySnapshot,
		Message:    "Snapshot not found",
		Suggestion: "List stored snapshots with 'reconciler snapshot list'",
		DocURL:     docBase + "s001",
	},
	"S002": {
		Category: CategorySnapshot,
		Message:  "Snapshot store unavailable",
		DocURL:   docBase + "s002",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
