package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Diff / render cycle errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryDiff,
		Message:  "Render cycle failed",
		Detail:   "The view, the differ or the patch applier failed. The previous tree was kept and the cycle was not retried.",
	},
	"E002": {
		Category: CategoryDiff,
		Message:  "View returned no tree",
		Detail:   "The view function must return a non-nil VNode for every state.",
	},

	// ============================================
	// Patch invariant errors (E101-E199)
	// ============================================

	"E101": {
		Category: CategoryPatch,
		Message:  "Unknown patch operation",
		Detail:   "A patch or node kind outside the closed set reached the engine.",
	},
	"E102": {
		Category: CategoryPatch,
		Message:  "Patch target not found",
		Detail:   "A patch index or child position does not exist in the live tree. The live tree was modified outside the engine, or the patches were computed against a different old tree.",
	},
	"E103": {
		Category: CategoryPatch,
		Message:  "Tagger layer not found",
		Detail:   "A live node has fewer message-mapping layers than the old tree implies.",
	},

	// ============================================
	// Protocol errors (E201-E299)
	// ============================================

	"E201": {
		Category: CategoryProtocol,
		Message:  "Malformed patch frame",
		Detail:   "The frame could not be decoded.",
	},
	"E202": {
		Category: CategoryProtocol,
		Message:  "Patch list not encodable",
		Detail:   "Custom nodes, event handlers and taggers only exist in the process that created them and cannot be sent over the wire.",
	},
	"E211": {
		Category: CategoryProtocol,
		Message:  "Corrupt journal entry",
		Detail:   "A journal record or the tree and patches stored in it could not be decoded.",
	},
	"E212": {
		Category: CategoryProtocol,
		Message:  "Journal replay diverged",
		Detail:   "Applying the recorded patches to the previous recorded tree did not produce the recorded tree.",
	},

	// ============================================
	// Configuration errors (E301-E399)
	// ============================================

	"E301": {
		Category: CategoryConfig,
		Message:  "Cannot load configuration",
		Detail:   "The configuration file could not be read or parsed as TOML.",
	},
	"E302": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"E311": {
		Category: CategoryConfig,
		Message:  "Cannot load fixture",
		Detail:   "The fixture file could not be read or parsed as YAML.",
	},
	"E312": {
		Category: CategoryConfig,
		Message:  "Invalid fixture node",
		Detail:   "Each fixture node must have exactly one of text, el, keyed or lazy.",
	},

	// ============================================
	// CLI errors (E401-E499)
	// ============================================

	"E401": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
	"E402": {
		Category: CategoryCLI,
		Message:  "Cannot open journal",
		Detail:   "The journal database could not be opened. Another process may hold its lock.",
	},
	"E403": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
