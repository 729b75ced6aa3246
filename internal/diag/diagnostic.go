package diag

import (
	"prism/internal/source"
)

// Note attaches secondary context to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// TextEdit replaces the text covered by Span with NewText. OldText, when
// non-empty, is a guard: the fix engine refuses to apply the edit unless the
// current text still matches it.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Diagnostic is one immutable finding about a source location. Diagnostics
// are created during a single pass over one snapshot and recomputed
// wholesale on the next pass.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	// FixID names the fixer associated with this finding, empty when the
	// finding has no automated fix.
	FixID string
}
