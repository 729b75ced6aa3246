// Package fix turns diagnostics into verified source rewrites. A fix is a
// closed set of text edits computed against one snapshot; applying it
// validates every edit against that same snapshot and either produces a
// successor snapshot or changes nothing at all. Fixes never mutate trees in
// place: the rewritten contents go back through the provider's rebuild hook.
package fix

import (
	"errors"

	"prism/internal/diag"
	"prism/internal/source"
)

// ErrNoFixes is returned when selection leaves nothing to apply.
var ErrNoFixes = errors.New("no applicable fixes found")

// ErrStaleEdit is returned when an edit's recorded text no longer matches
// the snapshot it is being applied to. The apply is all-or-nothing, so a
// stale edit anywhere leaves every file untouched.
var ErrStaleEdit = errors.New("edit no longer matches the snapshot")

// Kind classifies how far a fix reaches.
type Kind uint8

const (
	// KindLocalRewrite touches only the flagged node's file.
	KindLocalRewrite Kind = iota
	// KindSymbolRename rewrites a declaration and every reference to it,
	// across files.
	KindSymbolRename
)

func (k Kind) String() string {
	switch k {
	case KindLocalRewrite:
		return "local-rewrite"
	case KindSymbolRename:
		return "symbol-rename"
	default:
		return "unknown"
	}
}

// Fix is one materialized repair: the edits plus enough identity to
// re-validate them at apply time.
type Fix struct {
	ID      string
	Title   string
	Code    diag.Code
	Kind    Kind
	Primary source.Span
	Edits   []diag.TextEdit

	// Rename bookkeeping, set only for KindSymbolRename. DeclSpan is the
	// declaration name's span; apply re-resolves it and refuses to run when
	// the symbol there is no longer named OldName.
	DeclSpan source.Span
	OldName  string
	NewName  string
}

// Files returns the distinct file IDs the fix touches, in edit order.
func (f *Fix) Files() []source.FileID {
	seen := make(map[source.FileID]bool, 2)
	var out []source.FileID
	for _, e := range f.Edits {
		if !seen[e.Span.File] {
			seen[e.Span.File] = true
			out = append(out, e.Span.File)
		}
	}
	return out
}
