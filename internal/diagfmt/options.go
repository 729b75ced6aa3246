// Package diagfmt renders diagnostic bags for humans and machines. The
// pretty form prints a header plus the offending source line with a caret
// underline; the JSON form emits stable records suitable for editors and CI.
package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto chooses relative or absolute automatically.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures human-readable output.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
	// ShowFixes appends the fix id to findings that carry one.
	ShowFixes bool
}

// JSONOpts configures machine-readable output.
type JSONOpts struct {
	// IncludePositions adds 1-based line/col fields next to byte offsets.
	IncludePositions bool
	PathMode         PathMode
	// Max truncates the emitted list, not the bag.
	Max          int
	IncludeNotes bool
}
