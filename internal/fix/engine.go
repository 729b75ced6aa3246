package fix

import (
	"fmt"
	"sort"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/source"
)

// ApplyMode determines the selection strategy for computed fixes.
type ApplyMode uint8

const (
	// ApplyModeOnce applies only the first fix in document order.
	ApplyModeOnce ApplyMode = iota
	// ApplyModeAll applies every non-conflicting fix.
	ApplyModeAll
	// ApplyModeID applies only the fixes with the given FixID.
	ApplyModeID
)

// ApplyOptions configures fix selection.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records one successfully applied fix.
type AppliedFix struct {
	ID        string
	Title     string
	Code      diag.Code
	Kind      Kind
	EditCount int
}

// SkippedFix records a fix that selection or conflict checking passed over.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarizes edits landed in one file.
type FileChange struct {
	Path      string
	EditCount int
}

// Outcome is the result of one apply pass. Snap is the successor snapshot;
// the input snapshot is left untouched and should be dropped by the caller.
type Outcome struct {
	Snap     *compile.Snapshot
	Applied  []AppliedFix
	Skipped  []SkippedFix
	Changes  []FileChange
	Rejected *diag.Bag
}

// Engine computes and applies fixes. One engine may serve concurrent apply
// passes; per-file locks keep passes touching disjoint files parallel while
// serializing overlapping ones.
type Engine struct {
	locks *pathLocks
}

func NewEngine() *Engine {
	return &Engine{locks: newPathLocks()}
}

// Compute materializes a fix for every diagnostic that names one. A fix
// that cannot be built does not abort the pass: the refusal is recorded as
// its own diagnostic at the finding's span and the remaining diagnostics
// are still served.
func (e *Engine) Compute(snap *compile.Snapshot, diagnostics []diag.Diagnostic) ([]Fix, *diag.Bag) {
	rejected := diag.NewBag(len(diagnostics))
	rep := diag.BagReporter{Bag: rejected}

	var fixes []Fix
	for _, d := range diagnostics {
		if d.FixID == "" {
			continue
		}
		build, ok := builders[d.FixID]
		if !ok {
			diag.ReportInfo(rep, diag.FixUnavailable, d.Primary,
				fmt.Sprintf("no fix registered for %q", d.FixID)).Emit()
			continue
		}
		f, berr := build(snap, d)
		if berr != nil {
			diag.ReportInfo(rep, berr.code, d.Primary, berr.msg).Emit()
			continue
		}
		fixes = append(fixes, f)
	}
	sortFixes(fixes)
	return fixes, rejected
}

// sortFixes orders fixes by primary location so selection and conflict
// resolution are deterministic.
func sortFixes(fixes []Fix) {
	sort.SliceStable(fixes, func(i, j int) bool {
		pi, pj := fixes[i].Primary, fixes[j].Primary
		if pi.File != pj.File {
			return pi.File < pj.File
		}
		if pi.Start != pj.Start {
			return pi.Start < pj.Start
		}
		if pi.End != pj.End {
			return pi.End < pj.End
		}
		return fixes[i].ID < fixes[j].ID
	})
}

// Apply validates and lands the selected fixes against snap, rebuilding a
// successor snapshot through rebuild. The pass is all-or-nothing: a stale
// edit anywhere returns ErrStaleEdit and the input snapshot stays the only
// snapshot. Fixes whose edits overlap an already accepted fix are skipped
// and recorded, never half-applied.
func (e *Engine) Apply(snap *compile.Snapshot, rebuild compile.RebuildFunc, fixes []Fix, opts ApplyOptions) (*Outcome, error) {
	out := &Outcome{Rejected: diag.NewBag(len(fixes) + 1)}
	if rebuild == nil {
		return out, fmt.Errorf("fix: rebuild hook is nil")
	}

	rep := diag.BagReporter{Bag: out.Rejected}
	selected := e.selectFixes(fixes, opts, out)
	accepted := e.resolveConflicts(selected, out)
	if len(accepted) == 0 {
		return out, ErrNoFixes
	}

	// A fix computed against another snapshot may name files this one does
	// not hold; that is staleness, not a crash.
	for _, f := range accepted {
		for _, id := range f.Files() {
			if !snap.FS.Has(id) {
				diag.ReportWarning(rep, diag.FixStaleEdit, f.Primary,
					fmt.Sprintf("fix %q touches a file missing from this snapshot", f.ID)).Emit()
				return out, fmt.Errorf("fix %q: edit targets unknown file %d: %w", f.ID, id, ErrStaleEdit)
			}
		}
	}

	// Lock only the touched files, in sorted order.
	paths := make([]string, 0, len(accepted))
	for _, f := range accepted {
		for _, id := range f.Files() {
			paths = append(paths, snap.FS.Get(id).Path)
		}
	}
	release := e.locks.acquire(paths)
	defer release()

	buffers, err := e.stageEdits(snap, accepted, rep)
	if err != nil {
		return out, err
	}

	contents := snap.Contents()
	for id, buf := range buffers {
		contents[snap.FS.Get(id).Path] = buf
	}
	next, err := rebuild(contents)
	if err != nil {
		return out, fmt.Errorf("fix: rebuild after apply: %w", err)
	}
	out.Snap = next

	for _, f := range accepted {
		out.Applied = append(out.Applied, AppliedFix{
			ID:        f.ID,
			Title:     f.Title,
			Code:      f.Code,
			Kind:      f.Kind,
			EditCount: len(f.Edits),
		})
	}
	counts := make(map[source.FileID]int)
	for _, f := range accepted {
		for _, edit := range f.Edits {
			counts[edit.Span.File]++
		}
	}
	for id, n := range counts {
		out.Changes = append(out.Changes, FileChange{Path: snap.FS.Get(id).Path, EditCount: n})
	}
	sort.SliceStable(out.Changes, func(i, j int) bool {
		return out.Changes[i].Path < out.Changes[j].Path
	})
	return out, nil
}

func (e *Engine) selectFixes(fixes []Fix, opts ApplyOptions, out *Outcome) []Fix {
	sorted := make([]Fix, len(fixes))
	copy(sorted, fixes)
	sortFixes(sorted)

	switch opts.Mode {
	case ApplyModeOnce:
		if len(sorted) == 0 {
			return nil
		}
		return sorted[:1]
	case ApplyModeID:
		var keep []Fix
		for _, f := range sorted {
			if f.ID == opts.TargetID {
				keep = append(keep, f)
			}
		}
		if len(keep) == 0 {
			out.Skipped = append(out.Skipped, SkippedFix{
				ID:     opts.TargetID,
				Reason: "no computed fix has this id",
			})
		}
		return keep
	default:
		return sorted
	}
}

// resolveConflicts accepts fixes in document order and skips any whose edits
// overlap an already accepted fix's edits. Each skip is surfaced as its own
// overlap diagnostic so the caller can re-run after applying the first.
func (e *Engine) resolveConflicts(fixes []Fix, out *Outcome) []Fix {
	rep := diag.BagReporter{Bag: out.Rejected}
	var accepted []Fix
	var taken []diag.TextEdit

	for _, f := range fixes {
		conflict := false
		for _, edit := range f.Edits {
			for _, prev := range taken {
				if spansConflict(prev.Span, edit.Span) {
					conflict = true
					break
				}
			}
			if conflict {
				break
			}
		}
		if conflict {
			out.Skipped = append(out.Skipped, SkippedFix{
				ID:     f.ID,
				Title:  f.Title,
				Reason: "edits overlap an already selected fix",
			})
			diag.ReportInfo(rep, diag.FixSpanConflict, f.Primary,
				fmt.Sprintf("fix %q overlaps an already selected fix; apply again after the first lands", f.ID)).Emit()
			continue
		}
		accepted = append(accepted, f)
		taken = append(taken, f.Edits...)
	}
	return accepted
}

// stageEdits validates every edit of every accepted fix against the
// snapshot and splices them into fresh buffers. Nothing escapes this
// function on failure; the returned buffers are the only mutated state.
// Every rejection is also emitted through rep so the host can explain why
// nothing was applied.
func (e *Engine) stageEdits(snap *compile.Snapshot, accepted []Fix, rep diag.Reporter) (map[source.FileID][]byte, error) {
	// Rename identity first: the declaration must still carry the name the
	// fix was computed against.
	for _, f := range accepted {
		if f.Kind != KindSymbolRename {
			continue
		}
		if got := string(snap.FS.Text(f.DeclSpan)); got != f.OldName {
			diag.ReportWarning(rep, diag.FixStaleEdit, f.Primary,
				fmt.Sprintf("declaration now reads %q, expected %q", got, f.OldName)).Emit()
			return nil, fmt.Errorf("fix %q: declaration now reads %q, expected %q: %w",
				f.ID, got, f.OldName, ErrStaleEdit)
		}
	}

	byFile := make(map[source.FileID][]diag.TextEdit)
	for _, f := range accepted {
		for _, edit := range f.Edits {
			byFile[edit.Span.File] = append(byFile[edit.Span.File], edit)
		}
	}

	buffers := make(map[source.FileID][]byte, len(byFile))
	for id, edits := range byFile {
		file, ok := snap.FS.Lookup(id)
		if !ok {
			diag.ReportWarning(rep, diag.FixStaleEdit, source.Span{File: id},
				"edit targets a file missing from this snapshot").Emit()
			return nil, fmt.Errorf("fix: edit targets unknown file %d: %w", id, ErrStaleEdit)
		}
		buf := append([]byte(nil), file.Content...)

		// Highest offset first so earlier spans stay valid as the buffer
		// shifts under later splices.
		sort.SliceStable(edits, func(i, j int) bool {
			if edits[i].Span.Start == edits[j].Span.Start {
				return edits[i].Span.End > edits[j].Span.End
			}
			return edits[i].Span.Start > edits[j].Span.Start
		})

		for _, edit := range edits {
			start, end := int(edit.Span.Start), int(edit.Span.End)
			if start < 0 || end < start || end > len(buf) {
				diag.ReportWarning(rep, diag.FixStaleEdit, edit.Span,
					"edit span no longer fits the file").Emit()
				return nil, fmt.Errorf("fix: edit span %s out of range in %s: %w",
					edit.Span, file.Path, ErrStaleEdit)
			}
			if edit.OldText != "" && string(buf[start:end]) != edit.OldText {
				diag.ReportWarning(rep, diag.FixStaleEdit, edit.Span,
					fmt.Sprintf("span now reads %q, expected %q", string(buf[start:end]), edit.OldText)).Emit()
				return nil, fmt.Errorf("fix: %s now reads %q, expected %q: %w",
					edit.Span, string(buf[start:end]), edit.OldText, ErrStaleEdit)
			}
			suffix := append([]byte(nil), buf[end:]...)
			buf = append(append(buf[:start], []byte(edit.NewText)...), suffix...)
		}
		buffers[id] = buf
	}
	return buffers, nil
}

// spansConflict reports whether two half-open spans overlap. Two insertion
// points never conflict; an insertion inside a replaced range does.
func spansConflict(a, b source.Span) bool {
	if a.File != b.File {
		return false
	}
	if a.Start == a.End && b.Start == b.End {
		return false
	}
	if a.Start == a.End {
		return b.Start <= a.Start && a.Start < b.End
	}
	if b.Start == b.End {
		return a.Start <= b.Start && b.Start < a.End
	}
	return a.Start < b.End && b.Start < a.End
}
