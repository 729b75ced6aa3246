package fix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/provider"
	"prism/internal/rules"
	"prism/internal/source"
)

func buildSnap(t *testing.T, contents map[string][]byte) *compile.Snapshot {
	t.Helper()
	snap, bag, err := provider.New().FromContents(contents)
	if err != nil {
		t.Fatalf("FromContents: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("fixture does not parse: %v", bag.Items())
	}
	return snap
}

func analyze(t *testing.T, snap *compile.Snapshot) []diag.Diagnostic {
	t.Helper()
	bag, err := rules.NewRunner(rules.DefaultRegistry(nil), rules.Options{}).RunPass(context.Background(), snap)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	return bag.Items()
}

func fileText(t *testing.T, snap *compile.Snapshot, path string) string {
	t.Helper()
	for _, id := range snap.FS.IDs() {
		if f := snap.FS.Get(id); f.Path == path {
			return string(f.Content)
		}
	}
	t.Fatalf("no file %q in snapshot", path)
	return ""
}

func TestRenameAsyncAcrossFiles(t *testing.T) {
	contents := map[string][]byte{
		"a.psm": []byte(`(func fetch (param url str) (returns task))`),
		"b.psm": []byte(`(func useIt (returns str) (call (ref fetch) (int 1)))`),
		"c.psm": []byte(`(func again (returns str) (call (ref fetch) (int 2)))`),
	}
	snap := buildSnap(t, contents)
	eng := NewEngine()

	fixes, rejected := eng.Compute(snap, analyze(t, snap))
	if rejected.Len() != 0 {
		t.Fatalf("unexpected rejections: %v", rejected.Items())
	}
	if len(fixes) != 1 {
		t.Fatalf("want 1 fix, got %d", len(fixes))
	}
	f := fixes[0]
	if f.Kind != KindSymbolRename || f.NewName != "fetchAsync" {
		t.Fatalf("fix = %+v, want fetchAsync rename", f)
	}
	if len(f.Edits) != 3 {
		t.Fatalf("want 3 edits (decl + 2 refs), got %d", len(f.Edits))
	}

	out, err := eng.Apply(snap, provider.New().Rebuild(), fixes, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Snap == nil {
		t.Fatal("no successor snapshot")
	}

	for _, path := range []string{"a.psm", "b.psm", "c.psm"} {
		text := fileText(t, out.Snap, path)
		if !strings.Contains(text, "fetchAsync") {
			t.Errorf("%s not rewritten: %q", path, text)
		}
		if strings.Contains(strings.ReplaceAll(text, "fetchAsync", ""), "fetch") {
			t.Errorf("%s still mentions the old name: %q", path, text)
		}
	}

	// A re-run over the successor must come back clean.
	for _, d := range analyze(t, out.Snap) {
		if d.Code == diag.RuleAsyncNaming {
			t.Fatalf("finding survived the rename: %v", d)
		}
	}
}

func TestApplyIsAtomicOnStaleEdits(t *testing.T) {
	contents := map[string][]byte{
		"a.psm": []byte(`(func fetch (returns task))`),
		"b.psm": []byte(`(func useIt (returns str) (call (ref fetch) (int 1)))`),
	}
	snap := buildSnap(t, contents)
	eng := NewEngine()

	fixes, _ := eng.Compute(snap, analyze(t, snap))
	if len(fixes) != 1 {
		t.Fatalf("want 1 fix, got %d", len(fixes))
	}

	// Shift b.psm under the computed fix so its reference edit goes stale.
	moved := map[string][]byte{
		"a.psm": contents["a.psm"],
		"b.psm": []byte(`(func useIt (returns str)  (call (ref fetch) (int 1)))`),
	}
	stale := buildSnap(t, moved)

	out, err := eng.Apply(stale, provider.New().Rebuild(), fixes, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrStaleEdit) {
		t.Fatalf("err = %v, want ErrStaleEdit", err)
	}
	if out.Snap != nil {
		t.Fatal("stale apply must not produce a successor snapshot")
	}
	if got := fileText(t, stale, "b.psm"); got != string(moved["b.psm"]) {
		t.Fatalf("stale apply mutated the snapshot: %q", got)
	}
	var explained bool
	for _, d := range out.Rejected.Items() {
		if d.Code == diag.FixStaleEdit {
			explained = true
		}
	}
	if !explained {
		t.Fatalf("stale apply left no record in %v", out.Rejected.Items())
	}
}

func TestApplyRejectsFixForMissingFile(t *testing.T) {
	contents := map[string][]byte{
		"a.psm": []byte(`(func fetch (returns task))`),
		"b.psm": []byte(`(func useIt (returns str) (call (ref fetch) (int 1)))`),
	}
	snap := buildSnap(t, contents)
	eng := NewEngine()

	fixes, _ := eng.Compute(snap, analyze(t, snap))
	if len(fixes) != 1 {
		t.Fatalf("want 1 fix, got %d", len(fixes))
	}

	// The rename touches both files; a snapshot that lost b.psm must reject
	// the whole fix rather than crash.
	shrunk := buildSnap(t, map[string][]byte{
		"a.psm": contents["a.psm"],
	})

	out, err := eng.Apply(shrunk, provider.New().Rebuild(), fixes, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrStaleEdit) {
		t.Fatalf("err = %v, want ErrStaleEdit", err)
	}
	if out.Snap != nil {
		t.Fatal("apply against a shrunk snapshot must not produce a successor")
	}
	var explained bool
	for _, d := range out.Rejected.Items() {
		if d.Code == diag.FixStaleEdit {
			explained = true
		}
	}
	if !explained {
		t.Fatalf("rejection left no record in %v", out.Rejected.Items())
	}
}

func TestRenameRefusedOnCollision(t *testing.T) {
	snap := buildSnap(t, map[string][]byte{
		"a.psm": []byte(`
(func fetch (returns task))
(func fetchAsync (returns str))
`),
	})
	eng := NewEngine()

	fixes, rejected := eng.Compute(snap, analyze(t, snap))
	if len(fixes) != 0 {
		t.Fatalf("collision must refuse the rename, got %d fixes", len(fixes))
	}
	var found bool
	for _, d := range rejected.Items() {
		if d.Code == diag.FixNameCollision {
			found = true
		}
	}
	if !found {
		t.Fatalf("no collision record in %v", rejected.Items())
	}
}

func TestRenameRefusedOnReferenceScopeCollision(t *testing.T) {
	// The global scope is clear, but a local binding at the call site
	// already uses the proposed name.
	snap := buildSnap(t, map[string][]byte{
		"a.psm": []byte(`(func fetch (returns task))`),
		"b.psm": []byte(`(func useIt (returns str) (block (let fetchAsync (int 1)) (call (ref fetch) (int 0))))`),
	})
	eng := NewEngine()

	fixes, rejected := eng.Compute(snap, analyze(t, snap))
	if len(fixes) != 0 {
		t.Fatalf("shadowed reference must refuse the rename, got %d fixes", len(fixes))
	}
	var collision diag.Diagnostic
	var found bool
	for _, d := range rejected.Items() {
		if d.Code == diag.FixNameCollision {
			collision, found = d, true
		}
	}
	if !found {
		t.Fatalf("no collision record in %v", rejected.Items())
	}
	if !strings.Contains(collision.Message, "reference") {
		t.Fatalf("collision should name the reference site: %q", collision.Message)
	}
}

func TestUseAnyRewrite(t *testing.T) {
	snap := buildSnap(t, map[string][]byte{
		"lists.psm": []byte(`(func hasItems (param items str) (returns bool) (cmp gt (call (ref count) (ref items)) (int 0)))`),
	})
	eng := NewEngine()

	fixes, _ := eng.Compute(snap, analyze(t, snap))
	if len(fixes) != 1 {
		t.Fatalf("want 1 fix, got %d", len(fixes))
	}
	out, err := eng.Apply(snap, provider.New().Rebuild(), fixes, ApplyOptions{Mode: ApplyModeOnce})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	text := fileText(t, out.Snap, "lists.psm")
	if !strings.Contains(text, "(call (ref any) (ref items))") {
		t.Fatalf("comparison not rewritten: %q", text)
	}
	if strings.Contains(text, "cmp gt") {
		t.Fatalf("old comparison survived: %q", text)
	}
}

func TestCollapseIsRewrite(t *testing.T) {
	snap := buildSnap(t, map[string][]byte{
		"shapes.psm": []byte(`(func isCircle (param shape str) (returns bool) (match (ref shape) Circle))`),
	})
	eng := NewEngine()

	fixes, _ := eng.Compute(snap, analyze(t, snap))
	var collapse []Fix
	for _, f := range fixes {
		if f.ID == "collapse-is" {
			collapse = append(collapse, f)
		}
	}
	if len(collapse) != 1 {
		t.Fatalf("want 1 collapse fix, got %d", len(collapse))
	}

	out, err := eng.Apply(snap, provider.New().Rebuild(), collapse, ApplyOptions{Mode: ApplyModeID, TargetID: "collapse-is"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if text := fileText(t, out.Snap, "shapes.psm"); !strings.Contains(text, "(is (ref shape) Circle)") {
		t.Fatalf("match not collapsed: %q", text)
	}
}

func TestOverlappingFixSkipped(t *testing.T) {
	content := `(func isCircle (param shape str) (returns bool) (match (ref shape) Circle))`
	snap := buildSnap(t, map[string][]byte{"shapes.psm": []byte(content)})
	eng := NewEngine()

	file := snap.FS.IDs()[0]
	kwStart := uint32(strings.Index(content, "match"))
	kw := source.Span{File: file, Start: kwStart, End: kwStart + 5}
	wider := source.Span{File: file, Start: kwStart, End: kwStart + uint32(len("match (ref shape)"))}

	first := Fix{
		ID: "collapse-is", Title: "collapse", Kind: KindLocalRewrite, Primary: kw,
		Edits: []diag.TextEdit{{Span: kw, NewText: "is", OldText: "match"}},
	}
	second := Fix{
		ID: "wider", Title: "wider rewrite", Kind: KindLocalRewrite, Primary: wider,
		Edits: []diag.TextEdit{{Span: wider, NewText: "is (ref shape)", OldText: "match (ref shape)"}},
	}

	out, err := eng.Apply(snap, provider.New().Rebuild(), []Fix{first, second}, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out.Applied) != 1 || out.Applied[0].ID != "collapse-is" {
		t.Fatalf("applied = %v, want only collapse-is", out.Applied)
	}
	if len(out.Skipped) != 1 || out.Skipped[0].ID != "wider" {
		t.Fatalf("skipped = %v, want the overlapping fix", out.Skipped)
	}
	var conflict bool
	for _, d := range out.Rejected.Items() {
		if d.Code == diag.FixSpanConflict {
			conflict = true
		}
	}
	if !conflict {
		t.Fatal("overlap not surfaced as its own record")
	}
}
