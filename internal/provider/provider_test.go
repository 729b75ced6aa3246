package provider

import (
	"strings"
	"testing"

	"prism/internal/symbols"
	"prism/internal/syntax"
)

const libUnit = `
; counting helpers
(func count (param items) (returns int)
  (int 0))

(func tally (param xs) (returns int)
  (call (ref count) (ref xs)))
`

const appUnit = `
(func check (param bag) (returns bool)
  (cmp gt (call (ref count) (ref bag)) (int 0)))
`

func TestFromContentsBindsAcrossFiles(t *testing.T) {
	p := New()
	snap, bag, err := p.FromContents(map[string][]byte{
		"app.psm": []byte(appUnit),
		"lib.psm": []byte(libUnit),
	})
	if err != nil {
		t.Fatalf("FromContents: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}

	// Files are sorted by path, so app.psm is file 0 and lib.psm file 1.
	if got := snap.FS.Get(0).Path; got != "app.psm" {
		t.Fatalf("file 0 = %q, want app.psm", got)
	}

	var countSym symbols.SymbolID
	libTree := snap.Tree(1)
	if libTree == nil {
		t.Fatalf("no tree for lib.psm")
	}
	for _, decl := range libTree.Decls() {
		sym, ok := snap.Resolve(1, decl)
		if !ok {
			t.Fatalf("declaration did not resolve")
		}
		if snap.Table.Name(sym) == "count" {
			countSym = sym
		}
	}
	if !countSym.IsValid() {
		t.Fatalf("count symbol not found")
	}

	refs := snap.Table.References(countSym)
	if len(refs) != 2 {
		t.Fatalf("count has %d references, want 2 (one per calling unit)", len(refs))
	}
	if refs[0].File != 0 || refs[1].File != 1 {
		t.Fatalf("references out of file order: %+v", refs)
	}
	for _, ref := range refs {
		text := string(snap.FS.Text(ref.Span))
		if text != "count" {
			t.Fatalf("reference span covers %q, want the bare name", text)
		}
	}
}

func TestLocalScopingShadowsAndResolves(t *testing.T) {
	unit := `
(func outer (param n) (returns int)
  (let m (call (ref double) (ref n)))
  (cmp ne (ref m) (int 0)))

(func double (param x) (returns int)
  (ref x))
`
	p := New()
	snap, bag, err := p.FromContents(map[string][]byte{"u.psm": []byte(unit)})
	if err != nil || bag.HasErrors() {
		t.Fatalf("build failed: %v / %+v", err, bag.Items())
	}

	tree := snap.Tree(0)
	var unresolved int
	tree.Walk(tree.Root, func(id syntax.NodeID) bool {
		n := tree.Get(id)
		if n.Kind != syntax.KindIdent {
			return true
		}
		if _, ok := snap.Resolve(0, id); !ok {
			unresolved++
		}
		return true
	})
	if unresolved != 0 {
		t.Fatalf("%d idents left unresolved", unresolved)
	}
}

func TestParseErrorYieldsDiagnosticNotTree(t *testing.T) {
	p := New()
	snap, bag, err := p.FromContents(map[string][]byte{
		"bad.psm":  []byte("(func broken"),
		"good.psm": []byte("(func fine (returns int) (int 1))"),
	})
	if err != nil {
		t.Fatalf("FromContents: %v", err)
	}
	if !bag.HasErrors() {
		t.Fatalf("malformed unit produced no diagnostics")
	}
	if snap.Tree(0) != nil {
		t.Fatalf("broken unit still has a tree")
	}
	if snap.Tree(1) == nil {
		t.Fatalf("healthy unit lost its tree")
	}
}

func TestRebuildRejectsBrokenSources(t *testing.T) {
	p := New()
	rebuild := p.Rebuild()

	if _, err := rebuild(map[string][]byte{"x.psm": []byte("(type")}); err == nil {
		t.Fatalf("rebuild accepted a unit that does not parse")
	}
	snap, err := rebuild(map[string][]byte{"x.psm": []byte("(type Box (field v))")})
	if err != nil {
		t.Fatalf("rebuild rejected healthy sources: %v", err)
	}
	if snap.Tree(0) == nil {
		t.Fatalf("rebuilt snapshot missing tree")
	}
}

func TestMarkersSurviveParsing(t *testing.T) {
	unit := `
(type Widget
  (marker convert (format "json") (version v2))
  (field name)
  (field size))
`
	p := New()
	snap, bag, err := p.FromContents(map[string][]byte{"w.psm": []byte(unit)})
	if err != nil || bag.HasErrors() {
		t.Fatalf("build failed: %v / %+v", err, bag.Items())
	}

	tree := snap.Tree(0)
	decls := tree.Decls()
	if len(decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(decls))
	}
	markers := tree.Markers(decls[0])
	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(markers))
	}
	m := tree.Get(markers[0])
	if name := snap.Table.Interner.MustLookup(m.Text); name != "convert" {
		t.Fatalf("marker name = %q", name)
	}
	args := tree.Children(markers[0])
	if len(args) != 2 {
		t.Fatalf("marker has %d args, want 2", len(args))
	}
	if got := snap.Table.Interner.MustLookup(tree.Get(args[0]).Text); got != "format=json" {
		t.Fatalf("first arg = %q", got)
	}
	if !strings.HasSuffix(snap.FS.Get(0).Path, ".psm") {
		t.Fatalf("unexpected path %q", snap.FS.Get(0).Path)
	}
}
