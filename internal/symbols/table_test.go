package symbols

import (
	"testing"

	"prism/internal/source"
	"prism/internal/syntax"
)

func TestTableResolveAndReferences(t *testing.T) {
	in := source.NewInterner()
	tab := NewTable(in)

	name := in.Intern("foo")
	declSpan := source.Span{File: 0, Start: 6, End: 9}
	sym := tab.NewSymbol(name, SymbolFunc, tab.Global(), declSpan, NodeRef{File: 0, Node: 2})

	// Uses in a later file first, to prove the index sorts by location.
	tab.BindUse(Ref{File: 1, Node: 4, Span: source.Span{File: 1, Start: 3, End: 6}}, sym)
	tab.BindUse(Ref{File: 0, Node: 7, Span: source.Span{File: 0, Start: 20, End: 23}}, sym)

	got, ok := tab.Resolve(NodeRef{File: 0, Node: 2})
	if !ok || got != sym {
		t.Fatalf("Resolve(decl) = %d,%v", got, ok)
	}

	refs := tab.References(sym)
	if len(refs) != 2 {
		t.Fatalf("References = %d entries, want 2 (decl excluded)", len(refs))
	}
	if refs[0].File != 0 || refs[1].File != 1 {
		t.Fatalf("references out of order: %+v", refs)
	}

	if _, ok := tab.Resolve(NodeRef{File: 9, Node: 9}); ok {
		t.Fatalf("unknown node resolved")
	}
}

func TestLookupThroughShadowing(t *testing.T) {
	in := source.NewInterner()
	tab := NewTable(in)

	name := in.Intern("x")
	outer := tab.NewSymbol(name, SymbolFunc, tab.Global(), source.Span{}, NodeRef{Node: 1})

	fnScope := tab.Scopes.New(ScopeFunc, tab.Global(), source.Span{File: 0, Start: 0, End: 50})
	inner := tab.NewSymbol(name, SymbolLocal, fnScope, source.Span{File: 0, Start: 10, End: 11}, NodeRef{Node: syntax.NodeID(2)})

	if got, ok := tab.LookupThrough(fnScope, name); !ok || got != inner {
		t.Fatalf("LookupThrough(fn) = %d, want inner %d", got, inner)
	}
	if got, ok := tab.LookupThrough(tab.Global(), name); !ok || got != outer {
		t.Fatalf("LookupThrough(global) = %d, want outer %d", got, outer)
	}
}

func TestInnermostScopeAt(t *testing.T) {
	in := source.NewInterner()
	tab := NewTable(in)

	fnScope := tab.Scopes.New(ScopeFunc, tab.Global(), source.Span{File: 0, Start: 0, End: 100})
	blockScope := tab.Scopes.New(ScopeBlock, fnScope, source.Span{File: 0, Start: 40, End: 80})

	if got := tab.InnermostScopeAt(source.Span{File: 0, Start: 50, End: 55}); got != blockScope {
		t.Fatalf("InnermostScopeAt(block) = %d, want %d", got, blockScope)
	}
	if got := tab.InnermostScopeAt(source.Span{File: 0, Start: 5, End: 6}); got != fnScope {
		t.Fatalf("InnermostScopeAt(fn) = %d, want %d", got, fnScope)
	}
	if got := tab.InnermostScopeAt(source.Span{File: 3, Start: 0, End: 1}); got != tab.Global() {
		t.Fatalf("InnermostScopeAt(other file) = %d, want global", got)
	}
}
