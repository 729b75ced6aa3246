package symbols

import (
	"fmt"
	"sort"
	"sync"

	"fortio.org/safecast"

	"prism/internal/source"
)

// binding links one syntax node to the symbol it declares or references.
type binding struct {
	ref    Ref
	sym    SymbolID
	isDecl bool
}

// Table is the resolved symbol information for one compilation snapshot.
// It is populated by the provider's binder and read-only afterwards; the
// reference index is built lazily on first use and cached for the table's
// lifetime. A superseded snapshot drops its table wholesale, so there is no
// cross-snapshot invalidation to get wrong.
type Table struct {
	Interner *source.Interner
	Scopes   *Scopes

	symbols  []Symbol
	byNode   map[NodeRef]SymbolID
	bindings []binding
	global   ScopeID

	refsOnce sync.Once
	refs     map[SymbolID][]Ref
}

// NewTable creates an empty table sharing the provider's interner.
func NewTable(interner *source.Interner) *Table {
	t := &Table{
		Interner: interner,
		Scopes:   NewScopes(0),
		symbols:  make([]Symbol, 1, 65), // index 0 reserved for NoSymbolID
		byNode:   make(map[NodeRef]SymbolID),
	}
	t.global = t.Scopes.New(ScopeGlobal, NoScopeID, source.Span{})
	return t
}

// Global returns the program-wide scope.
func (t *Table) Global() ScopeID { return t.global }

// NewSymbol allocates a symbol, indexes it in its scope, and records the
// declaration binding for decl.
func (t *Table) NewSymbol(name source.StringID, kind SymbolKind, scope ScopeID, span source.Span, decl NodeRef) SymbolID {
	next, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	id := SymbolID(next)
	t.symbols = append(t.symbols, Symbol{
		Name:  name,
		Kind:  kind,
		Scope: scope,
		Span:  span,
		Decl:  decl,
	})
	if sc := t.Scopes.Get(scope); sc != nil {
		sc.NameIndex[name] = append(sc.NameIndex[name], id)
	}
	t.byNode[decl] = id
	t.bindings = append(t.bindings, binding{
		ref:    Ref{File: decl.File, Node: decl.Node, Span: span},
		sym:    id,
		isDecl: true,
	})
	return id
}

// Get returns the symbol for id, or nil for an invalid ID.
func (t *Table) Get(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(t.symbols) {
		return nil
	}
	return &t.symbols[id]
}

// Len reports the number of symbols excluding the sentinel.
func (t *Table) Len() int { return len(t.symbols) - 1 }

// Name returns the spelling of the symbol's name.
func (t *Table) Name(id SymbolID) string {
	sym := t.Get(id)
	if sym == nil {
		return ""
	}
	return t.Interner.MustLookup(sym.Name)
}

// AliasNode makes an extra node resolve to sym without counting as a use,
// e.g. a whole declaration node aliasing its name's symbol.
func (t *Table) AliasNode(ref NodeRef, sym SymbolID) {
	t.byNode[ref] = sym
}

// BindUse records that the node at ref resolves to sym.
func (t *Table) BindUse(ref Ref, sym SymbolID) {
	t.byNode[NodeRef{File: ref.File, Node: ref.Node}] = sym
	t.bindings = append(t.bindings, binding{ref: ref, sym: sym})
}

// Resolve maps a syntax node back to its symbol. The second result is false
// when the node has no binding; callers must treat that as "no finding".
func (t *Table) Resolve(ref NodeRef) (SymbolID, bool) {
	id, ok := t.byNode[ref]
	return id, ok
}

// References returns every use site of sym across the snapshot, in
// (file, offset) order. The declaration site is not included. The index is
// built once per table and shared by concurrent readers.
func (t *Table) References(sym SymbolID) []Ref {
	t.refsOnce.Do(func() {
		t.refs = make(map[SymbolID][]Ref, t.Len())
		for _, b := range t.bindings {
			if b.isDecl {
				continue
			}
			t.refs[b.sym] = append(t.refs[b.sym], b.ref)
		}
		for _, refs := range t.refs {
			sort.SliceStable(refs, func(i, j int) bool {
				if refs[i].File != refs[j].File {
					return refs[i].File < refs[j].File
				}
				return refs[i].Span.Start < refs[j].Span.Start
			})
		}
	})
	return t.refs[sym]
}

// Lookup finds symbols named name in scope only, without walking parents.
func (t *Table) Lookup(scope ScopeID, name source.StringID) []SymbolID {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return nil
	}
	return sc.NameIndex[name]
}

// LookupThrough finds the nearest binding of name starting at scope and
// walking outwards to the global scope.
func (t *Table) LookupThrough(scope ScopeID, name source.StringID) (SymbolID, bool) {
	for cur := scope; cur.IsValid(); cur = t.Scopes.Get(cur).Parent {
		if ids := t.Scopes.Get(cur).NameIndex[name]; len(ids) > 0 {
			return ids[0], true
		}
	}
	return NoSymbolID, false
}

// InnermostScopeAt returns the deepest scope whose span contains the given
// span, falling back to the global scope.
func (t *Table) InnermostScopeAt(span source.Span) ScopeID {
	best := t.global
	var descend func(ScopeID)
	descend = func(id ScopeID) {
		sc := t.Scopes.Get(id)
		if sc == nil {
			return
		}
		for _, child := range sc.Children {
			cs := t.Scopes.Get(child)
			if cs == nil {
				continue
			}
			if cs.Span.Contains(span) {
				best = child
				descend(child)
				return
			}
		}
	}
	descend(t.global)
	return best
}
