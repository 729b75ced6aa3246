package provider

import (
	"prism/internal/source"
	"prism/internal/symbols"
	"prism/internal/syntax"
)

// binder populates a symbol table from parsed trees: one declare pass that
// allocates symbols and scopes, then a resolve pass that binds every name
// use it can. Names that resolve to nothing are left unbound; semantic
// consumers must treat a missing binding as "no finding".
type binder struct {
	table *symbols.Table
}

func bind(trees map[source.FileID]*syntax.Tree, interner *source.Interner, order []source.FileID) *symbols.Table {
	bn := &binder{table: symbols.NewTable(interner)}
	for _, id := range order {
		if t := trees[id]; t != nil {
			bn.declareFile(t)
		}
	}
	for _, id := range order {
		if t := trees[id]; t != nil {
			bn.resolveFile(t)
		}
	}
	return bn.table
}

// declName returns the leading ident child that carries a declaration's name.
func declName(t *syntax.Tree, decl syntax.NodeID) (syntax.NodeID, syntax.Node) {
	kids := t.Children(decl)
	if len(kids) == 0 {
		return syntax.NoNodeID, syntax.Node{}
	}
	n := t.Get(kids[0])
	if n.Kind != syntax.KindIdent {
		return syntax.NoNodeID, syntax.Node{}
	}
	return kids[0], n
}

func (bn *binder) declare(t *syntax.Tree, decl syntax.NodeID, kind symbols.SymbolKind, scope symbols.ScopeID) symbols.SymbolID {
	nameNode, name := declName(t, decl)
	if !nameNode.IsValid() {
		return symbols.NoSymbolID
	}
	sym := bn.table.NewSymbol(name.Text, kind, scope, name.Span, symbols.NodeRef{File: t.File, Node: nameNode})
	// The declaration node itself resolves to the same symbol, so engines can
	// go from any node inside a declaration to its identity.
	bn.table.AliasNode(symbols.NodeRef{File: t.File, Node: decl}, sym)
	return sym
}

func (bn *binder) declareFile(t *syntax.Tree) {
	global := bn.table.Global()
	for _, decl := range t.Decls() {
		switch t.Get(decl).Kind {
		case syntax.KindTypeDecl:
			bn.declare(t, decl, symbols.SymbolType, global)
			typeScope := bn.table.Scopes.New(symbols.ScopeType, global, t.Get(decl).Span)
			for _, field := range t.ChildrenOfKind(decl, syntax.KindFieldDecl) {
				bn.declare(t, field, symbols.SymbolField, typeScope)
			}

		case syntax.KindFuncDecl:
			bn.declare(t, decl, symbols.SymbolFunc, global)
			fnScope := bn.table.Scopes.New(symbols.ScopeFunc, global, t.Get(decl).Span)
			for _, param := range t.ChildrenOfKind(decl, syntax.KindParamDecl) {
				bn.declare(t, param, symbols.SymbolParam, fnScope)
			}
			if body := t.FirstChildOfKind(decl, syntax.KindBlock); body.IsValid() {
				bn.declareBlock(t, body, fnScope)
			}
		}
	}
}

// declareBlock introduces a scope for the block and declares its lets.
func (bn *binder) declareBlock(t *syntax.Tree, block syntax.NodeID, parent symbols.ScopeID) {
	scope := parent
	if sp := t.Get(block).Span; !sp.Empty() {
		scope = bn.table.Scopes.New(symbols.ScopeBlock, parent, sp)
	}
	for _, stmt := range t.Children(block) {
		bn.declareStmt(t, stmt, scope)
	}
}

func (bn *binder) declareStmt(t *syntax.Tree, node syntax.NodeID, scope symbols.ScopeID) {
	switch t.Get(node).Kind {
	case syntax.KindLet:
		bn.declare(t, node, symbols.SymbolLocal, scope)
		kids := t.Children(node)
		if len(kids) > 1 {
			bn.declareStmt(t, kids[1], scope)
		}
	case syntax.KindBlock:
		bn.declareBlock(t, node, scope)
	default:
		for _, child := range t.Children(node) {
			bn.declareStmt(t, child, scope)
		}
	}
}

func (bn *binder) resolveFile(t *syntax.Tree) {
	t.Walk(t.Root, func(id syntax.NodeID) bool {
		n := t.Get(id)
		if n.Kind != syntax.KindIdent {
			return true
		}
		if parent := n.Parent; parent.IsValid() {
			p := t.Get(parent)
			if p.Kind.IsDecl() && t.Children(parent)[0] == id {
				return true // declaration name, already bound
			}
		}
		scope := bn.table.InnermostScopeAt(n.Span)
		sym, ok := bn.table.LookupThrough(scope, n.Text)
		if !ok {
			return true
		}
		bn.table.BindUse(symbols.Ref{File: t.File, Node: id, Span: n.Span}, sym)
		return true
	})
}
