package symbols

import (
	"prism/internal/source"
	"prism/internal/syntax"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolType
	SymbolFunc
	SymbolField
	SymbolParam
	SymbolLocal
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolType:
		return "type"
	case SymbolFunc:
		return "func"
	case SymbolField:
		return "field"
	case SymbolParam:
		return "param"
	case SymbolLocal:
		return "local"
	default:
		return "invalid"
	}
}

// NodeRef pins a syntax node across the snapshot's forest of trees.
type NodeRef struct {
	File source.FileID
	Node syntax.NodeID
}

// Symbol describes a named declaration visible in a scope. Symbols reference
// their declaration site by ID, never by pointer, so a whole table can be
// dropped together with its snapshot.
type Symbol struct {
	Name  source.StringID
	Kind  SymbolKind
	Scope ScopeID
	// Span covers the declared name, not the whole declaration.
	Span source.Span
	Decl NodeRef
}

// Ref records one resolved use of a symbol.
type Ref struct {
	File source.FileID
	Node syntax.NodeID
	Span source.Span
}
