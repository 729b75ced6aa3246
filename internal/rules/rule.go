// Package rules is the analysis half of the pipeline: a closed registry of
// rule units dispatched over every node of a snapshot's trees. Rules are
// side-effect-free apart from diagnostic emission and never mutate the trees
// they inspect; a rule that panics is isolated and reported without
// aborting the pass for the other rules.
package rules

import (
	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/symbols"
	"prism/internal/syntax"
)

// Context carries everything a rule may inspect at one node.
type Context struct {
	Snap     *compile.Snapshot
	Tree     *syntax.Tree
	File     source.FileID
	Node     syntax.NodeID
	Reporter diag.Reporter
}

// Text returns the spelling behind a node's Text handle.
func (c *Context) Text(id syntax.NodeID) string {
	return c.Snap.Table.Interner.MustLookup(c.Tree.Get(id).Text)
}

// Enclosing resolves the symbol of the nearest enclosing declaration,
// including the node itself. The second result is false when no declaration
// encloses the node or the declaration has no symbol.
func (c *Context) Enclosing() (symbols.SymbolID, bool) {
	decl := c.Tree.EnclosingDecl(c.Node)
	if !decl.IsValid() {
		return symbols.NoSymbolID, false
	}
	return c.Snap.Resolve(c.File, decl)
}

// Rule is one independent analysis unit. Code doubles as the rule's
// identity in diagnostics; Kinds declares which node categories the runner
// dispatches to it.
type Rule interface {
	Code() diag.Code
	Kinds() []syntax.NodeKind
	Visit(ctx *Context)
}
