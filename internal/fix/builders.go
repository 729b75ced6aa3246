package fix

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/symbols"
	"prism/internal/syntax"
)

// buildError carries the record code for a fix that could not be
// materialized; Compute turns it into a diagnostic at the finding's span.
type buildError struct {
	code diag.Code
	msg  string
}

func (e *buildError) Error() string { return e.msg }

func unavailablef(format string, args ...any) *buildError {
	return &buildError{code: diag.FixUnavailable, msg: fmt.Sprintf(format, args...)}
}

// builderFunc materializes the fix for one diagnostic against a snapshot.
type builderFunc func(snap *compile.Snapshot, d diag.Diagnostic) (Fix, *buildError)

// builders is the closed fix registry, keyed by the FixID rules attach to
// their diagnostics.
var builders = map[string]builderFunc{
	"use-any":      buildUseAny,
	"rename-async": buildRenameAsync,
	"collapse-is":  buildCollapseIs,
}

// buildUseAny replaces a count-against-zero comparison with an emptiness
// call, keeping the counted operand's spelling verbatim.
func buildUseAny(snap *compile.Snapshot, d diag.Diagnostic) (Fix, *buildError) {
	tree := snap.Tree(d.Primary.File)
	if tree == nil {
		return Fix{}, unavailablef("no tree for the flagged file")
	}
	cmp := tree.CoveringNode(d.Primary)
	if !cmp.IsValid() || tree.Get(cmp).Kind != syntax.KindCompare {
		return Fix{}, unavailablef("flagged node is no longer a comparison")
	}

	var call syntax.NodeID
	for _, kid := range tree.Children(cmp) {
		if tree.Get(kid).Kind == syntax.KindCall {
			call = kid
			break
		}
	}
	if !call.IsValid() {
		return Fix{}, unavailablef("comparison has no counting call")
	}

	var args []string
	kids := tree.Children(call)
	for _, arg := range kids[1:] {
		args = append(args, "("+wrapArg(snap, d.Primary.File, tree, arg)+")")
	}

	newText := "(call (ref any)"
	if len(args) > 0 {
		newText += " " + strings.Join(args, " ")
	}
	newText += ")"

	span := tree.Get(cmp).Span
	return Fix{
		ID:      "use-any",
		Title:   "replace count comparison with emptiness check",
		Code:    d.Code,
		Kind:    KindLocalRewrite,
		Primary: d.Primary,
		Edits: []diag.TextEdit{{
			Span:    span,
			NewText: newText,
			OldText: string(snap.FS.Text(span)),
		}},
	}, nil
}

// wrapArg returns an argument's source text without its outer parentheses,
// or reconstructs a bare ident as a ref form.
func wrapArg(snap *compile.Snapshot, file source.FileID, tree *syntax.Tree, arg syntax.NodeID) string {
	text := snap.NodeText(file, arg)
	if tree.Get(arg).Kind == syntax.KindIdent {
		// An ident's span covers only the name; restore the ref wrapper.
		return "ref " + text
	}
	return strings.TrimSuffix(strings.TrimPrefix(text, "("), ")")
}

// buildCollapseIs rewrites the match keyword to the plain type-test form.
// Only the keyword moves; both operands keep their exact spelling.
func buildCollapseIs(snap *compile.Snapshot, d diag.Diagnostic) (Fix, *buildError) {
	tree := snap.Tree(d.Primary.File)
	if tree == nil {
		return Fix{}, unavailablef("no tree for the flagged file")
	}
	m := tree.CoveringNode(d.Primary)
	if !m.IsValid() || tree.Get(m).Kind != syntax.KindMatch {
		return Fix{}, unavailablef("flagged node is no longer a pattern match")
	}

	start := tree.Get(m).Span.Start + 1 // past the opening paren
	kw := source.Span{File: d.Primary.File, Start: start, End: start + uint32(len("match"))}
	if string(snap.FS.Text(kw)) != "match" {
		return Fix{}, unavailablef("match keyword not at the expected offset")
	}
	return Fix{
		ID:      "collapse-is",
		Title:   "collapse pattern match to a type test",
		Code:    d.Code,
		Kind:    KindLocalRewrite,
		Primary: d.Primary,
		Edits: []diag.TextEdit{{
			Span:    kw,
			NewText: "is",
			OldText: "match",
		}},
	}, nil
}

// buildRenameAsync renames the flagged declaration and every reference to
// it, suffixing Async. The rename is refused when the new name would collide
// with a symbol visible at the declaration or at any reference site; names
// are compared in NFC so visually identical spellings collide too.
func buildRenameAsync(snap *compile.Snapshot, d diag.Diagnostic) (Fix, *buildError) {
	tree := snap.Tree(d.Primary.File)
	if tree == nil {
		return Fix{}, unavailablef("no tree for the flagged file")
	}
	ident := tree.CoveringNode(d.Primary)
	if !ident.IsValid() {
		return Fix{}, unavailablef("no node at the flagged span")
	}
	sym, ok := snap.Resolve(d.Primary.File, ident)
	if !ok {
		return Fix{}, unavailablef("flagged name does not resolve to a symbol")
	}

	table := snap.Table
	oldName := table.Name(sym)
	if oldName == "" {
		return Fix{}, unavailablef("symbol has no name")
	}
	newName := oldName + "Async"

	declScope := table.Get(sym).Scope
	if holder, clash := visibleAs(table, declScope, newName, sym); clash {
		return Fix{}, &buildError{
			code: diag.FixNameCollision,
			msg:  fmt.Sprintf("renaming %q to %q collides with %q at the declaration", oldName, newName, holder),
		}
	}

	refs := table.References(sym)
	for _, ref := range refs {
		scope := table.InnermostScopeAt(ref.Span)
		if holder, clash := visibleAs(table, scope, newName, sym); clash {
			return Fix{}, &buildError{
				code: diag.FixNameCollision,
				msg:  fmt.Sprintf("renaming %q to %q collides with %q at a reference", oldName, newName, holder),
			}
		}
	}

	declSpan := table.Get(sym).Span
	edits := make([]diag.TextEdit, 0, len(refs)+1)
	edits = append(edits, diag.TextEdit{Span: declSpan, NewText: newName, OldText: oldName})
	for _, ref := range refs {
		edits = append(edits, diag.TextEdit{Span: ref.Span, NewText: newName, OldText: oldName})
	}

	return Fix{
		ID:       "rename-async",
		Title:    fmt.Sprintf("rename %s to %s", oldName, newName),
		Code:     d.Code,
		Kind:     KindSymbolRename,
		Primary:  d.Primary,
		Edits:    edits,
		DeclSpan: declSpan,
		OldName:  oldName,
		NewName:  newName,
	}, nil
}

// visibleAs reports whether a symbol other than self named want (under NFC)
// is visible from scope. The returned string is the colliding spelling.
func visibleAs(table *symbols.Table, scope symbols.ScopeID, want string, self symbols.SymbolID) (string, bool) {
	target := norm.NFC.String(want)
	for cur := scope; cur.IsValid(); cur = table.Scopes.Get(cur).Parent {
		sc := table.Scopes.Get(cur)
		if sc == nil {
			break
		}
		for _, ids := range sc.NameIndex {
			for _, id := range ids {
				if id == self {
					continue
				}
				if name := table.Name(id); norm.NFC.String(name) == target {
					return name, true
				}
			}
		}
	}
	return "", false
}
