package rules

import (
	"prism/internal/diag"
	"prism/internal/syntax"
)

// MatchBool flags a boolean pattern match that binds nothing and therefore
// collapses to the equivalent plain type test. Purely syntactic.
type MatchBool struct{}

func (*MatchBool) Code() diag.Code { return diag.RuleMatchBool }

func (*MatchBool) Kinds() []syntax.NodeKind {
	return []syntax.NodeKind{syntax.KindMatch}
}

func (r *MatchBool) Visit(ctx *Context) {
	diag.ReportInfo(ctx.Reporter, diag.RuleMatchBool, ctx.Tree.Get(ctx.Node).Span,
		"pattern match used as a boolean test; a type test says the same thing").
		WithFixID("collapse-is").
		Emit()
}
