package rules

import (
	"fmt"

	"prism/internal/diag"
	"prism/internal/syntax"
)

// CountCompare is a purely syntactic rule: it flags a counting call compared
// against the zero literal via `>` or `!=`, the shape hosts should replace
// with an emptiness check. It never consults symbols, so it fires on tree
// shape alone.
type CountCompare struct{}

func (*CountCompare) Code() diag.Code { return diag.RuleCountCompare }

func (*CountCompare) Kinds() []syntax.NodeKind {
	return []syntax.NodeKind{syntax.KindCompare}
}

func (r *CountCompare) Visit(ctx *Context) {
	n := ctx.Tree.Get(ctx.Node)
	op := ctx.Text(ctx.Node)
	if op != "gt" && op != "ne" {
		return
	}
	kids := ctx.Tree.Children(ctx.Node)
	if len(kids) != 2 {
		return
	}

	// Accept the pattern on either side of the operator.
	if !r.matches(ctx, kids[0], kids[1]) && !r.matches(ctx, kids[1], kids[0]) {
		return
	}

	diag.ReportWarning(ctx.Reporter, diag.RuleCountCompare, n.Span,
		fmt.Sprintf("comparing a count against zero; prefer an emptiness check over %q", op)).
		WithFixID("use-any").
		Emit()
}

// matches reports whether callSide is a call to a counting function and
// zeroSide is the integer literal 0.
func (r *CountCompare) matches(ctx *Context, callSide, zeroSide syntax.NodeID) bool {
	call := ctx.Tree.Get(callSide)
	if call.Kind != syntax.KindCall {
		return false
	}
	callee := ctx.Tree.FirstChildOfKind(callSide, syntax.KindIdent)
	if !callee.IsValid() || ctx.Text(callee) != "count" {
		return false
	}

	zero := ctx.Tree.Get(zeroSide)
	return zero.Kind == syntax.KindIntLit && ctx.Text(zeroSide) == "0"
}
