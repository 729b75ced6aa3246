package rules

import (
	"fmt"
	"strings"

	"prism/internal/diag"
	"prism/internal/syntax"
)

// AsyncNaming is the semantic rule shape: it consults the snapshot's symbol
// table and reports task-returning functions whose name lacks the Async
// suffix. When symbol resolution fails the rule emits nothing; a missing
// binding is never an error here.
type AsyncNaming struct{}

func (*AsyncNaming) Code() diag.Code { return diag.RuleAsyncNaming }

func (*AsyncNaming) Kinds() []syntax.NodeKind {
	return []syntax.NodeKind{syntax.KindFuncDecl}
}

func (r *AsyncNaming) Visit(ctx *Context) {
	ret := ctx.Tree.FirstChildOfKind(ctx.Node, syntax.KindReturns)
	if !ret.IsValid() || ctx.Text(ret) != "task" {
		return
	}

	sym, ok := ctx.Snap.Resolve(ctx.File, ctx.Node)
	if !ok {
		return
	}
	name := ctx.Snap.Table.Name(sym)
	if name == "" || strings.HasSuffix(name, "Async") {
		return
	}

	// Report at the name span so the rename fix can target exactly it.
	diag.ReportWarning(ctx.Reporter, diag.RuleAsyncNaming, ctx.Snap.Table.Get(sym).Span,
		fmt.Sprintf("task-returning function %q should be suffixed Async", name)).
		WithFixID("rename-async").
		Emit()
}
