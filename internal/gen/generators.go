package gen

import (
	"fmt"
	"strings"

	"prism/internal/syntax"
)

// PreconditionError marks generator input that violates the generator's
// contract. The engine reports it at the marked declaration and keeps the
// pass going; any other error is an internal generator failure.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

func preconditionf(format string, args ...any) *PreconditionError {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// Convert emits a packing function for a marked type declaration. It
// requires at least one field: a fieldless type has nothing to convert and
// the marker is a contract violation, not a no-op.
type Convert struct{}

func (*Convert) Name() string    { return "convert" }
func (*Convert) Version() uint16 { return 1 }

func (*Convert) Generate(in *Input) (Unit, error) {
	tree := in.Snap.Tree(in.File)
	if tree.Get(in.Decl).Kind != syntax.KindTypeDecl {
		return Unit{}, preconditionf("convert marker on %q: only type declarations can be converted", in.Name)
	}

	fields := tree.ChildrenOfKind(in.Decl, syntax.KindFieldDecl)
	if len(fields) == 0 {
		return Unit{}, preconditionf("convert marker on %q: type has no fields", in.Name)
	}

	var refs []string
	for _, field := range fields {
		name := tree.FirstChildOfKind(field, syntax.KindIdent)
		refs = append(refs, "(ref "+in.Snap.NodeText(in.File, name)+")")
	}

	target := in.Config.Get("target", "map")
	var b strings.Builder
	fmt.Fprintf(&b, "; generated: convert v1 for %s\n", in.Name)
	fmt.Fprintf(&b, "(func pack%s\n", upperFirst(in.Name))
	fmt.Fprintf(&b, "  (param value %s)\n", in.Name)
	fmt.Fprintf(&b, "  (returns %s)\n", target)
	fmt.Fprintf(&b, "  (call (ref pack) %s))\n", strings.Join(refs, " "))

	return Unit{
		Path:    unitPath(in.Name, "convert"),
		Content: []byte(b.String()),
	}, nil
}

// Trace emits a forwarding wrapper for a marked function declaration so
// hosts can route calls through instrumentation. The declaration must state
// its return type; a wrapper cannot forward what it cannot spell.
type Trace struct{}

func (*Trace) Name() string    { return "trace" }
func (*Trace) Version() uint16 { return 1 }

func (*Trace) Generate(in *Input) (Unit, error) {
	tree := in.Snap.Tree(in.File)
	if tree.Get(in.Decl).Kind != syntax.KindFuncDecl {
		return Unit{}, preconditionf("trace marker on %q: only functions can be traced", in.Name)
	}

	ret := tree.FirstChildOfKind(in.Decl, syntax.KindReturns)
	if !ret.IsValid() {
		return Unit{}, preconditionf("trace marker on %q: function declares no return", in.Name)
	}
	retText := in.Snap.Table.Interner.MustLookup(tree.Get(ret).Text)

	var b strings.Builder
	fmt.Fprintf(&b, "; generated: trace v1 for %s\n", in.Name)
	fmt.Fprintf(&b, "(func %sTraced\n", in.Name)
	fmt.Fprintf(&b, "  (returns %s)\n", retText)
	fmt.Fprintf(&b, "  (call (ref %s)))\n", in.Name)

	return Unit{
		Path:    unitPath(in.Name, "trace"),
		Content: []byte(b.String()),
	}, nil
}

func unitPath(decl, gen string) string {
	return "gen/" + strings.ToLower(decl) + "_" + gen + ".psm"
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
