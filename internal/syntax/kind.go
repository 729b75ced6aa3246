package syntax

// NodeKind classifies a syntax node. The set is closed: engines dispatch on
// kinds through registries assembled at pipeline construction time.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota
	// KindFile is the root node of a single source unit.
	KindFile
	// KindTypeDecl declares a named record type. Children: markers, fields.
	KindTypeDecl
	// KindFieldDecl declares a field inside a type.
	KindFieldDecl
	// KindFuncDecl declares a function. Children: markers, returns clause,
	// params, body block.
	KindFuncDecl
	// KindParamDecl declares a function parameter.
	KindParamDecl
	// KindReturns annotates a function's result type; Text holds the type name.
	KindReturns
	// KindMarker is a declarative generation annotation attached to a
	// declaration; Text holds the marker name, children hold config entries.
	KindMarker
	// KindMarkerArg is a single configuration entry; Text holds "key=value".
	KindMarkerArg
	// KindBlock groups statements.
	KindBlock
	// KindLet binds a local name; child 0 is the name ident, child 1 the
	// initializer. Declarations carry their name as a leading ident child so
	// that rename edits can target exactly the name span.
	KindLet
	// KindCall applies the callee (child 0) to arguments (children 1..n).
	KindCall
	// KindIdent is a use of a name; Text holds the spelling.
	KindIdent
	// KindIntLit is an integer literal; Text holds the digits.
	KindIntLit
	// KindStrLit is a string literal.
	KindStrLit
	// KindBoolLit is true/false.
	KindBoolLit
	// KindCompare compares child 0 against child 1; Text holds the operator
	// (gt, lt, ge, le, eq, ne).
	KindCompare
	// KindMatch is a boolean pattern test: child 0 is the scrutinee, child 1
	// the type ident.
	KindMatch
	// KindIs is a plain type test with the same child shape as KindMatch.
	KindIs
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindTypeDecl:
		return "type"
	case KindFieldDecl:
		return "field"
	case KindFuncDecl:
		return "func"
	case KindParamDecl:
		return "param"
	case KindReturns:
		return "returns"
	case KindMarker:
		return "marker"
	case KindMarkerArg:
		return "marker-arg"
	case KindBlock:
		return "block"
	case KindLet:
		return "let"
	case KindCall:
		return "call"
	case KindIdent:
		return "ident"
	case KindIntLit:
		return "int"
	case KindStrLit:
		return "str"
	case KindBoolLit:
		return "bool"
	case KindCompare:
		return "cmp"
	case KindMatch:
		return "match"
	case KindIs:
		return "is"
	default:
		return "invalid"
	}
}

// IsDecl reports whether the kind introduces a named declaration.
func (k NodeKind) IsDecl() bool {
	switch k {
	case KindTypeDecl, KindFieldDecl, KindFuncDecl, KindParamDecl, KindLet:
		return true
	default:
		return false
	}
}
