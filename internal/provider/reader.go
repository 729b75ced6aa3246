package provider

import (
	"fmt"

	"fortio.org/safecast"

	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/syntax"
)

// reader parses one .psm declaration unit into a syntax tree. The notation
// is a flat S-expression form: declarations at the top level, expressions
// nested, `;` comments to end of line. It exists so the pipeline has
// realistic trees to chew on without dragging in a language front end.
type reader struct {
	src      []byte
	pos      int
	file     source.FileID
	b        *syntax.Builder
	interner *source.Interner
}

type parseError struct {
	span source.Span
	msg  string
}

func (e *parseError) Error() string { return e.msg }

// Parse reads every top-level form of the file into a tree. Malformed input
// is reported through rep and yields a nil tree; a reader never panics.
func Parse(f *source.File, interner *source.Interner, rep diag.Reporter) *syntax.Tree {
	r := &reader{
		src:      f.Content,
		file:     f.ID,
		b:        syntax.NewBuilder(f.ID, uint(len(f.Content)/16)),
		interner: interner,
	}

	contentLen, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		diag.ReportError(rep, diag.InpUnreadable, source.Span{File: f.ID}, "file too large").Emit()
		return nil
	}

	root := r.b.New(syntax.KindFile, source.Span{File: f.ID, Start: 0, End: contentLen}, source.NoStringID)
	for {
		r.skipTrivia()
		if r.pos >= len(r.src) {
			break
		}
		decl, perr := r.parseDecl()
		if perr != nil {
			diag.ReportError(rep, diag.InpMalformed, perr.span, perr.msg).Emit()
			return nil
		}
		r.b.Attach(root, decl)
	}
	return r.b.Finish(root)
}

func (r *reader) skipTrivia() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.pos++
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

func (r *reader) here() source.Span {
	off := uint32(r.pos)
	return source.Span{File: r.file, Start: off, End: off}
}

func (r *reader) errf(span source.Span, format string, args ...any) *parseError {
	return &parseError{span: span, msg: fmt.Sprintf(format, args...)}
}

func (r *reader) expect(c byte) *parseError {
	r.skipTrivia()
	if r.pos >= len(r.src) || r.src[r.pos] != c {
		return r.errf(r.here(), "expected %q", string(c))
	}
	r.pos++
	return nil
}

func isAtomByte(c byte) bool {
	switch c {
	case '(', ')', '"', ';', ' ', '\t', '\n', '\r':
		return false
	}
	return true
}

// atom reads a bare token and returns its spelling and span.
func (r *reader) atom() (string, source.Span, *parseError) {
	r.skipTrivia()
	start := r.pos
	for r.pos < len(r.src) && isAtomByte(r.src[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		return "", r.here(), r.errf(r.here(), "expected atom")
	}
	sp := source.Span{File: r.file, Start: uint32(start), End: uint32(r.pos)}
	return string(r.src[start:r.pos]), sp, nil
}

// quoted reads a double-quoted string without escape handling.
func (r *reader) quoted() (string, source.Span, *parseError) {
	start := r.pos
	r.pos++ // opening quote
	for r.pos < len(r.src) && r.src[r.pos] != '"' {
		r.pos++
	}
	if r.pos >= len(r.src) {
		return "", r.here(), r.errf(r.here(), "unterminated string")
	}
	r.pos++ // closing quote
	sp := source.Span{File: r.file, Start: uint32(start), End: uint32(r.pos)}
	return string(r.src[start+1 : r.pos-1]), sp, nil
}

// nameIdent reads an atom and allocates the ident node that represents a
// declared name or a referenced name.
func (r *reader) nameIdent() (syntax.NodeID, *parseError) {
	text, sp, err := r.atom()
	if err != nil {
		return syntax.NoNodeID, err
	}
	return r.b.New(syntax.KindIdent, sp, r.interner.Intern(text)), nil
}

// optionalTypeAtom reads the trailing type spelling of a param or field
// form when one is present, returning its interned text.
func (r *reader) optionalTypeAtom() (source.StringID, *parseError) {
	if r.atClose() {
		return source.NoStringID, nil
	}
	text, _, err := r.atom()
	if err != nil {
		return source.NoStringID, err
	}
	return r.interner.Intern(text), nil
}

// head reads "(" plus the leading keyword atom.
func (r *reader) head() (string, uint32, *parseError) {
	r.skipTrivia()
	start := uint32(r.pos)
	if err := r.expect('('); err != nil {
		return "", 0, err
	}
	kw, _, err := r.atom()
	if err != nil {
		return "", 0, err
	}
	return kw, start, nil
}

func (r *reader) close(id syntax.NodeID, start uint32) *parseError {
	if err := r.expect(')'); err != nil {
		return err
	}
	r.b.SetSpan(id, source.Span{File: r.file, Start: start, End: uint32(r.pos)})
	return nil
}

func (r *reader) atClose() bool {
	r.skipTrivia()
	return r.pos < len(r.src) && r.src[r.pos] == ')'
}

// parseDecl parses a top-level (type ...) or (func ...) form.
func (r *reader) parseDecl() (syntax.NodeID, *parseError) {
	kw, start, err := r.head()
	if err != nil {
		return syntax.NoNodeID, err
	}
	switch kw {
	case "type":
		return r.parseType(start)
	case "func":
		return r.parseFunc(start)
	default:
		return syntax.NoNodeID, r.errf(r.here(), "unknown declaration %q", kw)
	}
}

func (r *reader) parseType(start uint32) (syntax.NodeID, *parseError) {
	decl := r.b.New(syntax.KindTypeDecl, source.Span{File: r.file, Start: start}, source.NoStringID)
	name, err := r.nameIdent()
	if err != nil {
		return syntax.NoNodeID, err
	}
	r.b.Attach(decl, name)

	for !r.atClose() {
		kw, childStart, err := r.head()
		if err != nil {
			return syntax.NoNodeID, err
		}
		switch kw {
		case "marker":
			m, err := r.parseMarker(childStart)
			if err != nil {
				return syntax.NoNodeID, err
			}
			r.b.Attach(decl, m)
		case "field":
			fname, err := r.nameIdent()
			if err != nil {
				return syntax.NoNodeID, err
			}
			ftype, err := r.optionalTypeAtom()
			if err != nil {
				return syntax.NoNodeID, err
			}
			field := r.b.New(syntax.KindFieldDecl, source.Span{File: r.file, Start: childStart}, ftype)
			r.b.Attach(field, fname)
			if err := r.close(field, childStart); err != nil {
				return syntax.NoNodeID, err
			}
			r.b.Attach(decl, field)
		default:
			return syntax.NoNodeID, r.errf(r.here(), "unexpected %q in type body", kw)
		}
	}
	return decl, r.close(decl, start)
}

func (r *reader) parseFunc(start uint32) (syntax.NodeID, *parseError) {
	decl := r.b.New(syntax.KindFuncDecl, source.Span{File: r.file, Start: start}, source.NoStringID)
	name, err := r.nameIdent()
	if err != nil {
		return syntax.NoNodeID, err
	}
	r.b.Attach(decl, name)

	body := r.b.New(syntax.KindBlock, source.Span{File: r.file}, source.NoStringID)
	bodyStart := uint32(0)
	bodyEnd := uint32(0)

	for !r.atClose() {
		kw, childStart, err := r.head()
		if err != nil {
			return syntax.NoNodeID, err
		}
		switch kw {
		case "marker":
			m, err := r.parseMarker(childStart)
			if err != nil {
				return syntax.NoNodeID, err
			}
			r.b.Attach(decl, m)
		case "param":
			pname, err := r.nameIdent()
			if err != nil {
				return syntax.NoNodeID, err
			}
			ptype, err := r.optionalTypeAtom()
			if err != nil {
				return syntax.NoNodeID, err
			}
			param := r.b.New(syntax.KindParamDecl, source.Span{File: r.file, Start: childStart}, ptype)
			r.b.Attach(param, pname)
			if err := r.close(param, childStart); err != nil {
				return syntax.NoNodeID, err
			}
			r.b.Attach(decl, param)
		case "returns":
			text, _, err := r.atom()
			if err != nil {
				return syntax.NoNodeID, err
			}
			ret := r.b.New(syntax.KindReturns, source.Span{File: r.file, Start: childStart}, r.interner.Intern(text))
			if err := r.close(ret, childStart); err != nil {
				return syntax.NoNodeID, err
			}
			r.b.Attach(decl, ret)
		default:
			// Anything else is a body statement.
			stmt, err := r.parseExprHead(kw, childStart)
			if err != nil {
				return syntax.NoNodeID, err
			}
			r.b.Attach(body, stmt)
			sp := r.b.Span(stmt)
			if bodyStart == 0 {
				bodyStart = sp.Start
			}
			bodyEnd = sp.End
		}
	}

	if bodyEnd > 0 {
		r.b.SetSpan(body, source.Span{File: r.file, Start: bodyStart, End: bodyEnd})
	}
	r.b.Attach(decl, body)
	return decl, r.close(decl, start)
}

func (r *reader) parseMarker(start uint32) (syntax.NodeID, *parseError) {
	mname, _, err := r.atom()
	if err != nil {
		return syntax.NoNodeID, err
	}
	marker := r.b.New(syntax.KindMarker, source.Span{File: r.file, Start: start}, r.interner.Intern(mname))

	for !r.atClose() {
		r.skipTrivia()
		argStart := uint32(r.pos)
		if err := r.expect('('); err != nil {
			return syntax.NoNodeID, err
		}
		key, _, err := r.atom()
		if err != nil {
			return syntax.NoNodeID, err
		}
		var value string
		r.skipTrivia()
		if r.pos < len(r.src) && r.src[r.pos] == '"' {
			value, _, err = r.quoted()
		} else {
			value, _, err = r.atom()
		}
		if err != nil {
			return syntax.NoNodeID, err
		}
		arg := r.b.New(syntax.KindMarkerArg, source.Span{File: r.file, Start: argStart}, r.interner.Intern(key+"="+value))
		if err := r.close(arg, argStart); err != nil {
			return syntax.NoNodeID, err
		}
		r.b.Attach(marker, arg)
	}
	return marker, r.close(marker, start)
}

// parseExpr parses one "(head ...)" expression form.
func (r *reader) parseExpr() (syntax.NodeID, *parseError) {
	kw, start, err := r.head()
	if err != nil {
		return syntax.NoNodeID, err
	}
	return r.parseExprHead(kw, start)
}

func (r *reader) parseExprHead(kw string, start uint32) (syntax.NodeID, *parseError) {
	switch kw {
	case "ref":
		id, err := r.nameIdent()
		if err != nil {
			return syntax.NoNodeID, err
		}
		// The ident itself is the expression; the wrapper only closes it.
		if err := r.expect(')'); err != nil {
			return syntax.NoNodeID, err
		}
		return id, nil

	case "int", "str", "bool":
		var text string
		var err *parseError
		r.skipTrivia()
		if r.pos < len(r.src) && r.src[r.pos] == '"' {
			text, _, err = r.quoted()
		} else {
			text, _, err = r.atom()
		}
		if err != nil {
			return syntax.NoNodeID, err
		}
		kind := syntax.KindIntLit
		switch kw {
		case "str":
			kind = syntax.KindStrLit
		case "bool":
			kind = syntax.KindBoolLit
		}
		lit := r.b.New(kind, source.Span{File: r.file, Start: start}, r.interner.Intern(text))
		return lit, r.close(lit, start)

	case "cmp":
		op, _, err := r.atom()
		if err != nil {
			return syntax.NoNodeID, err
		}
		cmp := r.b.New(syntax.KindCompare, source.Span{File: r.file, Start: start}, r.interner.Intern(op))
		lhs, perr := r.parseExpr()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		rhs, perr := r.parseExpr()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		r.b.Attach(cmp, lhs)
		r.b.Attach(cmp, rhs)
		return cmp, r.close(cmp, start)

	case "match", "is":
		kind := syntax.KindMatch
		if kw == "is" {
			kind = syntax.KindIs
		}
		node := r.b.New(kind, source.Span{File: r.file, Start: start}, source.NoStringID)
		expr, perr := r.parseExpr()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		typeIdent, perr := r.nameIdent()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		r.b.Attach(node, expr)
		r.b.Attach(node, typeIdent)
		return node, r.close(node, start)

	case "call":
		call := r.b.New(syntax.KindCall, source.Span{File: r.file, Start: start}, source.NoStringID)
		callee, perr := r.parseExpr()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		r.b.Attach(call, callee)
		for !r.atClose() {
			arg, perr := r.parseExpr()
			if perr != nil {
				return syntax.NoNodeID, perr
			}
			r.b.Attach(call, arg)
		}
		return call, r.close(call, start)

	case "let":
		let := r.b.New(syntax.KindLet, source.Span{File: r.file, Start: start}, source.NoStringID)
		name, perr := r.nameIdent()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		init, perr := r.parseExpr()
		if perr != nil {
			return syntax.NoNodeID, perr
		}
		r.b.Attach(let, name)
		r.b.Attach(let, init)
		return let, r.close(let, start)

	case "block":
		block := r.b.New(syntax.KindBlock, source.Span{File: r.file, Start: start}, source.NoStringID)
		for !r.atClose() {
			stmt, perr := r.parseExpr()
			if perr != nil {
				return syntax.NoNodeID, perr
			}
			r.b.Attach(block, stmt)
		}
		return block, r.close(block, start)

	default:
		return syntax.NoNodeID, r.errf(r.here(), "unknown form %q", kw)
	}
}
