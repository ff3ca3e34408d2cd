package astio

import (
	"gopkg.in/yaml.v3"

	"mendes/internal/ast"
	"mendes/internal/source"
)

var binOps = map[string]ast.BinOp{
	"+": ast.OpAdd, "-": ast.OpSub, "*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod,
	"==": ast.OpEq, "!=": ast.OpNe, "<": ast.OpLt, "<=": ast.OpLe, ">": ast.OpGt, ">=": ast.OpGe,
	"&&": ast.OpAnd, "||": ast.OpOr, "and": ast.OpAnd, "or": ast.OpOr,
	"=": ast.OpAssign, "+=": ast.OpAddAssign, "-=": ast.OpSubAssign,
	"*=": ast.OpMulAssign, "/=": ast.OpDivAssign,
}

var exprDecoders map[string]func(*decoder, *object) ast.Expr

func init() {
	exprDecoders = map[string]func(*decoder, *object) ast.Expr{
		"int":    (*decoder).intLit,
		"float":  (*decoder).floatLit,
		"string": func(d *decoder, o *object) ast.Expr { return &ast.StringLit{Value: d.str(o, "value"), Loc: d.span(o)} },
		"bool": func(d *decoder, o *object) ast.Expr {
			return &ast.BoolLit{Value: d.boolean(o, "value"), Loc: d.span(o)}
		},
		"none":        func(d *decoder, o *object) ast.Expr { return &ast.NoneLit{Loc: d.span(o)} },
		"ident":       func(d *decoder, o *object) ast.Expr { return &ast.Ident{Name: d.name(o, "name"), Loc: d.span(o)} },
		"binary":      (*decoder).binary,
		"unary":       (*decoder).unary,
		"call":        (*decoder).call,
		"method_call": (*decoder).methodCall,
		"field": func(d *decoder, o *object) ast.Expr {
			return &ast.FieldExpr{X: d.exprField(o, "expr"), Field: d.required(o, "field"), Loc: d.span(o)}
		},
		"index": func(d *decoder, o *object) ast.Expr {
			return &ast.IndexExpr{X: d.exprField(o, "expr"), Index: d.exprField(o, "index"), Loc: d.span(o)}
		},
		"await": func(d *decoder, o *object) ast.Expr {
			return &ast.AwaitExpr{X: d.exprField(o, "expr"), Loc: d.span(o)}
		},
		"borrow": func(d *decoder, o *object) ast.Expr {
			return &ast.BorrowExpr{X: d.exprField(o, "expr"), Mut: d.boolean(o, "mut"), Loc: d.span(o)}
		},
		"ok":         func(d *decoder, o *object) ast.Expr { return &ast.OkExpr{X: d.exprField(o, "expr"), Loc: d.span(o)} },
		"err":        func(d *decoder, o *object) ast.Expr { return &ast.ErrExpr{X: d.exprField(o, "expr"), Loc: d.span(o)} },
		"some":       func(d *decoder, o *object) ast.Expr { return &ast.SomeExpr{X: d.exprField(o, "expr"), Loc: d.span(o)} },
		"try":        func(d *decoder, o *object) ast.Expr { return &ast.TryExpr{X: d.exprField(o, "expr"), Loc: d.span(o)} },
		"struct_lit": (*decoder).structLit,
		"array": func(d *decoder, o *object) ast.Expr {
			return &ast.ArrayLit{Elems: d.exprs(o.get("elems")), Loc: d.span(o)}
		},
		"tuple": func(d *decoder, o *object) ast.Expr {
			return &ast.TupleExpr{Elems: d.exprs(o.get("elems")), Loc: d.span(o)}
		},
		"match":   (*decoder).match,
		"closure": (*decoder).closure,
		"interp":  (*decoder).interp,
		"range":   (*decoder).rangeExpr,
	}
}

func (d *decoder) exprs(n *yaml.Node) []ast.Expr {
	items := d.seq(n)
	out := make([]ast.Expr, 0, len(items))
	for _, it := range items {
		out = append(out, d.expr(it))
	}
	return out
}

func (d *decoder) expr(n *yaml.Node) ast.Expr {
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode {
		return d.scalarExpr(n)
	}
	o, ok := d.object(n)
	if !ok {
		return &ast.Ident{Name: "<invalid>"}
	}
	decode, known := exprDecoders[o.kind]
	if !known {
		d.errorf(n, "unknown expression kind %q", o.kind)
		return &ast.Ident{Name: "<invalid>", Loc: d.span(o)}
	}
	e := decode(d, o)
	d.finish(o)
	return e
}

// scalarExpr handles the shorthand forms; they carry no span.
func (d *decoder) scalarExpr(n *yaml.Node) ast.Expr {
	sp := source.Span{File: d.file}
	switch n.ShortTag() {
	case "!!int":
		var v int64
		d.scalar(n, &v)
		return &ast.IntLit{Value: v, Loc: sp}
	case "!!float":
		var v float64
		d.scalar(n, &v)
		return &ast.FloatLit{Value: v, Loc: sp}
	case "!!bool":
		var v bool
		d.scalar(n, &v)
		return &ast.BoolLit{Value: v, Loc: sp}
	case "!!null":
		return &ast.NoneLit{Loc: sp}
	}
	return &ast.Ident{Name: ident(n.Value), Loc: sp}
}

func (d *decoder) intLit(o *object) ast.Expr {
	e := &ast.IntLit{Loc: d.span(o)}
	if n := o.get("value"); n != nil {
		d.scalar(n, &e.Value)
	}
	return e
}

func (d *decoder) floatLit(o *object) ast.Expr {
	e := &ast.FloatLit{Loc: d.span(o)}
	if n := o.get("value"); n != nil {
		d.scalar(n, &e.Value)
	}
	return e
}

func (d *decoder) binary(o *object) ast.Expr {
	sym := d.required(o, "op")
	op, ok := binOps[sym]
	if !ok && sym != "" {
		d.errorf(o.fields["op"], "unknown operator %q", sym)
	}
	return &ast.BinaryExpr{
		Left:  d.exprField(o, "left"),
		Op:    op,
		Right: d.exprField(o, "right"),
		Loc:   d.span(o),
	}
}

func (d *decoder) unary(o *object) ast.Expr {
	e := &ast.UnaryExpr{X: d.exprField(o, "expr"), Loc: d.span(o)}
	switch sym := d.required(o, "op"); sym {
	case "-":
		e.Op = ast.OpNeg
	case "!", "not":
		e.Op = ast.OpNot
	default:
		d.errorf(o.fields["op"], "unknown unary operator %q", sym)
	}
	return e
}

func (d *decoder) call(o *object) ast.Expr {
	return &ast.CallExpr{Fn: d.exprField(o, "fn"), Args: d.exprs(o.get("args")), Loc: d.span(o)}
}

func (d *decoder) methodCall(o *object) ast.Expr {
	return &ast.MethodCallExpr{
		Recv:   d.exprField(o, "recv"),
		Method: d.required(o, "method"),
		Args:   d.exprs(o.get("args")),
		Loc:    d.span(o),
	}
}

// structLit reads `fields` as an ordered mapping of name to value.
func (d *decoder) structLit(o *object) ast.Expr {
	e := &ast.StructLit{Name: d.name(o, "name"), Loc: d.span(o)}
	n := o.get("fields")
	if n == nil {
		return e
	}
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "struct literal fields must be a mapping")
		return e
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		e.Fields = append(e.Fields, ast.FieldInit{Name: ident(n.Content[i].Value), Value: d.expr(n.Content[i+1])})
	}
	return e
}

func (d *decoder) match(o *object) ast.Expr {
	e := &ast.MatchExpr{Scrutinee: d.exprField(o, "scrutinee"), Loc: d.span(o)}
	for _, it := range d.seq(o.get("arms")) {
		a, ok := d.object(it)
		if !ok {
			continue
		}
		arm := ast.MatchArm{Loc: d.span(a)}
		if p := a.get("pattern"); p != nil {
			arm.Pattern = d.pattern(p)
		} else {
			d.errorf(it, "match arm without pattern")
			arm.Pattern = &ast.WildcardPat{}
		}
		if g := a.get("guard"); g != nil {
			arm.Guard = d.expr(g)
		}
		arm.Body = d.block(a, "body")
		e.Arms = append(e.Arms, arm)
		d.finish(a)
	}
	return e
}

func (d *decoder) closure(o *object) ast.Expr {
	e := &ast.ClosureExpr{Ret: d.typ(o.get("ret")), Loc: d.span(o)}
	for _, p := range d.params(o) {
		e.Params = append(e.Params, ast.ClosureParam(p))
	}
	switch {
	case o.has("body") && o.has("block"):
		d.errorf(o.node, "closure has both body and block")
	case o.has("body"):
		e.Body = d.expr(o.get("body"))
	default:
		e.Block = d.block(o, "block")
		if e.Block == nil {
			e.Block = []ast.Stmt{}
		}
	}
	return e
}

// interp reads parts as plain strings (literal text) or expression nodes.
func (d *decoder) interp(o *object) ast.Expr {
	e := &ast.InterpExpr{Loc: d.span(o)}
	for _, it := range d.seq(o.get("parts")) {
		it = resolveAlias(it)
		if it.Kind == yaml.ScalarNode {
			e.Parts = append(e.Parts, ast.InterpPart{Lit: it.Value})
			continue
		}
		e.Parts = append(e.Parts, ast.InterpPart{X: d.expr(it)})
	}
	return e
}

func (d *decoder) rangeExpr(o *object) ast.Expr {
	return &ast.RangeExpr{
		Start:     d.optExpr(o, "start"),
		End:       d.optExpr(o, "end"),
		Inclusive: d.boolean(o, "inclusive"),
		Loc:       d.span(o),
	}
}
