package sema

import (
	"fmt"
	"strconv"

	"mendes/internal/ast"
	"mendes/internal/diag"
	"mendes/internal/types"
)

// expr infers the type of e and records it in Result.ExprTypes.
// On error the result is Unknown so that one mistake does not cascade.
func (c *checker) expr(e ast.Expr) types.Type {
	if e == nil {
		return types.Unknown
	}
	t := c.exprType(e)
	c.result.ExprTypes[e] = t
	return t
}

func (c *checker) exprType(e ast.Expr) types.Type {
	switch e := e.(type) {
	case *ast.IntLit:
		return types.Int
	case *ast.FloatLit:
		return types.Float
	case *ast.StringLit:
		return types.String
	case *ast.BoolLit:
		return types.Bool
	case *ast.NoneLit:
		return types.Option(types.Unknown)
	case *ast.Ident:
		c.own.CheckUse(e.Name, e.Loc)
		return c.identType(e)
	case *ast.BinaryExpr:
		return c.checkBinary(e)
	case *ast.UnaryExpr:
		return c.checkUnary(e)
	case *ast.CallExpr:
		return c.checkCall(e)
	case *ast.MethodCallExpr:
		return c.checkMethodCall(e)
	case *ast.FieldExpr:
		return c.checkField(e)
	case *ast.IndexExpr:
		return c.checkIndex(e)
	case *ast.AwaitExpr:
		return c.checkAwait(e)
	case *ast.BorrowExpr:
		return c.checkBorrow(e)
	case *ast.OkExpr:
		inner := c.expr(e.X)
		c.moveIfOwned(e.X, inner)
		return types.Result(inner, types.Unknown)
	case *ast.ErrExpr:
		inner := c.expr(e.X)
		c.moveIfOwned(e.X, inner)
		return types.Result(types.Unknown, inner)
	case *ast.SomeExpr:
		inner := c.expr(e.X)
		c.moveIfOwned(e.X, inner)
		return types.Option(inner)
	case *ast.StructLit:
		return c.checkStructLit(e)
	case *ast.ArrayLit:
		return c.checkArrayLit(e)
	case *ast.MatchExpr:
		return c.checkMatch(e)
	case *ast.TryExpr:
		return c.checkTry(e)
	case *ast.ClosureExpr:
		return c.checkClosure(e)
	case *ast.InterpExpr:
		for _, part := range e.Parts {
			if part.X != nil {
				c.expr(part.X)
			}
		}
		return types.String
	case *ast.TupleExpr:
		elems := make([]types.Type, len(e.Elems))
		for i, x := range e.Elems {
			elems[i] = c.expr(x)
		}
		return types.Tuple(elems...)
	case *ast.RangeExpr:
		return c.checkRange(e)
	}
	return types.Unknown
}

// identType resolves a name without touching ownership state.
func (c *checker) identType(id *ast.Ident) types.Type {
	sym, ok := c.syms.Lookup(id.Name)
	if !ok {
		c.report(diag.TypeUnknownVariable, id.Loc, "not declared in this scope", "variable not found: `%s`", id.Name)
		return types.Unknown
	}
	return c.resolve(sym.Type)
}

// loose types accept any operand.
func loose(t types.Type) bool {
	return t.Kind == types.KindUnknown || t.Kind == types.KindAny
}

func (c *checker) checkBinary(e *ast.BinaryExpr) types.Type {
	var left types.Type
	target, plainAssign := e.Left.(*ast.Ident)
	plainAssign = plainAssign && e.Op == ast.OpAssign
	if plainAssign {
		// присваивание не читает старое значение
		left = c.identType(target)
		c.result.ExprTypes[target] = left
	} else {
		left = c.expr(e.Left)
	}
	right := c.expr(e.Right)

	switch {
	case e.Op.IsArithmetic():
		return c.checkArith(e, left, right)

	case e.Op.IsComparison():
		if !types.Compatible(left, right) {
			c.typeMismatch(e.Loc, "incompatible types", "cannot compare `%s` with `%s`", left, right)
		}
		return types.Bool

	case e.Op.IsLogical():
		if !(left.Kind == types.KindBool || loose(left)) || !(right.Kind == types.KindBool || loose(right)) {
			c.typeMismatch(e.Loc, "expected bool", "logical operators require `bool`, found `%s` and `%s`", left, right)
		}
		return types.Bool

	default:
		if !types.Compatible(left, right) {
			c.typeMismatch(e.Loc, "incompatible types", "cannot assign `%s` to `%s`", right, left)
			return types.Unit
		}
		if plainAssign {
			c.moveIfOwned(e.Right, left)
			c.own.Reinit(target.Name)
		}
		return types.Unit
	}
}

func (c *checker) checkArith(e *ast.BinaryExpr, left, right types.Type) types.Type {
	if e.Op == ast.OpAdd && left.Kind == types.KindString && right.Kind == types.KindString {
		return types.String
	}
	switch {
	case loose(left):
		return right
	case loose(right):
		return left
	case left.Kind == types.KindInt && right.Kind == types.KindInt:
		return types.Int
	case left.Kind == types.KindFloat && right.Kind == types.KindFloat:
		return types.Float
	}
	c.typeMismatch(e.Loc, "incompatible types", "operation `%s` not supported between `%s` and `%s`", e.Op, left, right)
	return types.Unknown
}

func (c *checker) checkUnary(e *ast.UnaryExpr) types.Type {
	t := c.expr(e.X)
	if e.Op == ast.OpNot {
		if t.Kind != types.KindBool && !loose(t) {
			c.typeMismatch(e.Loc, "expected bool", "`not` requires `bool`, found `%s`", t)
		}
		return types.Bool
	}
	if !t.IsNumeric() && !loose(t) {
		c.typeMismatch(e.Loc, "expected int or float", "cannot negate `%s`", t)
		return types.Unknown
	}
	return t
}

func (c *checker) checkAwait(e *ast.AwaitExpr) types.Type {
	if !c.inAsync {
		c.report(diag.SynInvalidSyntax, e.Loc, "await outside of async function", "await can only be used in async context")
	}
	c.own.CheckAwait(e.Loc)
	inner := c.expr(e.X)
	if inner.Kind == types.KindFuture {
		return inner.ElemType()
	}
	return inner
}

func (c *checker) checkBorrow(e *ast.BorrowExpr) types.Type {
	var inner types.Type
	if id, ok := e.X.(*ast.Ident); ok {
		// заимствование само проверяет перемещение, без отдельного use
		inner = c.identType(id)
		c.result.ExprTypes[id] = inner
		if e.Mut {
			c.own.BorrowMut(id.Name, e.Loc)
		} else {
			c.own.Borrow(id.Name, e.Loc)
		}
	} else {
		inner = c.expr(e.X)
	}
	if e.Mut {
		return types.MutRef(inner)
	}
	return types.Ref(inner)
}

func (c *checker) checkField(e *ast.FieldExpr) types.Type {
	obj := c.resolve(c.expr(e.X)).Deref()
	if obj.Kind == types.KindTuple {
		idx, err := strconv.Atoi(e.Field)
		if err == nil && idx >= 0 && idx < len(obj.Args) {
			return obj.Args[idx]
		}
		c.report(diag.TypeUnknownVariable, e.Loc, "unknown field", "no field `%s` on type `%s`", e.Field, obj)
		return types.Unknown
	}
	def, subst, ok := c.structOf(obj)
	if !ok {
		return types.Unknown
	}
	if f, found := def.Field(e.Field); found {
		return c.resolve(subst.Apply(f.Type))
	}
	if _, isMethod := def.Method(e.Field); !isMethod {
		c.report(diag.TypeUnknownVariable, e.Loc, "unknown field", "field `%s` not found in struct `%s`", e.Field, def.Name)
	}
	return types.Unknown
}

func (c *checker) checkIndex(e *ast.IndexExpr) types.Type {
	obj := c.resolve(c.expr(e.X)).Deref()
	idx := c.expr(e.Index)
	if idx.Kind != types.KindInt && !loose(idx) {
		c.typeMismatch(e.Index.Span(), "expected int", "index must be `int`, found `%s`", idx)
	}
	switch obj.Kind {
	case types.KindArray:
		return obj.ElemType()
	case types.KindString:
		return types.String
	case types.KindUnknown, types.KindAny:
		return types.Unknown
	}
	c.typeMismatch(e.Loc, "not indexable", "type `%s` does not support indexing", obj)
	return types.Unknown
}

func (c *checker) checkArrayLit(e *ast.ArrayLit) types.Type {
	if len(e.Elems) == 0 {
		return types.Array(types.Unknown)
	}
	first := c.expr(e.Elems[0])
	for _, x := range e.Elems[1:] {
		t := c.expr(x)
		if !types.Compatible(first, t) {
			diag.ReportError(c.reporter, diag.TypeMismatch, x.Span(), "array elements have different types").
				WithLabel(fmt.Sprintf("expected `%s`, found `%s`", first, t)).
				Emit()
		}
	}
	return types.Array(first)
}

func (c *checker) checkTry(e *ast.TryExpr) types.Type {
	t := c.resolve(c.expr(e.X))
	switch {
	case t.IsGenericOf("Result"), t.IsGenericOf("Option"):
		return t.Arg(0)
	case loose(t):
		return types.Unknown
	}
	c.typeMismatch(e.Loc, "cannot use `?` here",
		"the `?` operator can only be applied to `Result` or `Option`, found `%s`", t)
	return types.Unknown
}

func (c *checker) checkRange(e *ast.RangeExpr) types.Type {
	var start, end types.Type
	if e.Start != nil {
		start = c.expr(e.Start)
	}
	if e.End != nil {
		end = c.expr(e.End)
	}
	switch {
	case e.Start != nil && e.End != nil:
		if !types.Compatible(start, end) {
			c.typeMismatch(e.Start.Span().Cover(e.End.Span()), "incompatible range bounds",
				"range bounds must have compatible types: found `%s` and `%s`", start, end)
		}
		return types.Range(start)
	case e.Start != nil:
		return types.Range(start)
	case e.End != nil:
		return types.Range(end)
	}
	return types.Range(types.Int)
}

func (c *checker) checkClosure(e *ast.ClosureExpr) types.Type {
	params := make([]types.Type, len(e.Params))
	var ret types.Type
	c.withScope(func() {
		for i, p := range e.Params {
			params[i] = c.fromASTOr(p.Type, types.Unknown)
			c.defineParam(p.Name, params[i], p.Loc)
		}
		rc := &returnContext{infer: e.Ret == nil}
		if e.Ret != nil {
			rc.expected = c.fromAST(e.Ret)
		}
		prevRet, prevLoops := c.ret, c.loops
		c.ret, c.loops = rc, 0
		defer func() { c.ret, c.loops = prevRet, prevLoops }()

		if !e.HasBlockBody() {
			body := c.expr(e.Body)
			ret = body
			if e.Ret != nil {
				if !types.Compatible(rc.expected, body) {
					c.typeMismatch(e.Body.Span(), "incompatible type",
						"incompatible return type: expected `%s`, found `%s`", rc.expected, body)
				}
				ret = rc.expected
			}
			return
		}
		c.checkBlock(e.Block)
		switch {
		case e.Ret != nil:
			ret = rc.expected
		case rc.found != nil:
			ret = *rc.found
		default:
			ret = types.Unit
		}
	})
	return types.Closure(params, ret)
}
