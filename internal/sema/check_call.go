package sema

import (
	"fmt"

	"mendes/internal/ast"
	"mendes/internal/diag"
	"mendes/internal/symbols"
	"mendes/internal/types"
)

func (c *checker) checkCall(e *ast.CallExpr) types.Type {
	args := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.expr(a)
	}

	sig, ok := c.calleeSig(e.Fn)
	if !ok {
		return types.Unknown
	}
	if len(e.Args) != len(sig.Params) {
		c.typeMismatch(e.Loc, "incorrect number of arguments",
			"expected %d arguments, found %d", len(sig.Params), len(e.Args))
		return types.Unknown
	}

	params := sig.ParamTypes()
	// первое связывание побеждает; повторное вхождение T не унифицируется
	subst := types.InferGenerics(sig.Generics, params, args)
	for i, p := range params {
		want := c.resolve(subst.Apply(p))
		if !types.Compatible(want, args[i]) {
			c.typeMismatch(e.Args[i].Span(), "incompatible type",
				"incompatible argument: expected `%s`, found `%s`", want, args[i])
		}
		c.moveIfOwned(e.Args[i], p)
	}
	return c.resolve(subst.Apply(sig.Ret))
}

// calleeSig finds the signature behind a call target: a declared function,
// or any expression of function or closure type.
func (c *checker) calleeSig(fn ast.Expr) (*symbols.FnSig, bool) {
	if id, ok := fn.(*ast.Ident); ok {
		sym, found := c.syms.Lookup(id.Name)
		if !found {
			c.result.ExprTypes[fn] = types.Unknown
			if !c.imports {
				c.report(diag.TypeUnknownVariable, id.Loc, "not declared in this scope", "function not found: `%s`", id.Name)
			}
			return nil, false
		}
		if sym.Fn != nil {
			c.result.ExprTypes[fn] = sym.Type
			return sym.Fn, true
		}
	}

	t := c.resolve(c.expr(fn))
	var params []types.Type
	var ret types.Type
	switch {
	case t.Kind == types.KindFunction:
		params, ret = t.Args, t.RetType()
	case t.IsGenericOf(types.FnName) && len(t.Args) > 0:
		n := len(t.Args) - 1
		params, ret = t.Args[:n], t.Args[n]
	default:
		return nil, false
	}
	sig := &symbols.FnSig{Ret: ret}
	for i, p := range params {
		sig.Params = append(sig.Params, symbols.Param{Name: fmt.Sprintf("arg%d", i), Type: p})
	}
	return sig, true
}

// structOf returns the struct definition behind t together with the
// substitution of its generic parameters, if t names a user struct.
func (c *checker) structOf(t types.Type) (*symbols.StructDef, types.Subst, bool) {
	if t.Kind != types.KindNamed && t.Kind != types.KindGeneric {
		return nil, nil, false
	}
	def, ok := c.reg.Struct(t.Name)
	if !ok {
		return nil, nil, false
	}
	subst := make(types.Subst, len(def.Generics))
	for i, g := range def.Generics {
		subst[g] = t.Arg(i)
	}
	return def, subst, true
}

func (c *checker) checkMethodCall(e *ast.MethodCallExpr) types.Type {
	recv := c.resolve(c.expr(e.Recv)).Deref()
	args := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.expr(a)
	}

	if def, subst, ok := c.structOf(recv); ok {
		if m, found := def.Method(e.Method); found {
			if len(e.Args) != len(m.Params) {
				c.typeMismatch(e.Loc, "incorrect number of arguments",
					"method `%s` expects %d arguments, found %d", e.Method, len(m.Params), len(e.Args))
			}
			for i := range min(len(args), len(m.Params)) {
				want := c.resolve(subst.Apply(m.Params[i].Type))
				if !types.Compatible(want, args[i]) {
					c.typeMismatch(e.Args[i].Span(), "incompatible type",
						"incompatible argument: expected `%s`, found `%s`", want, args[i])
				}
				c.moveIfOwned(e.Args[i], m.Params[i].Type)
			}
			return c.resolve(subst.Apply(m.Ret))
		}
	}
	return c.builtinMethod(recv, e)
}

func (c *checker) builtinMethod(recv types.Type, e *ast.MethodCallExpr) types.Type {
	switch e.Method {
	case "to_string":
		return types.String
	case "clone":
		return recv
	}

	switch recv.Kind {
	case types.KindString:
		switch e.Method {
		case "len":
			return types.Int
		case "contains", "starts_with", "ends_with", "is_empty":
			return types.Bool
		case "concat", "to_upper", "to_lower", "trim":
			return types.String
		case "split":
			return types.Array(types.String)
		}
		return types.Unknown

	case types.KindArray:
		switch e.Method {
		case "len":
			return types.Int
		case "push", "pop":
			return types.Unit
		case "is_empty", "contains":
			return types.Bool
		}
		return types.Unknown

	case types.KindGeneric:
		switch {
		case recv.Name == "Result":
			switch e.Method {
			case "is_ok", "is_err":
				return types.Bool
			case "unwrap", "unwrap_or", "expect":
				return recv.Arg(0)
			case "unwrap_err":
				return recv.Arg(1)
			}
		case recv.Name == "Option":
			switch e.Method {
			case "is_some", "is_none":
				return types.Bool
			case "unwrap", "unwrap_or", "expect":
				return recv.Arg(0)
			}
		}
		return types.Unknown

	case types.KindUnknown, types.KindAny:
		return types.Unknown

	case types.KindNamed:
		// Request, WsConnection, Database<..> и перечисления непрозрачны
		if _, isStruct := c.reg.Struct(recv.Name); !isStruct {
			return types.Unknown
		}
	}

	c.report(diag.TypeUnknownVariable, e.Loc, "method not found", "method `%s` not found on type `%s`", e.Method, recv)
	return types.Unknown
}

func (c *checker) checkStructLit(e *ast.StructLit) types.Type {
	def, ok := c.reg.Struct(e.Name)
	if !ok {
		for _, f := range e.Fields {
			c.expr(f.Value)
		}
		c.report(diag.TypeUnknownType, e.Loc, "type not declared", "struct `%s` not found", e.Name)
		return types.Unknown
	}

	provided := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		provided[f.Name] = true
	}
	for _, f := range def.Fields {
		if !provided[f.Name] {
			c.typeMismatch(e.Loc, "required field not provided", "field `%s` missing in `%s`", f.Name, e.Name)
		}
	}

	valueTypes := make([]types.Type, len(e.Fields))
	for i, f := range e.Fields {
		valueTypes[i] = c.expr(f.Value)
	}

	// generic struct literals bind their parameters from the field values
	var subst types.Subst
	if len(def.Generics) > 0 {
		declared := make([]types.Type, len(e.Fields))
		for i, f := range e.Fields {
			declared[i] = types.Unknown
			if field, found := def.Field(f.Name); found {
				declared[i] = field.Type
			}
		}
		subst = types.InferGenerics(def.Generics, declared, valueTypes)
	}

	for i, f := range e.Fields {
		field, found := def.Field(f.Name)
		if !found {
			c.typeMismatch(e.Loc, "unknown field", "field `%s` does not exist in `%s`", f.Name, e.Name)
			continue
		}
		want := c.resolve(subst.Apply(field.Type))
		if !types.Compatible(want, valueTypes[i]) {
			c.typeMismatch(f.Value.Span(), "incompatible type",
				"incompatible type for field `%s`: expected `%s`, found `%s`", f.Name, want, valueTypes[i])
		}
		c.moveIfOwned(f.Value, want)
	}
	return types.Named(e.Name)
}
