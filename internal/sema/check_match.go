package sema

import (
	"mendes/internal/ast"
	"mendes/internal/diag"
	"mendes/internal/symbols"
	"mendes/internal/types"
)

func (c *checker) checkMatch(e *ast.MatchExpr) types.Type {
	scrutinee := c.resolve(c.expr(e.Scrutinee))
	if len(e.Arms) == 0 {
		c.report(diag.SynInvalidSyntax, e.Loc, "empty match", "match expression must have at least one arm")
		return types.Unknown
	}

	var first types.Type
	for i := range e.Arms {
		arm := &e.Arms[i]
		var t types.Type
		c.withScope(func() {
			c.checkPattern(arm.Pattern, scrutinee)
			if arm.Guard != nil {
				g := c.expr(arm.Guard)
				if !types.Compatible(g, types.Bool) {
					c.typeMismatch(arm.Guard.Span(), "expected bool", "match guard must be `bool`, found `%s`", g)
				}
			}
			t = c.checkArmBody(arm.Body)
		})
		if i == 0 {
			first = t
			continue
		}
		if !types.Compatible(first, t) {
			c.typeMismatch(arm.Loc, "incompatible type in this arm",
				"match arms have incompatible types: expected `%s`, found `%s`", first, t)
		}
	}
	return first
}

// checkArmBody returns the arm's value: the last top-level expression
// statement or `return` value. Other statements are checked normally.
func (c *checker) checkArmBody(body []ast.Stmt) types.Type {
	t := types.Unit
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.ReturnStmt:
			if s.Value != nil {
				t = c.expr(s.Value)
			}
		case *ast.ExprStmt:
			t = c.expr(s.X)
		default:
			c.checkStmt(stmt)
		}
	}
	return t
}

// checkPattern validates pat against the expected type and binds its
// identifiers into the current scope.
func (c *checker) checkPattern(pat ast.Pattern, expected types.Type) {
	switch p := pat.(type) {
	case *ast.WildcardPat:

	case *ast.LiteralPat:
		lit := c.expr(p.Value)
		if !types.Compatible(expected, lit) {
			c.typeMismatch(p.Span(), "incompatible pattern", "pattern type `%s` does not match expected `%s`", lit, expected)
		}

	case *ast.IdentPat:
		c.defineLocal(p.Name, expected, p.Mutable, p.Loc)

	case *ast.TuplePat:
		tuple := expected.Deref()
		if tuple.Kind == types.KindTuple && len(tuple.Args) != len(p.Elems) {
			c.typeMismatch(p.Loc, "incompatible pattern", "pattern type `%s` does not match expected `%s`",
				tuplePatternShape(len(p.Elems)), expected)
		}
		for i, elem := range p.Elems {
			et := types.Unknown
			if tuple.Kind == types.KindTuple {
				et = tuple.Arg(i)
			}
			c.checkPattern(elem, et)
		}

	case *ast.StructPat:
		def, ok := c.reg.Struct(p.Name)
		if !ok {
			c.report(diag.TypeUnknownType, p.Loc, "type not declared", "struct `%s` not found", p.Name)
			c.bindFieldPats(p.Fields, func(string) (types.Type, bool) { return types.Unknown, true }, p)
			return
		}
		c.bindFieldPats(p.Fields, func(name string) (types.Type, bool) {
			f, found := def.Field(name)
			if !found {
				c.report(diag.TypeUnknownVariable, p.Loc, "unknown field", "field `%s` not found in struct `%s`", name, p.Name)
				return types.Unknown, false
			}
			return f.Type, true
		}, p)

	case *ast.VariantPat:
		c.checkVariantPattern(p, expected)

	case *ast.OrPat:
		for _, alt := range p.Alts {
			c.checkPattern(alt, expected)
		}

	case *ast.RangePat:
		if p.Start != nil {
			if st := c.expr(p.Start); !types.Compatible(expected, st) {
				c.typeMismatch(p.Loc, "incompatible range", "range start type `%s` does not match expected `%s`", st, expected)
			}
		}
		if p.End != nil {
			if et := c.expr(p.End); !types.Compatible(expected, et) {
				c.typeMismatch(p.Loc, "incompatible range", "range end type `%s` does not match expected `%s`", et, expected)
			}
		}
	}
}

func tuplePatternShape(n int) types.Type {
	elems := make([]types.Type, n)
	for i := range elems {
		elems[i] = types.Unknown
	}
	return types.Tuple(elems...)
}

// bindFieldPats checks `{ name: pat }` entries; a nil pattern is the
// `{ name }` shorthand binding the field under its own name.
func (c *checker) bindFieldPats(fields []ast.FieldPat, fieldType func(string) (types.Type, bool), at ast.Node) {
	for _, f := range fields {
		t, _ := fieldType(f.Name)
		if f.Pat != nil {
			c.checkPattern(f.Pat, t)
			continue
		}
		c.defineLocal(f.Name, t, false, at.Span())
	}
}

func builtinVariant(enum, variant string) bool {
	switch variant {
	case "Some", "None":
		return enum == "" || enum == "Option"
	case "Ok", "Err":
		return enum == "" || enum == "Result"
	}
	return false
}

func (c *checker) checkVariantPattern(p *ast.VariantPat, expected types.Type) {
	scrutinee := expected.Deref()

	enumName := p.Enum
	if enumName == "" && scrutinee.Kind == types.KindNamed {
		enumName = scrutinee.Name
	}
	def := c.enumDef(enumName)

	// пользовательский enum с вариантом Some/Ok перекрывает встроенные
	if def == nil || (p.Enum == "" && !hasVariant(def, p.Variant)) {
		if builtinVariant(p.Enum, p.Variant) {
			inner := types.Unknown
			if scrutinee.Kind == types.KindGeneric {
				if p.Variant == "Err" {
					inner = scrutinee.Arg(1)
				} else {
					inner = scrutinee.Arg(0)
				}
			}
			for _, elem := range p.Elems {
				c.checkPattern(elem, inner)
			}
			return
		}
	}

	if def == nil {
		// неизвестное перечисление: только связываем имена
		for _, elem := range p.Elems {
			c.checkPattern(elem, types.Unknown)
		}
		c.bindFieldPats(p.Fields, func(string) (types.Type, bool) { return types.Unknown, true }, p)
		return
	}

	v, ok := def.Variant(p.Variant)
	if !ok {
		c.report(diag.TypeUnknownVariable, p.Loc, "unknown variant", "variant `%s` not found in enum `%s`", p.Variant, def.Name)
		for _, elem := range p.Elems {
			c.checkPattern(elem, types.Unknown)
		}
		c.bindFieldPats(p.Fields, func(string) (types.Type, bool) { return types.Unknown, true }, p)
		return
	}
	for i, elem := range p.Elems {
		et := types.Unknown
		if i < len(v.Types) {
			et = v.Types[i]
		}
		c.checkPattern(elem, et)
	}
	c.bindFieldPats(p.Fields, v.FieldType, p)
}

func (c *checker) enumDef(name string) *symbols.EnumDef {
	if name == "" {
		return nil
	}
	sym, ok := c.syms.Lookup(name)
	if !ok || sym.Enum == nil {
		return nil
	}
	return sym.Enum
}

func hasVariant(def *symbols.EnumDef, name string) bool {
	_, ok := def.Variant(name)
	return ok
}
