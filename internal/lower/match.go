package lower

import (
	"mendes/internal/ast"
	"mendes/internal/ir"
	"mendes/internal/types"
)

// builtinVariants are the Option and Result constructors usable without an
// enum prefix, mapped to their runtime predicates.
var builtinVariants = map[string]string{
	"Some": "__is_some",
	"None": "__is_none",
	"Ok":   "__is_ok",
	"Err":  "__is_err",
}

// match lowers a match expression into a chain of tests. Each arm gets its
// own test blocks that branch to the next arm on the first failed check;
// pattern variables are bound only once every check passed, and the guard
// sees those bindings. The arm value goes through a stack slot.
func (fl *funcLowerer) match(m *ast.MatchExpr) ir.Value {
	scrut := fl.expr(m.Scrutinee)
	scrutType := ir.I64
	var scrutSema types.Type
	if t, ok := fl.typeOf(m.Scrutinee); ok {
		scrutType = fl.resolve(ir.FromType(t))
		scrutSema = t
	}

	resultType := fl.matchType(m)
	slot := ""
	if resultType.Kind != ir.TypeVoid {
		slot = fl.fn.NewLabel("__match")
		fl.declare(slot, resultType)
	}
	end := fl.fn.NewLabel("match_end")

	for i, arm := range m.Arms {
		next := end
		if i < len(m.Arms)-1 {
			next = fl.fn.NewLabel("match_next")
		}

		fl.test(arm.Pattern, scrut, scrutSema, next)
		fl.bind(arm.Pattern, scrut, scrutType, scrutSema)
		if arm.Guard != nil {
			g := fl.expr(arm.Guard)
			body := fl.fn.NewLabel("match_arm")
			fl.fn.Emit(ir.CondBranch(g, body, next))
			fl.fn.StartBlock(body)
		}

		v := fl.armBody(arm.Body)
		if slot != "" && !v.IsVoid() && !fl.fn.Terminated() {
			fl.fn.Emit(ir.Store(v, ir.Local(slot)))
		}
		fl.jump(end)

		if next != end {
			fl.fn.StartBlock(next)
		}
	}
	if len(m.Arms) == 0 {
		fl.fn.Emit(ir.Branch(end))
	}
	fl.fn.StartBlock(end)

	if slot == "" {
		return ir.VoidValue
	}
	return fl.fn.EmitValue(ir.Load(fl.temp(), ir.Local(slot), resultType))
}

func (fl *funcLowerer) matchType(m *ast.MatchExpr) ir.Type {
	if t, ok := fl.typeOf(m); ok {
		return fl.resolve(ir.FromType(t))
	}
	for _, arm := range m.Arms {
		if n := len(arm.Body); n > 0 {
			if last, ok := arm.Body[n-1].(*ast.ExprStmt); ok && last.X != nil {
				return fl.inferType(last.X)
			}
		}
	}
	return ir.Void
}

// armBody lowers an arm's statements; a trailing expression statement is
// the arm's value.
func (fl *funcLowerer) armBody(stmts []ast.Stmt) ir.Value {
	n := len(stmts)
	if n == 0 {
		return ir.VoidValue
	}
	fl.block(stmts[:n-1])
	if last, ok := stmts[n-1].(*ast.ExprStmt); ok && last.X != nil {
		return fl.expr(last.X)
	}
	fl.stmt(stmts[n-1])
	return ir.VoidValue
}

// check branches to fail unless cond holds and continues in a fresh block.
func (fl *funcLowerer) check(cond ir.Value, fail string) {
	pass := fl.fn.NewLabel("match_test")
	fl.fn.Emit(ir.CondBranch(cond, pass, fail))
	fl.fn.StartBlock(pass)
}

// test emits the checks of pattern p against v.
func (fl *funcLowerer) test(p ast.Pattern, v ir.Value, t types.Type, fail string) {
	switch pat := p.(type) {
	case *ast.WildcardPat, *ast.IdentPat:
	case *ast.LiteralPat:
		if _, isNone := pat.Value.(*ast.NoneLit); isNone {
			fl.check(fl.fn.EmitValue(ir.Call(fl.temp(), "__is_none", v)), fail)
			return
		}
		lit := fl.expr(pat.Value)
		fl.check(fl.fn.EmitValue(ir.Compare(fl.temp(), ir.CmpEq, v, lit)), fail)
	case *ast.RangePat:
		// Open ends (`5..`, `..5`) drop their bound check.
		if pat.Start != nil {
			lo := fl.expr(pat.Start)
			fl.check(fl.fn.EmitValue(ir.Compare(fl.temp(), ir.CmpGe, v, lo)), fail)
		}
		if pat.End != nil {
			hi := fl.expr(pat.End)
			op := ir.CmpLt
			if pat.Inclusive {
				op = ir.CmpLe
			}
			fl.check(fl.fn.EmitValue(ir.Compare(fl.temp(), op, v, hi)), fail)
		}
	case *ast.TuplePat:
		name := tupleName(len(pat.Elems))
		for i, sub := range pat.Elems {
			if isIrrefutable(sub) {
				continue
			}
			e := fl.fn.EmitValue(ir.GetField(fl.temp(), v, name, i, ""))
			fl.test(sub, e, tupleArg(t, i), fail)
		}
	case *ast.StructPat:
		def, _ := fl.mod.Struct(pat.Name)
		for _, f := range pat.Fields {
			if f.Pat == nil || isIrrefutable(f.Pat) {
				continue
			}
			e := fl.fn.EmitValue(ir.GetField(fl.temp(), v, pat.Name, fieldIndex(def, f.Name), f.Name))
			fl.test(f.Pat, e, types.Unknown, fail)
		}
	case *ast.VariantPat:
		fl.check(fl.variantCheck(pat, v), fail)
		for i, sub := range variantSubpatterns(pat) {
			if isIrrefutable(sub) {
				continue
			}
			e := fl.extract(v, i)
			fl.test(sub, e, payloadType(t, pat.Variant), fail)
		}
	case *ast.OrPat:
		matched := fl.fn.NewLabel("match_or")
		for i, alt := range pat.Alts {
			altFail := fail
			if i < len(pat.Alts)-1 {
				altFail = fl.fn.NewLabel("match_alt")
			}
			fl.test(alt, v, t, altFail)
			fl.fn.Emit(ir.Branch(matched))
			if altFail != fail {
				fl.fn.StartBlock(altFail)
			}
		}
		fl.fn.StartBlock(matched)
	}
}

func (fl *funcLowerer) variantCheck(pat *ast.VariantPat, v ir.Value) ir.Value {
	if fn, ok := builtinVariants[pat.Variant]; ok && pat.Enum == "" {
		return fl.fn.EmitValue(ir.Call(fl.temp(), fn, v))
	}
	return fl.fn.EmitValue(ir.Call(fl.temp(), "__is_variant_"+pat.Variant, v))
}

func (fl *funcLowerer) extract(v ir.Value, i int) ir.Value {
	return fl.fn.EmitValue(ir.Call(fl.temp(), "__extract_variant_field", v, ir.ConstInt(toInt64(i))))
}

// bind stores every variable introduced by p. Or-patterns bind through
// their first alternative.
func (fl *funcLowerer) bind(p ast.Pattern, v ir.Value, ty ir.Type, t types.Type) {
	switch pat := p.(type) {
	case *ast.IdentPat:
		fl.declare(pat.Name, ty)
		fl.fn.Emit(ir.Store(v, ir.Local(pat.Name)))
	case *ast.TuplePat:
		name := tupleName(len(pat.Elems))
		for i, sub := range pat.Elems {
			if !bindsNames(sub) {
				continue
			}
			e := fl.fn.EmitValue(ir.GetField(fl.temp(), v, name, i, ""))
			at := tupleArg(t, i)
			fl.bind(sub, e, ir.FromType(at), at)
		}
	case *ast.StructPat:
		def, _ := fl.mod.Struct(pat.Name)
		for _, f := range pat.Fields {
			sub := f.Pat
			if sub == nil {
				sub = &ast.IdentPat{Name: f.Name}
			}
			if !bindsNames(sub) {
				continue
			}
			ft := ir.I64
			if def != nil {
				if known, ok := def.FieldType(f.Name); ok {
					ft = known
				}
			}
			e := fl.fn.EmitValue(ir.GetField(fl.temp(), v, pat.Name, fieldIndex(def, f.Name), f.Name))
			fl.bind(sub, e, ft, types.Unknown)
		}
	case *ast.VariantPat:
		pt := payloadType(t, pat.Variant)
		for i, sub := range variantSubpatterns(pat) {
			if !bindsNames(sub) {
				continue
			}
			e := fl.extract(v, i)
			fl.bind(sub, e, fl.resolve(ir.FromType(pt)), pt)
		}
	case *ast.OrPat:
		if len(pat.Alts) > 0 {
			fl.bind(pat.Alts[0], v, ty, t)
		}
	}
}

// variantSubpatterns lists payload patterns in positional order. Shorthand
// struct-variant fields bind a variable of the field's name.
func variantSubpatterns(pat *ast.VariantPat) []ast.Pattern {
	if pat.Kind != ast.VariantStruct {
		return pat.Elems
	}
	out := make([]ast.Pattern, len(pat.Fields))
	for i, f := range pat.Fields {
		if f.Pat == nil {
			out[i] = &ast.IdentPat{Name: f.Name}
			continue
		}
		out[i] = f.Pat
	}
	return out
}

func isIrrefutable(p ast.Pattern) bool {
	switch p.(type) {
	case *ast.WildcardPat, *ast.IdentPat:
		return true
	}
	return false
}

func bindsNames(p ast.Pattern) bool {
	switch pat := p.(type) {
	case *ast.IdentPat:
		return true
	case *ast.TuplePat:
		for _, e := range pat.Elems {
			if bindsNames(e) {
				return true
			}
		}
	case *ast.StructPat:
		for _, f := range pat.Fields {
			if f.Pat == nil || bindsNames(f.Pat) {
				return true
			}
		}
	case *ast.VariantPat:
		for _, e := range variantSubpatterns(pat) {
			if bindsNames(e) {
				return true
			}
		}
	case *ast.OrPat:
		return len(pat.Alts) > 0 && bindsNames(pat.Alts[0])
	}
	return false
}

func fieldIndex(def *ir.StructDef, name string) int {
	if def == nil {
		return -1
	}
	return def.FieldIndex(name)
}

func tupleArg(t types.Type, i int) types.Type {
	if t.Kind == types.KindTuple && i < len(t.Args) {
		return t.Args[i]
	}
	return types.Unknown
}

// payloadType is the type carried by an Option or Result variant.
func payloadType(t types.Type, variant string) types.Type {
	switch {
	case t.IsGenericOf("Option") && variant == "Some":
		return t.Arg(0)
	case t.IsGenericOf("Result") && variant == "Ok":
		return t.Arg(0)
	case t.IsGenericOf("Result") && variant == "Err":
		return t.Arg(1)
	}
	return types.Unknown
}
