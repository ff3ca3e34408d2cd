package lower

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"mendes/internal/ast"
	"mendes/internal/ir"
	"mendes/internal/types"
)

var binaryOps = map[ast.BinOp]ir.BinaryOp{
	ast.OpAdd: ir.OpAdd,
	ast.OpSub: ir.OpSub,
	ast.OpMul: ir.OpMul,
	ast.OpDiv: ir.OpDiv,
	ast.OpMod: ir.OpMod,
	ast.OpAnd: ir.OpAnd,
	ast.OpOr:  ir.OpOr,
}

var compareOps = map[ast.BinOp]ir.CompareOp{
	ast.OpEq: ir.CmpEq,
	ast.OpNe: ir.CmpNe,
	ast.OpLt: ir.CmpLt,
	ast.OpLe: ir.CmpLe,
	ast.OpGt: ir.CmpGt,
	ast.OpGe: ir.CmpGe,
}

// voidBuiltins never produce a value.
var voidBuiltins = map[string]bool{"print": true, "println": true, "log": true}

// optionHelpers are the runtime predicates and accessors shared by Option and Result.
var optionHelpers = map[string]bool{
	"is_some": true,
	"is_none": true,
	"is_ok":   true,
	"is_err":  true,
	"unwrap":  true,
}

func (fl *funcLowerer) temp() uint32 { return fl.fn.NewTemp() }

func (fl *funcLowerer) expr(e ast.Expr) ir.Value {
	switch x := e.(type) {
	case nil:
		return ir.VoidValue
	case *ast.IntLit:
		return ir.ConstInt(x.Value)
	case *ast.FloatLit:
		return ir.ConstFloat(x.Value)
	case *ast.BoolLit:
		return ir.ConstBool(x.Value)
	case *ast.StringLit:
		return ir.ConstString(fl.mod.AddString(x.Value))
	case *ast.NoneLit:
		return fl.fn.EmitValue(ir.Call(fl.temp(), "__option_none"))
	case *ast.Ident:
		return fl.ident(x.Name)
	case *ast.BinaryExpr:
		return fl.binary(x)
	case *ast.UnaryExpr:
		v := fl.expr(x.X)
		if x.Op == ast.OpNot {
			return fl.fn.EmitValue(ir.Not(fl.temp(), v))
		}
		return fl.fn.EmitValue(ir.Neg(fl.temp(), v))
	case *ast.CallExpr:
		return fl.call(x)
	case *ast.MethodCallExpr:
		return fl.methodCall(x)
	case *ast.FieldExpr:
		return fl.field(x)
	case *ast.IndexExpr:
		base := fl.expr(x.X)
		idx := fl.expr(x.Index)
		return fl.fn.EmitValue(ir.GetElement(fl.temp(), base, idx))
	case *ast.AwaitExpr:
		v := fl.expr(x.X)
		return fl.fn.EmitValue(ir.Await(fl.temp(), v))
	case *ast.BorrowExpr:
		return fl.borrow(x)
	case *ast.OkExpr:
		return fl.wrap("__result_ok", x.X)
	case *ast.ErrExpr:
		return fl.wrap("__result_err", x.X)
	case *ast.SomeExpr:
		return fl.wrap("__option_some", x.X)
	case *ast.StructLit:
		return fl.structLit(x)
	case *ast.ArrayLit:
		return fl.arrayLit(x)
	case *ast.TupleExpr:
		return fl.tuple(x)
	case *ast.RangeExpr:
		return fl.rangeValue(x)
	case *ast.MatchExpr:
		return fl.match(x)
	case *ast.TryExpr:
		return fl.try(x)
	case *ast.ClosureExpr:
		return fl.closure(x)
	case *ast.InterpExpr:
		return fl.interp(x)
	}
	return ir.VoidValue
}

// ident reads a variable: stack slots are loaded, parameters are used
// directly and anything else refers to a module-level symbol.
func (fl *funcLowerer) ident(name string) ir.Value {
	if ty, ok := fl.vars[name]; ok {
		return fl.fn.EmitValue(ir.Load(fl.temp(), ir.Local(name), ty))
	}
	if i := fl.fn.ParamIndex(name); i >= 0 {
		return ir.Param(i)
	}
	return ir.GlobalRef(name)
}

func (fl *funcLowerer) binary(x *ast.BinaryExpr) ir.Value {
	if x.Op.IsAssign() {
		return fl.assign(x)
	}
	left := fl.expr(x.Left)
	right := fl.expr(x.Right)
	if op, ok := compareOps[x.Op]; ok {
		return fl.fn.EmitValue(ir.Compare(fl.temp(), op, left, right))
	}
	return fl.fn.EmitValue(ir.Binary(fl.temp(), binaryOps[x.Op], left, right))
}

// assign stores into the place named by the left-hand side. Compound
// operators read the place, combine and write the result back.
func (fl *funcLowerer) assign(x *ast.BinaryExpr) ir.Value {
	v := fl.expr(x.Right)
	if op, ok := x.Op.Underlying(); ok {
		cur := fl.expr(x.Left)
		v = fl.fn.EmitValue(ir.Binary(fl.temp(), binaryOps[op], cur, v))
	}

	switch target := x.Left.(type) {
	case *ast.Ident:
		switch {
		case fl.hasVar(target.Name):
			fl.fn.Emit(ir.Store(v, ir.Local(target.Name)))
		case fl.fn.ParamIndex(target.Name) >= 0:
			fl.fn.Emit(ir.Store(v, ir.Param(fl.fn.ParamIndex(target.Name))))
		default:
			fl.fn.Emit(ir.Store(v, ir.GlobalRef(target.Name)))
		}
	case *ast.FieldExpr:
		base := fl.expr(target.X)
		name, idx := fl.fieldSlot(target)
		fl.fn.Emit(ir.SetField(base, name, idx, target.Field, v))
	case *ast.IndexExpr:
		base := fl.expr(target.X)
		idx := fl.expr(target.Index)
		fl.fn.Emit(ir.SetElement(base, idx, v))
	}
	return ir.VoidValue
}

func (fl *funcLowerer) hasVar(name string) bool {
	_, ok := fl.vars[name]
	return ok
}

// calleeName flattens a call target: `f` stays `f`, `db.main.query`
// becomes `__main_query`.
func calleeName(e ast.Expr) (string, bool) {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name, true
	case *ast.FieldExpr:
		if inner, ok := x.X.(*ast.FieldExpr); ok {
			if root, ok := inner.X.(*ast.Ident); ok && root.Name == "db" {
				return "__" + inner.Field + "_" + x.Field, true
			}
		}
		if root, ok := calleeName(x.X); ok {
			return root + "_" + x.Field, true
		}
	}
	return "", false
}

func (fl *funcLowerer) args(es []ast.Expr) []ir.Value {
	out := make([]ir.Value, len(es))
	for i, a := range es {
		out[i] = fl.expr(a)
	}
	return out
}

func (fl *funcLowerer) call(x *ast.CallExpr) ir.Value {
	name, ok := calleeName(x.Fn)
	if !ok {
		name = "__call_indirect"
		args := append([]ir.Value{fl.expr(x.Fn)}, fl.args(x.Args)...)
		return fl.fn.EmitValue(ir.Call(fl.temp(), name, args...))
	}
	return fl.emitCall(name, fl.args(x.Args))
}

// emitCall calls fn, dropping the destination when fn is known to return nothing.
func (fl *funcLowerer) emitCall(fn string, args []ir.Value) ir.Value {
	if voidBuiltins[fn] {
		fl.fn.Emit(ir.CallVoid(fn, args...))
		return ir.VoidValue
	}
	if ret, ok := fl.rets[fn]; ok && ret.Kind == ir.TypeVoid {
		fl.fn.Emit(ir.CallVoid(fn, args...))
		return ir.VoidValue
	}
	return fl.fn.EmitValue(ir.Call(fl.temp(), fn, args...))
}

// structName names the struct behind t, looking through references.
func structName(t types.Type) (string, bool) {
	t = t.Deref()
	switch t.Kind {
	case types.KindNamed, types.KindGeneric:
		return t.Name, true
	}
	return "", false
}

func (fl *funcLowerer) methodCall(x *ast.MethodCallExpr) ir.Value {
	recv := fl.expr(x.Recv)
	args := append([]ir.Value{recv}, fl.args(x.Args)...)

	if t, ok := fl.typeOf(x.Recv); ok {
		if name, ok := structName(t); ok {
			if fn, ok := fl.methods[name][x.Method]; ok {
				return fl.emitCall(fn, args)
			}
		}
	}
	if optionHelpers[x.Method] {
		return fl.emitCall("__"+x.Method, args)
	}
	// без типа получателя ищем метод по имени среди всех структур
	if fn, ok := fl.uniqueMethod(x.Method); ok {
		return fl.emitCall(fn, args)
	}
	return fl.emitCall("__method_"+x.Method, args)
}

// uniqueMethod finds the only struct declaring method, if exactly one does.
func (fl *funcLowerer) uniqueMethod(method string) (string, bool) {
	found := ""
	for _, m := range fl.methods {
		fn, ok := m[method]
		if !ok {
			continue
		}
		if found != "" {
			return "", false
		}
		found = fn
	}
	return found, found != ""
}

func (fl *funcLowerer) wrap(fn string, x ast.Expr) ir.Value {
	v := fl.expr(x)
	return fl.fn.EmitValue(ir.Call(fl.temp(), fn, v))
}

// fieldSlot resolves the struct and index of a field access. The index is
// -1 when the struct layout is not known here.
func (fl *funcLowerer) fieldSlot(x *ast.FieldExpr) (string, int) {
	t, known := fl.typeOf(x.X)
	if known && t.Deref().Kind == types.KindTuple {
		return tupleName(len(t.Deref().Args)), tupleIndex(x.Field)
	}
	if !known {
		if i := tupleIndex(x.Field); i >= 0 {
			return "tuple", i
		}
		return "", -1
	}
	name, ok := structName(t)
	if !ok {
		return "", -1
	}
	if def, ok := fl.mod.Struct(name); ok {
		return name, def.FieldIndex(x.Field)
	}
	return name, -1
}

func tupleIndex(field string) int {
	i, err := strconv.Atoi(field)
	if err != nil || i < 0 {
		return -1
	}
	return i
}

func tupleName(arity int) string {
	return fmt.Sprintf("tuple_%d", arity)
}

func (fl *funcLowerer) field(x *ast.FieldExpr) ir.Value {
	base := fl.expr(x.X)
	name, idx := fl.fieldSlot(x)
	return fl.fn.EmitValue(ir.GetField(fl.temp(), base, name, idx, x.Field))
}

// borrow yields the address of a named slot; borrowing a temporary just
// passes the value along.
func (fl *funcLowerer) borrow(x *ast.BorrowExpr) ir.Value {
	if id, ok := x.X.(*ast.Ident); ok {
		if fl.hasVar(id.Name) {
			return ir.Local(id.Name)
		}
		if i := fl.fn.ParamIndex(id.Name); i >= 0 {
			return ir.Param(i)
		}
		return ir.GlobalRef(id.Name)
	}
	return fl.expr(x.X)
}

func (fl *funcLowerer) structLit(x *ast.StructLit) ir.Value {
	obj := fl.fn.EmitValue(ir.NewStruct(fl.temp(), x.Name))
	def, _ := fl.mod.Struct(x.Name)
	for i, f := range x.Fields {
		v := fl.expr(f.Value)
		idx := i
		if def != nil {
			idx = def.FieldIndex(f.Name)
		}
		fl.fn.Emit(ir.SetField(obj, x.Name, idx, f.Name, v))
	}
	return obj
}

func (fl *funcLowerer) arrayLit(x *ast.ArrayLit) ir.Value {
	elem := ir.I64
	if t, ok := fl.typeOf(x); ok && t.Kind == types.KindArray {
		elem = ir.FromType(t.ElemType())
	} else if len(x.Elems) > 0 {
		elem = fl.inferType(x.Elems[0])
	}
	arr := fl.fn.EmitValue(ir.NewArray(fl.temp(), elem, ir.ConstInt(toInt64(len(x.Elems)))))
	for i, e := range x.Elems {
		v := fl.expr(e)
		fl.fn.Emit(ir.SetElement(arr, ir.ConstInt(toInt64(i)), v))
	}
	return arr
}

func toInt64(n int) int64 {
	v, err := safecast.Conv[int64](n)
	if err != nil {
		panic(fmt.Errorf("lower: length overflow: %w", err))
	}
	return v
}

func (fl *funcLowerer) tuple(x *ast.TupleExpr) ir.Value {
	name := tupleName(len(x.Elems))
	obj := fl.fn.EmitValue(ir.NewStruct(fl.temp(), name))
	for i, e := range x.Elems {
		v := fl.expr(e)
		fl.fn.Emit(ir.SetField(obj, name, i, strconv.Itoa(i), v))
	}
	return obj
}

// rangeValue materializes a range as a Range struct {start, end, inclusive}.
func (fl *funcLowerer) rangeValue(x *ast.RangeExpr) ir.Value {
	start := ir.ConstInt(0)
	if x.Start != nil {
		start = fl.expr(x.Start)
	}
	end := ir.ConstInt(-1)
	if x.End != nil {
		end = fl.expr(x.End)
	}
	obj := fl.fn.EmitValue(ir.NewStruct(fl.temp(), "Range"))
	fl.fn.Emit(ir.SetField(obj, "Range", 0, "start", start))
	fl.fn.Emit(ir.SetField(obj, "Range", 1, "end", end))
	fl.fn.Emit(ir.SetField(obj, "Range", 2, "inclusive", ir.ConstBool(x.Inclusive)))
	return obj
}

// try lowers `x?`: an error or None is returned from the enclosing
// function, otherwise the payload is unwrapped.
func (fl *funcLowerer) try(x *ast.TryExpr) ir.Value {
	v := fl.expr(x.X)
	ok := fl.fn.EmitValue(ir.Call(fl.temp(), "__try_is_ok", v))
	okLabel := fl.fn.NewLabel("try_ok")
	errLabel := fl.fn.NewLabel("try_err")
	fl.fn.Emit(ir.CondBranch(ok, okLabel, errLabel))

	fl.fn.StartBlock(errLabel)
	propagated := fl.fn.EmitValue(ir.Call(fl.temp(), "__try_propagate", v))
	fl.fn.Emit(ir.Return(propagated))

	fl.fn.StartBlock(okLabel)
	return fl.fn.EmitValue(ir.Call(fl.temp(), "__try_unwrap", v))
}

// closure lifts the closure body into a module function and yields a
// reference to it.
func (fl *funcLowerer) closure(x *ast.ClosureExpr) ir.Value {
	name := fmt.Sprintf("__closure_%d", fl.closures)
	fl.closures++

	ret := fl.closureRet(x)
	f := ir.NewFunc(name, ret, false)
	for _, p := range x.Params {
		ty := ir.I64
		if p.Type != nil {
			ty = fl.irType(p.Type)
		}
		f.AddParam(p.Name, ty)
	}
	fl.rets[name] = ret

	if x.HasBlockBody() {
		fl.body(f, x.Block)
	} else {
		inner := newFuncLowerer(fl.lowerer, f)
		v := inner.expr(x.Body)
		f.Emit(ir.Return(v))
		f.Finish()
		fl.mod.AddFunc(f)
	}
	return ir.GlobalRef(name)
}

func (fl *funcLowerer) closureRet(x *ast.ClosureExpr) ir.Type {
	if x.Ret != nil {
		return fl.irType(x.Ret)
	}
	if t, ok := fl.typeOf(x); ok {
		if ft := ir.FromType(t); ft.Kind == ir.TypeFunc && ft.Ret != nil {
			return *ft.Ret
		}
	}
	if x.HasBlockBody() {
		return ir.Void
	}
	return fl.inferType(x.Body)
}

func (fl *funcLowerer) interp(x *ast.InterpExpr) ir.Value {
	args := make([]ir.Value, 0, len(x.Parts))
	for _, p := range x.Parts {
		if p.X == nil {
			args = append(args, ir.ConstString(fl.mod.AddString(p.Lit)))
			continue
		}
		args = append(args, fl.expr(p.X))
	}
	return fl.fn.EmitValue(ir.Call(fl.temp(), "__string_format", args...))
}
