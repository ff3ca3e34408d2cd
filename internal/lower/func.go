package lower

import (
	"math"

	"mendes/internal/ast"
	"mendes/internal/ir"
)

type loopLabels struct {
	cont string
	end  string
}

// funcLowerer lowers the body of one function.
type funcLowerer struct {
	*lowerer
	fn *ir.Func
	// vars are stack slots created by Alloca, keyed by source name.
	vars  map[string]ir.Type
	loops []loopLabels
}

func newFuncLowerer(l *lowerer, f *ir.Func) *funcLowerer {
	return &funcLowerer{lowerer: l, fn: f, vars: make(map[string]ir.Type)}
}

// spillAssignedParams copies every parameter that the body assigns to into
// a stack slot of the same name. Parameters are read-only values otherwise.
func (fl *funcLowerer) spillAssignedParams(stmts []ast.Stmt) {
	assigned := make(map[string]bool)
	collectAssigned(stmts, assigned)
	for i, p := range fl.fn.Params {
		if !assigned[p.Name] {
			continue
		}
		fl.declare(p.Name, p.Type)
		fl.fn.Emit(ir.Store(ir.Param(i), ir.Local(p.Name)))
	}
}

func collectAssigned(stmts []ast.Stmt, out map[string]bool) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.ExprStmt:
			collectAssignedExpr(s.X, out)
		case *ast.LetStmt:
			collectAssignedExpr(s.Value, out)
		case *ast.ReturnStmt:
			collectAssignedExpr(s.Value, out)
		case *ast.IfStmt:
			collectAssigned(s.Then, out)
			collectAssigned(s.Else, out)
		case *ast.WhileStmt:
			collectAssigned(s.Body, out)
		case *ast.ForStmt:
			collectAssigned(s.Body, out)
		}
	}
}

// collectAssignedExpr finds assignments in expression position, including
// the arm bodies of a match.
func collectAssignedExpr(e ast.Expr, out map[string]bool) {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		if !x.Op.IsAssign() {
			return
		}
		if id, ok := x.Left.(*ast.Ident); ok {
			out[id.Name] = true
		}
	case *ast.MatchExpr:
		for _, arm := range x.Arms {
			collectAssigned(arm.Body, out)
		}
	}
}

func (fl *funcLowerer) declare(name string, ty ir.Type) {
	fl.vars[name] = ty
	fl.fn.AddLocal(name, ty)
	fl.fn.Emit(ir.Alloca(name, ty))
}

func (fl *funcLowerer) block(stmts []ast.Stmt) {
	for _, s := range stmts {
		fl.stmt(s)
	}
}

func (fl *funcLowerer) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		fl.let(s)
	case *ast.ExprStmt:
		if s.X != nil {
			fl.expr(s.X)
		}
	case *ast.ReturnStmt:
		v := ir.VoidValue
		if s.Value != nil {
			v = fl.expr(s.Value)
		}
		fl.fn.Emit(ir.Return(v))
	case *ast.IfStmt:
		fl.ifStmt(s)
	case *ast.WhileStmt:
		fl.whileStmt(s)
	case *ast.ForStmt:
		if r, ok := s.Iter.(*ast.RangeExpr); ok {
			fl.forRange(s, r)
		} else {
			fl.forEach(s)
		}
	case *ast.BreakStmt:
		if n := len(fl.loops); n > 0 {
			fl.fn.Emit(ir.Branch(fl.loops[n-1].end))
		}
	case *ast.ContinueStmt:
		if n := len(fl.loops); n > 0 {
			fl.fn.Emit(ir.Branch(fl.loops[n-1].cont))
		}
	case *ast.FnDecl:
		// nested functions are lowered as module functions
		fl.lowerFn(s)
	}
}

func (fl *funcLowerer) let(s *ast.LetStmt) {
	var ty ir.Type
	if s.Type != nil {
		ty = fl.irType(s.Type)
	} else {
		ty = fl.inferType(s.Value)
	}
	v := fl.expr(s.Value)
	fl.declare(s.Name, ty)
	fl.fn.Emit(ir.Store(v, ir.Local(s.Name)))
}

func (fl *funcLowerer) ifStmt(s *ast.IfStmt) {
	cond := fl.expr(s.Cond)
	then := fl.fn.NewLabel("then")
	end := fl.fn.NewLabel("endif")
	els := end
	if s.Else != nil {
		els = fl.fn.NewLabel("else")
	}
	fl.fn.Emit(ir.CondBranch(cond, then, els))

	fl.fn.StartBlock(then)
	fl.block(s.Then)
	fl.jump(end)

	if s.Else != nil {
		fl.fn.StartBlock(els)
		fl.block(s.Else)
		fl.jump(end)
	}
	fl.fn.StartBlock(end)
}

// jump branches to target unless the current block already ended.
func (fl *funcLowerer) jump(target string) {
	if !fl.fn.Terminated() {
		fl.fn.Emit(ir.Branch(target))
	}
}

func (fl *funcLowerer) loop(cont, end string, body func()) {
	fl.loops = append(fl.loops, loopLabels{cont: cont, end: end})
	body()
	fl.loops = fl.loops[:len(fl.loops)-1]
}

func (fl *funcLowerer) whileStmt(s *ast.WhileStmt) {
	cond := fl.fn.NewLabel("while_cond")
	body := fl.fn.NewLabel("while_body")
	end := fl.fn.NewLabel("while_end")

	fl.fn.StartBlock(cond)
	c := fl.expr(s.Cond)
	fl.fn.Emit(ir.CondBranch(c, body, end))

	fl.fn.StartBlock(body)
	fl.loop(cond, end, func() { fl.block(s.Body) })
	fl.jump(cond)

	fl.fn.StartBlock(end)
}

// forRange lowers `for i in a..b` into a counter loop. An open-ended range
// runs up to the largest i64.
func (fl *funcLowerer) forRange(s *ast.ForStmt, r *ast.RangeExpr) {
	start := ir.ConstInt(0)
	if r.Start != nil {
		start = fl.expr(r.Start)
	}
	limit := ir.ConstInt(math.MaxInt64)
	if r.End != nil {
		limit = fl.expr(r.End)
	}
	fl.declare(s.Var, ir.I64)
	fl.fn.Emit(ir.Store(start, ir.Local(s.Var)))

	cond := fl.fn.NewLabel("for_cond")
	body := fl.fn.NewLabel("for_body")
	inc := fl.fn.NewLabel("for_inc")
	end := fl.fn.NewLabel("for_end")

	fl.fn.StartBlock(cond)
	cur := fl.fn.EmitValue(ir.Load(fl.fn.NewTemp(), ir.Local(s.Var), ir.I64))
	op := ir.CmpLt
	if r.Inclusive {
		op = ir.CmpLe
	}
	ok := fl.fn.EmitValue(ir.Compare(fl.fn.NewTemp(), op, cur, limit))
	fl.fn.Emit(ir.CondBranch(ok, body, end))

	fl.fn.StartBlock(body)
	fl.loop(inc, end, func() { fl.block(s.Body) })
	fl.jump(inc)

	fl.fn.StartBlock(inc)
	cur = fl.fn.EmitValue(ir.Load(fl.fn.NewTemp(), ir.Local(s.Var), ir.I64))
	next := fl.fn.EmitValue(ir.Binary(fl.fn.NewTemp(), ir.OpAdd, cur, ir.ConstInt(1)))
	fl.fn.Emit(ir.Store(next, ir.Local(s.Var)))
	fl.fn.Emit(ir.Branch(cond))

	fl.fn.StartBlock(end)
}

// forEach walks an array by index through the runtime `len` helper.
func (fl *funcLowerer) forEach(s *ast.ForStmt) {
	coll := fl.expr(s.Iter)
	elem := ir.I64
	if t, ok := fl.typeOf(s.Iter); ok {
		if et := ir.FromType(t.Deref()); et.Kind == ir.TypePtr {
			elem = et.ElemType()
		}
	}

	idx := fl.fn.NewLabel("__idx")
	fl.declare(idx, ir.I64)
	fl.fn.Emit(ir.Store(ir.ConstInt(0), ir.Local(idx)))
	n := fl.fn.EmitValue(ir.Call(fl.fn.NewTemp(), "len", coll))
	fl.declare(s.Var, elem)

	cond := fl.fn.NewLabel("for_cond")
	body := fl.fn.NewLabel("for_body")
	inc := fl.fn.NewLabel("for_inc")
	end := fl.fn.NewLabel("for_end")

	fl.fn.StartBlock(cond)
	i := fl.fn.EmitValue(ir.Load(fl.fn.NewTemp(), ir.Local(idx), ir.I64))
	ok := fl.fn.EmitValue(ir.Compare(fl.fn.NewTemp(), ir.CmpLt, i, n))
	fl.fn.Emit(ir.CondBranch(ok, body, end))

	fl.fn.StartBlock(body)
	i = fl.fn.EmitValue(ir.Load(fl.fn.NewTemp(), ir.Local(idx), ir.I64))
	item := fl.fn.EmitValue(ir.GetElement(fl.fn.NewTemp(), coll, i))
	fl.fn.Emit(ir.Store(item, ir.Local(s.Var)))
	fl.loop(inc, end, func() { fl.block(s.Body) })
	fl.jump(inc)

	fl.fn.StartBlock(inc)
	i = fl.fn.EmitValue(ir.Load(fl.fn.NewTemp(), ir.Local(idx), ir.I64))
	next := fl.fn.EmitValue(ir.Binary(fl.fn.NewTemp(), ir.OpAdd, i, ir.ConstInt(1)))
	fl.fn.Emit(ir.Store(next, ir.Local(idx)))
	fl.fn.Emit(ir.Branch(cond))

	fl.fn.StartBlock(end)
}
