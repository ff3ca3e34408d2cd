package lower_test

import (
	"slices"
	"strings"
	"testing"

	"mendes/internal/ast"
	"mendes/internal/ir"
	"mendes/internal/lower"
	"mendes/internal/sema"
)

func ident(name string) *ast.Ident   { return &ast.Ident{Name: name} }
func intLit(v int64) *ast.IntLit     { return &ast.IntLit{Value: v} }
func str(s string) *ast.StringLit    { return &ast.StringLit{Value: s} }
func stmt(x ast.Expr) *ast.ExprStmt  { return &ast.ExprStmt{X: x} }
func ret(v ast.Expr) *ast.ReturnStmt { return &ast.ReturnStmt{Value: v} }

func bin(l ast.Expr, op ast.BinOp, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Left: l, Op: op, Right: r}
}

func call(fn string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fn: ident(fn), Args: args}
}

func fn(name string, params []ast.Param, result ast.Type, body ...ast.Stmt) *ast.FnDecl {
	return &ast.FnDecl{Name: name, Params: params, Ret: result, Body: body}
}

// lowerChecked runs the checker for expression types, lowers the program
// and requires the result to validate.
func lowerChecked(t *testing.T, stmts ...ast.Stmt) *ir.Module {
	t.Helper()
	prog := &ast.Program{Stmts: stmts}
	res := sema.Check(prog, sema.Options{})
	m := lower.Lower(prog, lower.Options{Types: res.ExprTypes})
	if err := ir.Validate(m); err != nil {
		t.Fatalf("lowered module does not validate: %v\n%s", err, dump(m))
	}
	return m
}

func dump(m *ir.Module) string {
	var sb strings.Builder
	_ = ir.Dump(&sb, m)
	return sb.String()
}

func mustFunc(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()
	f := m.Func(name)
	if f == nil {
		t.Fatalf("function %q missing:\n%s", name, dump(m))
	}
	return f
}

// lines flattens a function body into printed instructions.
func lines(f *ir.Func) []string {
	var out []string
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			out = append(out, in.String())
		}
	}
	return out
}

func contains(t *testing.T, f *ir.Func, want string) int {
	t.Helper()
	ls := lines(f)
	for i, l := range ls {
		if strings.Contains(l, want) {
			return i
		}
	}
	t.Fatalf("%s has no instruction containing %q:\n%s", f.Name, want, ir.DumpFunc(f))
	return -1
}

func TestAddFunction(t *testing.T) {
	m := lowerChecked(t, fn("add",
		[]ast.Param{{Name: "a", Type: ast.IntType{}}, {Name: "b", Type: ast.IntType{}}},
		ast.IntType{},
		ret(bin(ident("a"), ast.OpAdd, ident("b"))),
	))
	f := mustFunc(t, m, "add")
	if len(f.Params) != 2 || !f.Params[0].Type.Equal(ir.I64) || !f.Params[1].Type.Equal(ir.I64) {
		t.Fatalf("params = %+v", f.Params)
	}
	if !f.Ret.Equal(ir.I64) {
		t.Fatalf("ret = %s, want i64", f.Ret)
	}
	want := []string{"%t0 = add %arg0, %arg1", "ret %t0"}
	if got := lines(f); !slices.Equal(got, want) {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestStringTableDeduplicates(t *testing.T) {
	m := lowerChecked(t, fn("main", nil, nil,
		stmt(call("println", str("a"))),
		stmt(call("println", str("a"))),
		stmt(call("println", str("b"))),
	))
	if len(m.Strings) != 2 {
		t.Fatalf("strings = %q, want 2 entries", m.Strings)
	}
	want := []string{"call @println(str#0)", "call @println(str#0)", "call @println(str#1)", "ret void"}
	if got := lines(mustFunc(t, m, "main")); !slices.Equal(got, want) {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestForRangeBound(t *testing.T) {
	for _, tt := range []struct {
		name      string
		inclusive bool
		op        ir.CompareOp
	}{
		{"exclusive", false, ir.CmpLt},
		{"inclusive", true, ir.CmpLe},
	} {
		t.Run(tt.name, func(t *testing.T) {
			loop := &ast.ForStmt{
				Var:  "i",
				Iter: &ast.RangeExpr{Start: intLit(0), End: intLit(5), Inclusive: tt.inclusive},
				Body: []ast.Stmt{stmt(call("println", ident("i")))},
			}
			f := mustFunc(t, lowerChecked(t, fn("f", nil, nil, loop)), "f")
			found := false
			for _, b := range f.Blocks {
				for _, in := range b.Instrs {
					if in.Kind == ir.InstrCompare && in.Compare.Op == tt.op && in.Compare.Right == ir.ConstInt(5) {
						found = true
					}
				}
			}
			if !found {
				t.Fatalf("no %s against 5:\n%s", tt.op, ir.DumpFunc(f))
			}
			if f.Block("for_cond_0") == nil || f.Block("for_inc_2") == nil {
				t.Fatalf("loop blocks missing:\n%s", ir.DumpFunc(f))
			}
		})
	}
}

func TestIfElseJoins(t *testing.T) {
	f := mustFunc(t, lowerChecked(t, fn("pick", []ast.Param{{Name: "c", Type: ast.BoolType{}}}, ast.IntType{},
		&ast.IfStmt{
			Cond: ident("c"),
			Then: []ast.Stmt{ret(intLit(1))},
			Else: []ast.Stmt{ret(intLit(2))},
		},
		ret(intLit(3)),
	)), "pick")

	labels := make([]string, len(f.Blocks))
	for i, b := range f.Blocks {
		labels[i] = b.Label
	}
	want := []string{"entry", "then_0", "else_2", "endif_1"}
	if !slices.Equal(labels, want) {
		t.Fatalf("blocks = %q, want %q", labels, want)
	}
	if got := f.Blocks[0].Terminator().String(); got != "br %arg0, then_0, else_2" {
		t.Fatalf("entry terminator = %q", got)
	}
}

func TestBreakAndContinueTargetInnermostLoop(t *testing.T) {
	body := []ast.Stmt{
		&ast.IfStmt{Cond: bin(ident("i"), ast.OpEq, intLit(5)), Then: []ast.Stmt{&ast.BreakStmt{}}},
		stmt(bin(ident("i"), ast.OpAddAssign, intLit(1))),
		&ast.ContinueStmt{},
	}
	f := mustFunc(t, lowerChecked(t, fn("count", nil, nil,
		&ast.LetStmt{Name: "i", Value: intLit(0), Mutable: true},
		&ast.WhileStmt{Cond: bin(ident("i"), ast.OpLt, intLit(10)), Body: body},
	)), "count")

	then := f.Block("then_3")
	if then == nil || then.Terminator().String() != "br while_end_2" {
		t.Fatalf("break does not leave the loop:\n%s", ir.DumpFunc(f))
	}
	b := f.Block("while_body_1")
	if b == nil {
		t.Fatalf("while body missing:\n%s", ir.DumpFunc(f))
	}
	// the increment lands in the join block after the if
	join := f.Block("endif_4")
	if join == nil || join.Terminator().String() != "br while_cond_0" {
		t.Fatalf("continue does not re-test the condition:\n%s", ir.DumpFunc(f))
	}
}

func TestCompoundAssignmentWritesBack(t *testing.T) {
	f := mustFunc(t, lowerChecked(t, fn("f", nil, nil,
		&ast.LetStmt{Name: "x", Value: intLit(1), Mutable: true},
		stmt(bin(ident("x"), ast.OpAddAssign, intLit(2))),
	)), "f")
	want := []string{
		"%x = alloca i64",
		"store 1, %x",
		"%t0 = load i64 %x",
		"%t1 = add %t0, 2",
		"store %t1, %x",
		"ret void",
	}
	if got := lines(f); !slices.Equal(got, want) {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestAssignedParameterIsSpilled(t *testing.T) {
	f := mustFunc(t, lowerChecked(t, fn("bump", []ast.Param{{Name: "n", Type: ast.IntType{}}}, ast.IntType{},
		stmt(bin(ident("n"), ast.OpAssign, bin(ident("n"), ast.OpAdd, intLit(1)))),
		ret(ident("n")),
	)), "bump")
	ls := lines(f)
	if ls[0] != "%n = alloca i64" || ls[1] != "store %arg0, %n" {
		t.Fatalf("parameter not spilled: %q", ls)
	}
}

func TestParameterAssignedInMatchArmIsSpilled(t *testing.T) {
	m := &ast.MatchExpr{
		Scrutinee: ident("n"),
		Arms: []ast.MatchArm{
			{
				Pattern: &ast.LiteralPat{Value: intLit(0)},
				Body:    []ast.Stmt{stmt(bin(ident("n"), ast.OpAssign, intLit(1))), stmt(intLit(0))},
			},
			{Pattern: &ast.WildcardPat{}, Body: []ast.Stmt{stmt(intLit(0))}},
		},
	}
	f := mustFunc(t, lowerChecked(t, fn("nonzero", []ast.Param{{Name: "n", Type: ast.IntType{}}}, ast.IntType{},
		stmt(m),
		ret(ident("n")),
	)), "nonzero")
	ls := lines(f)
	if ls[0] != "%n = alloca i64" || ls[1] != "store %arg0, %n" {
		t.Fatalf("parameter not spilled: %q", ls)
	}
	contains(t, f, "store 1, %n")
}

func TestCodeAfterReturnStaysValid(t *testing.T) {
	f := mustFunc(t, lowerChecked(t, fn("f", nil, ast.IntType{},
		ret(intLit(1)),
		stmt(call("println", str("unreachable"))),
	)), "f")
	if len(f.Blocks) != 2 || !strings.HasPrefix(f.Blocks[1].Label, "dead_") {
		t.Fatalf("expected a dead block:\n%s", ir.DumpFunc(f))
	}
}

func TestMatchGuardSeesBinding(t *testing.T) {
	optInt := ast.GenericType{Name: "Option", Args: []ast.Type{ast.IntType{}}}
	m := &ast.MatchExpr{
		Scrutinee: ident("opt"),
		Arms: []ast.MatchArm{
			{
				Pattern: &ast.VariantPat{Variant: "Some", Kind: ast.VariantTuple, Elems: []ast.Pattern{&ast.IdentPat{Name: "x"}}},
				Guard:   bin(ident("x"), ast.OpGt, intLit(0)),
				Body:    []ast.Stmt{stmt(ident("x"))},
			},
			{Pattern: &ast.WildcardPat{}, Body: []ast.Stmt{stmt(intLit(0))}},
		},
	}
	f := mustFunc(t, lowerChecked(t, fn("positive", []ast.Param{{Name: "opt", Type: optInt}}, ast.IntType{}, ret(m))), "positive")

	isSome := contains(t, f, "call @__is_some(%arg0)")
	extract := contains(t, f, "call @__extract_variant_field(%arg0, 0)")
	bind := contains(t, f, ", %x")
	guard := contains(t, f, "cmp gt")
	if isSome >= extract || extract >= bind || bind >= guard {
		t.Fatalf("want test, extract, bind, guard in order; got %d %d %d %d:\n%s", isSome, extract, bind, guard, ir.DumpFunc(f))
	}
	if f.Locals["__match_0"].Kind != ir.TypeI64 {
		t.Fatalf("match slot type = %s", f.Locals["__match_0"])
	}
}

func TestMatchLiteralsAndOrPatterns(t *testing.T) {
	m := &ast.MatchExpr{
		Scrutinee: ident("n"),
		Arms: []ast.MatchArm{
			{
				Pattern: &ast.OrPat{Alts: []ast.Pattern{&ast.LiteralPat{Value: intLit(1)}, &ast.LiteralPat{Value: intLit(2)}}},
				Body:    []ast.Stmt{stmt(str("small"))},
			},
			{
				Pattern: &ast.RangePat{Start: intLit(3), End: intLit(10)},
				Body:    []ast.Stmt{stmt(str("medium"))},
			},
			{Pattern: &ast.WildcardPat{}, Body: []ast.Stmt{stmt(str("large"))}},
		},
	}
	f := mustFunc(t, lowerChecked(t, fn("size", []ast.Param{{Name: "n", Type: ast.IntType{}}}, ast.StringType{}, ret(m))), "size")
	contains(t, f, "cmp eq %arg0, 1")
	contains(t, f, "cmp eq %arg0, 2")
	contains(t, f, "cmp ge %arg0, 3")
	contains(t, f, "cmp lt %arg0, 10")
	contains(t, f, "load string %__match_0")
}

func TestOpenRangePatternsCheckOneBound(t *testing.T) {
	tests := []struct {
		name    string
		pat     *ast.RangePat
		want    string
		missing string
	}{
		{"from", &ast.RangePat{Start: intLit(5)}, "cmp ge %arg0, 5", "cmp lt"},
		{"upto", &ast.RangePat{End: intLit(5)}, "cmp lt %arg0, 5", "cmp ge"},
		{"upto_inclusive", &ast.RangePat{End: intLit(5), Inclusive: true}, "cmp le %arg0, 5", "cmp ge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ast.MatchExpr{
				Scrutinee: ident("n"),
				Arms: []ast.MatchArm{
					{Pattern: tt.pat, Body: []ast.Stmt{stmt(intLit(1))}},
					{Pattern: &ast.WildcardPat{}, Body: []ast.Stmt{stmt(intLit(0))}},
				},
			}
			f := mustFunc(t, lowerChecked(t, fn("f", []ast.Param{{Name: "n", Type: ast.IntType{}}}, ast.IntType{}, ret(m))), "f")
			contains(t, f, tt.want)
			for _, l := range lines(f) {
				if strings.Contains(l, tt.missing) || (strings.Contains(l, "cmp") && strings.HasSuffix(l, "void")) {
					t.Fatalf("unexpected %q in:\n%s", l, ir.DumpFunc(f))
				}
			}
		})
	}
}

func TestTryPropagatesError(t *testing.T) {
	res := ast.GenericType{Name: "Result", Args: []ast.Type{ast.IntType{}, ast.StringType{}}}
	f := mustFunc(t, lowerChecked(t, fn("next", []ast.Param{{Name: "r", Type: res}}, res,
		&ast.LetStmt{Name: "v", Value: &ast.TryExpr{X: ident("r")}},
		ret(&ast.OkExpr{X: bin(ident("v"), ast.OpAdd, intLit(1))}),
	)), "next")

	contains(t, f, "call @__try_is_ok(%arg0)")
	errBlock := f.Block("try_err_1")
	if errBlock == nil || errBlock.Terminator().Kind != ir.InstrReturn {
		t.Fatalf("error path does not return:\n%s", ir.DumpFunc(f))
	}
	contains(t, f, "call @__try_unwrap(%arg0)")
	contains(t, f, "call @__result_ok(")
}

func TestApiHandlerAndRoute(t *testing.T) {
	m := lowerChecked(t,
		&ast.ServerDecl{Host: "0.0.0.0", Port: 8080},
		&ast.DbDecl{Kind: ast.DbPostgres, Name: "main", URL: "postgres://localhost/app", PoolSize: 10},
		&ast.ApiDecl{
			Method: ast.MethodGet,
			Path:   "/users/{id:int}",
			Async:  true,
			Ret:    ast.StringType{},
			Body:   []ast.Stmt{ret(str("ok"))},
		},
	)
	if m.Server == nil || m.Server.Port != 8080 {
		t.Fatalf("server = %+v", m.Server)
	}
	if len(m.Databases) != 1 || m.Databases[0].Kind != "postgres" || m.Databases[0].PoolSize != 10 {
		t.Fatalf("databases = %+v", m.Databases)
	}
	if len(m.Routes) != 1 {
		t.Fatalf("routes = %+v", m.Routes)
	}
	r := m.Routes[0]
	if r.Method != "GET" || r.Handler != "__http_get_users_id_int_0" || !r.Async {
		t.Fatalf("route = %+v", r)
	}
	f := mustFunc(t, m, r.Handler)
	if len(f.Params) != 2 || f.Params[0].Name != "request" || f.Params[1].Name != "id" || !f.Params[1].Type.Equal(ir.I64) {
		t.Fatalf("handler params = %+v", f.Params)
	}
}

func TestWebSocketHandlers(t *testing.T) {
	m := lowerChecked(t, &ast.WsDecl{
		Path:      "/chat",
		OnMessage: []ast.Stmt{stmt(call("println", ident("message")))},
	})
	if len(m.WsRoutes) != 1 {
		t.Fatalf("ws routes = %+v", m.WsRoutes)
	}
	r := m.WsRoutes[0]
	if r.OnConnect != "" || r.OnDisconnect != "" || r.OnMessage != "__ws_message_chat" {
		t.Fatalf("ws route = %+v", r)
	}
	f := mustFunc(t, m, r.OnMessage)
	if !f.Async || f.ParamIndex("message") != 1 {
		t.Fatalf("message handler = %+v", f.Params)
	}
}

func TestStructMethodsAndImpls(t *testing.T) {
	user := &ast.StructDecl{
		Name:   "User",
		Fields: []ast.Field{{Name: "name", Type: ast.StringType{}}, {Name: "age", Type: ast.IntType{}}},
		Methods: []*ast.MethodDecl{{
			Name: "age_next",
			Ret:  ast.IntType{},
			Body: []ast.Stmt{ret(bin(&ast.FieldExpr{X: ident("self"), Field: "age"}, ast.OpAdd, intLit(1)))},
		}},
	}
	show := &ast.ImplDecl{
		Trait:    "Show",
		TypeName: "User",
		Methods: []*ast.MethodDecl{{
			Name: "show",
			Ret:  ast.StringType{},
			Body: []ast.Stmt{ret(&ast.FieldExpr{X: ident("self"), Field: "name"})},
		}},
	}
	main := fn("main", nil, nil,
		&ast.LetStmt{Name: "u", Value: &ast.StructLit{Name: "User", Fields: []ast.FieldInit{
			{Name: "age", Value: intLit(30)},
			{Name: "name", Value: str("Ana")},
		}}},
		stmt(&ast.MethodCallExpr{Recv: ident("u"), Method: "age_next"}),
		stmt(&ast.MethodCallExpr{Recv: ident("u"), Method: "show"}),
	)
	m := lowerChecked(t, user, show, main)

	def, ok := m.Struct("User")
	if !ok || !def.HasMethod("User::age_next") {
		t.Fatalf("struct = %+v", def)
	}
	method := mustFunc(t, m, "User::age_next")
	if method.Params[0].Name != "self" || !method.Params[0].Type.Equal(ir.Ptr(ir.Struct("User"))) {
		t.Fatalf("self = %+v", method.Params[0])
	}
	contains(t, method, "getfield %arg0 %User.1 (age)")
	mustFunc(t, m, "<User as Show>::show")
	if len(m.Impls) != 1 || m.Impls[0].Methods[0] != "<User as Show>::show" {
		t.Fatalf("impls = %+v", m.Impls)
	}

	f := mustFunc(t, m, "main")
	contains(t, f, "setfield %t0 %User.1 (age), 30")
	contains(t, f, "setfield %t0 %User.0 (name), str#0")
	contains(t, f, "call @User::age_next(")
	contains(t, f, "call @<User as Show>::show(")
}

func TestClosureIsLifted(t *testing.T) {
	closure := &ast.ClosureExpr{
		Params: []ast.ClosureParam{{Name: "x", Type: ast.IntType{}}},
		Body:   bin(ident("x"), ast.OpAdd, intLit(1)),
	}
	m := lowerChecked(t, fn("main", nil, nil, &ast.LetStmt{Name: "inc", Value: closure}))
	lifted := mustFunc(t, m, "__closure_0")
	if !lifted.Ret.Equal(ir.I64) {
		t.Fatalf("closure ret = %s", lifted.Ret)
	}
	if got := lines(lifted); !slices.Equal(got, []string{"%t0 = add %arg0, 1", "ret %t0"}) {
		t.Fatalf("closure body = %q", got)
	}
	contains(t, mustFunc(t, m, "main"), "store @__closure_0, %inc")
}

func TestInterpolationAndDatabaseCalls(t *testing.T) {
	f := mustFunc(t, lowerChecked(t, fn("main", nil, nil,
		&ast.LetStmt{Name: "name", Value: str("Ana")},
		stmt(call("println", &ast.InterpExpr{Parts: []ast.InterpPart{{Lit: "hi "}, {X: ident("name")}}})),
		stmt(&ast.CallExpr{
			Fn:   &ast.FieldExpr{X: &ast.FieldExpr{X: ident("db"), Field: "main"}, Field: "query"},
			Args: []ast.Expr{str("SELECT 1")},
		}),
	)), "main")
	contains(t, f, "call @__string_format(str#1, %t")
	contains(t, f, "call @__main_query(str#2)")
}

func TestGlobalsAndAliases(t *testing.T) {
	m := lower.Lower(&ast.Program{Stmts: []ast.Stmt{
		&ast.TypeAliasDecl{Name: "UserId", Type: ast.IntType{}},
		&ast.LetStmt{Name: "LIMIT", Type: ast.NamedType{Name: "UserId"}, Value: intLit(100)},
		&ast.LetStmt{Name: "greeting", Value: str("hello"), Mutable: true},
	}}, lower.Options{ModuleName: "app"})

	if m.Name != "app" || len(m.Globals) != 2 {
		t.Fatalf("module %q globals %+v", m.Name, m.Globals)
	}
	limit := m.Globals[0]
	if !limit.Const || !limit.Type.Equal(ir.I64) || limit.Init == nil || *limit.Init != ir.ConstInt(100) {
		t.Fatalf("LIMIT = %+v", limit)
	}
	if g := m.Globals[1]; g.Const || !g.Type.Equal(ir.String) {
		t.Fatalf("greeting = %+v", g)
	}
}

func TestLowerWithoutTypesStillValidates(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{fn("f", []ast.Param{{Name: "xs", Type: ast.ArrayType{Elem: ast.IntType{}}}}, nil,
		&ast.ForStmt{Var: "x", Iter: ident("xs"), Body: []ast.Stmt{
			&ast.IfStmt{Cond: bin(ident("x"), ast.OpGt, intLit(3)), Then: []ast.Stmt{&ast.ContinueStmt{}}},
			stmt(call("println", ident("x"))),
		}},
		stmt(&ast.MatchExpr{}),
	)}}
	m := lower.Lower(prog, lower.Options{})
	if err := ir.Validate(m); err != nil {
		t.Fatalf("validate: %v\n%s", err, dump(m))
	}
	contains(t, mustFunc(t, m, "f"), "call @len(%arg0)")
}

func TestNilProgram(t *testing.T) {
	m := lower.Lower(nil, lower.Options{})
	if m == nil || len(m.Funcs) != 0 {
		t.Fatalf("module = %+v", m)
	}
}
