package sema

import (
	"strings"
	"testing"

	"mendes/internal/ast"
	"mendes/internal/diag"
	"mendes/internal/symbols"
	"mendes/internal/trace"
	"mendes/internal/types"
)

func TestAddFunctionIsClean(t *testing.T) {
	res := check(fn("add",
		[]ast.Param{param("a", ast.IntType{}), param("b", ast.IntType{})},
		ast.IntType{},
		ret(bin(ident("a"), ast.OpAdd, ident("b"))),
	))
	expectClean(t, res)
}

func TestLetAnnotationMismatch(t *testing.T) {
	res := check(let("x", ast.IntType{}, strLit("hello")))
	expectOnly(t, res, diag.TypeMismatch, "incompatible type: expected `int`, found `string`")
	if n := res.Diagnostics.CountCategory('O'); n != 0 {
		t.Fatalf("ownership diagnostics = %d, want 0", n)
	}
}

func TestMutBorrowOfImmutableThenShared(t *testing.T) {
	res := check(
		let("x", ast.IntType{}, intLit(1)),
		let("y", nil, &ast.BorrowExpr{X: ident("x"), Mut: true}),
		let("z", nil, &ast.BorrowExpr{X: ident("x")}),
	)
	expectOnly(t, res, diag.OwnMutBorrowConflict, "")
}

func TestSharedThenMutBorrowConflict(t *testing.T) {
	res := check(
		letMut("x", ast.IntType{}, intLit(1)),
		let("r", nil, &ast.BorrowExpr{X: ident("x")}),
		let("w", nil, &ast.BorrowExpr{X: ident("x"), Mut: true}),
	)
	expectOnly(t, res, diag.OwnMutBorrowConflict, "cannot borrow `x` mutably while it is borrowed")
}

func TestBorrowsReleasedByBlock(t *testing.T) {
	res := check(
		letMut("x", ast.IntType{}, intLit(1)),
		&ast.IfStmt{
			Cond: &ast.BoolLit{Value: true},
			Then: []ast.Stmt{let("w", nil, &ast.BorrowExpr{X: ident("x"), Mut: true})},
		},
		let("w2", nil, &ast.BorrowExpr{X: ident("x"), Mut: true}),
	)
	expectClean(t, res)
}

func TestBorrowAcrossAwaitInAsyncFn(t *testing.T) {
	load := &ast.FnDecl{Name: "load", Ret: ast.StringType{}, Async: true,
		Body: []ast.Stmt{ret(strLit("data"))}}
	handler := &ast.FnDecl{
		Name:   "handle",
		Params: []ast.Param{param("value", ast.StringType{})},
		Async:  true,
		Body: []ast.Stmt{
			let("r", nil, &ast.BorrowExpr{X: ident("value")}),
			let("data", nil, &ast.AwaitExpr{X: call("load")}),
		},
	}
	res := check(load, handler)
	d := expectOnly(t, res, diag.OwnBorrowAcrossAwait, "reference to `value` cannot cross await")
	if !d.Mentions("value") {
		t.Fatalf("diagnostic does not name `value`: %q", d.Message)
	}
}

func TestAwaitOutsideAsync(t *testing.T) {
	res := check(fn("f", nil, nil, exprStmt(&ast.AwaitExpr{X: intLit(1)})))
	expectOnly(t, res, diag.SynInvalidSyntax, "await can only be used in async context")
}

func TestUseAfterMoveThroughCall(t *testing.T) {
	res := check(
		fn("consume", []ast.Param{param("s", ast.StringType{})}, nil),
		let("s", nil, strLit("a")),
		exprStmt(call("consume", ident("s"))),
		exprStmt(call("print", ident("s"))),
	)
	expectOnly(t, res, diag.OwnUseAfterMove, "use of `s` after move")
}

func TestBuiltinsDoNotMove(t *testing.T) {
	res := check(
		let("s", nil, strLit("a")),
		exprStmt(call("print", ident("s"))),
		exprStmt(call("print", ident("s"))),
	)
	expectClean(t, res)
}

func TestAssignmentReinitializesMovedVariable(t *testing.T) {
	res := check(
		letMut("s", nil, strLit("a")),
		let("t", nil, ident("s")),
		exprStmt(bin(ident("s"), ast.OpAssign, strLit("b"))),
		exprStmt(call("print", ident("s"))),
	)
	expectClean(t, res)
}

func TestCopyStructsAreNotMoved(t *testing.T) {
	for _, copyable := range []bool{true, false} {
		point := &ast.StructDecl{Name: "Point", IsCopy: copyable, Fields: []ast.Field{{Name: "x", Type: ast.IntType{}}}}
		res := check(
			point,
			let("p", nil, &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{{Name: "x", Value: intLit(1)}}}),
			let("q", nil, ident("p")),
			exprStmt(call("print", ident("p"))),
		)
		if copyable {
			expectClean(t, res)
		} else {
			expectOnly(t, res, diag.OwnUseAfterMove, "use of `p` after move")
		}
	}
}

func TestReturnMovesValue(t *testing.T) {
	res := check(fn("f", []ast.Param{param("s", ast.StringType{})}, ast.StringType{},
		ret(ident("s")),
		exprStmt(call("print", ident("s"))),
	))
	expectOnly(t, res, diag.OwnUseAfterMove, "use of `s` after move")
}

func TestReturnInBranchDoesNotMoveAfterIt(t *testing.T) {
	res := check(fn("f", []ast.Param{param("s", ast.StringType{}), param("c", ast.BoolType{})}, ast.StringType{},
		&ast.IfStmt{Cond: ident("c"), Then: []ast.Stmt{ret(ident("s"))}},
		ret(ident("s")),
	))
	expectClean(t, res)
}

func TestForwardReferenceBetweenFunctions(t *testing.T) {
	res := check(
		fn("first", nil, ast.IntType{}, ret(call("second"))),
		fn("second", nil, ast.IntType{}, ret(intLit(2))),
	)
	expectClean(t, res)
}

func TestUnknownNames(t *testing.T) {
	tests := []struct {
		name string
		stmt ast.Stmt
		msg  string
	}{
		{"variable", exprStmt(ident("ghost")), "variable not found: `ghost`"},
		{"function", exprStmt(call("ghost")), "function not found: `ghost`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectOnly(t, check(tt.stmt), diag.TypeUnknownVariable, tt.msg)
		})
	}
}

func TestImportsSilenceUnknownCallees(t *testing.T) {
	res := check(
		&ast.ImportStmt{Path: "utils"},
		exprStmt(call("helper", intLit(1))),
	)
	expectClean(t, res)
}

func TestArgumentCount(t *testing.T) {
	res := check(
		fn("zero", nil, nil),
		exprStmt(call("zero", intLit(1))),
	)
	expectOnly(t, res, diag.TypeMismatch, "expected 0 arguments, found 1")
}

// Known gap: T binds on its first occurrence and later occurrences are never
// unified, so mixed arguments surface only as an argument mismatch against
// the first binding.
func TestGenericFirstBindingWins(t *testing.T) {
	first := &ast.FnDecl{
		Name:     "first",
		Generics: []ast.GenericParam{{Name: "T"}},
		Params: []ast.Param{
			param("a", ast.NamedType{Name: "T"}),
			param("b", ast.NamedType{Name: "T"}),
		},
		Ret:  ast.NamedType{Name: "T"},
		Body: []ast.Stmt{ret(ident("a"))},
	}

	t.Run("conflicting arguments", func(t *testing.T) {
		res := check(first, exprStmt(call("first", intLit(1), strLit("x"))))
		expectOnly(t, res, diag.TypeMismatch, "incompatible argument: expected `int`, found `string`")
	})

	t.Run("return substituted", func(t *testing.T) {
		res := check(first, let("s", ast.StringType{}, call("first", intLit(1), intLit(2))))
		expectOnly(t, res, diag.TypeMismatch, "incompatible type: expected `string`, found `int`")
	})
}

func TestClosureMatchesFunctionParam(t *testing.T) {
	apply := fn("apply",
		[]ast.Param{
			param("f", ast.FuncType{Params: []ast.Type{ast.IntType{}}, Ret: ast.IntType{}}),
			param("x", ast.IntType{}),
		},
		ast.IntType{},
		ret(call("f", ident("x"))),
	)
	inc := &ast.ClosureExpr{
		Params: []ast.ClosureParam{{Name: "n", Type: ast.IntType{}}},
		Body:   bin(ident("n"), ast.OpAdd, intLit(1)),
	}
	res := check(apply, let("r", ast.IntType{}, call("apply", inc, intLit(2))))
	expectClean(t, res)
	if got := res.ExprTypes[inc]; !types.Compatible(got, types.Function([]types.Type{types.Int}, types.Int)) {
		t.Fatalf("closure type = %s", got)
	}
}

func TestStructLiteralFields(t *testing.T) {
	user := &ast.StructDecl{Name: "User", Fields: []ast.Field{
		{Name: "name", Type: ast.StringType{}},
		{Name: "age", Type: ast.IntType{}},
	}}

	tests := []struct {
		name   string
		fields []ast.FieldInit
		msg    string
	}{
		{"missing", []ast.FieldInit{{Name: "name", Value: strLit("Ana")}}, "field `age` missing in `User`"},
		{"extra", []ast.FieldInit{
			{Name: "name", Value: strLit("Ana")},
			{Name: "age", Value: intLit(30)},
			{Name: "email", Value: strLit("a@b")},
		}, "field `email` does not exist in `User`"},
		{"wrong type", []ast.FieldInit{
			{Name: "name", Value: strLit("Ana")},
			{Name: "age", Value: strLit("thirty")},
		}, "incompatible type for field `age`: expected `int`, found `string`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := check(user, let("u", nil, &ast.StructLit{Name: "User", Fields: tt.fields}))
			expectOnly(t, res, diag.TypeMismatch, tt.msg)
		})
	}
}

func TestFieldAccessAndMethods(t *testing.T) {
	user := &ast.StructDecl{
		Name:   "User",
		Fields: []ast.Field{{Name: "age", Type: ast.IntType{}}},
		Methods: []*ast.MethodDecl{{
			Name: "older", Ret: ast.BoolType{}, Receiver: ast.RecvRef,
			Params: []ast.Param{param("than", ast.IntType{})},
			Body:   []ast.Stmt{ret(bin(&ast.FieldExpr{X: ident("self"), Field: "age"}, ast.OpGt, ident("than")))},
		}},
	}
	lit := &ast.StructLit{Name: "User", Fields: []ast.FieldInit{{Name: "age", Value: intLit(3)}}}
	res := check(user,
		let("u", nil, lit),
		let("b", ast.BoolType{}, &ast.MethodCallExpr{Recv: ident("u"), Method: "older", Args: []ast.Expr{intLit(1)}}),
		exprStmt(&ast.FieldExpr{X: ident("u"), Field: "email"}),
	)
	expectOnly(t, res, diag.TypeUnknownVariable, "field `email` not found in struct `User`")
}

func TestMatchArms(t *testing.T) {
	arm := func(p ast.Pattern, v ast.Expr) ast.MatchArm {
		return ast.MatchArm{Pattern: p, Body: []ast.Stmt{exprStmt(v)}}
	}

	t.Run("incompatible arms", func(t *testing.T) {
		m := &ast.MatchExpr{Scrutinee: intLit(1), Arms: []ast.MatchArm{
			arm(&ast.LiteralPat{Value: intLit(1)}, strLit("one")),
			arm(&ast.WildcardPat{}, intLit(0)),
		}}
		expectOnly(t, check(exprStmt(m)), diag.TypeMismatch,
			"match arms have incompatible types: expected `string`, found `int`")
	})

	t.Run("empty", func(t *testing.T) {
		m := &ast.MatchExpr{Scrutinee: intLit(1)}
		expectOnly(t, check(exprStmt(m)), diag.SynInvalidSyntax, "match expression must have at least one arm")
	})

	t.Run("option payload binding", func(t *testing.T) {
		some := &ast.VariantPat{Variant: "Some", Kind: ast.VariantTuple,
			Elems: []ast.Pattern{&ast.IdentPat{Name: "v"}}}
		m := &ast.MatchExpr{Scrutinee: &ast.SomeExpr{X: intLit(4)}, Arms: []ast.MatchArm{
			arm(some, bin(ident("v"), ast.OpAdd, intLit(1))),
			arm(&ast.VariantPat{Variant: "None"}, intLit(0)),
		}}
		res := check(let("n", ast.IntType{}, m))
		expectClean(t, res)
	})

	t.Run("unknown enum variant", func(t *testing.T) {
		color := &ast.EnumDecl{Name: "Color", Variants: []ast.Variant{{Name: "Red"}, {Name: "Blue"}}}
		m := &ast.MatchExpr{Scrutinee: ident("c"), Arms: []ast.MatchArm{
			arm(&ast.VariantPat{Enum: "Color", Variant: "Green"}, intLit(1)),
		}}
		res := check(color, fn("f", []ast.Param{param("c", ast.NamedType{Name: "Color"})}, nil, exprStmt(m)))
		expectOnly(t, res, diag.TypeUnknownVariable, "variant `Green` not found in enum `Color`")
	})
}

func TestTryRequiresResultOrOption(t *testing.T) {
	res := check(fn("f", nil, nil, exprStmt(&ast.TryExpr{X: intLit(1)})))
	expectOnly(t, res, diag.TypeMismatch,
		"the `?` operator can only be applied to `Result` or `Option`, found `int`")
}

func TestConditionMustBeBool(t *testing.T) {
	res := check(&ast.WhileStmt{Cond: intLit(1)})
	expectOnly(t, res, diag.TypeMismatch, "condition must be `bool`, found `int`")
}

func TestLoopControlOutsideLoop(t *testing.T) {
	res := check(
		fn("f", nil, nil,
			&ast.WhileStmt{Cond: &ast.BoolLit{Value: true}, Body: []ast.Stmt{&ast.BreakStmt{}}},
			&ast.ContinueStmt{},
		),
	)
	d := expectOnly(t, res, diag.SynInvalidSyntax, "")
	if !strings.Contains(d.Message, "continue") {
		t.Fatalf("message = %q", d.Message)
	}
}

func TestForOverNonIterable(t *testing.T) {
	res := check(&ast.ForStmt{Var: "i", Iter: intLit(3)})
	expectOnly(t, res, diag.TypeMismatch, "expected iterable type, found `int`")
}

func TestForRangeBindsInt(t *testing.T) {
	res := check(&ast.ForStmt{
		Var:  "i",
		Iter: &ast.RangeExpr{Start: intLit(0), End: intLit(5)},
		Body: []ast.Stmt{let("j", ast.IntType{}, ident("i"))},
	})
	expectClean(t, res)
}

func TestReturnTypeMismatch(t *testing.T) {
	res := check(fn("f", nil, ast.IntType{}, ret(strLit("no"))))
	expectOnly(t, res, diag.TypeMismatch, "incompatible return type: expected `int`, found `string`")
}

func TestPathParams(t *testing.T) {
	got := PathParams("/users/{id:int}/posts/{slug}")
	want := []PathParam{{Name: "id", Type: types.Int}, {Name: "slug", Type: types.String}}
	if len(got) != len(want) {
		t.Fatalf("params = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Name != want[i].Name || !types.Equal(got[i].Type, want[i].Type) {
			t.Fatalf("param %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestApiHandlerImplicitParams(t *testing.T) {
	api := &ast.ApiDecl{
		Method:   ast.MethodPost,
		Path:     "/users/{id:int}",
		BodyType: ast.StringType{},
		Body: []ast.Stmt{
			let("n", ast.IntType{}, ident("id")),
			let("b", ast.StringType{}, ident("body")),
			exprStmt(ident("request")),
		},
	}
	expectClean(t, check(api))
}

func TestTypeAliasResolves(t *testing.T) {
	res := check(
		&ast.TypeAliasDecl{Name: "UserId", Type: ast.IntType{}},
		let("id", ast.NamedType{Name: "UserId"}, intLit(7)),
		let("n", ast.IntType{}, ident("id")),
	)
	expectClean(t, res)
}

func TestExprTypesRecorded(t *testing.T) {
	sum := bin(intLit(1), ast.OpAdd, intLit(2))
	res := check(let("x", nil, sum))
	if got := res.ExprTypes[sum]; !types.Equal(got, types.Int) {
		t.Fatalf("type of 1 + 2 = %s, want int", got)
	}
}

func TestReporterReceivesDiagnostics(t *testing.T) {
	bag := diag.NewBag(0)
	res := Check(&ast.Program{Stmts: []ast.Stmt{exprStmt(ident("ghost"))}},
		Options{Reporter: diag.BagReporter{Bag: bag}})
	if bag.Len() != 1 || res.Diagnostics.Len() != 1 {
		t.Fatalf("reporter got %d, result got %d", bag.Len(), res.Diagnostics.Len())
	}
}

func TestScopesBalancedAfterCheck(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		fn("f", []ast.Param{param("a", ast.IntType{})}, nil,
			&ast.IfStmt{Cond: &ast.BoolLit{Value: true}, Then: []ast.Stmt{exprStmt(ident("missing"))}},
		),
	}}
	res := Result{Diagnostics: diag.NewBag(0), ExprTypes: map[ast.Expr]types.Type{}}
	c := &checker{
		reporter: diag.BagReporter{Bag: res.Diagnostics},
		tracer:   trace.Nop,
		syms:     symbols.NewTable(),
		reg:      symbols.NewRegistry(),
		own:      NewTracker(nil),
		result:   &res,
	}
	c.run(prog)
	if c.syms.Depth() != 1 || c.own.Depth() != 1 {
		t.Fatalf("depth after check: symbols=%d ownership=%d", c.syms.Depth(), c.own.Depth())
	}
}
