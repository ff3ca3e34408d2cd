package sema

import (
	"testing"

	"mendes/internal/ast"
	"mendes/internal/diag"
)

func ident(name string) *ast.Ident      { return &ast.Ident{Name: name} }
func intLit(v int64) *ast.IntLit        { return &ast.IntLit{Value: v} }
func strLit(s string) *ast.StringLit    { return &ast.StringLit{Value: s} }
func exprStmt(x ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{X: x} }
func ret(v ast.Expr) *ast.ReturnStmt    { return &ast.ReturnStmt{Value: v} }
func param(name string, t ast.Type) ast.Param {
	return ast.Param{Name: name, Type: t}
}

func let(name string, t ast.Type, v ast.Expr) *ast.LetStmt {
	return &ast.LetStmt{Name: name, Type: t, Value: v}
}

func letMut(name string, t ast.Type, v ast.Expr) *ast.LetStmt {
	return &ast.LetStmt{Name: name, Type: t, Value: v, Mutable: true}
}

func call(fn string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fn: ident(fn), Args: args}
}

func bin(l ast.Expr, op ast.BinOp, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Left: l, Op: op, Right: r}
}

func fn(name string, params []ast.Param, ret ast.Type, body ...ast.Stmt) *ast.FnDecl {
	return &ast.FnDecl{Name: name, Params: params, Ret: ret, Body: body}
}

func check(stmts ...ast.Stmt) Result {
	return Check(&ast.Program{Stmts: stmts}, Options{})
}

func expectClean(t *testing.T, res Result) {
	t.Helper()
	if res.Diagnostics.Len() != 0 {
		for _, d := range res.Diagnostics.Items() {
			t.Errorf("unexpected %s: %s", d.Code.ID(), d.Message)
		}
		t.FailNow()
	}
}

func expectOnly(t *testing.T, res Result, code diag.Code, msg string) diag.Diagnostic {
	t.Helper()
	items := res.Diagnostics.Items()
	if len(items) != 1 {
		for _, d := range items {
			t.Errorf("got %s: %s", d.Code.ID(), d.Message)
		}
		t.Fatalf("expected exactly one diagnostic, got %d", len(items))
	}
	d := items[0]
	if d.Code != code {
		t.Fatalf("code = %s, want %s (%s)", d.Code.ID(), code.ID(), d.Message)
	}
	if msg != "" && d.Message != msg {
		t.Fatalf("message = %q, want %q", d.Message, msg)
	}
	return d
}
