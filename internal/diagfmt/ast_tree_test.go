package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"mendes/internal/ast"
	"mendes/internal/source"
)

func TestTreeOutline(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("add.mds", []byte("fn add(a: int, b: int) -> int:\n    return a + b\n"))
	sp := func(start, end uint32) source.Span { return source.Span{File: id, Start: start, End: end} }
	prog := &ast.Program{File: id, Stmts: []ast.Stmt{
		&ast.FnDecl{
			Name:   "add",
			Params: []ast.Param{{Name: "a", Type: ast.IntType{}}, {Name: "b", Type: ast.IntType{}}},
			Ret:    ast.IntType{},
			Body: []ast.Stmt{&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Left:  &ast.Ident{Name: "a", Loc: sp(42, 43)},
				Op:    ast.OpAdd,
				Right: &ast.Ident{Name: "b", Loc: sp(46, 47)},
				Loc:   sp(42, 47),
			}}},
			Loc: sp(0, 47),
		},
	}}

	var buf bytes.Buffer
	if err := Tree(&buf, prog, fs); err != nil {
		t.Fatalf("Tree: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Program (add.mds)\n└─ [0] FnDecl (1:1-2:17)\n   ├─ Name: add\n   ├─ Params\n   │  ├─ [0] Param\n",
		"   │  │  └─ Type: int\n",
		"   ├─ Ret: int\n",
		"      └─ [0] ReturnStmt\n         └─ Value: BinaryExpr (2:12-2:17)\n            ├─ Left: Ident (2:12-2:13)\n",
		"            ├─ Op: +\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outline lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Generics") {
		t.Errorf("empty fields should be hidden:\n%s", out)
	}
}

func TestTreeNilProgram(t *testing.T) {
	var buf bytes.Buffer
	if err := Tree(&buf, nil, source.NewFileSet()); err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if buf.String() != "Program\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
