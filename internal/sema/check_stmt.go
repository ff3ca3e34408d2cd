package sema

import (
	"fmt"
	"strings"

	"mendes/internal/ast"
	"mendes/internal/diag"
	"mendes/internal/source"
	"mendes/internal/trace"
	"mendes/internal/types"
)

func (c *checker) checkTopLevel(stmt ast.Stmt, parent uint64) {
	name := declName(stmt)
	if name == "" {
		c.checkStmt(stmt)
		return
	}
	span := trace.Begin(c.tracer, trace.ScopeModule, name, parent)
	before := c.result.Diagnostics.Len()
	c.checkStmt(stmt)
	if n := c.result.Diagnostics.Len() - before; n > 0 {
		span.WithExtra("diagnostics", fmt.Sprint(n))
	}
	span.End("")
}

func declName(stmt ast.Stmt) string {
	switch s := stmt.(type) {
	case *ast.FnDecl:
		return "fn:" + s.Name
	case *ast.StructDecl:
		return "struct:" + s.Name
	case *ast.EnumDecl:
		return "enum:" + s.Name
	case *ast.TraitDecl:
		return "trait:" + s.Name
	case *ast.ImplDecl:
		return "impl:" + s.Trait + " for " + s.TypeName
	case *ast.ApiDecl:
		return "api:" + s.Method.String() + " " + s.Path
	case *ast.WsDecl:
		return "ws:" + s.Path
	case *ast.MiddlewareDecl:
		return "middleware:" + s.Name
	}
	return ""
}

func (c *checker) checkBlock(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		c.checkStmt(stmt)
	}
}

func (c *checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ImportStmt, *ast.FromImportStmt:
		// импорты разрешает драйвер
	case *ast.LetStmt:
		c.checkLet(s)
	case *ast.FnDecl:
		c.checkFn(s)
	case *ast.StructDecl:
		c.checkStruct(s)
	case *ast.EnumDecl:
		c.checkEnum(s)
	case *ast.TraitDecl:
		c.checkTrait(s)
	case *ast.ImplDecl:
		c.checkImpl(s)
	case *ast.TypeAliasDecl:
		// registered in the first pass
	case *ast.ApiDecl:
		c.checkAPI(s)
	case *ast.WsDecl:
		c.checkWebSocket(s)
	case *ast.ServerDecl, *ast.DbDecl:
	case *ast.MiddlewareDecl:
		c.checkMiddleware(s)
	case *ast.IfStmt:
		c.checkCond(s.Cond)
		c.withScope(func() { c.checkBlock(s.Then) })
		if s.Else != nil {
			c.withScope(func() { c.checkBlock(s.Else) })
		}
	case *ast.ForStmt:
		c.checkFor(s)
	case *ast.WhileStmt:
		c.checkCond(s.Cond)
		c.withScope(func() {
			c.loops++
			defer func() { c.loops-- }()
			c.checkBlock(s.Body)
		})
	case *ast.ReturnStmt:
		c.checkReturn(s)
	case *ast.BreakStmt:
		c.checkLoopControl("break", s.Loc)
	case *ast.ContinueStmt:
		c.checkLoopControl("continue", s.Loc)
	case *ast.ExprStmt:
		if s.X != nil {
			c.expr(s.X)
		}
	}
}

func (c *checker) checkLet(s *ast.LetStmt) {
	valueType := types.Unit
	if s.Value != nil {
		valueType = c.expr(s.Value)
	}
	final := valueType
	if s.Type != nil {
		declared := c.fromAST(s.Type)
		if !types.Compatible(declared, valueType) {
			c.typeMismatch(s.Loc, "incompatible types here",
				"incompatible type: expected `%s`, found `%s`", declared, valueType)
		}
		final = declared
	}
	c.moveIfOwned(s.Value, final)
	c.defineLocal(s.Name, final, s.Mutable, s.Loc)
}

// moveIfOwned marks a bare identifier as moved when it is consumed by
// value into a slot of type dst.
func (c *checker) moveIfOwned(value ast.Expr, dst types.Type) {
	if id := c.movedIdent(value, dst); id != nil {
		c.own.MarkMoved(id.Name, id.Loc)
	}
}

// movedIdent returns value when it names an owned, non-copy variable that
// a by-value slot of type dst would consume.
func (c *checker) movedIdent(value ast.Expr, dst types.Type) *ast.Ident {
	id, ok := value.(*ast.Ident)
	if !ok || dst.IsRef() || dst.Kind == types.KindAny {
		return nil
	}
	sym, found := c.syms.Lookup(id.Name)
	if !found || c.isCopy(sym.Type) || sym.Type.IsRef() {
		return nil
	}
	return id
}

// isCopy extends Type.IsCopy with structs declared `copy`.
func (c *checker) isCopy(t types.Type) bool {
	if t.IsCopy() {
		return true
	}
	if t.Kind != types.KindNamed {
		return false
	}
	def, ok := c.reg.Struct(t.Name)
	return ok && def.IsCopy
}

func (c *checker) checkCond(cond ast.Expr) {
	t := c.expr(cond)
	if !types.Compatible(t, types.Bool) {
		c.typeMismatch(cond.Span(), "expected bool", "condition must be `bool`, found `%s`", t)
	}
}

func (c *checker) checkFn(f *ast.FnDecl) {
	ret := c.fromASTOr(f.Ret, types.Unit)
	c.reg.WithGenerics(genericNames(f.Generics), func() {
		c.withScope(func() {
			for _, p := range f.Params {
				c.defineParam(p.Name, c.fromAST(p.Type), p.Loc)
			}
			c.withBody(&returnContext{expected: ret}, f.Async, func() {
				c.checkBlock(f.Body)
			})
		})
	})
}

func (c *checker) checkMethod(self types.Type, m *ast.MethodDecl) {
	ret := c.fromASTOr(m.Ret, types.Unit)
	c.withScope(func() {
		switch m.Receiver {
		case ast.RecvRef:
			c.defineLocal("self", types.Ref(self), false, m.Loc)
		case ast.RecvMutRef:
			c.defineLocal("self", types.MutRef(self), false, m.Loc)
		default:
			c.defineLocal("self", self, false, m.Loc)
		}
		for _, p := range m.Params {
			c.defineParam(p.Name, c.fromAST(p.Type), p.Loc)
		}
		c.withBody(&returnContext{expected: ret}, m.Async, func() {
			c.checkBlock(m.Body)
		})
	})
}

func (c *checker) requireType(t types.Type, at source.Span) {
	if !c.reg.TypeExists(t) {
		diag.ReportError(c.reporter, diag.TypeUnknownType, at, fmt.Sprintf("unknown type: `%s`", t)).
			WithLabel("type not found").
			Emit()
	}
}

func (c *checker) checkStruct(s *ast.StructDecl) {
	c.reg.WithGenerics(genericNames(s.Generics), func() {
		for _, f := range s.Fields {
			c.requireType(c.fromAST(f.Type), f.Loc)
		}
		self := types.Named(s.Name)
		for _, m := range s.Methods {
			c.checkMethod(self, m)
		}
	})
}

func (c *checker) checkEnum(e *ast.EnumDecl) {
	for i := range e.Variants {
		v := &e.Variants[i]
		switch v.Kind {
		case ast.VariantTuple:
			for _, t := range v.Types {
				c.requireType(c.fromAST(t), v.Loc)
			}
		case ast.VariantStruct:
			for _, f := range v.Fields {
				c.requireType(c.fromAST(f.Type), f.Loc)
			}
		}
	}
}

func (c *checker) checkTrait(t *ast.TraitDecl) {
	// Self и параметры трейта считаются известными внутри сигнатур
	names := append(genericNames(t.Generics), "Self")
	c.reg.WithGenerics(names, func() {
		for _, m := range t.Methods {
			for _, p := range m.Params {
				c.requireType(c.fromAST(p.Type), p.Loc)
			}
			if m.Ret != nil {
				c.requireType(c.fromAST(m.Ret), m.Loc)
			}
		}
	})
}

func (c *checker) checkImpl(i *ast.ImplDecl) {
	target := types.FromAST(ast.NamedType{Name: i.TypeName})
	if !c.reg.TypeExists(c.resolve(target)) {
		diag.ReportError(c.reporter, diag.TypeUnknownType, i.Loc, fmt.Sprintf("type `%s` not found", i.TypeName)).
			WithLabel("implementing trait for unknown type").
			Emit()
	}
	if !c.reg.HasTrait(i.Trait) {
		diag.ReportError(c.reporter, diag.TypeUnknownType, i.Loc, fmt.Sprintf("trait `%s` not found", i.Trait)).
			WithLabel("unknown trait").
			Emit()
	}
	c.reg.WithGenerics(genericNames(i.Generics), func() {
		for _, m := range i.Methods {
			c.checkMethod(target, m)
		}
	})
}

func (c *checker) checkAPI(api *ast.ApiDecl) {
	ret := c.fromASTOr(api.Ret, types.Unit)
	c.withScope(func() {
		c.defineParam("request", types.Named("Request"), api.Loc)
		if api.BodyType != nil {
			c.defineParam("body", c.fromAST(api.BodyType), api.Loc)
		}
		c.definePathParams(api.Path, api.Loc)
		c.withBody(&returnContext{expected: ret}, api.Async, func() {
			c.checkBlock(api.Body)
		})
	})
}

func (c *checker) checkWebSocket(ws *ast.WsDecl) {
	c.withScope(func() {
		c.definePathParams(ws.Path, ws.Loc)
		c.defineLocal("conn", types.Named("WsConnection"), false, ws.Loc)

		handler := func(body []ast.Stmt, bind func()) {
			if body == nil {
				return
			}
			c.withScope(func() {
				if bind != nil {
					bind()
				}
				c.withBody(&returnContext{expected: types.Unknown}, false, func() {
					c.checkBlock(body)
				})
			})
		}
		handler(ws.OnConnect, nil)
		handler(ws.OnMessage, func() {
			c.defineLocal("message", types.String, false, ws.Loc)
		})
		handler(ws.OnDisconnect, nil)
	})
}

func (c *checker) checkMiddleware(m *ast.MiddlewareDecl) {
	c.withScope(func() {
		c.defineParam("request", types.Named("Request"), m.Loc)
		c.withBody(&returnContext{expected: types.Unknown}, false, func() {
			c.checkBlock(m.Body)
		})
	})
}

// PathParam is one `{name:type}` segment of a route path.
type PathParam struct {
	Name string
	Type types.Type
}

// PathParams extracts `{name}` and `{name:type}` segments. Only int is
// recognised as a type; everything else is a string.
func PathParams(path string) []PathParam {
	var out []PathParam
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			return out
		}
		path = path[open+1:]
		seg := path
		if end := strings.IndexByte(path, '}'); end >= 0 {
			seg = path[:end]
			path = path[end+1:]
		} else {
			path = ""
		}
		name, ty, _ := strings.Cut(seg, ":")
		if name == "" {
			continue
		}
		t := types.String
		if strings.TrimSpace(ty) == "int" {
			t = types.Int
		}
		out = append(out, PathParam{Name: strings.TrimSpace(name), Type: t})
	}
}

func (c *checker) definePathParams(path string, at source.Span) {
	for _, p := range PathParams(path) {
		c.defineParam(p.Name, p.Type, at)
	}
}

func (c *checker) checkFor(s *ast.ForStmt) {
	iter := c.resolve(c.expr(s.Iter)).Deref()
	var elem types.Type
	switch iter.Kind {
	case types.KindArray, types.KindRange:
		elem = iter.ElemType()
	case types.KindString:
		elem = types.String
	case types.KindUnknown, types.KindAny:
		elem = types.Unknown
	default:
		c.typeMismatch(s.Iter.Span(), "not iterable", "expected iterable type, found `%s`", iter)
		elem = types.Unknown
	}
	c.withScope(func() {
		c.defineLocal(s.Var, elem, false, s.Loc)
		c.loops++
		defer func() { c.loops-- }()
		c.checkBlock(s.Body)
	})
}

func (c *checker) checkReturn(s *ast.ReturnStmt) {
	found := types.Unit
	if s.Value != nil {
		found = c.expr(s.Value)
	}
	ret := c.ret
	if ret == nil {
		return
	}
	dst := found
	if !ret.infer {
		dst = ret.expected
	}
	if id := c.movedIdent(s.Value, dst); id != nil {
		c.own.MoveOnExit(id.Name, id.Loc)
	}
	if ret.infer {
		if ret.found == nil {
			ret.found = &found
		}
		return
	}
	if !types.Compatible(ret.expected, found) {
		c.typeMismatch(s.Loc, "incompatible type",
			"incompatible return type: expected `%s`, found `%s`", ret.expected, found)
	}
}

func (c *checker) checkLoopControl(keyword string, at source.Span) {
	if c.loops > 0 {
		return
	}
	diag.ReportError(c.reporter, diag.SynInvalidSyntax, at, fmt.Sprintf("`%s` outside of a loop", keyword)).
		WithLabel("cannot " + keyword + " here").
		Emit()
}
