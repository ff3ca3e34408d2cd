// Package lower turns a syntax tree into the IR module handed to codegen.
// Lowering never fails: it produces a structurally valid module even for
// programs the checker rejected.
package lower

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mendes/internal/ast"
	"mendes/internal/ir"
	"mendes/internal/sema"
	"mendes/internal/trace"
	"mendes/internal/types"
)

// Options configure one lowering run.
type Options struct {
	// ModuleName defaults to "main".
	ModuleName string
	// Types are the checker's expression types; when present they give
	// locals and temporaries precise IR types instead of the i64 default.
	Types  map[ast.Expr]types.Type
	Tracer trace.Tracer
}

// Lower converts prog into an IR module.
func Lower(prog *ast.Program, opts Options) *ir.Module {
	name := opts.ModuleName
	if name == "" {
		name = "main"
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	l := &lowerer{
		mod:     ir.NewModule(name),
		types:   opts.Types,
		tracer:  tracer,
		lower:   cases.Lower(language.Und),
		rets:    make(map[string]ir.Type),
		methods: make(map[string]map[string]string),
	}
	if prog == nil {
		return l.mod
	}

	span := trace.Begin(tracer, trace.ScopePass, "lower", 0)
	for _, stmt := range prog.Stmts {
		l.collect(stmt)
	}
	for _, stmt := range prog.Stmts {
		l.lowerTopLevel(stmt, span.ID())
	}
	span.WithExtra("functions", fmt.Sprint(len(l.mod.Funcs))).End("")
	return l.mod
}

// lowerer holds module-wide state. Counters live here, never in globals,
// so independent compiles can run concurrently.
type lowerer struct {
	mod    *ir.Module
	types  map[ast.Expr]types.Type
	tracer trace.Tracer
	lower  cases.Caser

	// rets maps declared function names to their IR return type.
	rets map[string]ir.Type
	// methods maps struct name -> method name -> function name.
	methods map[string]map[string]string

	handlers int
	closures int
}

// typeOf returns the checker's type for e when it is known.
func (l *lowerer) typeOf(e ast.Expr) (types.Type, bool) {
	if l.types == nil || e == nil {
		return types.Unknown, false
	}
	t, ok := l.types[e]
	if !ok || t.IsUnknown() {
		return types.Unknown, false
	}
	return t, true
}

// irType converts a syntax-level annotation, expanding declared aliases.
func (l *lowerer) irType(t ast.Type) ir.Type {
	if t == nil {
		return ir.Void
	}
	return l.resolve(ir.FromType(types.FromAST(t)))
}

func (l *lowerer) resolve(t ir.Type) ir.Type {
	for range 16 {
		if t.Kind != ir.TypeStruct {
			return t
		}
		target, ok := l.mod.Alias(t.Name)
		if !ok {
			return t
		}
		t = target
	}
	return t
}

func (l *lowerer) addMethod(structName, method, fn string) {
	m := l.methods[structName]
	if m == nil {
		m = make(map[string]string)
		l.methods[structName] = m
	}
	m[method] = fn
}

func generics(gs []ast.GenericParam) []ir.GenericParam {
	if len(gs) == 0 {
		return nil
	}
	out := make([]ir.GenericParam, len(gs))
	for i, g := range gs {
		out[i] = ir.GenericParam{Name: g.Name, Bounds: g.Bounds}
	}
	return out
}

func receiver(r ast.Receiver) ir.Receiver {
	switch r {
	case ast.RecvMutRef:
		return ir.RecvMutRef
	case ast.RecvValue:
		return ir.RecvValue
	default:
		return ir.RecvRef
	}
}

// collect registers declarations so bodies can refer to anything declared
// later in the file.
func (l *lowerer) collect(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.TypeAliasDecl:
		l.mod.AddAlias(s.Name, ir.FromType(types.FromAST(s.Type)))
	case *ast.StructDecl:
		def := &ir.StructDef{Name: s.Name, Generics: generics(s.Generics)}
		for _, f := range s.Fields {
			def.Fields = append(def.Fields, ir.Field{Name: f.Name, Type: ir.FromType(types.FromAST(f.Type))})
		}
		for _, m := range s.Methods {
			fn := methodName(s.Name, m.Name)
			def.Methods = append(def.Methods, fn)
			l.addMethod(s.Name, m.Name, fn)
			l.rets[fn] = l.retType(m.Ret)
		}
		l.mod.AddStruct(def)
	case *ast.EnumDecl:
		// enums are opaque tagged values; variant tests go through runtime helpers
	case *ast.TraitDecl:
		def := &ir.TraitDef{Name: s.Name, Generics: generics(s.Generics)}
		for _, m := range s.Methods {
			tm := ir.TraitMethod{Name: m.Name, Ret: l.retType(m.Ret), Async: m.Async, Receiver: receiver(m.Receiver)}
			for _, p := range m.Params {
				tm.Params = append(tm.Params, ir.Field{Name: p.Name, Type: ir.FromType(types.FromAST(p.Type))})
			}
			def.Methods = append(def.Methods, tm)
		}
		l.mod.AddTrait(def)
	case *ast.ImplDecl:
		for _, m := range s.Methods {
			fn := implMethodName(s.TypeName, s.Trait, m.Name)
			if _, inherent := l.methods[s.TypeName][m.Name]; !inherent {
				l.addMethod(s.TypeName, m.Name, fn)
			}
			l.rets[fn] = l.retType(m.Ret)
		}
	case *ast.FnDecl:
		l.rets[s.Name] = l.retType(s.Ret)
	case *ast.ServerDecl:
		l.mod.Server = &ir.ServerConfig{Host: s.Host, Port: s.Port}
	case *ast.DbDecl:
		l.mod.Databases = append(l.mod.Databases, ir.DatabaseConfig{
			Name:     s.Name,
			Kind:     l.lower.String(s.Kind.String()),
			URL:      s.URL,
			PoolSize: s.PoolSize,
		})
	case *ast.MiddlewareDecl:
		l.mod.Middlewares = append(l.mod.Middlewares, s.Name)
	}
}

func (l *lowerer) retType(t ast.Type) ir.Type {
	if t == nil {
		return ir.Void
	}
	return l.irType(t)
}

func methodName(structName, method string) string {
	return structName + "::" + method
}

func implMethodName(typeName, trait, method string) string {
	return "<" + typeName + " as " + trait + ">::" + method
}

func (l *lowerer) lowerTopLevel(stmt ast.Stmt, parent uint64) {
	switch s := stmt.(type) {
	case *ast.FnDecl:
		l.traced("fn:"+s.Name, parent, func() { l.lowerFn(s) })
	case *ast.StructDecl:
		if len(s.Methods) > 0 {
			l.traced("struct:"+s.Name, parent, func() { l.lowerStructMethods(s) })
		}
	case *ast.ImplDecl:
		l.traced("impl:"+s.Trait+" for "+s.TypeName, parent, func() { l.lowerImpl(s) })
	case *ast.ApiDecl:
		l.traced("api:"+s.Method.String()+" "+s.Path, parent, func() { l.lowerAPI(s) })
	case *ast.WsDecl:
		l.traced("ws:"+s.Path, parent, func() { l.lowerWebSocket(s) })
	case *ast.MiddlewareDecl:
		l.traced("middleware:"+s.Name, parent, func() { l.lowerMiddleware(s) })
	case *ast.LetStmt:
		l.lowerGlobal(s)
	}
}

func (l *lowerer) traced(name string, parent uint64, fn func()) {
	span := trace.Begin(l.tracer, trace.ScopeModule, name, parent)
	fn()
	span.End("")
}

// body lowers stmts into f and closes the last block.
func (l *lowerer) body(f *ir.Func, stmts []ast.Stmt) {
	fl := newFuncLowerer(l, f)
	fl.spillAssignedParams(stmts)
	fl.block(stmts)
	f.Finish()
	l.mod.AddFunc(f)
}

func (l *lowerer) lowerFn(s *ast.FnDecl) {
	f := ir.NewFunc(s.Name, l.retType(s.Ret), s.Async)
	f.Generics = generics(s.Generics)
	for _, p := range s.Params {
		f.AddParam(p.Name, l.irType(p.Type))
	}
	l.body(f, s.Body)
}

func (l *lowerer) selfType(structName string, r ast.Receiver) ir.Type {
	if r == ast.RecvValue {
		return ir.Struct(structName)
	}
	return ir.Ptr(ir.Struct(structName))
}

func (l *lowerer) lowerStructMethods(s *ast.StructDecl) {
	for _, m := range s.Methods {
		f := ir.NewFunc(methodName(s.Name, m.Name), l.retType(m.Ret), m.Async)
		f.Generics = generics(s.Generics)
		f.AddParam("self", l.selfType(s.Name, m.Receiver))
		for _, p := range m.Params {
			f.AddParam(p.Name, l.irType(p.Type))
		}
		l.body(f, m.Body)
	}
}

func (l *lowerer) lowerImpl(s *ast.ImplDecl) {
	impl := ir.ImplDef{Trait: s.Trait, Type: s.TypeName, Generics: generics(s.Generics)}
	for _, m := range s.Methods {
		name := implMethodName(s.TypeName, s.Trait, m.Name)
		impl.Methods = append(impl.Methods, name)

		f := ir.NewFunc(name, l.retType(m.Ret), m.Async)
		f.Generics = generics(s.Generics)
		f.AddParam("self", l.selfType(s.TypeName, m.Receiver))
		for _, p := range m.Params {
			f.AddParam(p.Name, l.irType(p.Type))
		}
		l.body(f, m.Body)
	}
	l.mod.AddImpl(impl)
}

// safePath turns a route path into an identifier fragment:
// /users/{id:int} becomes users_id_int.
func safePath(path string) string {
	r := strings.NewReplacer("{", "", "}", "", ":", "_", "-", "_", ".", "_")
	parts := strings.FieldsFunc(r.Replace(path), func(c rune) bool { return c == '/' })
	return strings.Join(parts, "_")
}

// handlerName builds a unique function name for an HTTP endpoint.
func (l *lowerer) handlerName(method ast.HttpMethod, path string) string {
	name := fmt.Sprintf("__http_%s_%s_%d", l.lower.String(method.String()), safePath(path), l.handlers)
	l.handlers++
	return name
}

func (l *lowerer) pathParams(f *ir.Func, path string) {
	for _, p := range sema.PathParams(path) {
		f.AddParam(p.Name, ir.FromType(p.Type))
	}
}

func (l *lowerer) lowerAPI(s *ast.ApiDecl) {
	name := l.handlerName(s.Method, s.Path)
	f := ir.NewFunc(name, l.retType(s.Ret), s.Async)
	f.AddParam("request", ir.Struct("Request"))
	l.pathParams(f, s.Path)
	if s.BodyType != nil {
		f.AddParam("body", l.irType(s.BodyType))
	}
	l.body(f, s.Body)

	l.mod.Routes = append(l.mod.Routes, ir.Route{
		Method:      s.Method.String(),
		Path:        s.Path,
		Handler:     name,
		Middlewares: s.Middlewares,
		Async:       s.Async,
	})
}

func (l *lowerer) lowerWebSocket(s *ast.WsDecl) {
	route := ir.WsRoute{Path: s.Path, Middlewares: s.Middlewares}
	handler := func(event string, body []ast.Stmt, message bool) string {
		if body == nil {
			return ""
		}
		name := "__ws_" + event + "_" + safePath(s.Path)
		f := ir.NewFunc(name, ir.Void, true)
		f.AddParam("conn", ir.Struct("WsConnection"))
		if message {
			f.AddParam("message", ir.String)
		}
		l.pathParams(f, s.Path)
		l.body(f, body)
		return name
	}
	route.OnConnect = handler("connect", s.OnConnect, false)
	route.OnMessage = handler("message", s.OnMessage, true)
	route.OnDisconnect = handler("disconnect", s.OnDisconnect, false)
	l.mod.WsRoutes = append(l.mod.WsRoutes, route)
}

func (l *lowerer) lowerMiddleware(s *ast.MiddlewareDecl) {
	f := ir.NewFunc("__middleware_"+s.Name, ir.Struct("MiddlewareResult"), false)
	f.AddParam("request", ir.Struct("Request"))
	l.body(f, s.Body)
}

// lowerGlobal records a top-level binding. Only literal initializers are
// kept; anything else is left for codegen to initialize at startup.
func (l *lowerer) lowerGlobal(s *ast.LetStmt) {
	g := ir.Global{Name: s.Name, Const: !s.Mutable}
	var init *ir.Value
	switch v := s.Value.(type) {
	case *ast.IntLit:
		val := ir.ConstInt(v.Value)
		init = &val
	case *ast.FloatLit:
		val := ir.ConstFloat(v.Value)
		init = &val
	case *ast.BoolLit:
		val := ir.ConstBool(v.Value)
		init = &val
	case *ast.StringLit:
		val := ir.ConstString(l.mod.AddString(v.Value))
		init = &val
	}
	g.Init = init
	switch {
	case s.Type != nil:
		g.Type = l.irType(s.Type)
	default:
		g.Type = l.inferType(s.Value)
	}
	l.mod.Globals = append(l.mod.Globals, g)
}

// inferType picks an IR type for an unannotated binding: the checker's
// type if known, otherwise the shape of a literal, otherwise i64.
func (l *lowerer) inferType(e ast.Expr) ir.Type {
	if t, ok := l.typeOf(e); ok {
		return l.resolve(ir.FromType(t))
	}
	switch v := e.(type) {
	case *ast.IntLit:
		return ir.I64
	case *ast.FloatLit:
		return ir.F64
	case *ast.BoolLit:
		return ir.Bool
	case *ast.StringLit, *ast.InterpExpr:
		return ir.String
	case *ast.ArrayLit:
		elem := ir.I64
		if len(v.Elems) > 0 {
			elem = l.inferType(v.Elems[0])
		}
		return ir.Ptr(elem)
	case *ast.StructLit:
		return ir.Struct(v.Name)
	case *ast.ClosureExpr:
		params := make([]ir.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = ir.I64
			if p.Type != nil {
				params[i] = l.irType(p.Type)
			}
		}
		ret := ir.I64
		if v.Ret != nil {
			ret = l.irType(v.Ret)
		}
		return ir.FuncType(params, ret)
	case *ast.BorrowExpr:
		return ir.Ptr(l.inferType(v.X))
	case *ast.RangeExpr:
		return ir.Range(ir.I64)
	}
	return ir.I64
}
