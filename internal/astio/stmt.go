package astio

import (
	"fmt"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"mendes/internal/ast"
)

func (d *decoder) stmts(n *yaml.Node) []ast.Stmt {
	items := d.seq(n)
	out := make([]ast.Stmt, 0, len(items))
	for _, it := range items {
		if s := d.stmt(it); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// block decodes an optional statement list, keeping nil for "absent".
func (d *decoder) block(o *object, key string) []ast.Stmt {
	n := o.get(key)
	if n == nil {
		return nil
	}
	body := d.stmts(n)
	if body == nil {
		body = []ast.Stmt{}
	}
	return body
}

func (d *decoder) stmt(n *yaml.Node) ast.Stmt {
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return &ast.BreakStmt{}
		case "continue":
			return &ast.ContinueStmt{}
		}
		return &ast.ExprStmt{X: d.expr(n)}
	}
	o, ok := d.object(n)
	if !ok {
		return nil
	}
	if o.kind == "" {
		d.errorf(n, "statement without kind")
		return nil
	}
	decode, isStmt := stmtDecoders[o.kind]
	if !isStmt {
		// any expression may stand as a statement
		if _, isExpr := exprDecoders[o.kind]; isExpr {
			return &ast.ExprStmt{X: d.expr(n)}
		}
		d.errorf(n, "unknown statement kind %q", o.kind)
		return nil
	}
	s := decode(d, o)
	d.finish(o)
	return s
}

var stmtDecoders map[string]func(*decoder, *object) ast.Stmt

func init() {
	stmtDecoders = map[string]func(*decoder, *object) ast.Stmt{
		"import":      (*decoder).importStmt,
		"from_import": (*decoder).fromImport,
		"let":         (*decoder).let,
		"fn":          (*decoder).fnDecl,
		"struct":      (*decoder).structDecl,
		"enum":        (*decoder).enumDecl,
		"trait":       (*decoder).traitDecl,
		"impl":        (*decoder).implDecl,
		"type_alias":  (*decoder).typeAlias,
		"api":         (*decoder).apiDecl,
		"ws":          (*decoder).wsDecl,
		"server":      (*decoder).serverDecl,
		"middleware":  (*decoder).middlewareDecl,
		"db":          (*decoder).dbDecl,
		"if":          (*decoder).ifStmt,
		"for":         (*decoder).forStmt,
		"while":       (*decoder).whileStmt,
		"return":      (*decoder).returnStmt,
		"break":       func(d *decoder, o *object) ast.Stmt { return &ast.BreakStmt{Loc: d.span(o)} },
		"continue":    func(d *decoder, o *object) ast.Stmt { return &ast.ContinueStmt{Loc: d.span(o)} },
		"expr": func(d *decoder, o *object) ast.Stmt {
			return &ast.ExprStmt{X: d.exprField(o, "expr")}
		},
	}
}

func (d *decoder) importStmt(o *object) ast.Stmt {
	return &ast.ImportStmt{Path: d.required(o, "path"), Alias: d.str(o, "alias"), Loc: d.span(o)}
}

func (d *decoder) fromImport(o *object) ast.Stmt {
	s := &ast.FromImportStmt{Module: d.required(o, "module"), All: d.boolean(o, "all"), Loc: d.span(o)}
	for _, it := range d.seq(o.get("items")) {
		io, ok := d.object(it)
		if !ok {
			continue
		}
		s.Items = append(s.Items, ast.ImportItem{Name: d.name(io, "name"), Alias: d.str(io, "alias"), Loc: d.span(io)})
		d.finish(io)
	}
	return s
}

func (d *decoder) let(o *object) ast.Stmt {
	return &ast.LetStmt{
		Name:    d.required(o, "name"),
		Type:    d.typ(o.get("type")),
		Value:   d.exprField(o, "value"),
		Mutable: d.boolean(o, "mut"),
		Loc:     d.span(o),
	}
}

func (d *decoder) generics(o *object) []ast.GenericParam {
	var out []ast.GenericParam
	for _, it := range d.seq(o.get("generics")) {
		if it.Kind == yaml.ScalarNode {
			out = append(out, ast.GenericParam{Name: ident(it.Value)})
			continue
		}
		g, ok := d.object(it)
		if !ok {
			continue
		}
		out = append(out, ast.GenericParam{Name: d.name(g, "name"), Bounds: d.strings(g, "bounds"), Loc: d.span(g)})
		d.finish(g)
	}
	return out
}

func (d *decoder) params(o *object) []ast.Param {
	var out []ast.Param
	for _, it := range d.seq(o.get("params")) {
		p, ok := d.object(it)
		if !ok {
			continue
		}
		out = append(out, ast.Param{Name: d.name(p, "name"), Type: d.typ(p.get("type")), Loc: d.span(p)})
		d.finish(p)
	}
	return out
}

func (d *decoder) fields(o *object) []ast.Field {
	var out []ast.Field
	for _, it := range d.seq(o.get("fields")) {
		f, ok := d.object(it)
		if !ok {
			continue
		}
		out = append(out, ast.Field{Name: d.name(f, "name"), Type: d.typ(f.get("type")), Loc: d.span(f)})
		d.finish(f)
	}
	return out
}

func (d *decoder) fnDecl(o *object) ast.Stmt {
	return &ast.FnDecl{
		Name:     d.required(o, "name"),
		Generics: d.generics(o),
		Params:   d.params(o),
		Ret:      d.typ(o.get("ret")),
		Async:    d.boolean(o, "async"),
		Pub:      d.boolean(o, "pub"),
		Body:     d.block(o, "body"),
		Loc:      d.span(o),
	}
}

func (d *decoder) receiver(o *object) ast.Receiver {
	switch r := d.str(o, "receiver"); r {
	case "", "&self":
		return ast.RecvRef
	case "&mut self":
		return ast.RecvMutRef
	case "self":
		return ast.RecvValue
	default:
		d.errorf(o.fields["receiver"], "unknown receiver %q", r)
		return ast.RecvRef
	}
}

func (d *decoder) methods(o *object) []*ast.MethodDecl {
	var out []*ast.MethodDecl
	for _, it := range d.seq(o.get("methods")) {
		m, ok := d.object(it)
		if !ok {
			continue
		}
		out = append(out, &ast.MethodDecl{
			Name:     d.required(m, "name"),
			Params:   d.params(m),
			Ret:      d.typ(m.get("ret")),
			Async:    d.boolean(m, "async"),
			Pub:      d.boolean(m, "pub"),
			Receiver: d.receiver(m),
			Body:     d.block(m, "body"),
			Loc:      d.span(m),
		})
		d.finish(m)
	}
	return out
}

func (d *decoder) structDecl(o *object) ast.Stmt {
	return &ast.StructDecl{
		Name:     d.required(o, "name"),
		Generics: d.generics(o),
		Fields:   d.fields(o),
		Methods:  d.methods(o),
		IsCopy:   d.boolean(o, "copy"),
		Loc:      d.span(o),
	}
}

func (d *decoder) enumDecl(o *object) ast.Stmt {
	s := &ast.EnumDecl{Name: d.name(o, "name"), Loc: d.span(o)}
	for _, it := range d.seq(o.get("variants")) {
		if it.Kind == yaml.ScalarNode {
			s.Variants = append(s.Variants, ast.Variant{Name: ident(it.Value), Kind: ast.VariantUnit})
			continue
		}
		v, ok := d.object(it)
		if !ok {
			continue
		}
		variant := ast.Variant{Name: d.name(v, "name"), Loc: d.span(v)}
		switch {
		case v.has("types") && v.has("fields"):
			d.errorf(it, "variant %s has both types and fields", variant.Name)
		case v.has("types"):
			variant.Kind = ast.VariantTuple
			variant.Types = d.types(v.get("types"))
		case v.has("fields"):
			variant.Kind = ast.VariantStruct
			variant.Fields = d.fields(v)
		}
		s.Variants = append(s.Variants, variant)
		d.finish(v)
	}
	return s
}

func (d *decoder) traitDecl(o *object) ast.Stmt {
	s := &ast.TraitDecl{Name: d.name(o, "name"), Generics: d.generics(o), Loc: d.span(o)}
	for _, it := range d.seq(o.get("methods")) {
		m, ok := d.object(it)
		if !ok {
			continue
		}
		s.Methods = append(s.Methods, ast.TraitMethod{
			Name:     d.required(m, "name"),
			Params:   d.params(m),
			Ret:      d.typ(m.get("ret")),
			Async:    d.boolean(m, "async"),
			Receiver: d.receiver(m),
			Loc:      d.span(m),
		})
		d.finish(m)
	}
	return s
}

func (d *decoder) implDecl(o *object) ast.Stmt {
	return &ast.ImplDecl{
		Trait:    d.required(o, "trait"),
		TypeName: d.name(o, "type"),
		Generics: d.generics(o),
		Methods:  d.methods(o),
		Loc:      d.span(o),
	}
}

func (d *decoder) typeAlias(o *object) ast.Stmt {
	return &ast.TypeAliasDecl{Name: d.name(o, "name"), Type: d.typ(o.get("type")), Loc: d.span(o)}
}

var httpMethods = map[string]ast.HttpMethod{
	"GET":    ast.MethodGet,
	"POST":   ast.MethodPost,
	"PUT":    ast.MethodPut,
	"DELETE": ast.MethodDelete,
	"PATCH":  ast.MethodPatch,
}

func (d *decoder) apiDecl(o *object) ast.Stmt {
	name := d.required(o, "method")
	method, ok := httpMethods[name]
	if !ok && name != "" {
		d.errorf(o.fields["method"], "unknown HTTP method %q", name)
	}
	return &ast.ApiDecl{
		Method:      method,
		Path:        d.required(o, "path"),
		Async:       d.boolean(o, "async"),
		Middlewares: d.strings(o, "middlewares"),
		BodyType:    d.typ(o.get("body_type")),
		Ret:         d.typ(o.get("ret")),
		Body:        d.block(o, "body"),
		Loc:         d.span(o),
	}
}

func (d *decoder) wsDecl(o *object) ast.Stmt {
	return &ast.WsDecl{
		Path:         d.required(o, "path"),
		Middlewares:  d.strings(o, "middlewares"),
		OnConnect:    d.block(o, "on_connect"),
		OnMessage:    d.block(o, "on_message"),
		OnDisconnect: d.block(o, "on_disconnect"),
		Loc:          d.span(o),
	}
}

func (d *decoder) serverDecl(o *object) ast.Stmt {
	s := &ast.ServerDecl{Host: d.required(o, "host"), Loc: d.span(o)}
	if n := o.get("port"); n != nil {
		var port int64
		if d.scalar(n, &port) {
			p, err := safecast.Conv[uint16](port)
			if err != nil {
				d.errorf(n, "port %d out of range", port)
			}
			s.Port = p
		}
	}
	return s
}

func (d *decoder) middlewareDecl(o *object) ast.Stmt {
	return &ast.MiddlewareDecl{Name: d.name(o, "name"), Body: d.block(o, "body"), Loc: d.span(o)}
}

var dbKinds = map[string]ast.DbType{
	"postgres": ast.DbPostgres,
	"mysql":    ast.DbMysql,
	"sqlite":   ast.DbSqlite,
}

func (d *decoder) dbDecl(o *object) ast.Stmt {
	name := d.required(o, "db")
	kind, ok := dbKinds[name]
	if !ok && name != "" {
		d.errorf(o.fields["db"], "unknown database %q", name)
	}
	return &ast.DbDecl{
		Kind:     kind,
		Name:     d.required(o, "name"),
		URL:      d.str(o, "url"),
		PoolSize: d.uint32(o, "pool_size"),
		Loc:      d.span(o),
	}
}

func (d *decoder) ifStmt(o *object) ast.Stmt {
	return &ast.IfStmt{
		Cond: d.exprField(o, "cond"),
		Then: d.block(o, "then"),
		Else: d.block(o, "else"),
		Loc:  d.span(o),
	}
}

func (d *decoder) forStmt(o *object) ast.Stmt {
	return &ast.ForStmt{
		Var:  d.required(o, "var"),
		Iter: d.exprField(o, "iter"),
		Body: d.block(o, "body"),
		Loc:  d.span(o),
	}
}

func (d *decoder) whileStmt(o *object) ast.Stmt {
	return &ast.WhileStmt{Cond: d.exprField(o, "cond"), Body: d.block(o, "body"), Loc: d.span(o)}
}

func (d *decoder) returnStmt(o *object) ast.Stmt {
	s := &ast.ReturnStmt{Loc: d.span(o)}
	if n := o.get("value"); n != nil {
		s.Value = d.expr(n)
	}
	return s
}

// exprField decodes a required expression-valued key.
func (d *decoder) exprField(o *object, key string) ast.Expr {
	n := o.get(key)
	if n == nil {
		d.errorf(o.node, "%s: missing %q", o.kind, key)
		return &ast.Ident{Name: fmt.Sprintf("<missing %s>", key), Loc: d.span(o)}
	}
	return d.expr(n)
}

// optExpr decodes key when present and leaves nil otherwise.
func (d *decoder) optExpr(o *object, key string) ast.Expr {
	if n := o.get(key); n != nil {
		return d.expr(n)
	}
	return nil
}
