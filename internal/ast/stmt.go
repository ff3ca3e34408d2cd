package ast

import "mendes/internal/source"

type (
	// ImportStmt is `import "path"` or `import module as alias`.
	ImportStmt struct {
		Path  string
		Alias string
		Loc   source.Span
	}

	ImportItem struct {
		Name  string
		Alias string
		Loc   source.Span
	}

	// FromImportStmt is `from module import a, b` or `from module import *`.
	FromImportStmt struct {
		Module string
		All    bool
		Items  []ImportItem
		Loc    source.Span
	}

	// LetStmt binds Name; Type is nil when the annotation is omitted.
	LetStmt struct {
		Name    string
		Type    Type
		Value   Expr
		Mutable bool
		Loc     source.Span
	}

	FnDecl struct {
		Name     string
		Generics []GenericParam
		Params   []Param
		Ret      Type
		Async    bool
		Pub      bool
		Body     []Stmt
		Loc      source.Span
	}

	MethodDecl struct {
		Name     string
		Params   []Param
		Ret      Type
		Async    bool
		Pub      bool
		Receiver Receiver
		Body     []Stmt
		Loc      source.Span
	}

	StructDecl struct {
		Name     string
		Generics []GenericParam
		Fields   []Field
		Methods  []*MethodDecl
		IsCopy   bool
		Loc      source.Span
	}

	EnumDecl struct {
		Name     string
		Variants []Variant
		Loc      source.Span
	}

	TraitMethod struct {
		Name     string
		Params   []Param
		Ret      Type
		Async    bool
		Receiver Receiver
		Loc      source.Span
	}

	TraitDecl struct {
		Name     string
		Generics []GenericParam
		Methods  []TraitMethod
		Loc      source.Span
	}

	// ImplDecl is `impl Trait for Type:`.
	ImplDecl struct {
		Trait    string
		TypeName string
		Generics []GenericParam
		Methods  []*MethodDecl
		Loc      source.Span
	}

	TypeAliasDecl struct {
		Name string
		Type Type
		Loc  source.Span
	}

	// ApiDecl is an HTTP endpoint; Path may contain `{name:type}` segments.
	ApiDecl struct {
		Method      HttpMethod
		Path        string
		Async       bool
		Middlewares []string
		BodyType    Type
		Ret         Type
		Body        []Stmt
		Loc         source.Span
	}

	// WsDecl is a websocket endpoint. A nil handler slice means the handler is absent.
	WsDecl struct {
		Path         string
		Middlewares  []string
		OnConnect    []Stmt
		OnMessage    []Stmt
		OnDisconnect []Stmt
		Loc          source.Span
	}

	ServerDecl struct {
		Host string
		Port uint16
		Loc  source.Span
	}

	MiddlewareDecl struct {
		Name string
		Body []Stmt
		Loc  source.Span
	}

	DbDecl struct {
		Kind     DbType
		Name     string
		URL      string
		PoolSize uint32
		Loc      source.Span
	}

	// IfStmt; Else is nil when there is no else branch.
	IfStmt struct {
		Cond Expr
		Then []Stmt
		Else []Stmt
		Loc  source.Span
	}

	ForStmt struct {
		Var  string
		Iter Expr
		Body []Stmt
		Loc  source.Span
	}

	WhileStmt struct {
		Cond Expr
		Body []Stmt
		Loc  source.Span
	}

	ReturnStmt struct {
		Value Expr
		Loc   source.Span
	}

	BreakStmt struct {
		Loc source.Span
	}

	ContinueStmt struct {
		Loc source.Span
	}

	ExprStmt struct {
		X Expr
	}
)

// VariantKind tells which payload shape an enum variant (or variant pattern) has.
type VariantKind uint8

const (
	VariantUnit VariantKind = iota
	VariantTuple
	VariantStruct
)

// Variant is one enum alternative; Types is set for tuple variants, Fields for struct variants.
type Variant struct {
	Name   string
	Kind   VariantKind
	Types  []Type
	Fields []Field
	Loc    source.Span
}

// PayloadTypes lists the variant's data types in declaration order.
func (v *Variant) PayloadTypes() []Type {
	switch v.Kind {
	case VariantTuple:
		return v.Types
	case VariantStruct:
		out := make([]Type, 0, len(v.Fields))
		for _, f := range v.Fields {
			out = append(out, f.Type)
		}
		return out
	}
	return nil
}

func (s *ImportStmt) Span() source.Span     { return s.Loc }
func (s *FromImportStmt) Span() source.Span { return s.Loc }
func (s *LetStmt) Span() source.Span        { return s.Loc }
func (s *FnDecl) Span() source.Span         { return s.Loc }
func (s *StructDecl) Span() source.Span     { return s.Loc }
func (s *EnumDecl) Span() source.Span       { return s.Loc }
func (s *TraitDecl) Span() source.Span      { return s.Loc }
func (s *ImplDecl) Span() source.Span       { return s.Loc }
func (s *TypeAliasDecl) Span() source.Span  { return s.Loc }
func (s *ApiDecl) Span() source.Span        { return s.Loc }
func (s *WsDecl) Span() source.Span         { return s.Loc }
func (s *ServerDecl) Span() source.Span     { return s.Loc }
func (s *MiddlewareDecl) Span() source.Span { return s.Loc }
func (s *DbDecl) Span() source.Span         { return s.Loc }
func (s *IfStmt) Span() source.Span         { return s.Loc }
func (s *ForStmt) Span() source.Span        { return s.Loc }
func (s *WhileStmt) Span() source.Span      { return s.Loc }
func (s *ReturnStmt) Span() source.Span     { return s.Loc }
func (s *BreakStmt) Span() source.Span      { return s.Loc }
func (s *ContinueStmt) Span() source.Span   { return s.Loc }
func (s *ExprStmt) Span() source.Span {
	if s.X == nil {
		return source.NoSpan
	}
	return s.X.Span()
}

func (*ImportStmt) stmtNode()     {}
func (*FromImportStmt) stmtNode() {}
func (*LetStmt) stmtNode()        {}
func (*FnDecl) stmtNode()         {}
func (*StructDecl) stmtNode()     {}
func (*EnumDecl) stmtNode()       {}
func (*TraitDecl) stmtNode()      {}
func (*ImplDecl) stmtNode()       {}
func (*TypeAliasDecl) stmtNode()  {}
func (*ApiDecl) stmtNode()        {}
func (*WsDecl) stmtNode()         {}
func (*ServerDecl) stmtNode()     {}
func (*MiddlewareDecl) stmtNode() {}
func (*DbDecl) stmtNode()         {}
func (*IfStmt) stmtNode()         {}
func (*ForStmt) stmtNode()        {}
func (*WhileStmt) stmtNode()      {}
func (*ReturnStmt) stmtNode()     {}
func (*BreakStmt) stmtNode()      {}
func (*ContinueStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()       {}
