package ast

import "mendes/internal/source"

type (
	IntLit struct {
		Value int64
		Loc   source.Span
	}

	FloatLit struct {
		Value float64
		Loc   source.Span
	}

	StringLit struct {
		Value string
		Loc   source.Span
	}

	BoolLit struct {
		Value bool
		Loc   source.Span
	}

	NoneLit struct {
		Loc source.Span
	}

	Ident struct {
		Name string
		Loc  source.Span
	}

	BinaryExpr struct {
		Left  Expr
		Op    BinOp
		Right Expr
		Loc   source.Span
	}

	UnaryExpr struct {
		Op  UnaryOp
		X   Expr
		Loc source.Span
	}

	CallExpr struct {
		Fn   Expr
		Args []Expr
		Loc  source.Span
	}

	// MethodCallExpr is `recv.method(args)`.
	MethodCallExpr struct {
		Recv   Expr
		Method string
		Args   []Expr
		Loc    source.Span
	}

	FieldExpr struct {
		X     Expr
		Field string
		Loc   source.Span
	}

	IndexExpr struct {
		X     Expr
		Index Expr
		Loc   source.Span
	}

	AwaitExpr struct {
		X   Expr
		Loc source.Span
	}

	// BorrowExpr is `&x` or `&mut x`.
	BorrowExpr struct {
		X   Expr
		Mut bool
		Loc source.Span
	}

	OkExpr struct {
		X   Expr
		Loc source.Span
	}

	ErrExpr struct {
		X   Expr
		Loc source.Span
	}

	SomeExpr struct {
		X   Expr
		Loc source.Span
	}

	FieldInit struct {
		Name  string
		Value Expr
	}

	// StructLit is `User { name: "Ana", age: 30 }`.
	StructLit struct {
		Name   string
		Fields []FieldInit
		Loc    source.Span
	}

	ArrayLit struct {
		Elems []Expr
		Loc   source.Span
	}

	MatchArm struct {
		Pattern Pattern
		Guard   Expr
		Body    []Stmt
		Loc     source.Span
	}

	MatchExpr struct {
		Scrutinee Expr
		Arms      []MatchArm
		Loc       source.Span
	}

	// TryExpr is the postfix `?` operator.
	TryExpr struct {
		X   Expr
		Loc source.Span
	}

	ClosureParam struct {
		Name string
		Type Type
		Loc  source.Span
	}

	// ClosureExpr has either an expression body (Body) or a statement block (Block).
	ClosureExpr struct {
		Params []ClosureParam
		Ret    Type
		Body   Expr
		Block  []Stmt
		Loc    source.Span
	}

	// InterpPart is a literal chunk when X is nil, otherwise an embedded expression.
	InterpPart struct {
		Lit string
		X   Expr
	}

	// InterpExpr is f"hello {name}".
	InterpExpr struct {
		Parts []InterpPart
		Loc   source.Span
	}

	TupleExpr struct {
		Elems []Expr
		Loc   source.Span
	}

	RangeExpr struct {
		Start     Expr
		End       Expr
		Inclusive bool
		Loc       source.Span
	}
)

// HasBlockBody reports whether the closure body is a statement block.
func (c *ClosureExpr) HasBlockBody() bool {
	return c.Body == nil
}

func (e *IntLit) Span() source.Span         { return e.Loc }
func (e *FloatLit) Span() source.Span       { return e.Loc }
func (e *StringLit) Span() source.Span      { return e.Loc }
func (e *BoolLit) Span() source.Span        { return e.Loc }
func (e *NoneLit) Span() source.Span        { return e.Loc }
func (e *Ident) Span() source.Span          { return e.Loc }
func (e *BinaryExpr) Span() source.Span     { return e.Loc }
func (e *UnaryExpr) Span() source.Span      { return e.Loc }
func (e *CallExpr) Span() source.Span       { return e.Loc }
func (e *MethodCallExpr) Span() source.Span { return e.Loc }
func (e *FieldExpr) Span() source.Span      { return e.Loc }
func (e *IndexExpr) Span() source.Span      { return e.Loc }
func (e *AwaitExpr) Span() source.Span      { return e.Loc }
func (e *BorrowExpr) Span() source.Span     { return e.Loc }
func (e *OkExpr) Span() source.Span         { return e.Loc }
func (e *ErrExpr) Span() source.Span        { return e.Loc }
func (e *SomeExpr) Span() source.Span       { return e.Loc }
func (e *StructLit) Span() source.Span      { return e.Loc }
func (e *ArrayLit) Span() source.Span       { return e.Loc }
func (e *MatchExpr) Span() source.Span      { return e.Loc }
func (e *TryExpr) Span() source.Span        { return e.Loc }
func (e *ClosureExpr) Span() source.Span    { return e.Loc }
func (e *InterpExpr) Span() source.Span     { return e.Loc }
func (e *TupleExpr) Span() source.Span      { return e.Loc }
func (e *RangeExpr) Span() source.Span      { return e.Loc }

func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*StringLit) exprNode()      {}
func (*BoolLit) exprNode()        {}
func (*NoneLit) exprNode()        {}
func (*Ident) exprNode()          {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*FieldExpr) exprNode()      {}
func (*IndexExpr) exprNode()      {}
func (*AwaitExpr) exprNode()      {}
func (*BorrowExpr) exprNode()     {}
func (*OkExpr) exprNode()         {}
func (*ErrExpr) exprNode()        {}
func (*SomeExpr) exprNode()       {}
func (*StructLit) exprNode()      {}
func (*ArrayLit) exprNode()       {}
func (*MatchExpr) exprNode()      {}
func (*TryExpr) exprNode()        {}
func (*ClosureExpr) exprNode()    {}
func (*InterpExpr) exprNode()     {}
func (*TupleExpr) exprNode()      {}
func (*RangeExpr) exprNode()      {}
