package ast

import "mendes/internal/source"

type (
	WildcardPat struct {
		Loc source.Span
	}

	// LiteralPat matches a literal expression (int, float, string, bool, None).
	LiteralPat struct {
		Value Expr
	}

	IdentPat struct {
		Name    string
		Mutable bool
		Loc     source.Span
	}

	TuplePat struct {
		Elems []Pattern
		Loc   source.Span
	}

	// FieldPat is `name` (shorthand, Pat == nil) or `name: pattern`.
	FieldPat struct {
		Name string
		Pat  Pattern
	}

	StructPat struct {
		Name   string
		Fields []FieldPat
		Loc    source.Span
	}

	// VariantPat is `Some(x)`, `Color::Red` or `Msg::Move { x, y }`.
	// Enum is empty for unqualified variants.
	VariantPat struct {
		Enum    string
		Variant string
		Kind    VariantKind
		Elems   []Pattern
		Fields  []FieldPat
		Loc     source.Span
	}

	OrPat struct {
		Alts []Pattern
		Loc  source.Span
	}

	RangePat struct {
		Start     Expr
		End       Expr
		Inclusive bool
		Loc       source.Span
	}
)

func (p *WildcardPat) Span() source.Span { return p.Loc }
func (p *LiteralPat) Span() source.Span {
	if p.Value == nil {
		return source.NoSpan
	}
	return p.Value.Span()
}
func (p *IdentPat) Span() source.Span   { return p.Loc }
func (p *TuplePat) Span() source.Span   { return p.Loc }
func (p *StructPat) Span() source.Span  { return p.Loc }
func (p *VariantPat) Span() source.Span { return p.Loc }
func (p *OrPat) Span() source.Span      { return p.Loc }
func (p *RangePat) Span() source.Span   { return p.Loc }

func (*WildcardPat) patternNode() {}
func (*LiteralPat) patternNode()  {}
func (*IdentPat) patternNode()    {}
func (*TuplePat) patternNode()    {}
func (*StructPat) patternNode()   {}
func (*VariantPat) patternNode()  {}
func (*OrPat) patternNode()       {}
func (*RangePat) patternNode()    {}
