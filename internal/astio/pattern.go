package astio

import (
	"gopkg.in/yaml.v3"

	"mendes/internal/ast"
	"mendes/internal/source"
)

// pattern decodes a match pattern. Scalars are shorthands: `_` is the
// wildcard, other plain strings bind a variable, numbers and booleans are
// literals and null matches None.
func (d *decoder) pattern(n *yaml.Node) ast.Pattern {
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode {
		if n.ShortTag() == "!!str" {
			if n.Value == "_" {
				return &ast.WildcardPat{Loc: source.Span{File: d.file}}
			}
			return &ast.IdentPat{Name: ident(n.Value), Loc: source.Span{File: d.file}}
		}
		return &ast.LiteralPat{Value: d.scalarExpr(n)}
	}
	o, ok := d.object(n)
	if !ok {
		return &ast.WildcardPat{}
	}
	var p ast.Pattern
	switch o.kind {
	case "wildcard":
		p = &ast.WildcardPat{Loc: d.span(o)}
	case "ident":
		p = &ast.IdentPat{Name: d.name(o, "name"), Mutable: d.boolean(o, "mut"), Loc: d.span(o)}
	case "literal":
		p = &ast.LiteralPat{Value: d.exprField(o, "value")}
	case "tuple":
		p = &ast.TuplePat{Elems: d.patterns(o.get("elems")), Loc: d.span(o)}
	case "struct":
		p = &ast.StructPat{Name: d.name(o, "name"), Fields: d.fieldPats(o.get("fields")), Loc: d.span(o)}
	case "variant":
		p = d.variantPat(o)
	case "or":
		p = &ast.OrPat{Alts: d.patterns(o.get("alts")), Loc: d.span(o)}
	case "range":
		p = &ast.RangePat{
			Start:     d.optExpr(o, "start"),
			End:       d.optExpr(o, "end"),
			Inclusive: d.boolean(o, "inclusive"),
			Loc:       d.span(o),
		}
	default:
		d.errorf(n, "unknown pattern kind %q", o.kind)
		return &ast.WildcardPat{Loc: d.span(o)}
	}
	d.finish(o)
	return p
}

func (d *decoder) patterns(n *yaml.Node) []ast.Pattern {
	items := d.seq(n)
	out := make([]ast.Pattern, 0, len(items))
	for _, it := range items {
		out = append(out, d.pattern(it))
	}
	return out
}

// fieldPats reads a mapping of field name to pattern; a null value is the
// shorthand that binds the field under its own name.
func (d *decoder) fieldPats(n *yaml.Node) []ast.FieldPat {
	if n == nil {
		return nil
	}
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "pattern fields must be a mapping")
		return nil
	}
	out := make([]ast.FieldPat, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		fp := ast.FieldPat{Name: ident(n.Content[i].Value)}
		if v := n.Content[i+1]; v.ShortTag() != "!!null" {
			fp.Pat = d.pattern(v)
		}
		out = append(out, fp)
	}
	return out
}

func (d *decoder) variantPat(o *object) ast.Pattern {
	p := &ast.VariantPat{Enum: d.str(o, "enum"), Variant: d.required(o, "variant"), Loc: d.span(o)}
	switch {
	case o.has("elems") && o.has("fields"):
		d.errorf(o.node, "variant pattern has both elems and fields")
	case o.has("elems"):
		p.Kind = ast.VariantTuple
		p.Elems = d.patterns(o.get("elems"))
	case o.has("fields"):
		p.Kind = ast.VariantStruct
		p.Fields = d.fieldPats(o.get("fields"))
	}
	return p
}
