package astio

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"mendes/internal/ast"
)

// typ decodes a type annotation. Nil and missing nodes mean "no annotation".
func (d *decoder) typ(n *yaml.Node) ast.Type {
	if n == nil {
		return nil
	}
	n = resolveAlias(n)
	if n.Kind != yaml.ScalarNode {
		d.errorf(n, "expected a type, found %s", describe(n))
		return nil
	}
	if n.ShortTag() == "!!null" {
		return nil
	}
	t, err := ParseType(n.Value)
	if err != nil {
		d.errorf(n, "%v", err)
		return nil
	}
	return t
}

func (d *decoder) types(n *yaml.Node) []ast.Type {
	items := d.seq(n)
	out := make([]ast.Type, 0, len(items))
	for _, it := range items {
		if t := d.typ(it); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// ParseType reads a type in surface syntax: `int`, `User`, `[T]`, `&T`,
// `&mut T`, `(A, B)`, `fn(A, B) -> R` and `Name<A, B>`.
func ParseType(s string) (ast.Type, error) {
	p := &typeParser{src: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.skipSpace(); p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) eat(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.eat(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func (p *typeParser) name() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parse() (ast.Type, error) {
	switch {
	case p.eat("&"):
		mut := p.eat("mut ")
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if mut {
			return ast.MutRefType{Elem: elem}, nil
		}
		return ast.RefType{Elem: elem}, nil
	case p.eat("["):
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return ast.ArrayType{Elem: elem}, p.expect("]")
	case p.eat("("):
		elems, err := p.list(")")
		if err != nil {
			return nil, err
		}
		return ast.TupleType{Elems: elems}, nil
	}

	name := p.name()
	switch name {
	case "":
		return nil, p.errorf("expected a type")
	case "int":
		return ast.IntType{}, nil
	case "float":
		return ast.FloatType{}, nil
	case "bool":
		return ast.BoolType{}, nil
	case "string":
		return ast.StringType{}, nil
	case "fn":
		if err := p.expect("("); err != nil {
			return nil, err
		}
		params, err := p.list(")")
		if err != nil {
			return nil, err
		}
		var ret ast.Type
		if p.eat("->") {
			if ret, err = p.parse(); err != nil {
				return nil, err
			}
		}
		return ast.FuncType{Params: params, Ret: ret}, nil
	}
	if p.eat("<") {
		args, err := p.list(">")
		if err != nil {
			return nil, err
		}
		return ast.GenericType{Name: name, Args: args}, nil
	}
	return ast.NamedType{Name: name}, nil
}

// list parses comma-separated types up to and including the closing token.
func (p *typeParser) list(closing string) ([]ast.Type, error) {
	var out []ast.Type
	if p.eat(closing) {
		return out, nil
	}
	for {
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.eat(closing) {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}
