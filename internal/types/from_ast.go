package types

import "mendes/internal/ast"

// FromAST converts a written type annotation. A nil annotation yields Unknown.
func FromAST(t ast.Type) Type {
	switch t := t.(type) {
	case nil:
		return Unknown
	case ast.IntType:
		return Int
	case ast.FloatType:
		return Float
	case ast.BoolType:
		return Bool
	case ast.StringType:
		return String
	case ast.NamedType:
		return fromName(t.Name)
	case ast.GenericType:
		return Generic(t.Name, fromASTList(t.Args)...)
	case ast.RefType:
		return Ref(FromAST(t.Elem))
	case ast.MutRefType:
		return MutRef(FromAST(t.Elem))
	case ast.ArrayType:
		return Array(FromAST(t.Elem))
	case ast.TupleType:
		return Tuple(fromASTList(t.Elems)...)
	case ast.FuncType:
		return Function(fromASTList(t.Params), FromAST(t.Ret))
	default:
		return Unknown
	}
}

// FromASTOr converts t, falling back to def when the annotation is missing.
func FromASTOr(t ast.Type, def Type) Type {
	if t == nil {
		return def
	}
	return FromAST(t)
}

func fromASTList(ts []ast.Type) []Type {
	out := make([]Type, len(ts))
	for i := range ts {
		out[i] = FromAST(ts[i])
	}
	return out
}

// fromName maps primitive spellings that reach us as plain names.
func fromName(name string) Type {
	switch name {
	case "int":
		return Int
	case "float":
		return Float
	case "bool":
		return Bool
	case "string":
		return String
	case "()":
		return Unit
	case "any":
		return Any
	}
	return Named(name)
}
