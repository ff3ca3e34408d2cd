package ir

import (
	"fmt"
	"slices"
	"strings"

	"mendes/internal/types"
)

// TypeKind enumerates low-level IR types.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeI64
	TypeF64
	TypeBool // i1
	TypeString
	TypePtr
	TypeArray
	TypeStruct
	TypeFunc
	TypeFuture
	TypeTuple
	TypeRange
)

// Type is a backend-facing type. Elem is set for Ptr, Array, Future and
// Range; Elems holds tuple members or function parameters.
type Type struct {
	Kind  TypeKind
	Name  string
	Elem  *Type
	Len   int
	Elems []Type
	Ret   *Type
}

var (
	Void   = Type{Kind: TypeVoid}
	I64    = Type{Kind: TypeI64}
	F64    = Type{Kind: TypeF64}
	Bool   = Type{Kind: TypeBool}
	String = Type{Kind: TypeString}
)

func Ptr(elem Type) Type { return Type{Kind: TypePtr, Elem: &elem} }

func Array(elem Type, n int) Type { return Type{Kind: TypeArray, Elem: &elem, Len: n} }

func Struct(name string) Type { return Type{Kind: TypeStruct, Name: name} }

func Future(elem Type) Type { return Type{Kind: TypeFuture, Elem: &elem} }

func Range(elem Type) Type { return Type{Kind: TypeRange, Elem: &elem} }

func Tuple(elems ...Type) Type { return Type{Kind: TypeTuple, Elems: elems} }

func FuncType(params []Type, ret Type) Type {
	return Type{Kind: TypeFunc, Elems: params, Ret: &ret}
}

// ElemType returns the pointee/element type or Void.
func (t Type) ElemType() Type {
	if t.Elem == nil {
		return Void
	}
	return *t.Elem
}

// IsPrimitive reports scalar types that fit in a register.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case TypeVoid, TypeBool, TypeI64, TypeF64:
		return true
	}
	return false
}

// IsPointer reports types represented as an address at runtime.
func (t Type) IsPointer() bool {
	switch t.Kind {
	case TypePtr, TypeString, TypeFuture:
		return true
	}
	return false
}

// Size is an approximate allocation size in bytes; struct sizes need the
// module's struct table and report 0.
func (t Type) Size() int {
	switch t.Kind {
	case TypeBool:
		return 1
	case TypeI64, TypeF64, TypePtr, TypeFunc, TypeFuture:
		return 8
	case TypeString:
		return 16
	case TypeArray:
		return t.ElemType().Size() * t.Len
	case TypeTuple:
		n := 0
		for _, e := range t.Elems {
			n += e.Size()
		}
		return n
	case TypeRange:
		return 24
	}
	return 0
}

func (t Type) Equal(o Type) bool {
	return t.String() == o.String()
}

func (t Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeI64:
		return "i64"
	case TypeF64:
		return "f64"
	case TypeBool:
		return "i1"
	case TypeString:
		return "string"
	case TypePtr:
		return "*" + t.ElemType().String()
	case TypeArray:
		return fmt.Sprintf("[%d x %s]", t.Len, t.ElemType())
	case TypeStruct:
		return "%" + t.Name
	case TypeFunc:
		ret := Void
		if t.Ret != nil {
			ret = *t.Ret
		}
		return "fn(" + joinTypes(t.Elems) + ") -> " + ret.String()
	case TypeFuture:
		return "future<" + t.ElemType().String() + ">"
	case TypeTuple:
		return "(" + joinTypes(t.Elems) + ")"
	case TypeRange:
		return "range<" + t.ElemType().String() + ">"
	}
	return fmt.Sprintf("TypeKind(%d)", t.Kind)
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// FromType maps a checker type onto its IR representation. Types the
// checker could not infer default to i64.
func FromType(t types.Type) Type {
	switch t.Kind {
	case types.KindUnit:
		return Void
	case types.KindInt, types.KindUnknown, types.KindAny:
		return I64
	case types.KindFloat:
		return F64
	case types.KindBool:
		return Bool
	case types.KindString:
		return String
	case types.KindNamed:
		return Struct(t.Name)
	case types.KindGeneric:
		switch t.Name {
		case types.FnName:
			if n := len(t.Args); n > 0 {
				return FuncType(fromTypes(t.Args[:n-1]), FromType(t.Args[n-1]))
			}
			return FuncType(nil, Void)
		case "Result", "Option":
			// tagged unions are opaque structs named after their instantiation
			parts := make([]string, 0, len(t.Args)+1)
			parts = append(parts, t.Name)
			for _, a := range t.Args {
				parts = append(parts, mangle(FromType(a)))
			}
			return Struct(strings.Join(parts, "_"))
		}
		return Struct(t.Name)
	case types.KindRef, types.KindMutRef, types.KindArray:
		// dynamic arrays are a pointer plus runtime length
		return Ptr(FromType(t.ElemType()))
	case types.KindFunction:
		return FuncType(fromTypes(t.Args), FromType(t.RetType()))
	case types.KindFuture:
		return Future(FromType(t.ElemType()))
	case types.KindTuple:
		return Tuple(fromTypes(t.Args)...)
	case types.KindRange:
		return Range(FromType(t.ElemType()))
	}
	return I64
}

func fromTypes(ts []types.Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = FromType(t)
	}
	return out
}

// mangle turns a type into an identifier-safe fragment.
func mangle(t Type) string {
	r := strings.NewReplacer("%", "", "*", "ptr", "<", "_", ">", "", "(", "", ")", "", ", ", "_", " ", "", "[", "", "]", "", "->", "to")
	return r.Replace(t.String())
}

// GenericParam is a type parameter and its trait bounds.
type GenericParam struct {
	Name   string
	Bounds []string
}

// Field is a named struct member.
type Field struct {
	Name string
	Type Type
}

// StructDef describes a struct layout. Methods holds the names of the
// functions implementing its methods.
type StructDef struct {
	Name     string
	Generics []GenericParam
	Fields   []Field
	Methods  []string
}

// FieldIndex returns the position of field name, or -1.
func (s *StructDef) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s *StructDef) FieldType(name string) (Type, bool) {
	if i := s.FieldIndex(name); i >= 0 {
		return s.Fields[i].Type, true
	}
	return Type{}, false
}

func (s *StructDef) HasMethod(name string) bool {
	return slices.Contains(s.Methods, name)
}
