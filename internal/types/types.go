// Package types models the checker's view of types and the structural
// compatibility relation between them.
package types

import "fmt"

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	// KindUnknown is the inference placeholder. The zero Type is Unknown.
	KindUnknown Kind = iota
	KindAny
	KindUnit
	KindInt
	KindFloat
	KindBool
	KindString
	KindNamed
	KindGeneric
	KindRef
	KindMutRef
	KindArray
	KindFunction
	KindFuture
	KindTuple
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindAny:
		return "any"
	case KindUnit:
		return "unit"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindNamed:
		return "named"
	case KindGeneric:
		return "generic"
	case KindRef:
		return "ref"
	case KindMutRef:
		return "mutref"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindFuture:
		return "future"
	case KindTuple:
		return "tuple"
	case KindRange:
		return "range"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any checker type.
//
//   - Name is set for Named and Generic.
//   - Elem is set for Ref, MutRef, Array, Future and Range.
//   - Args holds generic arguments, tuple elements or function parameters.
//   - Ret is set for Function.
type Type struct {
	Kind Kind
	Name string
	Elem *Type
	Args []Type
	Ret  *Type
}

// FnName is the generic name closures are typed with: Fn<params..., ret>.
const FnName = "Fn"

var (
	Unknown = Type{Kind: KindUnknown}
	Any     = Type{Kind: KindAny}
	Unit    = Type{Kind: KindUnit}
	Int     = Type{Kind: KindInt}
	Float   = Type{Kind: KindFloat}
	Bool    = Type{Kind: KindBool}
	String  = Type{Kind: KindString}
)

func Named(name string) Type {
	return Type{Kind: KindNamed, Name: name}
}

func Generic(name string, args ...Type) Type {
	return Type{Kind: KindGeneric, Name: name, Args: args}
}

func Ref(elem Type) Type {
	return Type{Kind: KindRef, Elem: &elem}
}

func MutRef(elem Type) Type {
	return Type{Kind: KindMutRef, Elem: &elem}
}

func Array(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

func Future(elem Type) Type {
	return Type{Kind: KindFuture, Elem: &elem}
}

func Range(elem Type) Type {
	return Type{Kind: KindRange, Elem: &elem}
}

func Tuple(elems ...Type) Type {
	return Type{Kind: KindTuple, Args: elems}
}

func Function(params []Type, ret Type) Type {
	return Type{Kind: KindFunction, Args: params, Ret: &ret}
}

// Result builds Result<ok, err>.
func Result(ok, err Type) Type {
	return Generic("Result", ok, err)
}

// Option builds Option<elem>.
func Option(elem Type) Type {
	return Generic("Option", elem)
}

// Closure builds the Fn<params..., ret> encoding used for closure values.
func Closure(params []Type, ret Type) Type {
	args := make([]Type, 0, len(params)+1)
	args = append(args, params...)
	args = append(args, ret)
	return Generic(FnName, args...)
}

// ElemType returns the element of a Ref, MutRef, Array, Future or Range, or Unknown.
func (t Type) ElemType() Type {
	if t.Elem == nil {
		return Unknown
	}
	return *t.Elem
}

// RetType returns the return type of a Function, or Unknown.
func (t Type) RetType() Type {
	if t.Ret == nil {
		return Unknown
	}
	return *t.Ret
}

// Arg returns the i-th generic argument or Unknown when absent.
func (t Type) Arg(i int) Type {
	if i < 0 || i >= len(t.Args) {
		return Unknown
	}
	return t.Args[i]
}

// IsGenericOf reports whether t is an instantiation of the named generic.
func (t Type) IsGenericOf(name string) bool {
	return t.Kind == KindGeneric && t.Name == name
}

// IsCopy reports whether values of t are copied instead of moved.
func (t Type) IsCopy() bool {
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindUnit:
		return true
	}
	return false
}

func (t Type) IsRef() bool {
	return t.Kind == KindRef || t.Kind == KindMutRef
}

func (t Type) IsNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

func (t Type) IsUnknown() bool {
	return t.Kind == KindUnknown
}

// Deref strips one level of reference.
func (t Type) Deref() Type {
	if t.IsRef() {
		return t.ElemType()
	}
	return t
}

// Equal is structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Name != o.Name || len(t.Args) != len(o.Args) {
		return false
	}
	if (t.Elem == nil) != (o.Elem == nil) || (t.Ret == nil) != (o.Ret == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	if t.Ret != nil && !t.Ret.Equal(*o.Ret) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Type) bool {
	return a.Equal(b)
}
