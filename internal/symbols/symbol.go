// Package symbols provides the scoped symbol table, the type registry and
// the built-in names every program starts with.
package symbols

import (
	"mendes/internal/source"
	"mendes/internal/types"
)

// SymbolKind enumerates declaration categories.
type SymbolKind uint8

const (
	SymbolVariable SymbolKind = iota
	SymbolParam
	SymbolFunction
	SymbolStruct
	SymbolEnum
	SymbolField
	SymbolDatabase
	SymbolMiddleware
	SymbolTrait
	SymbolTypeAlias
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolParam:
		return "parameter"
	case SymbolFunction:
		return "function"
	case SymbolStruct:
		return "struct"
	case SymbolEnum:
		return "enum"
	case SymbolField:
		return "field"
	case SymbolDatabase:
		return "database"
	case SymbolMiddleware:
		return "middleware"
	case SymbolTrait:
		return "trait"
	case SymbolTypeAlias:
		return "type alias"
	default:
		return "invalid"
	}
}

// Param is a named, typed slot: a parameter or a struct field.
type Param struct {
	Name string
	Type types.Type
}

// FnSig is the payload of SymbolFunction.
type FnSig struct {
	Generics []string
	Params   []Param
	Ret      types.Type
	Async    bool
}

// ParamTypes returns the parameter types in order.
func (sig *FnSig) ParamTypes() []types.Type {
	out := make([]types.Type, len(sig.Params))
	for i, p := range sig.Params {
		out[i] = p.Type
	}
	return out
}

// MethodSig is a struct method signature (receiver excluded).
type MethodSig struct {
	Name   string
	Params []Param
	Ret    types.Type
	Async  bool
}

// StructDef is the payload of SymbolStruct and the registry entry for a struct.
type StructDef struct {
	Name     string
	Generics []string
	Fields   []Param
	Methods  []MethodSig
	IsCopy   bool
}

// Field looks a field up by name.
func (s *StructDef) Field(name string) (Param, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Param{}, false
}

// Method looks a method up by name.
func (s *StructDef) Method(name string) (MethodSig, bool) {
	for _, m := range s.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodSig{}, false
}

type VariantDef struct {
	Name  string
	Types []types.Type
	// Fields names the payload of a struct-like variant, parallel to Types.
	Fields []string
}

// FieldType looks up a named payload slot of a struct-like variant.
func (v *VariantDef) FieldType(name string) (types.Type, bool) {
	for i, f := range v.Fields {
		if f == name && i < len(v.Types) {
			return v.Types[i], true
		}
	}
	return types.Unknown, false
}

// EnumDef is the payload of SymbolEnum.
type EnumDef struct {
	Name     string
	Variants []VariantDef
}

func (e *EnumDef) Variant(name string) (VariantDef, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantDef{}, false
}

// DatabaseInfo is the payload of SymbolDatabase.
type DatabaseInfo struct {
	DBType   string
	PoolSize uint32
}

// Symbol is one named declaration. Exactly one payload pointer matching
// Kind is set for functions, structs, enums and databases.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Type      types.Type
	Mutable   bool
	DefinedAt *source.Span

	Fn     *FnSig
	Struct *StructDef
	Enum   *EnumDef
	DB     *DatabaseInfo
}

// NewVariable builds a local binding symbol.
func NewVariable(name string, ty types.Type, mutable bool, at source.Span) Symbol {
	return Symbol{Name: name, Kind: SymbolVariable, Type: ty, Mutable: mutable, DefinedAt: at.Ptr()}
}

// NewParam builds an immutable parameter symbol.
func NewParam(name string, ty types.Type, at source.Span) Symbol {
	return Symbol{Name: name, Kind: SymbolParam, Type: ty, DefinedAt: at.Ptr()}
}

// NewFunction builds a function symbol whose Type is the matching Function type.
func NewFunction(name string, sig FnSig, at *source.Span) Symbol {
	return Symbol{
		Name:      name,
		Kind:      SymbolFunction,
		Type:      types.Function(sig.ParamTypes(), sig.Ret),
		DefinedAt: at,
		Fn:        &sig,
	}
}
