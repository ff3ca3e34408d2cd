package symbols

import "mendes/internal/types"

// builtinNamed are nominal types the runtime provides.
var builtinNamed = map[string]bool{
	"HttpError": true,
	"Response":  true,
}

// Registry tracks user-defined type names and the generic parameters in
// scope while a single declaration is being checked.
type Registry struct {
	structs  map[string]*StructDef
	traits   map[string]bool
	enums    map[string]bool
	aliases  map[string]types.Type
	generics map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		structs:  make(map[string]*StructDef),
		traits:   make(map[string]bool),
		enums:    make(map[string]bool),
		aliases:  make(map[string]types.Type),
		generics: make(map[string]int),
	}
}

func (r *Registry) RegisterStruct(def *StructDef) {
	r.structs[def.Name] = def
}

func (r *Registry) Struct(name string) (*StructDef, bool) {
	def, ok := r.structs[name]
	return def, ok
}

func (r *Registry) RegisterTrait(name string) {
	r.traits[name] = true
}

func (r *Registry) HasTrait(name string) bool {
	return r.traits[name]
}

func (r *Registry) RegisterEnum(name string) {
	r.enums[name] = true
}

func (r *Registry) RegisterAlias(name string, target types.Type) {
	r.aliases[name] = target
}

// Alias returns the target of a type alias.
func (r *Registry) Alias(name string) (types.Type, bool) {
	t, ok := r.aliases[name]
	return t, ok
}

// RegisterGeneric marks name as an in-scope generic parameter. Calls nest:
// each RegisterGeneric must be paired with one UnregisterGeneric.
func (r *Registry) RegisterGeneric(name string) {
	r.generics[name]++
}

func (r *Registry) UnregisterGeneric(name string) {
	if r.generics[name] <= 1 {
		delete(r.generics, name)
		return
	}
	r.generics[name]--
}

func (r *Registry) IsGeneric(name string) bool {
	return r.generics[name] > 0
}

// WithGenerics registers names for the duration of fn.
func (r *Registry) WithGenerics(names []string, fn func()) {
	for _, n := range names {
		r.RegisterGeneric(n)
	}
	defer func() {
		for _, n := range names {
			r.UnregisterGeneric(n)
		}
	}()
	fn()
}

// TypeExists reports whether every nominal component of t resolves.
func (r *Registry) TypeExists(t types.Type) bool {
	switch t.Kind {
	case types.KindNamed:
		if _, ok := r.structs[t.Name]; ok {
			return true
		}
		if _, ok := r.aliases[t.Name]; ok {
			return true
		}
		return r.enums[t.Name] || r.IsGeneric(t.Name) || builtinNamed[t.Name]
	case types.KindGeneric:
		if t.Name != "Result" && t.Name != "Option" {
			return false
		}
		return r.allExist(t.Args)
	case types.KindRef, types.KindMutRef, types.KindArray, types.KindFuture, types.KindRange:
		return r.TypeExists(t.ElemType())
	case types.KindTuple:
		return r.allExist(t.Args)
	case types.KindFunction:
		return r.allExist(t.Args) && r.TypeExists(t.RetType())
	default:
		return true
	}
}

func (r *Registry) allExist(ts []types.Type) bool {
	for _, t := range ts {
		if !r.TypeExists(t) {
			return false
		}
	}
	return true
}
