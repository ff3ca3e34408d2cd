package types

import "slices"

// Subst maps generic parameter names to concrete types.
type Subst map[string]Type

// InferGenerics walks declared parameter types against argument types and
// records a binding the first time each generic name is met. Later
// occurrences of an already bound name are not re-unified, so a call with
// two conflicting arguments for the same parameter binds the first one.
func InferGenerics(generics []string, params, args []Type) Subst {
	subst := make(Subst)
	if len(generics) == 0 {
		return subst
	}
	for i := range params {
		if i >= len(args) {
			break
		}
		subst.collect(params[i], args[i], generics)
	}
	return subst
}

func (s Subst) collect(param, arg Type, generics []string) {
	switch param.Kind {
	case KindNamed:
		if !slices.Contains(generics, param.Name) {
			return
		}
		if _, bound := s[param.Name]; !bound {
			s[param.Name] = arg
		}
	case KindRef, KindMutRef, KindArray:
		if arg.Kind == param.Kind {
			s.collect(param.ElemType(), arg.ElemType(), generics)
		}
	case KindGeneric:
		if arg.Kind != KindGeneric {
			return
		}
		for i := range param.Args {
			if i >= len(arg.Args) {
				break
			}
			s.collect(param.Args[i], arg.Args[i], generics)
		}
	case KindTuple:
		if arg.Kind != KindTuple {
			return
		}
		for i := range param.Args {
			if i >= len(arg.Args) {
				break
			}
			s.collect(param.Args[i], arg.Args[i], generics)
		}
	}
}

// Apply replaces every bound generic name inside t.
func (s Subst) Apply(t Type) Type {
	if len(s) == 0 {
		return t
	}
	switch t.Kind {
	case KindNamed:
		if repl, ok := s[t.Name]; ok {
			return repl
		}
		return t
	case KindRef, KindMutRef, KindArray, KindFuture, KindRange:
		elem := s.Apply(t.ElemType())
		return Type{Kind: t.Kind, Elem: &elem}
	case KindGeneric:
		return Generic(t.Name, s.applyAll(t.Args)...)
	case KindTuple:
		return Tuple(s.applyAll(t.Args)...)
	case KindFunction:
		return Function(s.applyAll(t.Args), s.Apply(t.RetType()))
	default:
		return t
	}
}

func (s Subst) applyAll(ts []Type) []Type {
	out := make([]Type, len(ts))
	for i := range ts {
		out[i] = s.Apply(ts[i])
	}
	return out
}
