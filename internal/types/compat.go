package types

// Compatible reports whether a value of type b may be used where a is
// expected (and vice versa; the relation is symmetric).
//
// Unknown and Any are compatible with everything. Compound types are
// compared structurally. A closure's Fn<params..., ret> unifies with an
// equivalent Function in both directions.
func Compatible(a, b Type) bool {
	if a.Kind == KindUnknown || b.Kind == KindUnknown || a.Kind == KindAny || b.Kind == KindAny {
		return true
	}
	if a.IsGenericOf(FnName) && b.Kind == KindFunction {
		return closureMatchesFunction(a, b)
	}
	if b.IsGenericOf(FnName) && a.Kind == KindFunction {
		return closureMatchesFunction(b, a)
	}
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindNamed:
		return a.Name == b.Name
	case KindGeneric:
		if a.Name != b.Name {
			return false
		}
		return allCompatible(a.Args, b.Args)
	case KindRef, KindMutRef, KindArray, KindFuture, KindRange:
		return Compatible(a.ElemType(), b.ElemType())
	case KindTuple:
		return allCompatible(a.Args, b.Args)
	case KindFunction:
		return allCompatible(a.Args, b.Args) && Compatible(a.RetType(), b.RetType())
	default:
		// примитивы: одинаковый Kind уже проверен
		return true
	}
}

func closureMatchesFunction(closure, fn Type) bool {
	if len(closure.Args) != len(fn.Args)+1 {
		return false
	}
	n := len(fn.Args)
	return allCompatible(closure.Args[:n], fn.Args) && Compatible(closure.Args[n], fn.RetType())
}

func allCompatible(as, bs []Type) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Compatible(as[i], bs[i]) {
			return false
		}
	}
	return true
}
