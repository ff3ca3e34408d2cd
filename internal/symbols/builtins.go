package symbols

import "mendes/internal/types"

// DefineBuiltins adds the runtime-provided names to the global scope.
func DefineBuiltins(t *Table) {
	t.Define(Symbol{
		Name: "db",
		Kind: SymbolVariable,
		Type: types.Named("DatabaseNamespace"),
	})

	builtin := func(name string, ret types.Type, params ...Param) {
		t.Define(NewFunction(name, FnSig{Params: params, Ret: ret}, nil))
	}
	builtin("print", types.Unit, Param{"value", types.Any})
	builtin("println", types.Unit, Param{"value", types.Any})
	builtin("len", types.Int, Param{"collection", types.Any})
	builtin("str", types.String, Param{"value", types.Any})
	builtin("int", types.Int, Param{"value", types.String})
	builtin("float", types.Float, Param{"value", types.String})
	builtin("log", types.Unit, Param{"msg", types.String})
	builtin("HttpError", types.Named("HttpError"), Param{"status", types.Int}, Param{"message", types.String})
}
