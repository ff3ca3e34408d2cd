package symbols

import (
	"testing"

	"mendes/internal/source"
	"mendes/internal/types"
)

func TestScopesAndShadowing(t *testing.T) {
	table := NewTable()
	table.Define(NewVariable("x", types.Int, false, source.Span{}))

	table.PushScope()
	if _, ok := table.Lookup("x"); !ok {
		t.Fatalf("outer x should be visible in inner scope")
	}
	if _, ok := table.LookupCurrent("x"); ok {
		t.Fatalf("x is not defined in the inner scope itself")
	}
	table.Define(NewVariable("x", types.String, false, source.Span{}))
	table.Define(NewVariable("y", types.Bool, false, source.Span{}))
	if sym, _ := table.Lookup("x"); !sym.Type.Equal(types.String) {
		t.Fatalf("inner x should shadow outer, got %s", sym.Type)
	}
	table.PopScope()

	if _, ok := table.Lookup("y"); ok {
		t.Fatalf("y must disappear with its scope")
	}
	if sym, _ := table.Lookup("x"); !sym.Type.Equal(types.Int) {
		t.Fatalf("outer x should be restored, got %s", sym.Type)
	}
}

func TestGlobalScopeNeverPopped(t *testing.T) {
	table := NewTable()
	table.Define(NewVariable("g", types.Int, false, source.Span{}))
	table.PopScope()
	table.PopScope()
	if table.Depth() != 1 {
		t.Fatalf("depth = %d, want 1", table.Depth())
	}
	if _, ok := table.Lookup("g"); !ok {
		t.Fatalf("global symbol lost")
	}
}

func TestDefineReturnsReplaced(t *testing.T) {
	table := NewTable()
	if prev := table.Define(NewVariable("a", types.Int, false, source.Span{})); prev != nil {
		t.Fatalf("unexpected previous symbol")
	}
	prev := table.Define(NewVariable("a", types.Float, false, source.Span{}))
	if prev == nil || !prev.Type.Equal(types.Int) {
		t.Fatalf("expected replaced int symbol, got %+v", prev)
	}
}

func TestBuiltins(t *testing.T) {
	table := NewTable()
	DefineBuiltins(table)

	for _, name := range []string{"print", "println", "len", "str", "int", "float", "log", "HttpError"} {
		sym, ok := table.Lookup(name)
		if !ok || sym.Kind != SymbolFunction || sym.Fn == nil {
			t.Fatalf("builtin %s missing or not a function", name)
		}
	}
	sym, _ := table.Lookup("HttpError")
	if len(sym.Fn.Params) != 2 || sym.Fn.Ret.String() != "HttpError" {
		t.Fatalf("HttpError signature = %+v", sym.Fn)
	}
	if db, ok := table.Lookup("db"); !ok || db.Type.String() != "DatabaseNamespace" {
		t.Fatalf("db namespace missing")
	}
}

func TestTypeExists(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterStruct(&StructDef{Name: "User"})

	tests := []struct {
		name string
		ty   types.Type
		want bool
	}{
		{"primitive", types.Int, true},
		{"unknown", types.Unknown, true},
		{"struct", types.Named("User"), true},
		{"builtin_named", types.Named("HttpError"), true},
		{"missing", types.Named("Ghost"), false},
		{"option_of_struct", types.Option(types.Named("User")), true},
		{"result_of_missing", types.Result(types.Int, types.Named("Ghost")), false},
		{"other_generic", types.Generic("Vec", types.Int), false},
		{"ref_array", types.Ref(types.Array(types.Named("User"))), true},
		{"tuple_missing", types.Tuple(types.Int, types.Named("Ghost")), false},
	}
	for _, tt := range tests {
		if got := reg.TypeExists(tt.ty); got != tt.want {
			t.Errorf("%s: TypeExists(%s) = %v, want %v", tt.name, tt.ty, got, tt.want)
		}
	}
}

func TestGenericParamsNest(t *testing.T) {
	reg := NewRegistry()
	reg.WithGenerics([]string{"T"}, func() {
		reg.WithGenerics([]string{"T"}, func() {})
		if !reg.TypeExists(types.Named("T")) {
			t.Fatalf("outer T must survive the inner unregister")
		}
	})
	if reg.IsGeneric("T") {
		t.Fatalf("T should be gone after the outer scope")
	}
}
