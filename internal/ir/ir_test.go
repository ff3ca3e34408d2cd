package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"mendes/internal/ir"
	"mendes/internal/types"
)

func TestAddStringDedups(t *testing.T) {
	m := ir.NewModule("main")
	a := m.AddString("a")
	if again := m.AddString("a"); again != a {
		t.Fatalf("second \"a\" got index %d, want %d", again, a)
	}
	if b := m.AddString("b"); b != 1 {
		t.Fatalf("\"b\" index = %d, want 1", b)
	}
	if len(m.Strings) != 2 {
		t.Fatalf("string table = %v, want 2 entries", m.Strings)
	}
}

func TestAddStringKeepsExactBytes(t *testing.T) {
	m := ir.NewModule("main")
	composed := m.AddString("caf\u00e9")
	decomposed := m.AddString("cafe\u0301")
	if composed == decomposed || len(m.Strings) != 2 {
		t.Fatalf("indices %d/%d, table %q", composed, decomposed, m.Strings)
	}
	if m.Strings[decomposed] != "cafe\u0301" {
		t.Fatalf("stored %q", m.Strings[decomposed])
	}
	if again := m.AddString("caf\u00e9"); again != composed {
		t.Fatalf("reinterned at %d, want %d", again, composed)
	}
}

func TestTypeDisplay(t *testing.T) {
	tests := []struct {
		ty   ir.Type
		want string
	}{
		{ir.I64, "i64"},
		{ir.Bool, "i1"},
		{ir.Ptr(ir.I64), "*i64"},
		{ir.Array(ir.I64, 10), "[10 x i64]"},
		{ir.Struct("User"), "%User"},
		{ir.FuncType([]ir.Type{ir.I64, ir.String}, ir.Void), "fn(i64, string) -> void"},
		{ir.Future(ir.String), "future<string>"},
		{ir.Tuple(ir.I64, ir.F64), "(i64, f64)"},
		{ir.Range(ir.I64), "range<i64>"},
	}
	for _, tt := range tests {
		if got := tt.ty.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromType(t *testing.T) {
	tests := []struct {
		in   types.Type
		want string
	}{
		{types.Int, "i64"},
		{types.Unit, "void"},
		{types.Unknown, "i64"},
		{types.Named("User"), "%User"},
		{types.Ref(types.Named("User")), "*%User"},
		{types.Array(types.String), "*string"},
		{types.Option(types.Int), "%Option_i64"},
		{types.Result(types.String, types.Named("HttpError")), "%Result_string_HttpError"},
		{types.Closure([]types.Type{types.Int}, types.Bool), "fn(i64) -> i1"},
		{types.Function([]types.Type{types.Int}, types.Bool), "fn(i64) -> i1"},
		{types.Tuple(types.Int, types.Float), "(i64, f64)"},
		{types.Future(types.Int), "future<i64>"},
	}
	for _, tt := range tests {
		if got := ir.FromType(tt.in).String(); got != tt.want {
			t.Errorf("FromType(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInstrDisplay(t *testing.T) {
	tests := []struct {
		in   ir.Instr
		want string
	}{
		{ir.Binary(0, ir.OpAdd, ir.Local("x"), ir.ConstInt(10)), "%t0 = add %x, 10"},
		{ir.Call(1, "foo", ir.ConstInt(1), ir.ConstInt(2)), "%t1 = call @foo(1, 2)"},
		{ir.CallVoid("print", ir.ConstString(0)), "call @print(str#0)"},
		{ir.Compare(2, ir.CmpLe, ir.Temp(1), ir.ConstInt(5)), "%t2 = cmp le %t1, 5"},
		{ir.Alloca("i", ir.I64), "%i = alloca i64"},
		{ir.Store(ir.ConstBool(true), ir.Local("ok")), "store true, %ok"},
		{ir.Store(ir.ConstInt(1), ir.GlobalRef("counter")), "store 1, @counter"},
		{ir.CondBranch(ir.Temp(3), "then_0", "else_1"), "br %t3, then_0, else_1"},
		{ir.GetField(4, ir.Local("u"), "User", 1, "name"), "%t4 = getfield %u %User.1 (name)"},
		{ir.Return(ir.VoidValue), "ret void"},
		{ir.Phi(5, ir.PhiEdge{Value: ir.ConstInt(1), Label: "a"}, ir.PhiEdge{Value: ir.Param(0), Label: "b"}), "%t5 = phi [1, a], [%arg0, b]"},
		{ir.Comment("hi"), "; hi"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestFuncEmitAndFinish(t *testing.T) {
	f := ir.NewFunc("add", ir.I64, false)
	f.AddParam("a", ir.I64)
	f.AddParam("b", ir.I64)
	sum := f.EmitValue(ir.Binary(f.NewTemp(), ir.OpAdd, ir.Local("a"), ir.Local("b")))
	f.Emit(ir.Return(sum))
	f.Finish()

	if len(f.Blocks) != 1 || len(f.Blocks[0].Instrs) != 2 {
		t.Fatalf("unexpected shape:\n%s", ir.DumpFunc(f))
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEmitAfterTerminatorOpensDeadBlock(t *testing.T) {
	f := ir.NewFunc("f", ir.Void, false)
	f.Emit(ir.Return(ir.VoidValue))
	f.Emit(ir.CallVoid("print", ir.ConstInt(1)))
	f.Finish()

	if len(f.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2:\n%s", len(f.Blocks), ir.DumpFunc(f))
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestStartBlockFallsThrough(t *testing.T) {
	f := ir.NewFunc("f", ir.Void, false)
	f.StartBlock("next_0")
	f.Finish()
	if term := f.Blocks[0].Terminator(); term == nil || term.Kind != ir.InstrBranch || term.Branch.Target != "next_0" {
		t.Fatalf("entry does not fall through:\n%s", ir.DumpFunc(f))
	}
}

func TestValidateReportsBrokenFunctions(t *testing.T) {
	unterminated := ir.NewFunc("open", ir.Void, false)

	badTarget := ir.NewFunc("jump", ir.Void, false)
	badTarget.Emit(ir.Branch("nowhere"))

	afterTerm := ir.NewFunc("late", ir.Void, false)
	afterTerm.Blocks[0].Push(ir.Return(ir.VoidValue))
	afterTerm.Blocks[0].Push(ir.Return(ir.VoidValue))

	noEntry := ir.NewFunc("headless", ir.Void, false)
	noEntry.Blocks[0].Label = "start"
	noEntry.Finish()

	tempTwice := ir.NewFunc("ssa", ir.Void, false)
	id := tempTwice.NewTemp()
	tempTwice.Emit(ir.Neg(id, ir.ConstInt(1)))
	tempTwice.Emit(ir.Neg(id, ir.ConstInt(2)))
	tempTwice.Finish()

	tests := []struct {
		f    *ir.Func
		want string
	}{
		{unterminated, "unterminated block"},
		{badTarget, "unknown block nowhere"},
		{afterTerm, "follows a terminator"},
		{noEntry, "missing entry block"},
		{tempTwice, "already defined"},
	}
	for _, tt := range tests {
		err := ir.ValidateFunc(tt.f)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want %q", tt.f.Name, err, tt.want)
		}
	}
}

func TestValidateModule(t *testing.T) {
	m := ir.NewModule("main")
	m.Routes = append(m.Routes, ir.Route{Method: "GET", Path: "/x", Handler: "__http_get_x"})
	err := ir.Validate(m)
	if err == nil || !strings.Contains(err.Error(), "handler __http_get_x missing") {
		t.Fatalf("err = %v", err)
	}
}

func TestDumpIsStable(t *testing.T) {
	m := ir.NewModule("main")
	m.AddString("hello")
	m.AddStruct(&ir.StructDef{Name: "B", Fields: []ir.Field{{Name: "x", Type: ir.I64}}})
	m.AddStruct(&ir.StructDef{Name: "A"})
	f := ir.NewFunc("main", ir.Void, false)
	f.Finish()
	m.AddFunc(f)

	var first, second bytes.Buffer
	if err := ir.Dump(&first, m); err != nil {
		t.Fatal(err)
	}
	if err := ir.Dump(&second, m); err != nil {
		t.Fatal(err)
	}
	out := first.String()
	if out != second.String() {
		t.Fatalf("dump is not deterministic")
	}
	for _, want := range []string{"; module main", `@str0 = "hello"`, "%A = type {  }", "define void @main()", "entry:\n  ret void"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "%A =") > strings.Index(out, "%B =") {
		t.Errorf("structs not sorted:\n%s", out)
	}
}

func TestStructDefLookup(t *testing.T) {
	def := &ir.StructDef{Name: "User", Fields: []ir.Field{{Name: "id", Type: ir.I64}, {Name: "name", Type: ir.String}}, Methods: []string{"User::greet"}}
	if def.FieldIndex("name") != 1 || def.FieldIndex("age") != -1 {
		t.Fatalf("FieldIndex wrong")
	}
	if ty, ok := def.FieldType("id"); !ok || ty.Kind != ir.TypeI64 {
		t.Fatalf("FieldType(id) = %v, %v", ty, ok)
	}
	if !def.HasMethod("User::greet") {
		t.Fatalf("HasMethod false")
	}
}
