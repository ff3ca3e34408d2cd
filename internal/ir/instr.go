package ir

import (
	"fmt"
	"strings"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	InstrAlloca InstrKind = iota
	InstrStore
	InstrLoad
	InstrBinary
	InstrCompare
	InstrNot
	InstrNeg
	InstrCall
	InstrReturn
	InstrBranch
	InstrCondBranch
	InstrPhi
	InstrGetField
	InstrSetField
	InstrGetElement
	InstrSetElement
	InstrAwait
	InstrNewStruct
	InstrNewArray
	InstrCast
	InstrComment
)

var instrKindNames = [...]string{
	InstrAlloca: "alloca", InstrStore: "store", InstrLoad: "load",
	InstrBinary: "binary", InstrCompare: "cmp", InstrNot: "not", InstrNeg: "neg",
	InstrCall: "call", InstrReturn: "ret", InstrBranch: "br", InstrCondBranch: "condbr",
	InstrPhi: "phi", InstrGetField: "getfield", InstrSetField: "setfield",
	InstrGetElement: "getelem", InstrSetElement: "setelem", InstrAwait: "await",
	InstrNewStruct: "newstruct", InstrNewArray: "newarray", InstrCast: "cast",
	InstrComment: "comment",
}

func (k InstrKind) String() string {
	if int(k) < len(instrKindNames) {
		return instrKindNames[k]
	}
	return fmt.Sprintf("InstrKind(%d)", k)
}

// BinaryOp is an arithmetic or logical operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

var binaryOpNames = [...]string{"add", "sub", "mul", "div", "mod", "and", "or", "xor", "shl", "shr"}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// CompareOp is a comparison predicate.
type CompareOp uint8

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var compareOpNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

func (op CompareOp) String() string {
	if int(op) < len(compareOpNames) {
		return compareOpNames[op]
	}
	return "?"
}

// Instr is a single IR instruction; only the payload matching Kind is set.
type Instr struct {
	Kind InstrKind

	Alloca     AllocaInstr
	Store      StoreInstr
	Load       LoadInstr
	Binary     BinaryInstr
	Compare    CompareInstr
	Unary      UnaryInstr // Not, Neg
	Call       CallInstr
	Return     ReturnInstr
	Branch     BranchInstr
	CondBranch CondBranchInstr
	Phi        PhiInstr
	GetField   GetFieldInstr
	SetField   SetFieldInstr
	GetElement GetElementInstr
	SetElement SetElementInstr
	Await      AwaitInstr
	NewStruct  NewStructInstr
	NewArray   NewArrayInstr
	Cast       CastInstr
	Comment    string
}

// AllocaInstr reserves a named stack slot.
type AllocaInstr struct {
	Local string
	Type  Type
}

type StoreInstr struct {
	Value Value
	Ptr   Value
}

type LoadInstr struct {
	Dst  uint32
	Ptr  Value
	Type Type
}

type BinaryInstr struct {
	Dst         uint32
	Op          BinaryOp
	Left, Right Value
}

type CompareInstr struct {
	Dst         uint32
	Op          CompareOp
	Left, Right Value
}

type UnaryInstr struct {
	Dst   uint32
	Value Value
}

// CallInstr calls Func by name; HasDst is false for calls whose result is dropped.
type CallInstr struct {
	Dst    uint32
	HasDst bool
	Func   string
	Args   []Value
}

type ReturnInstr struct {
	Value Value
}

type BranchInstr struct {
	Target string
}

type CondBranchInstr struct {
	Cond Value
	Then string
	Else string
}

// PhiEdge is one incoming value of a phi.
type PhiEdge struct {
	Value Value
	Label string
}

type PhiInstr struct {
	Dst      uint32
	Incoming []PhiEdge
}

// GetFieldInstr keeps the field name so codegen works even when the
// struct layout is unknown.
type GetFieldInstr struct {
	Dst    uint32
	Ptr    Value
	Struct string
	Index  int
	Field  string
}

type SetFieldInstr struct {
	Ptr    Value
	Struct string
	Index  int
	Field  string
	Value  Value
}

type GetElementInstr struct {
	Dst   uint32
	Ptr   Value
	Index Value
}

type SetElementInstr struct {
	Ptr   Value
	Index Value
	Value Value
}

type AwaitInstr struct {
	Dst    uint32
	Future Value
}

type NewStructInstr struct {
	Dst    uint32
	Struct string
}

type NewArrayInstr struct {
	Dst  uint32
	Elem Type
	Size Value
}

type CastInstr struct {
	Dst   uint32
	Value Value
	To    Type
}

func Alloca(local string, ty Type) Instr {
	return Instr{Kind: InstrAlloca, Alloca: AllocaInstr{Local: local, Type: ty}}
}

func Store(value, ptr Value) Instr {
	return Instr{Kind: InstrStore, Store: StoreInstr{Value: value, Ptr: ptr}}
}

func Load(dst uint32, ptr Value, ty Type) Instr {
	return Instr{Kind: InstrLoad, Load: LoadInstr{Dst: dst, Ptr: ptr, Type: ty}}
}

func Binary(dst uint32, op BinaryOp, left, right Value) Instr {
	return Instr{Kind: InstrBinary, Binary: BinaryInstr{Dst: dst, Op: op, Left: left, Right: right}}
}

func Compare(dst uint32, op CompareOp, left, right Value) Instr {
	return Instr{Kind: InstrCompare, Compare: CompareInstr{Dst: dst, Op: op, Left: left, Right: right}}
}

func Not(dst uint32, v Value) Instr {
	return Instr{Kind: InstrNot, Unary: UnaryInstr{Dst: dst, Value: v}}
}

func Neg(dst uint32, v Value) Instr {
	return Instr{Kind: InstrNeg, Unary: UnaryInstr{Dst: dst, Value: v}}
}

func Call(dst uint32, fn string, args ...Value) Instr {
	return Instr{Kind: InstrCall, Call: CallInstr{Dst: dst, HasDst: true, Func: fn, Args: args}}
}

// CallVoid is a call whose result is not captured.
func CallVoid(fn string, args ...Value) Instr {
	return Instr{Kind: InstrCall, Call: CallInstr{Func: fn, Args: args}}
}

func Return(v Value) Instr {
	return Instr{Kind: InstrReturn, Return: ReturnInstr{Value: v}}
}

func Branch(target string) Instr {
	return Instr{Kind: InstrBranch, Branch: BranchInstr{Target: target}}
}

func CondBranch(cond Value, then, els string) Instr {
	return Instr{Kind: InstrCondBranch, CondBranch: CondBranchInstr{Cond: cond, Then: then, Else: els}}
}

func Phi(dst uint32, incoming ...PhiEdge) Instr {
	return Instr{Kind: InstrPhi, Phi: PhiInstr{Dst: dst, Incoming: incoming}}
}

func GetField(dst uint32, ptr Value, structName string, index int, field string) Instr {
	return Instr{Kind: InstrGetField, GetField: GetFieldInstr{Dst: dst, Ptr: ptr, Struct: structName, Index: index, Field: field}}
}

func SetField(ptr Value, structName string, index int, field string, v Value) Instr {
	return Instr{Kind: InstrSetField, SetField: SetFieldInstr{Ptr: ptr, Struct: structName, Index: index, Field: field, Value: v}}
}

func GetElement(dst uint32, ptr, index Value) Instr {
	return Instr{Kind: InstrGetElement, GetElement: GetElementInstr{Dst: dst, Ptr: ptr, Index: index}}
}

func SetElement(ptr, index, v Value) Instr {
	return Instr{Kind: InstrSetElement, SetElement: SetElementInstr{Ptr: ptr, Index: index, Value: v}}
}

func Await(dst uint32, future Value) Instr {
	return Instr{Kind: InstrAwait, Await: AwaitInstr{Dst: dst, Future: future}}
}

func NewStruct(dst uint32, structName string) Instr {
	return Instr{Kind: InstrNewStruct, NewStruct: NewStructInstr{Dst: dst, Struct: structName}}
}

func NewArray(dst uint32, elem Type, size Value) Instr {
	return Instr{Kind: InstrNewArray, NewArray: NewArrayInstr{Dst: dst, Elem: elem, Size: size}}
}

func Cast(dst uint32, v Value, to Type) Instr {
	return Instr{Kind: InstrCast, Cast: CastInstr{Dst: dst, Value: v, To: to}}
}

func Comment(text string) Instr {
	return Instr{Kind: InstrComment, Comment: text}
}

// IsTerminator reports whether the instruction ends a block.
func (in *Instr) IsTerminator() bool {
	switch in.Kind {
	case InstrReturn, InstrBranch, InstrCondBranch:
		return true
	}
	return false
}

// Dst returns the destination temporary, if the instruction defines one.
func (in *Instr) Dst() (uint32, bool) {
	switch in.Kind {
	case InstrLoad:
		return in.Load.Dst, true
	case InstrBinary:
		return in.Binary.Dst, true
	case InstrCompare:
		return in.Compare.Dst, true
	case InstrNot, InstrNeg:
		return in.Unary.Dst, true
	case InstrCall:
		return in.Call.Dst, in.Call.HasDst
	case InstrPhi:
		return in.Phi.Dst, true
	case InstrGetField:
		return in.GetField.Dst, true
	case InstrGetElement:
		return in.GetElement.Dst, true
	case InstrAwait:
		return in.Await.Dst, true
	case InstrNewStruct:
		return in.NewStruct.Dst, true
	case InstrNewArray:
		return in.NewArray.Dst, true
	case InstrCast:
		return in.Cast.Dst, true
	}
	return 0, false
}

// Targets lists the labels a terminator may jump to.
func (in *Instr) Targets() []string {
	switch in.Kind {
	case InstrBranch:
		return []string{in.Branch.Target}
	case InstrCondBranch:
		return []string{in.CondBranch.Then, in.CondBranch.Else}
	}
	return nil
}

// Operands lists every value the instruction reads.
func (in *Instr) Operands() []Value {
	switch in.Kind {
	case InstrStore:
		return []Value{in.Store.Value, in.Store.Ptr}
	case InstrLoad:
		return []Value{in.Load.Ptr}
	case InstrBinary:
		return []Value{in.Binary.Left, in.Binary.Right}
	case InstrCompare:
		return []Value{in.Compare.Left, in.Compare.Right}
	case InstrNot, InstrNeg:
		return []Value{in.Unary.Value}
	case InstrCall:
		return in.Call.Args
	case InstrReturn:
		return []Value{in.Return.Value}
	case InstrCondBranch:
		return []Value{in.CondBranch.Cond}
	case InstrPhi:
		out := make([]Value, len(in.Phi.Incoming))
		for i, e := range in.Phi.Incoming {
			out[i] = e.Value
		}
		return out
	case InstrGetField:
		return []Value{in.GetField.Ptr}
	case InstrSetField:
		return []Value{in.SetField.Ptr, in.SetField.Value}
	case InstrGetElement:
		return []Value{in.GetElement.Ptr, in.GetElement.Index}
	case InstrSetElement:
		return []Value{in.SetElement.Ptr, in.SetElement.Index, in.SetElement.Value}
	case InstrAwait:
		return []Value{in.Await.Future}
	case InstrNewArray:
		return []Value{in.NewArray.Size}
	case InstrCast:
		return []Value{in.Cast.Value}
	}
	return nil
}

func (in Instr) String() string {
	switch in.Kind {
	case InstrAlloca:
		return fmt.Sprintf("%%%s = alloca %s", in.Alloca.Local, in.Alloca.Type)
	case InstrStore:
		return fmt.Sprintf("store %s, %s", in.Store.Value, in.Store.Ptr)
	case InstrLoad:
		return fmt.Sprintf("%%t%d = load %s %s", in.Load.Dst, in.Load.Type, in.Load.Ptr)
	case InstrBinary:
		b := in.Binary
		return fmt.Sprintf("%%t%d = %s %s, %s", b.Dst, b.Op, b.Left, b.Right)
	case InstrCompare:
		c := in.Compare
		return fmt.Sprintf("%%t%d = cmp %s %s, %s", c.Dst, c.Op, c.Left, c.Right)
	case InstrNot:
		return fmt.Sprintf("%%t%d = not %s", in.Unary.Dst, in.Unary.Value)
	case InstrNeg:
		return fmt.Sprintf("%%t%d = neg %s", in.Unary.Dst, in.Unary.Value)
	case InstrCall:
		var sb strings.Builder
		if in.Call.HasDst {
			fmt.Fprintf(&sb, "%%t%d = ", in.Call.Dst)
		}
		fmt.Fprintf(&sb, "call @%s(%s)", in.Call.Func, joinValues(in.Call.Args))
		return sb.String()
	case InstrReturn:
		return "ret " + in.Return.Value.String()
	case InstrBranch:
		return "br " + in.Branch.Target
	case InstrCondBranch:
		c := in.CondBranch
		return fmt.Sprintf("br %s, %s, %s", c.Cond, c.Then, c.Else)
	case InstrPhi:
		edges := make([]string, len(in.Phi.Incoming))
		for i, e := range in.Phi.Incoming {
			edges[i] = fmt.Sprintf("[%s, %s]", e.Value, e.Label)
		}
		return fmt.Sprintf("%%t%d = phi %s", in.Phi.Dst, strings.Join(edges, ", "))
	case InstrGetField:
		g := in.GetField
		return fmt.Sprintf("%%t%d = getfield %s %%%s.%d (%s)", g.Dst, g.Ptr, g.Struct, g.Index, g.Field)
	case InstrSetField:
		s := in.SetField
		return fmt.Sprintf("setfield %s %%%s.%d (%s), %s", s.Ptr, s.Struct, s.Index, s.Field, s.Value)
	case InstrGetElement:
		g := in.GetElement
		return fmt.Sprintf("%%t%d = getelem %s, %s", g.Dst, g.Ptr, g.Index)
	case InstrSetElement:
		s := in.SetElement
		return fmt.Sprintf("setelem %s, %s, %s", s.Ptr, s.Index, s.Value)
	case InstrAwait:
		return fmt.Sprintf("%%t%d = await %s", in.Await.Dst, in.Await.Future)
	case InstrNewStruct:
		return fmt.Sprintf("%%t%d = newstruct %%%s", in.NewStruct.Dst, in.NewStruct.Struct)
	case InstrNewArray:
		n := in.NewArray
		return fmt.Sprintf("%%t%d = newarray %s, %s", n.Dst, n.Elem, n.Size)
	case InstrCast:
		c := in.Cast
		return fmt.Sprintf("%%t%d = cast %s to %s", c.Dst, c.Value, c.To)
	case InstrComment:
		return "; " + in.Comment
	}
	return in.Kind.String()
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
