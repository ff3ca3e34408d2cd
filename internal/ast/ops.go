package ast

// BinOp is a binary operator, assignment forms included.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpAnd
	OpOr

	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
)

var binOpNames = [...]string{
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpEq: "Eq", OpNe: "Ne", OpLt: "Lt", OpLe: "Le", OpGt: "Gt", OpGe: "Ge",
	OpAnd: "And", OpOr: "Or",
	OpAssign: "Assign", OpAddAssign: "AddAssign", OpSubAssign: "SubAssign",
	OpMulAssign: "MulAssign", OpDivAssign: "DivAssign",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

var binOpSymbols = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
	OpAssign: "=", OpAddAssign: "+=", OpSubAssign: "-=",
	OpMulAssign: "*=", OpDivAssign: "/=",
}

// Symbol is the operator as written in source.
func (op BinOp) Symbol() string {
	if int(op) < len(binOpSymbols) {
		return binOpSymbols[op]
	}
	return "?"
}

func (op BinOp) IsArithmetic() bool { return op <= OpMod }

func (op BinOp) IsComparison() bool { return op >= OpEq && op <= OpGe }

func (op BinOp) IsLogical() bool { return op == OpAnd || op == OpOr }

func (op BinOp) IsAssign() bool { return op >= OpAssign }

// Underlying returns the arithmetic operator of a compound assignment
// (OpAdd for OpAddAssign); ok is false for everything else.
func (op BinOp) Underlying() (BinOp, bool) {
	switch op {
	case OpAddAssign:
		return OpAdd, true
	case OpSubAssign:
		return OpSub, true
	case OpMulAssign:
		return OpMul, true
	case OpDivAssign:
		return OpDiv, true
	}
	return op, false
}

type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "Not"
	}
	return "Neg"
}

func (op UnaryOp) Symbol() string {
	if op == OpNot {
		return "!"
	}
	return "-"
}
