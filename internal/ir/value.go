package ir

import (
	"fmt"
	"strconv"
)

// ValueKind tags an operand.
type ValueKind uint8

const (
	ValueVoid ValueKind = iota
	ValueInt
	ValueFloat
	ValueBool
	ValueString // index into Module.Strings
	ValueLocal
	ValueParam
	ValueGlobal
	ValueTemp
)

// Value is an immutable operand. Int carries the integer constant, the
// bool bit, the string-table index, the parameter position or the temp id
// depending on Kind.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Name  string
}

// VoidValue is the absence of a value.
var VoidValue = Value{Kind: ValueVoid}

func ConstInt(v int64) Value      { return Value{Kind: ValueInt, Int: v} }
func ConstFloat(v float64) Value  { return Value{Kind: ValueFloat, Float: v} }
func ConstString(idx int) Value   { return Value{Kind: ValueString, Int: int64(idx)} }
func Local(name string) Value     { return Value{Kind: ValueLocal, Name: name} }
func Param(i int) Value           { return Value{Kind: ValueParam, Int: int64(i)} }
func GlobalRef(name string) Value { return Value{Kind: ValueGlobal, Name: name} }
func Temp(id uint32) Value        { return Value{Kind: ValueTemp, Int: int64(id)} }

func ConstBool(v bool) Value {
	if v {
		return Value{Kind: ValueBool, Int: 1}
	}
	return Value{Kind: ValueBool}
}

func (v Value) IsVoid() bool { return v.Kind == ValueVoid }

// TempID returns the temporary number; ok is false for other kinds.
func (v Value) TempID() (uint32, bool) {
	if v.Kind != ValueTemp {
		return 0, false
	}
	return uint32(v.Int), true //nolint:gosec // built from a uint32
}

func (v Value) String() string {
	switch v.Kind {
	case ValueVoid:
		return "void"
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Int != 0)
	case ValueString:
		return fmt.Sprintf("str#%d", v.Int)
	case ValueLocal:
		return "%" + v.Name
	case ValueParam:
		return fmt.Sprintf("%%arg%d", v.Int)
	case ValueGlobal:
		return "@" + v.Name
	case ValueTemp:
		return fmt.Sprintf("%%t%d", v.Int)
	}
	return fmt.Sprintf("ValueKind(%d)", v.Kind)
}
