package types

import "strings"

// String renders t the way diagnostics quote it: int, &mut T, Result<int, string>, fn(int) -> bool.
func (t Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t Type) write(sb *strings.Builder) {
	switch t.Kind {
	case KindUnknown:
		sb.WriteString("?")
	case KindAny:
		sb.WriteString("any")
	case KindUnit:
		sb.WriteString("()")
	case KindInt:
		sb.WriteString("int")
	case KindFloat:
		sb.WriteString("float")
	case KindBool:
		sb.WriteString("bool")
	case KindString:
		sb.WriteString("string")
	case KindNamed:
		sb.WriteString(t.Name)
	case KindGeneric:
		sb.WriteString(t.Name)
		sb.WriteByte('<')
		writeList(sb, t.Args)
		sb.WriteByte('>')
	case KindRef:
		sb.WriteByte('&')
		t.ElemType().write(sb)
	case KindMutRef:
		sb.WriteString("&mut ")
		t.ElemType().write(sb)
	case KindArray:
		sb.WriteByte('[')
		t.ElemType().write(sb)
		sb.WriteByte(']')
	case KindFunction:
		sb.WriteString("fn(")
		writeList(sb, t.Args)
		sb.WriteString(") -> ")
		t.RetType().write(sb)
	case KindFuture:
		sb.WriteString("Future<")
		t.ElemType().write(sb)
		sb.WriteByte('>')
	case KindTuple:
		sb.WriteByte('(')
		writeList(sb, t.Args)
		sb.WriteByte(')')
	case KindRange:
		sb.WriteString("Range<")
		t.ElemType().write(sb)
		sb.WriteByte('>')
	default:
		sb.WriteString("?")
	}
}

func writeList(sb *strings.Builder, ts []Type) {
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(", ")
		}
		t.write(sb)
	}
}
