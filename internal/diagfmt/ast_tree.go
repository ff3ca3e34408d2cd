package diagfmt

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"mendes/internal/ast"
	"mendes/internal/source"
	"mendes/internal/types"
)

type treeNode struct {
	label    string
	children []*treeNode
}

var (
	spanType    = reflect.TypeFor[source.Span]()
	fileIDType  = reflect.TypeFor[source.FileID]()
	astTypeType = reflect.TypeFor[ast.Type]()
)

// Tree writes prog as an outline with one node per line. Node labels carry
// the node's span resolved through fs; type annotations are shown the way
// the checker prints types.
func Tree(w io.Writer, prog *ast.Program, fs *source.FileSet) error {
	root := &treeNode{label: "Program"}
	if prog != nil {
		if f := fs.Get(prog.File); f != nil {
			root.label = fmt.Sprintf("Program (%s)", f.Path)
		}
		for i, st := range prog.Stmts {
			root.children = append(root.children, buildTreeNode(fmt.Sprintf("[%d]", i), reflect.ValueOf(&st).Elem(), fs))
		}
	}
	var sb strings.Builder
	sb.WriteString(root.label)
	sb.WriteByte('\n')
	writeChildren(&sb, root, "")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeChildren(sb *strings.Builder, n *treeNode, prefix string) {
	for i, child := range n.children {
		last := i == len(n.children)-1
		branch, next := "├─ ", "│  "
		if last {
			branch, next = "└─ ", "   "
		}
		sb.WriteString(prefix + branch + child.label + "\n")
		writeChildren(sb, child, prefix+next)
	}
}

// buildTreeNode walks one field value. ast nodes are plain structs behind
// sealed interfaces, so reflection covers every node kind without a switch
// that has to track the tree definition.
func buildTreeNode(label string, v reflect.Value, fs *source.FileSet) *treeNode {
	if v.Kind() == reflect.Interface && !v.IsNil() && v.Type() == astTypeType {
		return &treeNode{label: label + ": " + types.FromAST(v.Interface().(ast.Type)).String()}
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return &treeNode{label: label + ": <nil>"}
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		node := &treeNode{label: label + ": " + t.Name()}
		if strings.HasPrefix(label, "[") {
			node.label = label + " " + t.Name()
		}
		for i := range t.NumField() {
			f := t.Field(i)
			fv := v.Field(i)
			switch {
			case !f.IsExported() || f.Type == fileIDType:
			case f.Type == spanType:
				if sp := fv.Interface().(source.Span); sp != source.NoSpan {
					node.label += " (" + formatSpan(sp, fs) + ")"
				}
			case skipField(fv):
			default:
				node.children = append(node.children, buildTreeNode(f.Name, fv, fs))
			}
		}
		return node
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.String {
			return &treeNode{label: fmt.Sprintf("%s: %v", label, v.Interface())}
		}
		node := &treeNode{label: label}
		for i := range v.Len() {
			node.children = append(node.children, buildTreeNode(fmt.Sprintf("[%d]", i), v.Index(i), fs))
		}
		return node
	default:
		// операторы печатаем так, как они записаны в исходнике
		if op, ok := v.Interface().(interface{ Symbol() string }); ok {
			return &treeNode{label: label + ": " + op.Symbol()}
		}
		return &treeNode{label: fmt.Sprintf("%s: %v", label, v.Interface())}
	}
}

// skipField hides empty optional parts: nil children, empty lists and
// empty strings.
func skipField(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.String:
		return v.Len() == 0
	}
	return false
}

func formatSpan(sp source.Span, fs *source.FileSet) string {
	if fs == nil || fs.Get(sp.File) == nil {
		return fmt.Sprintf("%d..%d", sp.Start, sp.End)
	}
	start, end := fs.Resolve(sp)
	return fmt.Sprintf("%d:%d-%d:%d", start.Line, start.Col, end.Line, end.Col)
}
