// Package astio reads syntax trees from YAML or JSON documents.
//
// A document carries the path and (optionally) the text of the program it
// describes, plus the statement list:
//
//	path: app.mds
//	source: |
//	  fn add(a: int, b: int) -> int: return a + b
//	stmts:
//	  - kind: fn
//	    name: add
//	    params: [{name: a, type: int}, {name: b, type: int}]
//	    ret: int
//	    body:
//	      - kind: return
//	        value: {kind: binary, op: "+", left: a, right: b}
//
// Every node is a mapping with a `kind` key and an optional `span: [start, end]`
// of byte offsets into source. Scalars are shorthands: in expression position
// a plain string is an identifier, numbers and booleans are literals and null
// is None. Types are written in surface syntax ("Result<int, string>", "&mut T").
// JSON documents decode the same way because yaml.v3 accepts JSON input.
package astio

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"mendes/internal/ast"
	"mendes/internal/source"
)

// Document is one decoded syntax-tree file.
type Document struct {
	Path    string
	Source  string
	Program *ast.Program
}

// Error is a decoding problem at a 1-based document position. Line is 0
// when the position is unknown.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Errors lists every problem found in one document.
type Errors []*Error

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

// maxErrors stops a badly broken document from flooding the output.
const maxErrors = 50

// RegisterFunc gives the decoder the file that spans should point into. It
// receives the document's path and source text.
type RegisterFunc func(path, text string) source.FileID

// Decode parses data. On failure the returned error is an Errors value and
// the document holds whatever could be decoded.
func Decode(data []byte, register RegisterFunc) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, Errors{{Msg: err.Error()}}
	}
	d := &decoder{}
	doc := &Document{Program: &ast.Program{}}
	if root.Kind == 0 {
		return doc, nil
	}
	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}
	o, ok := d.object(top)
	if !ok {
		return doc, d.errs
	}
	doc.Path = d.str(o, "path")
	doc.Source = d.str(o, "source")
	if register != nil {
		d.file = register(doc.Path, doc.Source)
	}
	doc.Program.File = d.file
	if n := o.get("stmts"); n != nil {
		doc.Program.Stmts = d.stmts(n)
	}
	d.finish(o)

	if len(d.errs) > 0 {
		return doc, d.errs
	}
	return doc, nil
}

type decoder struct {
	file source.FileID
	errs Errors
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) {
	if len(d.errs) >= maxErrors {
		return
	}
	e := &Error{Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line, e.Column = n.Line, n.Column
	}
	d.errs = append(d.errs, e)
}

// object is a mapping node with access tracking, so that misspelled keys
// are reported instead of silently ignored.
type object struct {
	node   *yaml.Node
	kind   string
	fields map[string]*yaml.Node
	used   map[string]bool
}

func (o *object) get(key string) *yaml.Node {
	o.used[key] = true
	return o.fields[key]
}

func (o *object) has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

func (d *decoder) object(n *yaml.Node) (*object, bool) {
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "expected a mapping, found %s", describe(n))
		return nil, false
	}
	o := &object{
		node:   n,
		fields: make(map[string]*yaml.Node, len(n.Content)/2),
		used:   map[string]bool{"span": true, "kind": true},
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if _, dup := o.fields[key]; dup {
			d.errorf(n.Content[i], "duplicate key %q", key)
		}
		o.fields[key] = n.Content[i+1]
	}
	if k := o.fields["kind"]; k != nil {
		o.kind = k.Value
	}
	return o, true
}

// finish reports keys nobody asked for.
func (d *decoder) finish(o *object) {
	for i := 0; i+1 < len(o.node.Content); i += 2 {
		key := o.node.Content[i]
		if !o.used[key.Value] {
			if o.kind != "" {
				d.errorf(key, "unknown field %q in %s", key.Value, o.kind)
			} else {
				d.errorf(key, "unknown field %q", key.Value)
			}
		}
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return fmt.Sprintf("%q", n.Value)
	}
	return "nothing"
}

func (d *decoder) seq(n *yaml.Node) []*yaml.Node {
	if n == nil {
		return nil
	}
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.errorf(n, "expected a list, found %s", describe(n))
		return nil
	}
	return n.Content
}

func (d *decoder) scalar(n *yaml.Node, out any) bool {
	if err := n.Decode(out); err != nil {
		d.errorf(n, "%v", err)
		return false
	}
	return true
}

func (d *decoder) str(o *object, key string) string {
	n := o.get(key)
	if n == nil {
		return ""
	}
	var s string
	d.scalar(n, &s)
	return s
}

func (d *decoder) required(o *object, key string) string {
	if !o.has(key) {
		d.errorf(o.node, "%s: missing %q", o.kind, key)
		return ""
	}
	return d.str(o, key)
}

// name reads a required identifier. Identifiers compare in NFC so that
// composed and decomposed spellings name the same symbol.
func (d *decoder) name(o *object, key string) string {
	return ident(d.required(o, key))
}

func ident(s string) string { return norm.NFC.String(s) }

func (d *decoder) boolean(o *object, key string) bool {
	n := o.get(key)
	if n == nil {
		return false
	}
	var b bool
	d.scalar(n, &b)
	return b
}

func (d *decoder) strings(o *object, key string) []string {
	var out []string
	for _, n := range d.seq(o.get(key)) {
		var s string
		if d.scalar(n, &s) {
			out = append(out, s)
		}
	}
	return out
}

func (d *decoder) uint32(o *object, key string) uint32 {
	n := o.get(key)
	if n == nil {
		return 0
	}
	var v int64
	if !d.scalar(n, &v) {
		return 0
	}
	u, err := safecast.Conv[uint32](v)
	if err != nil {
		d.errorf(n, "%s out of range: %v", key, err)
	}
	return u
}

// span reads the optional `span: [start, end]` of a node.
func (d *decoder) span(o *object) source.Span {
	n := o.fields["span"]
	if n == nil {
		return source.Span{File: d.file}
	}
	items := d.seq(n)
	if len(items) != 2 {
		d.errorf(n, "span must be [start, end]")
		return source.Span{File: d.file}
	}
	var start, end uint32
	if !d.scalar(items[0], &start) || !d.scalar(items[1], &end) {
		return source.Span{File: d.file}
	}
	if end < start {
		d.errorf(n, "span end %d before start %d", end, start)
		end = start
	}
	return source.Span{File: d.file, Start: start, End: end}
}

// AsErrors extracts the decoding problems from an error returned by Decode.
func AsErrors(err error) Errors {
	var es Errors
	if errors.As(err, &es) {
		return es
	}
	if err == nil {
		return nil
	}
	return Errors{{Msg: err.Error()}}
}
