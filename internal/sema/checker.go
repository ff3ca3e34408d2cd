package sema

import (
	"fmt"

	"mendes/internal/ast"
	"mendes/internal/diag"
	"mendes/internal/source"
	"mendes/internal/symbols"
	"mendes/internal/trace"
	"mendes/internal/types"
)

// Options configure a semantic pass over one program.
type Options struct {
	// Reporter receives every diagnostic in addition to Result.Diagnostics.
	Reporter diag.Reporter
	Tracer   trace.Tracer
	// MaxDiagnostics caps Result.Diagnostics; 0 means unlimited.
	MaxDiagnostics int
}

// Result stores what the checker produced.
type Result struct {
	Diagnostics *diag.Bag
	ExprTypes   map[ast.Expr]types.Type
}

// Check runs declaration collection and then statement checking over prog.
// Checking never stops at the first error.
func Check(prog *ast.Program, opts Options) Result {
	res := Result{
		Diagnostics: diag.NewBag(opts.MaxDiagnostics),
		ExprTypes:   make(map[ast.Expr]types.Type),
	}
	if prog == nil {
		return res
	}

	var reporter diag.Reporter = diag.BagReporter{Bag: res.Diagnostics}
	if opts.Reporter != nil {
		reporter = teeReporter{reporter, opts.Reporter}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}

	table := symbols.NewTable()
	symbols.DefineBuiltins(table)
	c := &checker{
		reporter: reporter,
		tracer:   tracer,
		syms:     table,
		reg:      symbols.NewRegistry(),
		own:      NewTracker(reporter),
		result:   &res,
	}
	c.run(prog)
	return res
}

type teeReporter []diag.Reporter

func (t teeReporter) Report(d diag.Diagnostic) {
	for _, r := range t {
		r.Report(d)
	}
}

// returnContext describes what `return` is checked against.
// Closures without an annotated return type infer it from the first return.
type returnContext struct {
	expected types.Type
	infer    bool
	found    *types.Type
}

type checker struct {
	reporter diag.Reporter
	tracer   trace.Tracer
	syms     *symbols.Table
	reg      *symbols.Registry
	own      *Tracker
	result   *Result

	ret     *returnContext
	inAsync bool
	loops   int
	// imports means unknown callees may come from another module.
	imports bool
}

func (c *checker) run(prog *ast.Program) {
	for _, stmt := range prog.Stmts {
		switch stmt.(type) {
		case *ast.ImportStmt, *ast.FromImportStmt:
			c.imports = true
		}
	}

	span := trace.Begin(c.tracer, trace.ScopePass, "declare", 0)
	for _, stmt := range prog.Stmts {
		c.declareTypes(stmt)
	}
	for _, stmt := range prog.Stmts {
		c.declare(stmt)
	}
	span.End("")

	span = trace.Begin(c.tracer, trace.ScopePass, "check", 0)
	for _, stmt := range prog.Stmts {
		c.checkTopLevel(stmt, span.ID())
	}
	span.WithExtra("diagnostics", fmt.Sprint(c.result.Diagnostics.Len())).End("")
}

// withScope pushes a symbol scope and an ownership scope together and pops
// both when fn returns, on every path.
func (c *checker) withScope(fn func()) {
	c.syms.PushScope()
	c.own.PushScope()
	defer func() {
		c.own.PopScope()
		c.syms.PopScope()
	}()
	fn()
}

// withBody sets up the return type and async context of a callable body.
func (c *checker) withBody(ret *returnContext, async bool, fn func()) {
	prevRet, prevAsync, prevLoops := c.ret, c.inAsync, c.loops
	c.ret, c.inAsync, c.loops = ret, async, 0
	if async {
		c.own.EnterAsync()
	}
	defer func() {
		if async {
			c.own.ExitAsync()
		}
		c.ret, c.inAsync, c.loops = prevRet, prevAsync, prevLoops
		if prevAsync {
			c.own.EnterAsync()
		}
	}()
	fn()
}

// defineLocal binds a variable in both the symbol table and the tracker.
func (c *checker) defineLocal(name string, ty types.Type, mutable bool, at source.Span) {
	c.syms.Define(symbols.NewVariable(name, ty, mutable, at))
	c.own.Define(name, ty, mutable, at)
}

func (c *checker) defineParam(name string, ty types.Type, at source.Span) {
	c.syms.Define(symbols.NewParam(name, ty, at))
	c.own.Define(name, ty, false, at)
}

func (c *checker) report(code diag.Code, span source.Span, label, format string, args ...any) {
	diag.ReportError(c.reporter, code, span, fmt.Sprintf(format, args...)).
		WithLabel(label).
		Emit()
}

func (c *checker) typeMismatch(span source.Span, label, format string, args ...any) {
	c.report(diag.TypeMismatch, span, label, format, args...)
}

// resolve expands type aliases so that alias names compare by structure.
func (c *checker) resolve(t types.Type) types.Type {
	return c.resolveDepth(t, 0)
}

const maxAliasDepth = 16

func (c *checker) resolveDepth(t types.Type, depth int) types.Type {
	if depth > maxAliasDepth {
		return types.Unknown
	}
	switch t.Kind {
	case types.KindNamed:
		target, ok := c.reg.Alias(t.Name)
		if !ok {
			return t
		}
		return c.resolveDepth(target, depth+1)
	case types.KindRef, types.KindMutRef, types.KindArray, types.KindFuture, types.KindRange:
		elem := c.resolveDepth(t.ElemType(), depth)
		return types.Type{Kind: t.Kind, Elem: &elem}
	case types.KindGeneric, types.KindTuple:
		args := make([]types.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.resolveDepth(a, depth)
		}
		return types.Type{Kind: t.Kind, Name: t.Name, Args: args}
	case types.KindFunction:
		params := make([]types.Type, len(t.Args))
		for i, a := range t.Args {
			params[i] = c.resolveDepth(a, depth)
		}
		return types.Function(params, c.resolveDepth(t.RetType(), depth))
	}
	return t
}

func (c *checker) fromAST(t ast.Type) types.Type {
	return c.resolve(types.FromAST(t))
}

func (c *checker) fromASTOr(t ast.Type, def types.Type) types.Type {
	if t == nil {
		return def
	}
	return c.fromAST(t)
}

func genericNames(gs []ast.GenericParam) []string {
	if len(gs) == 0 {
		return nil
	}
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Name
	}
	return out
}
