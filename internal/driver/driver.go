// Package driver runs the middle end over syntax-tree documents: decode,
// check, and optionally lower and validate, one file at a time or many in
// parallel.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mendes/internal/astio"
	"mendes/internal/diag"
	"mendes/internal/ir"
	"mendes/internal/lower"
	"mendes/internal/observ"
	"mendes/internal/sema"
	"mendes/internal/source"
	"mendes/internal/trace"
)

// Options configure a run.
type Options struct {
	// MaxDiagnostics caps diagnostics per file; 0 means unlimited.
	MaxDiagnostics int
	// Jobs bounds parallel workers in CheckFiles; 0 means GOMAXPROCS.
	Jobs int
	// Lower runs lowering and IR validation on every decoded file, including
	// ones with checker errors.
	Lower bool
	// Cache, when set, short-circuits check-only runs of unchanged documents.
	Cache    *DiskCache
	Tracer   trace.Tracer
	Progress ProgressFunc
}

// FileResult is everything one document produced.
type FileResult struct {
	Path string
	// DocFile is the document itself; SourceFile is the program text it
	// describes. Both are registered in the FileSet.
	DocFile    source.FileID
	SourceFile source.FileID
	Document   *astio.Document
	Bag        *diag.Bag
	Module     *ir.Module
	Timing     observ.Report
	Cached     bool
	// Err is an internal failure such as invalid IR, not a user error.
	Err error
}

func (o *Options) tracer() trace.Tracer {
	if o.Tracer == nil {
		return trace.Nop
	}
	return o.Tracer
}

func (o *Options) report(path string, stage Stage, status Status, elapsed time.Duration) {
	if o.Progress != nil {
		o.Progress(Event{File: path, Stage: stage, Status: status, Elapsed: elapsed})
	}
}

// CheckFile reads path and runs the pipeline on it.
func CheckFile(ctx context.Context, fs *source.FileSet, path string, opts Options) *FileResult {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		id := fs.AddVirtual(path, nil)
		bag := diag.NewBag(opts.MaxDiagnostics)
		diag.ReportError(diag.BagReporter{Bag: bag}, diag.IOLoadFileError, source.Span{File: id},
			fmt.Sprintf("cannot read `%s`: %v", path, unwrapPathError(err))).Emit()
		opts.report(path, StageDone, StatusError, 0)
		return &FileResult{Path: path, DocFile: id, SourceFile: id, Bag: bag}
	}
	return CheckBytes(ctx, fs, path, data, opts)
}

// CheckBytes runs the pipeline on an in-memory document.
func CheckBytes(ctx context.Context, fs *source.FileSet, path string, data []byte, opts Options) *FileResult {
	tracer := opts.tracer()
	span := trace.Begin(tracer, trace.ScopeDriver, "file", trace.CurrentSpan(ctx).SpanID).WithExtra("path", path)
	started := time.Now()

	docID := fs.AddNormalized(path, data)
	res := &FileResult{Path: path, DocFile: docID, SourceFile: docID}
	timer := observ.NewTimer()

	key := opts.cacheKey(fs.Get(docID))
	if opts.Cache != nil && !opts.Lower {
		var payload CachePayload
		if ok, err := opts.Cache.Get(key, &payload); err == nil && ok && payload.Schema == cacheSchemaVersion {
			if payload.SourcePath != "" {
				res.SourceFile = fs.AddVirtual(payload.SourcePath, []byte(payload.Source))
			}
			res.Bag = payload.restore(res.DocFile, res.SourceFile, opts.MaxDiagnostics)
			res.Cached = true
			opts.report(path, StageDone, StatusCached, time.Since(started))
			span.WithExtra("cached", "true").End(strconv.Itoa(res.Bag.Len()))
			return res
		}
	}

	res.Bag = diag.NewBag(opts.MaxDiagnostics)
	decoded := passes{ctx: ctx, opts: &opts, res: res, timer: timer, parent: span.ID()}.run(fs)

	if decoded && opts.Cache != nil && !opts.Lower && res.Err == nil {
		payload := newCachePayload(res, fs)
		if err := opts.Cache.Put(key, payload); err != nil {
			trace.Fail(tracer, "cache_put", err)
		}
	}

	res.Timing = timer.Report()
	status := StatusOK
	if res.Bag.HasErrors() || res.Err != nil {
		status = StatusError
	}
	opts.report(path, StageDone, status, time.Since(started))
	span.End(strconv.Itoa(res.Bag.Len()))
	return res
}

// passes carries the state shared by the pipeline stages of one file.
type passes struct {
	ctx    context.Context
	opts   *Options
	res    *FileResult
	timer  *observ.Timer
	parent uint64
}

// stage runs fn inside a pass span, a timer phase and a pair of progress events.
func (p passes) stage(st Stage, fn func() (Status, string)) Status {
	span := trace.Begin(p.opts.tracer(), trace.ScopePass, st.String(), p.parent)
	started := time.Now()
	p.opts.report(p.res.Path, st, StatusWorking, 0)
	var status Status
	p.timer.Track(st.String(), func() string {
		var note string
		status, note = fn()
		return note
	})
	p.opts.report(p.res.Path, st, status, time.Since(started))
	span.WithExtra("status", status.String()).End("")
	return status
}

// run reports whether the document decoded.
func (p passes) run(fs *source.FileSet) bool {
	res := p.res
	docFile := fs.Get(res.DocFile)

	status := p.stage(StageDecode, func() (Status, string) {
		doc, err := astio.Decode(docFile.Content, func(path, text string) source.FileID {
			if path == "" {
				path = res.Path
			}
			res.SourceFile = fs.AddVirtual(path, []byte(text))
			return res.SourceFile
		})
		res.Document = doc
		if err == nil {
			return StatusOK, ""
		}
		reporter := diag.BagReporter{Bag: res.Bag}
		for _, e := range astio.AsErrors(err) {
			sp := source.Span{File: res.DocFile}
			if e.Line > 0 {
				col, _ := safeUint32(e.Column)
				line, _ := safeUint32(e.Line)
				off := docFile.Offset(source.LineCol{Line: line, Col: col})
				sp.Start, sp.End = off, off
			}
			diag.ReportError(reporter, diag.IODecodeError, sp, e.Msg).Emit()
		}
		return StatusError, strconv.Itoa(len(astio.AsErrors(err)))
	})
	if status != StatusOK {
		p.skip(StageCheck)
		return false
	}
	if err := p.ctx.Err(); err != nil {
		res.Err = err
		return true
	}

	var checked sema.Result
	p.stage(StageCheck, func() (Status, string) {
		checked = sema.Check(res.Document.Program, sema.Options{
			Tracer:         p.opts.tracer(),
			MaxDiagnostics: p.opts.MaxDiagnostics,
		})
		res.Bag = checked.Diagnostics
		res.Bag.Sort()
		res.Bag.Dedup()
		if res.Bag.HasErrors() {
			return StatusError, strconv.Itoa(res.Bag.Len())
		}
		return StatusOK, strconv.Itoa(res.Bag.Len())
	})
	// Lowering tolerates checker errors; callers decide whether to emit.
	if !p.opts.Lower {
		return true
	}

	p.stage(StageLower, func() (Status, string) {
		res.Module = lower.Lower(res.Document.Program, lower.Options{
			ModuleName: moduleName(res.Path),
			Types:      checked.ExprTypes,
			Tracer:     p.opts.tracer(),
		})
		return StatusOK, strconv.Itoa(len(res.Module.Funcs))
	})
	p.stage(StageValidate, func() (Status, string) {
		if err := ir.Validate(res.Module); err != nil {
			res.Err = fmt.Errorf("%s: invalid IR: %w", res.Path, err)
			trace.Fail(p.opts.tracer(), "validate", res.Err)
			return StatusError, ""
		}
		return StatusOK, ""
	})
	return true
}

func (p passes) skip(from Stage) {
	last := StageCheck
	if p.opts.Lower {
		last = StageValidate
	}
	for st := from; st <= last; st++ {
		p.opts.report(p.res.Path, st, StatusSkipped, 0)
	}
}

// moduleName turns "api/users.yaml" into "users".
func moduleName(path string) string {
	base := filepath.Base(path)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." {
		return "main"
	}
	return base
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
