package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"mendes/internal/source"
	"mendes/internal/trace"
)

// documentExts are the suffixes ListDocuments picks up.
var documentExts = []string{".yaml", ".yml", ".json"}

func isDocument(path string) bool {
	for _, ext := range documentExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ListDocuments expands args into document paths: files are kept as given,
// directories are walked for *.yaml, *.yml and *.json. The result is sorted
// and free of duplicates.
func ListDocuments(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// ошибку чтения покажет CheckFile как диагностику
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != arg && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && isDocument(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// CheckFiles runs the pipeline over every path with at most opts.Jobs
// files in flight. Results keep the order of paths. The only error is
// cancellation of ctx; per-file problems live in the results.
func CheckFiles(ctx context.Context, fileSet *source.FileSet, paths []string, opts Options) ([]*FileResult, error) {
	results := make([]*FileResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	tracer := opts.tracer()
	span := trace.Begin(tracer, trace.ScopeDriver, "check_files", trace.CurrentSpan(ctx).SpanID).
		WithExtra("files", fmt.Sprint(len(paths)))
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, p := range paths {
		opts.report(p, StageQueued, StatusWorking, 0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// индекс i уникален для горутины, мьютекс не нужен
			results[i] = CheckFile(gctx, fileSet, path, opts)
			return nil
		})
	}
	err := g.Wait()
	span.End("")
	return results, err
}

func safeUint32(n int) (uint32, error) {
	if n < 0 {
		n = 0
	}
	return safecast.Conv[uint32](n)
}
