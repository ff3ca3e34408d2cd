package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("main.ms", []byte("let x = 1"), 0)
	id2 := fs.Add("main.ms", []byte("let x = 2"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	latest, ok := fs.GetLatest("main.ms")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d, %v; want %d, true", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "let x = 1" {
		t.Fatalf("old version content = %q", got)
	}
	if fs.Get(FileID(42)) != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.ms", []byte("fn f():\n    return 1\n"))

	tests := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{3, 1, 4},
		{8, 2, 1},
		{12, 2, 5},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start.Line != tt.line || start.Col != tt.col {
			t.Errorf("offset %d: got %d:%d, want %d:%d", tt.off, start.Line, start.Col, tt.line, tt.col)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a.ms", []byte("one\ntwo\nthree")))

	for i, want := range []string{"one", "two", "three", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d = %q, want %q", i+1, got, want)
		}
	}
	if got := f.GetLine(0); got != "" {
		t.Errorf("line 0 = %q", got)
	}
}

func TestLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.ms")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFa\r\nb\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %b, want BOM and CRLF bits", f.Flags)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got.Start != 2 || got.End != 8 {
		t.Fatalf("cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Fatalf("cross-file cover changed span: %v", got)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.ms", []byte("fn f():\n    return 1\n"))
	f := fs.Get(id)
	for _, off := range []uint32{0, 3, 8, 12} {
		start, _ := fs.Resolve(Span{File: id, Start: off, End: off})
		if got := f.Offset(start); got != off {
			t.Errorf("Offset(%d:%d) = %d, want %d", start.Line, start.Col, got, off)
		}
	}
	if got := f.Offset(LineCol{Line: 40, Col: 1}); got != uint32(len(f.Content)) {
		t.Errorf("past the end = %d", got)
	}
}

func TestLoneCarriageReturnKept(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddNormalized("cr.ms", []byte("a\rb\r\nc")))
	if string(f.Content) != "a\rb\nc" || f.Flags&FileHadBOM != 0 {
		t.Fatalf("content = %q flags = %b", f.Content, f.Flags)
	}
}

func TestConcurrentAdd(t *testing.T) {
	fs := NewFileSet()
	var wg sync.WaitGroup
	ids := make([]FileID, 32)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = fs.AddVirtual(fmt.Sprintf("doc%d.mds", i), []byte("x\ny"))
		}()
	}
	wg.Wait()
	if fs.Len() != len(ids) {
		t.Fatalf("len = %d", fs.Len())
	}
	for i, id := range ids {
		if got := fs.Get(id).Path; got != fmt.Sprintf("doc%d.mds", i) {
			t.Errorf("id %d path = %q", id, got)
		}
	}
}
