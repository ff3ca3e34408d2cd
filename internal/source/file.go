package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"fortio.org/safecast"
)

// FileFlags records how the stored text differs from what was read.
type FileFlags uint8

const (
	FileVirtual        FileFlags = 1 << iota // not read from disk
	FileHadBOM                               // UTF-8 BOM stripped
	FileNormalizedCRLF                       // \r\n folded to \n
)

// File is one stored text. Re-adding a path creates a new File.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Hash    [32]byte
	Flags   FileFlags
	// newlines holds the offset of every '\n'.
	newlines []uint32
}

func mustU32(n int, what string) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s overflow: %w", what, err))
	}
	return v
}

func indexNewlines(content []byte) []uint32 {
	var out []uint32
	for off := 0; ; {
		i := bytes.IndexByte(content[off:], '\n')
		if i < 0 {
			return out
		}
		out = append(out, mustU32(off+i, "line offset"))
		off += i + 1
	}
}

func (f *File) size() uint32 { return mustU32(len(f.Content), "content length") }

// lineStart is the offset of the first byte of 1-based line n.
func (f *File) lineStart(n int) (uint32, bool) {
	switch {
	case n == 1:
		return 0, true
	case n >= 2 && n-2 < len(f.newlines):
		return f.newlines[n-2] + 1, true
	}
	return 0, false
}

// Position maps a byte offset to a line and column.
func (f *File) Position(off uint32) LineCol {
	// строк до off столько же, сколько переводов строки перед ним
	line, _ := slices.BinarySearch(f.newlines, off)
	start, _ := f.lineStart(line + 1)
	return LineCol{Line: mustU32(line+1, "line number"), Col: off - start + 1}
}

// Offset is the inverse of Position, clamped to the file length.
func (f *File) Offset(pos LineCol) uint32 {
	size := f.size()
	if pos.Line <= 1 {
		return min(pos.Col-min(pos.Col, 1), size)
	}
	start, ok := f.lineStart(int(pos.Line))
	if !ok {
		return size
	}
	return min(start+pos.Col-1, size)
}

// GetLine returns 1-based line n without its newline, or "" when there is
// no such line.
func (f *File) GetLine(n uint32) string {
	if f == nil {
		return ""
	}
	start, ok := f.lineStart(int(n))
	size := f.size()
	if !ok || start >= size {
		return ""
	}
	end := size
	if int(n)-1 < len(f.newlines) {
		end = f.newlines[n-1]
	}
	return string(f.Content[start:end])
}

// FormatPath renders Path for output. mode is absolute, relative, basename
// or auto; auto keeps short and relative paths and cuts long absolute ones
// to the base name.
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := filepath.Abs(f.Path); err == nil {
			return filepath.ToSlash(abs)
		}
	case "relative":
		if baseDir == "" {
			baseDir, _ = os.Getwd()
		}
		if rel, err := filepath.Rel(baseDir, f.Path); err == nil {
			return filepath.ToSlash(rel)
		}
	case "basename":
		return filepath.Base(f.Path)
	case "auto":
		if filepath.IsAbs(f.Path) && len(f.Path) >= 40 {
			return filepath.Base(f.Path)
		}
	}
	return f.Path
}
