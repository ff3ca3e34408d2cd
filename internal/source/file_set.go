package source

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"sync"
)

// FileSet owns every text a run can point diagnostics at. The driver
// registers documents from several goroutines, so all methods lock.
type FileSet struct {
	mu     sync.RWMutex
	files  []*File
	byPath map[string]FileID // newest version of each path
}

func NewFileSet() *FileSet {
	return &FileSet{byPath: make(map[string]FileID)}
}

// Add stores content as is under a fresh id.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	path = filepath.ToSlash(filepath.Clean(path))
	f := &File{
		Path:     path,
		Content:  content,
		Hash:     sha256.Sum256(content),
		Flags:    flags,
		newlines: indexNewlines(content),
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f.ID = FileID(mustU32(len(fs.files), "file count"))
	fs.files = append(fs.files, f)
	fs.byPath[path] = f.ID
	return f.ID
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// AddNormalized strips a UTF-8 BOM and folds \r\n to \n before storing.
// Lone \r bytes are kept.
func (fs *FileSet) AddNormalized(path string, content []byte) FileID {
	var flags FileFlags
	if trimmed, ok := bytes.CutPrefix(content, utf8BOM); ok {
		content = trimmed
		flags |= FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		flags |= FileNormalizedCRLF
	}
	return fs.Add(path, content, flags)
}

// AddVirtual stores text that did not come from disk, such as the source
// embedded in a syntax-tree document.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Load reads and normalizes a file from disk.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fs.AddNormalized(path, content), nil
}

func (fs *FileSet) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.files)
}

// Get returns nil for an unknown id.
func (fs *FileSet) Get(id FileID) *File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if int(id) >= len(fs.files) {
		return nil
	}
	return fs.files[id]
}

// GetLatest returns the newest id stored under path.
func (fs *FileSet) GetLatest(path string) (FileID, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	id, ok := fs.byPath[filepath.ToSlash(filepath.Clean(path))]
	return id, ok
}

// Resolve maps both ends of span. Unknown files resolve to 1:1.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: 1}, LineCol{Line: 1, Col: 1}
	}
	return f.Position(span.Start), f.Position(span.End)
}
