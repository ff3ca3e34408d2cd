package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"mendes/internal/diag"
	"mendes/internal/project"
	"mendes/internal/source"
	"mendes/internal/version"
)

// Current schema version - increment when CachePayload format changes
const cacheSchemaVersion uint16 = 1

// DiskCache хранит результаты проверки документов на диске, по ключу из
// содержимого документа, версии компилятора и настроек.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedNote is a diag.Note with the file replaced by a doc/source flag,
// since file IDs are only meaningful inside one FileSet.
type CachedNote struct {
	InDoc      bool
	Start, End uint32
	Msg        string
}

type CachedDiagnostic struct {
	Severity   uint8
	Code       uint16
	Message    string
	Label      string
	InDoc      bool
	Start, End uint32
	Notes      []CachedNote
	Remarks    []string
	Helps      []string
}

// CachePayload is what one check-only run of a document leaves behind.
type CachePayload struct {
	Schema      uint16
	Path        string
	SourcePath  string
	Source      string
	Diagnostics []CachedDiagnostic
	Dropped     int
}

// OpenDiskCache opens the cache under dir, or under $XDG_CACHE_HOME/app
// (falling back to ~/.cache/app) when dir is empty.
func OpenDiskCache(dir, app string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("locate cache directory: %w", err)
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir is where entries are stored.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// двухсимвольный префикс, чтобы не держать тысячи файлов в одном каталоге
	return filepath.Join(c.dir, "checks", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *CachePayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key project.Digest, out *CachePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "checks"))
}

// cacheKey mixes the document bytes with everything that can change the
// diagnostics produced for them.
func (o *Options) cacheKey(doc *source.File) project.Digest {
	if doc == nil {
		return project.Digest{}
	}
	return project.Combine(project.Digest(doc.Hash),
		project.HashString(version.Version),
		project.HashString("max_diagnostics="+strconv.Itoa(o.MaxDiagnostics)))
}

func newCachePayload(res *FileResult, fs *source.FileSet) *CachePayload {
	payload := &CachePayload{Schema: cacheSchemaVersion, Path: res.Path, Dropped: res.Bag.Dropped()}
	if f := fs.Get(res.SourceFile); f != nil && res.SourceFile != res.DocFile {
		payload.SourcePath = f.Path
		payload.Source = string(f.Content)
	}
	for _, d := range res.Bag.Items() {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Label:    d.Label,
			InDoc:    d.Primary.File == res.DocFile,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
			Remarks:  d.Remarks,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{InDoc: n.Span.File == res.DocFile, Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		for _, fx := range d.Fixes {
			cd.Helps = append(cd.Helps, fx.Title)
		}
		payload.Diagnostics = append(payload.Diagnostics, cd)
	}
	return payload
}

// restore rebuilds the bag against the file IDs of the current FileSet.
func (p *CachePayload) restore(docFile, sourceFile source.FileID, maxDiagnostics int) *diag.Bag {
	bag := diag.NewBag(maxDiagnostics)
	file := func(inDoc bool) source.FileID {
		if inDoc {
			return docFile
		}
		return sourceFile
	}
	for _, cd := range p.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code),
			source.Span{File: file(cd.InDoc), Start: cd.Start, End: cd.End}, cd.Message).WithLabel(cd.Label)
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{File: file(n.InDoc), Start: n.Start, End: n.End}, n.Msg)
		}
		for _, r := range cd.Remarks {
			d = d.WithRemark(r)
		}
		for _, h := range cd.Helps {
			d = d.WithHelp(h)
		}
		bag.Add(d)
	}
	bag.MarkDropped(p.Dropped)
	return bag
}
