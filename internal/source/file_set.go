package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files and resolves spans to line/column.
type FileSet struct {
	files []File
	index map[string]FileID // path -> id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		index: make(map[string]FileID),
	}
}

// Add stores a file, computes its line index and hash, and returns a new FileID.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(lenFiles)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.index[path] = id
	return id
}

// Load reads a file from disk and calls Add.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fs.Add(path, content, 0), nil
}

// AddVirtual adds an in-memory file with the FileVirtual flag.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file for an ID, or nil when the ID is out of range.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the file previously added under path.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	if id, ok := fs.index[path]; ok {
		return &fs.files[id], true
	}
	return nil, false
}

// Len reports the number of files.
func (fs *FileSet) Len() int { return len(fs.files) }

// Files exposes the stored files for serialization.
func (fs *FileSet) Files() []File { return fs.files }

// Restore rebuilds the set from serialized files, recomputing line indexes.
func (fs *FileSet) Restore(files []File) {
	fs.files = files
	fs.index = make(map[string]FileID, len(files))
	for i := range fs.files {
		f := &fs.files[i]
		f.ID = FileID(i) //nolint:gosec // bounded by Add overflow check on the producer
		if len(f.LineIdx) == 0 {
			f.LineIdx = buildLineIndex(f.Content)
		}
		fs.index[f.Path] = f.ID
	}
}

// Position resolves the start of a span to a 1-based line/column pair.
func (fs *FileSet) Position(sp Span) (string, LineCol) {
	f := fs.Get(sp.File)
	if f == nil {
		return "", LineCol{Line: 1, Col: 1}
	}
	return f.Path, f.LineColAt(sp.Start)
}

// LineColAt converts a byte offset into a 1-based line/column pair.
func (f *File) LineColAt(offset uint32) LineCol {
	line := sort.Search(len(f.LineIdx), func(i int) bool {
		return f.LineIdx[i] > offset
	})
	lc := LineCol{Line: 1, Col: offset + 1}
	if line > 0 {
		lineU32, err := safecast.Conv[uint32](line)
		if err != nil {
			panic(fmt.Errorf("line index overflow: %w", err))
		}
		lc.Line = lineU32 + 1
		lc.Col = offset - f.LineIdx[line-1] + 1
	}
	return lc
}

// Line returns the content of a 1-based line number without the trailing newline.
func (f *File) Line(line uint32) []byte {
	if line == 0 {
		return nil
	}
	start := uint32(0)
	if line > 1 {
		idx := int(line) - 2
		if idx >= len(f.LineIdx) {
			return nil
		}
		start = f.LineIdx[idx]
	}
	end := uint32(len(f.Content)) //nolint:gosec // content length bounded by loader
	if int(line)-1 < len(f.LineIdx) {
		end = f.LineIdx[int(line)-1] - 1
	}
	if start > end {
		return nil
	}
	return f.Content[start:end]
}

// buildLineIndex records the byte offset just past every newline.
func buildLineIndex(content []byte) []uint32 {
	var idx []uint32
	for i, b := range content {
		if b == '\n' {
			off, err := safecast.Conv[uint32](i + 1)
			if err != nil {
				panic(fmt.Errorf("line offset overflow: %w", err))
			}
			idx = append(idx, off)
		}
	}
	return idx
}
