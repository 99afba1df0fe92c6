package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ferrite/internal/diag"
	"ferrite/internal/project"
	"ferrite/internal/source"
)

// Current schema version - increment when CachedUnit format changes.
const diskCacheSchemaVersion uint16 = 2

// DiskCache keeps per-unit check results on disk, keyed by snapshot digest.
// A hit means the exact same snapshot bytes were checked before, so the
// diagnostics can be replayed without running the resolver. Thread-safe for
// concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedDiag is one stored diagnostic, spans flattened to plain offsets.
// Notes ride along so a replayed run renders identically to a fresh one.
type CachedDiag struct {
	Severity uint8
	Code     uint16
	Message  string
	File     uint32
	Start    uint32
	End      uint32
	Notes    []CachedNote
}

// CachedNote is one attached note, flattened the same way.
type CachedNote struct {
	Message string
	File    uint32
	Start   uint32
	End     uint32
}

// CachedUnit stores a unit's check outcome for fast re-runs.
type CachedUnit struct {
	// Schema version for safe invalidation when the format changes.
	Schema uint16

	Unit         string
	SnapshotHash project.Digest

	// Outcome.
	Broken  bool // whether the unit had errors
	Schemes int  // number of type schemes the resolver produced
	Diags   []CachedDiag
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt places the cache under an explicit directory. Used by tests
// and by --cache-dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Units get their own subdirectory for easy manual cleanup.
	return filepath.Join(c.dir, "units", hexKey+".mp")
}

// Put serializes and writes a unit outcome to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *CachedUnit) error {
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
	defer func() { _ = os.Remove(f.Name()) }()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replace.
	return os.Rename(f.Name(), p)
}

// Get reads a unit outcome from the disk cache. A missing entry or a schema
// mismatch is a miss, not an error.
func (c *DiskCache) Get(key project.Digest, out *CachedUnit) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p) // #nosec G304 -- path is derived from the digest
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// cacheDiags flattens a bag for storage.
func cacheDiags(bag *diag.Bag) []CachedDiag {
	items := bag.Items()
	if len(items) == 0 {
		return nil
	}
	out := make([]CachedDiag, len(items))
	for i, d := range items {
		cd := CachedDiag{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			File:     uint32(d.Primary.File),
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		if len(d.Notes) > 0 {
			cd.Notes = make([]CachedNote, len(d.Notes))
			for j, n := range d.Notes {
				cd.Notes[j] = CachedNote{
					Message: n.Msg,
					File:    uint32(n.Span.File),
					Start:   n.Span.Start,
					End:     n.Span.End,
				}
			}
		}
		out[i] = cd
	}
	return out
}

// replayDiags refills a bag from a cache entry.
func replayDiags(bag *diag.Bag, cached []CachedDiag) {
	for _, d := range cached {
		rd := diag.Diagnostic{
			Severity: diag.Severity(d.Severity),
			Code:     diag.Code(d.Code),
			Message:  d.Message,
			Primary: source.Span{
				File:  source.FileID(d.File),
				Start: d.Start,
				End:   d.End,
			},
		}
		if len(d.Notes) > 0 {
			rd.Notes = make([]diag.Note, len(d.Notes))
			for j, n := range d.Notes {
				rd.Notes[j] = diag.Note{
					Span: source.Span{
						File:  source.FileID(n.File),
						Start: n.Start,
						End:   n.End,
					},
					Msg: n.Message,
				}
			}
		}
		bag.Add(rd)
	}
}
