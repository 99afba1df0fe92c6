package driver

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"ferrite/internal/ast"
	"ferrite/internal/source"
)

// Current schema version - increment when the Snapshot format changes.
const snapshotSchemaVersion uint16 = 1

// Snapshot is the unit handed over by the front-end: the pre-resolved
// declaration store, the interned string table it refers to, and the source
// files its spans point into. The store's interner pointer does not
// serialize, so strings travel as a plain slice.
type Snapshot struct {
	Schema  uint16
	Unit    string
	Strings []string
	Files   []source.File
	Store   *ast.Store
}

// EncodeSnapshot serializes a unit store for handoff to the resolver. The
// file set is optional; without it diagnostics lose line/column positions.
func EncodeSnapshot(unit string, store *ast.Store, fs *source.FileSet) ([]byte, error) {
	if store == nil {
		return nil, fmt.Errorf("driver: nil store for unit %q", unit)
	}
	snap := Snapshot{
		Schema:  snapshotSchemaVersion,
		Unit:    unit,
		Strings: store.Strings.Snapshot(),
		Store:   store,
	}
	if fs != nil {
		snap.Files = fs.Files()
	}
	return msgpack.Marshal(&snap)
}

// DecodeSnapshot rebuilds a unit store and its file set, reattaching the
// string interner.
func DecodeSnapshot(data []byte) (*Snapshot, *source.FileSet, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("driver: failed to decode unit snapshot: %w", err)
	}
	if snap.Schema != snapshotSchemaVersion {
		return nil, nil, fmt.Errorf("driver: unit snapshot schema %d, want %d", snap.Schema, snapshotSchemaVersion)
	}
	if snap.Store == nil {
		return nil, nil, fmt.Errorf("driver: unit snapshot %q carries no store", snap.Unit)
	}
	in := source.NewInterner()
	in.Restore(snap.Strings)
	snap.Store.Strings = in

	fs := source.NewFileSet()
	fs.Restore(snap.Files)
	return &snap, fs, nil
}

// WriteSnapshotFile encodes and writes a snapshot next to the caller's path.
func WriteSnapshotFile(path, unit string, store *ast.Store, fs *source.FileSet) error {
	data, err := EncodeSnapshot(unit, store, fs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) // #nosec G306 -- build artifact, not a secret
}

// ReadSnapshotFile loads and decodes a snapshot, returning the raw bytes too
// so the caller can digest them for the cache key.
func ReadSnapshotFile(path string) (*Snapshot, *source.FileSet, []byte, error) {
	// #nosec G304 -- path comes from the manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	snap, fs, err := DecodeSnapshot(data)
	if err != nil {
		return nil, nil, nil, err
	}
	return snap, fs, data, nil
}
