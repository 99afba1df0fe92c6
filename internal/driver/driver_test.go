package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/project"
	"ferrite/internal/source"
)

// cleanStore builds a minimal unit: a Sized lang trait and one static.
func cleanStore() *ast.Store {
	store := ast.NewStore(source.NewInterner())
	sized := store.NewTrait(store.Strings.Intern("Sized"), source.Span{Start: 1, End: 6}, true, ast.TraitDecl{})
	store.Lang.Sized = sized
	store.AddTopLevel(sized)

	ty := store.NewTy(ast.Ty{Kind: ast.TyTuple, Span: source.Span{Start: 10, End: 12}})
	st := store.NewStatic(store.Strings.Intern("READY"), source.Span{Start: 10, End: 20}, true, ast.StaticDecl{Ty: ty})
	store.AddTopLevel(st)
	return store
}

// brokenStore forces a placeholder-in-signature error.
func brokenStore() *ast.Store {
	store := ast.NewStore(source.NewInterner())
	sized := store.NewTrait(store.Strings.Intern("Sized"), source.Span{Start: 1, End: 6}, true, ast.TraitDecl{})
	store.Lang.Sized = sized
	store.AddTopLevel(sized)

	hole := store.NewTy(ast.Ty{Kind: ast.TyInfer, Span: source.Span{Start: 30, End: 31}})
	st := store.NewStatic(store.Strings.Intern("HOLE"), source.Span{Start: 25, End: 40}, true, ast.StaticDecl{Ty: hole})
	store.AddTopLevel(st)
	return store
}

// cyclicStore builds mutually recursive supertraits so the unit reports a
// cycle diagnostic with its full note chain.
func cyclicStore() *ast.Store {
	store := ast.NewStore(source.NewInterner())
	sized := store.NewTrait(store.Strings.Intern("Sized"), source.Span{Start: 1, End: 6}, true, ast.TraitDecl{})
	store.Lang.Sized = sized
	store.AddTopLevel(sized)

	a := store.NewTrait(store.Strings.Intern("Producer"), source.Span{Start: 10, End: 18}, true, ast.TraitDecl{})
	b := store.NewTrait(store.Strings.Intern("Consumer"), source.Span{Start: 30, End: 38}, true, ast.TraitDecl{})
	pathTo := func(decl ast.DeclID, at uint32) ast.Bound {
		ty := store.NewTy(ast.Ty{Kind: ast.TyPath, Span: source.Span{Start: at, End: at + 8}, Decl: decl})
		return ast.Bound{Kind: ast.BoundTrait, Span: source.Span{Start: at, End: at + 8}, Trait: ty}
	}
	store.Trait(a).Supertraits = []ast.Bound{pathTo(b, 20)}
	store.Trait(b).Supertraits = []ast.Bound{pathTo(a, 40)}
	store.AddTopLevel(a, b)
	return store
}

func writeSnapshot(t *testing.T, dir, unit string, store *ast.Store) string {
	t.Helper()
	path := filepath.Join(dir, unit+".mp")
	if err := WriteSnapshotFile(path, unit, store, nil); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := cleanStore()
	data, err := EncodeSnapshot("core", store, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	snap, _, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Unit != "core" {
		t.Fatalf("unit = %q", snap.Unit)
	}
	if snap.Store.Strings == nil {
		t.Fatal("decoded store has no interner attached")
	}
	if got, want := len(snap.Store.TopLevel), len(store.TopLevel); got != want {
		t.Fatalf("top-level count = %d, want %d", got, want)
	}
	// Interned names must survive with their IDs intact.
	ready := store.Strings.Intern("READY")
	if got := snap.Store.Strings.MustLookup(ready); got != "READY" {
		t.Fatalf("string table mismatch: %q", got)
	}
}

func TestSnapshotCarriesFiles(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("demo.fe", []byte("static READY: ();\nstatic LATER: ();\n"))
	data, err := EncodeSnapshot("core", cleanStore(), fs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, gotFS, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotFS.Len() != 1 {
		t.Fatalf("file count = %d", gotFS.Len())
	}
	// Line indexes are dropped in transit and rebuilt on restore.
	path, lc := gotFS.Position(source.Span{File: id, Start: 18, End: 24})
	if path != "demo.fe" || lc.Line != 2 || lc.Col != 1 {
		t.Fatalf("position = %s:%d:%d", path, lc.Line, lc.Col)
	}
}

func TestDecodeSnapshotRejectsWrongSchema(t *testing.T) {
	store := cleanStore()
	data, err := EncodeSnapshot("core", store, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var snap Snapshot
	snap.Schema = snapshotSchemaVersion + 1
	snap.Unit = "core"
	snap.Store = store
	bad, err := msgpack.Marshal(&snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := DecodeSnapshot(bad); err == nil {
		t.Fatal("expected schema mismatch error")
	}
	// Sanity: the good bytes still decode.
	if _, _, err := DecodeSnapshot(data); err != nil {
		t.Fatalf("good snapshot failed to decode: %v", err)
	}
}

func TestCheckUnitsParallel(t *testing.T) {
	dir := t.TempDir()
	units := []UnitInput{
		{Name: "clean", Path: writeSnapshot(t, dir, "clean", cleanStore())},
		{Name: "broken", Path: writeSnapshot(t, dir, "broken", brokenStore())},
		{Name: "missing", Path: filepath.Join(dir, "missing.mp")},
	}

	results, err := CheckUnits(context.Background(), units, CheckOptions{Jobs: 2})
	if err != nil {
		t.Fatalf("CheckUnits: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}

	if results[0].Bag.HasErrors() {
		t.Fatalf("clean unit reported errors: %v", results[0].Bag.Items())
	}
	if results[0].Schemes == 0 {
		t.Fatal("clean unit produced no schemes")
	}
	if !results[1].Bag.HasErrors() {
		t.Fatal("broken unit reported no errors")
	}
	if results[2].Err == nil {
		t.Fatal("missing snapshot did not surface a load error")
	}
	if got := results[2].Bag.Items(); len(got) != 1 || got[0].Code != diag.IOSnapshotDecode {
		t.Fatalf("missing snapshot diagnostics = %v", got)
	}
}

func TestCheckUnitsDiskCacheReplay(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	units := []UnitInput{
		{Name: "broken", Path: writeSnapshot(t, dir, "broken", brokenStore())},
		{Name: "cyclic", Path: writeSnapshot(t, dir, "cyclic", cyclicStore())},
	}
	opts := CheckOptions{Jobs: 1, Cache: cache}

	first, err := CheckUnits(context.Background(), units, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, err := CheckUnits(context.Background(), units, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	withNotes := 0
	for u := range units {
		if first[u].Cached {
			t.Fatalf("first run of %q claimed a cache hit", units[u].Name)
		}
		if !second[u].Cached {
			t.Fatalf("second run of %q missed the cache", units[u].Name)
		}
		if second[u].Schemes != first[u].Schemes {
			t.Fatalf("cached scheme count for %q = %d, want %d", units[u].Name, second[u].Schemes, first[u].Schemes)
		}
		firstItems, secondItems := first[u].Bag.Items(), second[u].Bag.Items()
		if len(firstItems) != len(secondItems) {
			t.Fatalf("replayed %d diagnostics for %q, want %d", len(secondItems), units[u].Name, len(firstItems))
		}
		for i := range firstItems {
			if firstItems[i].Code != secondItems[i].Code || firstItems[i].Message != secondItems[i].Message {
				t.Fatalf("diagnostic %d of %q differs after replay", i, units[u].Name)
			}
			if len(firstItems[i].Notes) != len(secondItems[i].Notes) {
				t.Fatalf("diagnostic %d of %q replayed with %d notes, want %d",
					i, units[u].Name, len(secondItems[i].Notes), len(firstItems[i].Notes))
			}
			for j := range firstItems[i].Notes {
				if firstItems[i].Notes[j] != secondItems[i].Notes[j] {
					t.Fatalf("note %d of diagnostic %d of %q differs after replay", j, i, units[u].Name)
				}
			}
			withNotes += len(firstItems[i].Notes)
		}
	}
	if withNotes == 0 {
		t.Fatal("no diagnostic carried notes, the replay comparison proved nothing")
	}
}

func TestDiskCacheMissOnDifferentKey(t *testing.T) {
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	key := project.HashBytes([]byte("payload"))
	if err := cache.Put(key, &CachedUnit{Schema: diskCacheSchemaVersion, Unit: "core"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out CachedUnit
	hit, err := cache.Get(project.HashBytes([]byte("other")), &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("cache hit on a different key")
	}

	hit, err = cache.Get(key, &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hit || out.Unit != "core" {
		t.Fatalf("hit=%v unit=%q", hit, out.Unit)
	}
}

func TestDiskCacheNilIsInert(t *testing.T) {
	var cache *DiskCache
	if err := cache.Put(project.Digest{}, &CachedUnit{}); err != nil {
		t.Fatalf("nil Put: %v", err)
	}
	var out CachedUnit
	hit, err := cache.Get(project.Digest{}, &out)
	if err != nil || hit {
		t.Fatalf("nil Get: hit=%v err=%v", hit, err)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("nil DropAll: %v", err)
	}
}

func TestUnitsFromManifest(t *testing.T) {
	root := t.TempDir()
	content := `
[package]
name = "demo"

[[unit]]
name = "core"
snapshot = "build/core.mp"

[[unit]]
name = "extra"
snapshot = "build/extra.mp"
`
	if err := os.WriteFile(filepath.Join(root, project.ManifestName), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, ok, err := project.LoadManifest(root)
	if err != nil || !ok {
		t.Fatalf("load manifest: ok=%v err=%v", ok, err)
	}

	units := UnitsFromManifest(m)
	if len(units) != 2 {
		t.Fatalf("got %d units", len(units))
	}
	if units[1].Name != "extra" || units[1].Path != filepath.Join(root, "build", "extra.mp") {
		t.Fatalf("unit[1] = %+v", units[1])
	}
}
