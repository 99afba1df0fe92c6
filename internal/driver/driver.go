// Package driver orchestrates signature resolution across compilation units:
// snapshot loading, per-unit collect runs, parallel fan-out, and the disk
// cache keyed by snapshot digest.
package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ferrite/internal/collect"
	"ferrite/internal/diag"
	"ferrite/internal/project"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// UnitInput names one unit and its snapshot file.
type UnitInput struct {
	Name string
	Path string
}

// UnitResult is the outcome of checking one unit. Each goroutine owns its own
// index, so no mutex guards the results slice.
type UnitResult struct {
	Name    string
	Path    string
	Digest  project.Digest
	Bag     *diag.Bag
	Files   *source.FileSet // for rendering spans; empty when the load failed
	Schemes int
	Cached  bool
	Err     error // snapshot load/decode failure; Bag carries the diagnostic too
}

// CheckOptions configures a CheckUnits run.
type CheckOptions struct {
	// Jobs caps parallel workers; 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics bounds each unit's bag; 0 means the default limit.
	MaxDiagnostics int
	// Cache is optional; nil disables caching.
	Cache *DiskCache
}

const defaultMaxDiagnostics = 100

// CheckUnits resolves the signatures of every unit, fanning out across units.
// Within a unit the resolver stays single-threaded. The returned slice is
// index-aligned with units.
func CheckUnits(ctx context.Context, units []UnitInput, opts CheckOptions) ([]UnitResult, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = defaultMaxDiagnostics
	}

	results := make([]UnitResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(units)))

	for i, unit := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = checkOne(unit, maxDiags, opts.Cache)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkOne(unit UnitInput, maxDiags int, cache *DiskCache) UnitResult {
	res := UnitResult{Name: unit.Name, Path: unit.Path, Bag: diag.NewBag(maxDiags), Files: source.NewFileSet()}

	snap, fs, raw, err := ReadSnapshotFile(unit.Path)
	if err != nil {
		res.Err = err
		res.Bag.Add(diag.NewError(diag.IOSnapshotDecode, source.Span{},
			"failed to load unit snapshot: "+err.Error()))
		return res
	}
	res.Files = fs
	res.Digest = project.HashBytes(raw)

	var cached CachedUnit
	if hit, err := cache.Get(res.Digest, &cached); err == nil && hit && cached.Unit == unit.Name {
		replayDiags(res.Bag, cached.Diags)
		res.Bag.Sort()
		res.Schemes = cached.Schemes
		res.Cached = true
		return res
	}

	c := collect.New(snap.Store, types.NewInterner(), diag.BagReporter{Bag: res.Bag})
	c.Unit()
	res.Bag.Sort()
	res.Schemes = c.SchemeCount()

	// A write failure only costs the next run its cache hit.
	_ = cache.Put(res.Digest, &CachedUnit{
		Schema:       diskCacheSchemaVersion,
		Unit:         unit.Name,
		SnapshotHash: res.Digest,
		Broken:       res.Bag.HasErrors(),
		Schemes:      res.Schemes,
		Diags:        cacheDiags(res.Bag),
	})
	return res
}

// UnitsFromManifest flattens a manifest's unit table into driver inputs.
func UnitsFromManifest(m *project.Manifest) []UnitInput {
	units := make([]UnitInput, 0, len(m.Config.Units))
	for _, u := range m.Config.Units {
		units = append(units, UnitInput{Name: u.Name, Path: m.SnapshotPath(u)})
	}
	return units
}
