package collect

import (
	"fmt"
	"sort"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// bounds is the structured form of one surface bound list, applied to a
// subject type.
type bounds struct {
	traitRefs    []types.TraitRef
	projections  []types.Predicate
	regionBounds []types.RegionID
	sized        bool // implicit sized bound applies
}

// computeBounds partitions and converts a surface bound list. When
// sizedByDefault is set, the builtin sized bound is injected unless a
// relaxation marker (`?Sized`) removes it.
func (icx *itemCtxt) computeBounds(span source.Span, subject types.TypeID, astBounds []ast.Bound, sizedByDefault bool) bounds {
	var out bounds
	for _, b := range astBounds {
		switch b.Kind {
		case ast.BoundTrait:
			tr, err := icx.boundTraitRef(b.Span, b.Trait, subject, &out.projections)
			if err == nil {
				out.traitRefs = append(out.traitRefs, tr)
			}
		case ast.BoundRegion:
			out.regionBounds = append(out.regionBounds, icx.region(b.Region))
		case ast.BoundMaybe:
			// Handled below together with the sized default.
		}
	}

	// Predicate-set order must not depend on the order bounds were written.
	sort.SliceStable(out.traitRefs, func(i, j int) bool {
		return out.traitRefs[i].Decl < out.traitRefs[j].Decl
	})

	if sizedByDefault {
		out.sized = icx.applyRelaxedBounds(span, astBounds)
	}
	return out
}

// applyRelaxedBounds resolves `?Trait` markers against the sized default and
// reports whether the implicit sized bound still applies.
func (icx *itemCtxt) applyRelaxedBounds(span source.Span, astBounds []ast.Bound) bool {
	sizedTrait := icx.c.Store.Lang.Sized
	seen := false
	relaxed := false
	for _, b := range astBounds {
		if b.Kind != ast.BoundMaybe {
			continue
		}
		if seen {
			diag.ReportError(icx.c.Reporter, diag.TyDuplicateRelaxedBound, b.Span,
				"type parameter has more than one relaxed default bound, only one is supported").Emit()
			continue
		}
		seen = true
		target := ast.NoDeclID
		if b.Trait.IsValid() {
			target = icx.c.Store.Ty(b.Trait).Decl
		}
		if sizedTrait.IsValid() && target != sizedTrait {
			diag.ReportWarning(icx.c.Reporter, diag.TyUselessRelaxedBound, b.Span,
				"default bound relaxed for a type parameter, but this does nothing "+
					"because the given bound is not a default; only `?Sized` is supported").Emit()
			continue
		}
		relaxed = true
	}
	return sizedTrait.IsValid() && !relaxed
}

// predicates flattens the structured bounds into predicate form for a subject.
func (b *bounds) predicates(c *Context, subject types.TypeID) []types.Predicate {
	var out []types.Predicate
	for _, tr := range b.traitRefs {
		out = append(out, types.TraitPredicate(tr))
	}
	out = append(out, b.projections...)
	if b.sized && c.Store.Lang.Sized.IsValid() {
		out = append(out, types.TraitPredicate(c.sizedTraitRef(subject)))
	}
	for _, r := range b.regionBounds {
		out = append(out, types.TypeOutlivesPredicate(subject, r))
	}
	return out
}

// sizedTraitRef builds `subject: Sized` against the builtin marker trait.
func (c *Context) sizedTraitRef(subject types.TypeID) types.TraitRef {
	var su types.Substs
	su.Types.Push(types.SpaceSelf, subject)
	return types.TraitRef{Decl: c.Store.Lang.Sized, Substs: c.Types.InternSubsts(su)}
}

// predicatesFromBound converts one bound against a subject type: zero
// predicates for `?Trait`, one for a plain trait or region bound, several when
// inline associated-type bindings are present.
func (icx *itemCtxt) predicatesFromBound(subject types.TypeID, b ast.Bound) []types.Predicate {
	switch b.Kind {
	case ast.BoundTrait:
		var projections []types.Predicate
		tr, err := icx.boundTraitRef(b.Span, b.Trait, subject, &projections)
		if err != nil {
			return nil
		}
		return append(projections, types.TraitPredicate(tr))
	case ast.BoundRegion:
		return []types.Predicate{types.TypeOutlivesPredicate(subject, icx.region(b.Region))}
	default:
		return nil
	}
}

// boundTraitRef instantiates the trait named by a bound's path against the
// subject type.
func (icx *itemCtxt) boundTraitRef(span source.Span, path ast.TyID, subject types.TypeID, projections *[]types.Predicate) (types.TraitRef, error) {
	if !path.IsValid() {
		return types.TraitRef{}, errReported
	}
	t := icx.c.Store.Ty(path)
	if t.Kind != ast.TyPath || icx.c.Store.Kind(t.Decl) != ast.DeclTrait {
		diag.ReportError(icx.c.Reporter, diag.TyNotATrait, t.Span,
			fmt.Sprintf("`%s` is not a trait", icx.c.declName(t.Decl))).Emit()
		return types.TraitRef{}, errReported
	}
	return icx.instantiateTraitRef(span, t.Decl, &t.Args, subject, projections)
}

// instantiateTraitRef builds a trait reference with the subject type in the
// self slot and the written arguments (or defaults) in the type slots, and
// converts inline `Assoc = T` bindings into projection predicates.
func (icx *itemCtxt) instantiateTraitRef(span source.Span, trait ast.DeclID, args *ast.TyArgs, selfTy types.TypeID, projections *[]types.Predicate) (types.TraitRef, error) {
	td, err := icx.c.TraitDefOf(span, trait)
	if err != nil {
		return types.TraitRef{}, err
	}

	b := icx.c.Types.Builtins()
	var su types.Substs
	su.Types.Push(types.SpaceSelf, selfTy)

	typeDefs := td.Generics.Types.Get(types.SpaceType)
	if len(args.Types) > len(typeDefs) {
		diag.ReportError(icx.c.Reporter, diag.TyWrongArgCount, span,
			fmt.Sprintf("wrong number of type arguments to `%s`: expected %d, found %d",
				icx.c.declName(trait), len(typeDefs), len(args.Types))).Emit()
	}
	for i, def := range typeDefs {
		switch {
		case i < len(args.Types):
			su.Types.Push(types.SpaceType, icx.ty(args.Types[i]))
		case def.Default.IsValid():
			su.Types.Push(types.SpaceType, icx.c.Types.Substitute(def.Default, &su))
		default:
			diag.ReportError(icx.c.Reporter, diag.TyWrongArgCount, span,
				fmt.Sprintf("wrong number of type arguments to `%s`: expected %d, found %d",
					icx.c.declName(trait), len(typeDefs), len(args.Types))).Emit()
			su.Types.Push(types.SpaceType, b.Error)
		}
	}
	for i, def := range td.Generics.Regions.Get(types.SpaceType) {
		if i < len(args.Regions) {
			su.Regions.Push(types.SpaceType, icx.region(args.Regions[i]))
		} else {
			su.Regions.Push(types.SpaceType, icx.c.Types.InternRegion(
				types.MakeEarlyBound(def.Space, def.Index, def.Name)))
		}
	}

	tr := types.TraitRef{Decl: trait, Substs: icx.c.Types.InternSubsts(su)}

	for _, binding := range args.Bindings {
		if !icx.c.traitDefinesAssocTypeTransitive(span, trait, binding.Name) {
			diag.ReportError(icx.c.Reporter, diag.TyNoAssocType, binding.Span,
				fmt.Sprintf("associated type `%s` not found for `%s`",
					icx.c.str(binding.Name), icx.c.declName(trait))).Emit()
			continue
		}
		*projections = append(*projections,
			types.ProjectionPredicate(tr, binding.Name, icx.ty(binding.Ty)))
	}
	return tr, nil
}

// traitDefinesAssocType checks the trait's own items without forcing its def.
func (c *Context) traitDefinesAssocType(trait ast.DeclID, name source.StringID) bool {
	if td, ok := c.traitDefs[trait]; ok {
		return td.DefinesAssocType(name)
	}
	if c.Store.Kind(trait) != ast.DeclTrait {
		return false
	}
	for _, item := range c.Store.Trait(trait).Items {
		if c.Store.Kind(item) == ast.DeclAssocType && c.Store.Name(item) == name {
			return true
		}
	}
	return false
}

// traitDefinesAssocTypeTransitive also searches supertraits.
func (c *Context) traitDefinesAssocTypeTransitive(span source.Span, trait ast.DeclID, name source.StringID) bool {
	if c.traitDefinesAssocType(trait, name) {
		return true
	}
	if err := c.EnsureSuperPredicates(span, trait); err != nil {
		return false
	}
	sp := c.superPreds[trait]
	if sp == nil {
		return false
	}
	for _, p := range sp.All() {
		if tr, ok := p.SelfTraitRef(); ok && tr.Decl != trait {
			if c.traitDefinesAssocTypeTransitive(span, tr.Decl, name) {
				return true
			}
		}
	}
	return false
}

// objectLifetimeDefault scans a parameter's inline bounds and the matching
// where clauses for explicit lifetime bounds, without converting any trait
// bound, and derives the default applied in object-like positions.
func (icx *itemCtxt) objectLifetimeDefault(param ast.DeclID, paramBounds []ast.Bound, gen *ast.Generics) types.ObjectLifetimeDefault {
	distinct := make(map[types.RegionID]bool)
	collect := func(list []ast.Bound) {
		for _, b := range list {
			if b.Kind == ast.BoundRegion {
				distinct[icx.region(b.Region)] = true
			}
		}
	}
	collect(paramBounds)
	for i := range gen.Where {
		wp := &gen.Where[i]
		if wp.Kind == ast.WhereBound && icx.isParamTy(wp.Ty, param) {
			collect(wp.Bounds)
		}
	}
	switch len(distinct) {
	case 0:
		return types.ObjectLifetimeDefault{Kind: types.ObjectLifetimeBase}
	case 1:
		for r := range distinct {
			return types.ObjectLifetimeDefault{Kind: types.ObjectLifetimeSpecific, Region: r}
		}
		panic("unreachable")
	default:
		return types.ObjectLifetimeDefault{Kind: types.ObjectLifetimeAmbiguous}
	}
}
