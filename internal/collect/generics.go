package collect

import (
	"fmt"

	"fortio.org/safecast"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

func conv32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("parameter index overflow: %w", err))
	}
	return v
}

func (c *Context) tyGenericsForTypeOrImpl(icx *itemCtxt, gid ast.GenericsID) types.Generics {
	return c.tyGenerics(icx, types.SpaceType, gid, types.Generics{})
}

func (c *Context) tyGenericsForFn(icx *itemCtxt, gid ast.GenericsID, base types.Generics) types.Generics {
	return c.tyGenerics(icx, types.SpaceFn, gid, base)
}

// tyGenericsForTrait builds the trait's parameter list and synthesizes its
// Self parameter, registered under the trait's own declaration id.
func (c *Context) tyGenericsForTrait(icx *itemCtxt, trait ast.DeclID, gid ast.GenericsID) types.Generics {
	result := c.tyGenericsForTypeOrImpl(icx, gid)

	def := types.TypeParamDef{
		Name:   c.Store.Strings.Intern("Self"),
		Decl:   trait,
		Space:  types.SpaceSelf,
		Index:  0,
		Object: types.ObjectLifetimeDefault{Kind: types.ObjectLifetimeBase},
	}
	if _, ok := c.typeParams[trait]; !ok {
		c.putTypeParamDef(trait, def)
	}
	result.Types.Push(types.SpaceSelf, def)
	return result
}

// tyGenerics appends the parameters of a generics block to a copy of base in
// the given space. Fn-space lists thereby inherit their container's Type-space
// list as a prefix.
func (c *Context) tyGenerics(icx *itemCtxt, space types.ParamSpace, gid ast.GenericsID, base types.Generics) types.Generics {
	result := base.Clone()
	gen := c.Store.Generics(gid)

	for i, rp := range gen.RegionParams {
		decl := c.Store.RegionParam(rp)
		var regionBounds []types.RegionID
		for _, b := range decl.Bounds {
			regionBounds = append(regionBounds, icx.region(b))
		}
		def := types.RegionParamDef{
			Name:   c.Store.Name(rp),
			Decl:   rp,
			Space:  space,
			Index:  conv32(i),
			Bounds: regionBounds,
		}
		c.regionParams[rp] = def
		result.Regions.Push(space, def)
	}

	if !result.Types.IsEmptyIn(space) {
		panic("collect: generics built twice into the same space")
	}
	for i := range gen.TypeParams {
		def := c.getOrCreateTypeParamDef(icx, gen, space, conv32(i))
		result.Types.Push(space, def)
	}
	return result
}

// getOrCreateTypeParamDef resolves one declared type parameter: its default
// (with a forward-reference check) and its object-lifetime default. The result
// is cached against the parameter's declaration.
func (c *Context) getOrCreateTypeParamDef(icx *itemCtxt, gen *ast.Generics, space types.ParamSpace, index uint32) types.TypeParamDef {
	param := gen.TypeParams[index]
	if def, ok := c.typeParams[param]; ok {
		return def
	}
	decl := c.Store.TypeParam(param)
	span := c.Store.Span(param)

	var dflt types.TypeID
	if decl.Default.IsValid() {
		dflt = c.convertDefault(icx, decl.Default, space, index)
		if space != types.SpaceType && !c.Store.HasUnitAttr("default_type_parameter_fallback") {
			diag.ReportWarning(c.Reporter, diag.TyDefaultOutsideType, span,
				"defaults for type parameters are only allowed in `struct`, `enum`, `type`, or `trait` definitions").Emit()
		}
	}

	def := types.TypeParamDef{
		Name:    c.Store.Name(param),
		Decl:    param,
		Space:   space,
		Index:   index,
		Default: dflt,
		Object:  icx.objectLifetimeDefault(param, decl.Bounds, gen),
	}
	c.putTypeParamDef(param, def)
	return def
}

// convertDefault converts a parameter default and rejects forward references
// to parameters declared at the same or a later position.
func (c *Context) convertDefault(icx *itemCtxt, dflt ast.TyID, space types.ParamSpace, index uint32) types.TypeID {
	b := c.Types.Builtins()
	ty := icx.ty(dflt)
	for _, p := range c.Types.ParametersOf(ty, false) {
		if p.Space == space && p.Index >= index {
			diag.ReportError(c.Reporter, diag.TyDefaultForwardRef, c.Store.Ty(dflt).Span,
				"type parameters with a default cannot use forward declared identifiers").Emit()
			return b.Error
		}
	}
	return ty
}

// mkItemSubsts is the identity substitution of a parameter list: each
// parameter mapped to itself.
func (c *Context) mkItemSubsts(g *types.Generics) types.SubstsID {
	var su types.Substs
	for _, space := range types.Spaces {
		for _, def := range g.Types.Get(space) {
			su.Types.Push(space, c.Types.Param(def.Space, def.Index, def.Name))
		}
		for _, def := range g.Regions.Get(space) {
			su.Regions.Push(space, c.Types.InternRegion(
				types.MakeEarlyBound(def.Space, def.Index, def.Name)))
		}
	}
	return c.Types.InternSubsts(su)
}

func (c *Context) tyGenericPredicatesForTypeOrImpl(icx *itemCtxt, gid ast.GenericsID) types.PredicateSet {
	return c.tyGenericPredicates(icx, types.SpaceType, gid, types.PredicateSet{})
}

func (c *Context) tyGenericPredicatesForFn(icx *itemCtxt, gid ast.GenericsID, base types.PredicateSet) types.PredicateSet {
	return c.tyGenericPredicates(icx, types.SpaceFn, gid, base)
}

// tyGenericPredicates converts every constraint of a generics block: inline
// parameter bounds (with the sized default), inline lifetime bounds, and the
// where clause.
func (c *Context) tyGenericPredicates(icx *itemCtxt, space types.ParamSpace, gid ast.GenericsID, base types.PredicateSet) types.PredicateSet {
	result := base.Clone()
	gen := c.Store.Generics(gid)

	for i, param := range gen.TypeParams {
		decl := c.Store.TypeParam(param)
		span := c.Store.Span(param)
		paramTy := c.Types.Param(space, conv32(i), c.Store.Name(param))
		bs := icx.computeBounds(span, paramTy, decl.Bounds, true)
		result.Extend(space, bs.predicates(c, paramTy))
	}

	for i, rp := range gen.RegionParams {
		decl := c.Store.RegionParam(rp)
		region := c.Types.InternRegion(
			types.MakeEarlyBound(space, conv32(i), c.Store.Name(rp)))
		for _, b := range decl.Bounds {
			result.Push(space, types.RegionOutlivesPredicate(region, icx.region(b)))
		}
	}

	for i := range gen.Where {
		wp := &gen.Where[i]
		switch wp.Kind {
		case ast.WhereBound:
			subject := icx.ty(wp.Ty)
			for _, b := range wp.Bounds {
				switch b.Kind {
				case ast.BoundTrait:
					var projections []types.Predicate
					tr, err := icx.boundTraitRef(b.Span, b.Trait, subject, &projections)
					if err != nil {
						continue
					}
					result.Push(space, types.TraitPredicate(tr))
					result.Extend(space, projections)
				case ast.BoundRegion:
					result.Push(space, types.TypeOutlivesPredicate(subject, icx.region(b.Region)))
				}
			}
		case ast.WhereRegion:
			r1 := icx.region(wp.Region)
			for _, b := range wp.RegionBounds {
				result.Push(space, types.RegionOutlivesPredicate(r1, icx.region(b)))
			}
		case ast.WhereEq:
			diag.ReportError(c.Reporter, diag.TyEqualityConstraint, wp.Span,
				"equality constraints are not supported in where clauses").Emit()
		}
	}
	return result
}

// ensureNoTyParamBounds warns for trait bounds written on the parameters of a
// declaration that cannot enforce them yet.
func (c *Context) ensureNoTyParamBounds(span source.Span, gid ast.GenericsID, thing string) {
	gen := c.Store.Generics(gid)
	warn := false
	for _, param := range gen.TypeParams {
		for _, b := range c.Store.TypeParam(param).Bounds {
			if b.Kind == ast.BoundTrait {
				warn = true
			}
		}
	}
	if warn {
		diag.ReportWarning(c.Reporter, diag.TyAliasParamBound, span,
			fmt.Sprintf("trait bounds are not (yet) enforced in %s definitions", thing)).Emit()
	}
}
