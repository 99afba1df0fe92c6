package collect

import (
	"ferrite/internal/diag"
	"ferrite/internal/types"
)

// paramKey identifies one generic parameter of an impl by position.
type paramKey struct {
	isRegion bool
	space    types.ParamSpace
	index    uint32
}

func keyOf(p types.Parameter) paramKey {
	return paramKey{isRegion: p.IsRegion, space: p.Space, index: p.Index}
}

// implInputParams computes the set of impl parameters constrained by the self
// type, the implemented trait reference, and transitively by projection
// predicates: once every input of a projection is constrained, the parameters
// of its value are too.
func (c *Context) implInputParams(selfTy types.TypeID, traitRef types.TraitRef, preds *types.PredicateSet) map[paramKey]bool {
	input := make(map[paramKey]bool)
	for _, p := range c.Types.ParametersOf(selfTy, true) {
		input[keyOf(p)] = true
	}
	if traitRef.IsValid() {
		for _, p := range c.Types.ParametersOfTraitRef(traitRef, true) {
			input[keyOf(p)] = true
		}
	}

	var projections []types.Predicate
	for _, p := range preds.All() {
		if p.Kind == types.PredProjection {
			projections = append(projections, p)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, proj := range projections {
			ready := true
			for _, p := range c.Types.ParametersOfTraitRef(proj.Trait, true) {
				if !input[keyOf(p)] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			for _, p := range c.Types.ParametersOf(proj.Value, true) {
				if !input[keyOf(p)] {
					input[keyOf(p)] = true
					changed = true
				}
			}
		}
	}
	return input
}

// enforceImplParamsConstrained diagnoses impl type parameters that neither the
// self type, the trait reference, nor any projection predicate pins down.
func (c *Context) enforceImplParamsConstrained(generics *types.Generics, selfTy types.TypeID, traitRef types.TraitRef, preds *types.PredicateSet) {
	input := c.implInputParams(selfTy, traitRef, preds)
	for _, def := range generics.Types.Get(types.SpaceType) {
		if input[paramKey{space: def.Space, index: def.Index}] {
			continue
		}
		diag.ReportError(c.Reporter, diag.TyUnconstrainedParam, c.Store.Span(def.Decl),
			"the type parameter `"+c.str(def.Name)+"` is not constrained by the impl trait, self type, or predicates").Emit()
	}
}

// enforceImplRegionsConstrained diagnoses unconstrained impl lifetime
// parameters, but only those that an associated type value mentions: a
// lifetime used by methods alone is left unconstrained for compatibility.
func (c *Context) enforceImplRegionsConstrained(generics *types.Generics, selfTy types.TypeID, traitRef types.TraitRef, preds *types.PredicateSet, items []types.AssocItem) {
	required := make(map[paramKey]bool)
	for _, item := range items {
		if item.Kind != types.AssocType || item.Ty == types.NoTypeID {
			continue
		}
		for _, p := range c.Types.ParametersOf(item.Ty, true) {
			if p.IsRegion {
				required[keyOf(p)] = true
			}
		}
	}
	if len(required) == 0 {
		return
	}

	input := c.implInputParams(selfTy, traitRef, preds)
	for _, def := range generics.Regions.Get(types.SpaceType) {
		key := paramKey{isRegion: true, space: def.Space, index: def.Index}
		if !required[key] || input[key] {
			continue
		}
		diag.ReportError(c.Reporter, diag.TyUnconstrainedParam, c.Store.Span(def.Decl),
			"the lifetime parameter `"+c.str(def.Name)+"` is not constrained by the impl trait, self type, or predicates").Emit()
	}
}
