package collect

import (
	"ferrite/internal/ast"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// boundsSource answers "what bounds apply to type parameter P" for an item
// context. The information exists in different shapes at different points of
// the pass: sometimes only the surface generics block is available, sometimes
// the item's predicates are already fully converted, and for methods both (the
// container's predicates plus the method's own generics). Each shape gets an
// implementation; pairSource composes two of them.
type boundsSource interface {
	paramBounds(icx *itemCtxt, span source.Span, param ast.DeclID) []types.Predicate
}

// emptySource has no bounds at all.
type emptySource struct{}

func (emptySource) paramBounds(*itemCtxt, source.Span, ast.DeclID) []types.Predicate {
	return nil
}

// pairSource concatenates the bounds of both sources.
type pairSource struct {
	a, b boundsSource
}

func (s pairSource) paramBounds(icx *itemCtxt, span source.Span, param ast.DeclID) []types.Predicate {
	out := s.a.paramBounds(icx, span, param)
	return append(out, s.b.paramBounds(icx, span, param)...)
}

// predicateSource reads bounds off an already-converted predicate set. Used
// when converting methods: by then the trait/impl predicates exist in full.
type predicateSource struct {
	set *types.PredicateSet
}

func (s predicateSource) paramBounds(icx *itemCtxt, span source.Span, param ast.DeclID) []types.Predicate {
	def, ok := icx.c.typeParams[param]
	if !ok {
		return nil
	}
	var out []types.Predicate
	for _, p := range s.set.All() {
		switch p.Kind {
		case types.PredTrait:
			if icx.selfTyIsParam(p.Trait, def.Space, def.Index) {
				out = append(out, p)
			}
		case types.PredTypeOutlives:
			if icx.tyIsParam(p.Ty, def.Space, def.Index) {
				out = append(out, p)
			}
		}
	}
	return out
}

// astSource scans a surface generics block: bounds written inline on the
// parameter plus matching where-clause entries. It deliberately converts only
// the bounds of the requested parameter, not the whole block, since a full
// conversion would manufacture cycles that the source never contains.
type astSource struct {
	owner    ast.DeclID
	generics ast.GenericsID
}

func (s astSource) paramBounds(icx *itemCtxt, span source.Span, param ast.DeclID) []types.Predicate {
	gen := icx.c.Store.Generics(s.generics)
	paramTy, ok := icx.paramType(param)
	if !ok {
		return nil
	}

	var out []types.Predicate
	for _, tp := range gen.TypeParams {
		if tp != param {
			continue
		}
		for _, b := range icx.c.Store.TypeParam(tp).Bounds {
			out = append(out, icx.predicatesFromBound(paramTy, b)...)
		}
	}
	// For a trait's synthesized Self parameter the inline bounds are the
	// supertrait list, which the super-predicate step owns; only the where
	// clause contributes here.
	for i := range gen.Where {
		wp := &gen.Where[i]
		if wp.Kind != ast.WhereBound || !icx.isParamTy(wp.Ty, param) {
			continue
		}
		for _, b := range wp.Bounds {
			out = append(out, icx.predicatesFromBound(paramTy, b)...)
		}
	}
	return out
}

// isParamTy reports whether the surface type is a bare reference to the given
// parameter declaration, without converting it.
func (icx *itemCtxt) isParamTy(ty ast.TyID, param ast.DeclID) bool {
	if !ty.IsValid() {
		return false
	}
	t := icx.c.Store.Ty(ty)
	switch t.Kind {
	case ast.TyPath:
		return t.Decl == param && !t.Qual.IsValid()
	case ast.TySelf:
		// Self is registered under its trait's declaration id.
		return icx.c.Store.Kind(param) == ast.DeclTrait
	default:
		return false
	}
}

func (icx *itemCtxt) selfTyIsParam(tr types.TraitRef, space types.ParamSpace, index uint32) bool {
	substs := icx.c.Types.SubstsOf(tr.Substs)
	if substs == nil {
		return false
	}
	return icx.tyIsParam(substs.SelfType(), space, index)
}

func (icx *itemCtxt) tyIsParam(id types.TypeID, space types.ParamSpace, index uint32) bool {
	t, ok := icx.c.Types.Lookup(id)
	if !ok || t.Kind != types.KindParam {
		return false
	}
	info := icx.c.Types.ParamInfoOf(t)
	return info.Space == space && info.Index == index
}

// paramType returns the interned parameter type for a parameter declaration,
// using its registered definition.
func (icx *itemCtxt) paramType(param ast.DeclID) (types.TypeID, bool) {
	def, ok := icx.c.typeParams[param]
	if !ok {
		return types.NoTypeID, false
	}
	return icx.c.Types.Param(def.Space, def.Index, def.Name), true
}
