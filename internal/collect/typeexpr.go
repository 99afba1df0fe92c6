package collect

import (
	"fmt"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// itemCtxt is the per-item conversion context: the shared Context plus the
// bounds source active while converting this item's types.
type itemCtxt struct {
	c      *Context
	bounds boundsSource
}

func (c *Context) icx(bounds boundsSource) *itemCtxt {
	return &itemCtxt{c: c, bounds: bounds}
}

// ty converts one surface type expression to an interned type. Errors are
// reported and yield the error type so conversion always produces something.
func (icx *itemCtxt) ty(id ast.TyID) types.TypeID {
	b := icx.c.Types.Builtins()
	if !id.IsValid() {
		return b.Error
	}
	t := icx.c.Store.Ty(id)
	switch t.Kind {
	case ast.TyInfer:
		diag.ReportError(icx.c.Reporter, diag.TyPlaceholderInSignature, t.Span,
			"the type placeholder `_` is not allowed within types on item signatures").Emit()
		return b.Error
	case ast.TySelf:
		return icx.selfType()
	case ast.TyRef:
		return icx.c.Types.Intern(types.MakeRef(icx.region(t.Region), icx.ty(t.Elem), t.Mutable))
	case ast.TyRawPtr:
		return icx.c.Types.Intern(types.MakeRawPtr(icx.ty(t.Elem), t.Mutable))
	case ast.TySlice:
		return icx.c.Types.Intern(types.MakeSlice(icx.ty(t.Elem)))
	case ast.TyTuple:
		elems := make([]types.TypeID, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = icx.ty(e)
		}
		return icx.c.Types.Tuple(elems)
	case ast.TyTraitObject:
		return icx.objectType(t)
	case ast.TyPath:
		return icx.pathType(id, t)
	default:
		return b.Error
	}
}

// region resolves a surface lifetime reference.
func (icx *itemCtxt) region(r ast.RegionRef) types.RegionID {
	if r.IsStatic {
		return icx.c.Types.Builtins().Static
	}
	if !r.Decl.IsValid() {
		return types.NoRegionID
	}
	if def, ok := icx.c.regionParams[r.Decl]; ok {
		return icx.c.Types.InternRegion(types.MakeEarlyBound(def.Space, def.Index, def.Name))
	}
	// The declaration site has not been processed yet: derive space and index
	// from its position in the owner's generics block.
	space, index := icx.c.paramPosition(r.Decl)
	return icx.c.Types.InternRegion(types.MakeEarlyBound(space, index, icx.c.Store.Name(r.Decl)))
}

// selfType produces the Self parameter of the enclosing trait.
func (icx *itemCtxt) selfType() types.TypeID {
	return icx.c.Types.SelfParam(icx.c.Store.Strings.Intern("Self"))
}

func (icx *itemCtxt) pathType(id ast.TyID, t *ast.Ty) types.TypeID {
	b := icx.c.Types.Builtins()
	switch icx.c.Store.Kind(t.Decl) {
	case ast.DeclStruct, ast.DeclEnum:
		scheme, err := icx.c.Scheme(t.Span, t.Decl)
		if err != nil {
			return b.Error
		}
		substs := icx.substsForPath(t, &scheme.Generics)
		return icx.c.Types.Adt(t.Decl, substs)

	case ast.DeclTypeAlias:
		scheme, err := icx.c.Scheme(t.Span, t.Decl)
		if err != nil {
			return b.Error
		}
		substs := icx.substsForPath(t, &scheme.Generics)
		return icx.c.Types.Substitute(scheme.Ty, icx.c.Types.SubstsOf(substs))

	case ast.DeclTypeParam:
		def, ok := icx.c.typeParams[t.Decl]
		if !ok {
			space, index := icx.c.paramPosition(t.Decl)
			def = types.TypeParamDef{Name: icx.c.Store.Name(t.Decl), Space: space, Index: index}
		}
		return icx.c.Types.Param(def.Space, def.Index, def.Name)

	case ast.DeclAssocType:
		return icx.projectionType(t)

	case ast.DeclTrait:
		// A bare trait path in type position is an object type with the
		// default lifetime.
		return icx.objectType(t)

	default:
		diag.ReportError(icx.c.Reporter, diag.TyNotATrait, t.Span,
			fmt.Sprintf("`%s` is not a type", icx.c.declName(t.Decl))).Emit()
		return b.Error
	}
}

// objectType converts `dyn Trait<...> + 'r` (and bare trait paths).
func (icx *itemCtxt) objectType(t *ast.Ty) types.TypeID {
	b := icx.c.Types.Builtins()
	if icx.c.Store.Kind(t.Decl) != ast.DeclTrait {
		diag.ReportError(icx.c.Reporter, diag.TyNotATrait, t.Span,
			fmt.Sprintf("`%s` is not a trait", icx.c.declName(t.Decl))).Emit()
		return b.Error
	}
	var projections []types.Predicate
	tr, err := icx.instantiateTraitRef(t.Span, t.Decl, &t.Args, types.NoTypeID, &projections)
	if err != nil {
		return b.Error
	}
	region := b.Static
	if t.Region.IsValid() {
		region = icx.region(t.Region)
	}
	return icx.c.Types.TraitObject(tr, region)
}

// projectionType converts a path to an associated type: either `Self::Assoc`
// inside the defining trait, or `T::Assoc` where a bound on the parameter `T`
// supplies the trait.
func (icx *itemCtxt) projectionType(t *ast.Ty) types.TypeID {
	b := icx.c.Types.Builtins()
	trait := icx.c.Store.Parent(t.Decl)
	if icx.c.Store.Kind(trait) != ast.DeclTrait {
		diag.ReportError(icx.c.Reporter, diag.TyNoAssocType, t.Span,
			fmt.Sprintf("associated type `%s` has no defining trait", icx.c.declName(t.Decl))).Emit()
		return b.Error
	}
	name := icx.c.Store.Name(t.Decl)

	if !t.Qual.IsValid() || icx.c.Store.Ty(t.Qual).Kind == ast.TySelf {
		// Self::Assoc: project off the trait's own reference. The trait def is
		// already cached while converting the trait body, so no cycle arises
		// from methods mentioning their own associated types.
		td, err := icx.c.TraitDefOf(t.Span, trait)
		if err != nil {
			return b.Error
		}
		return icx.c.Types.Projection(td.Ref, name)
	}

	qual := icx.c.Store.Ty(t.Qual)
	if qual.Kind != ast.TyPath || icx.c.Store.Kind(qual.Decl) != ast.DeclTypeParam {
		diag.ReportError(icx.c.Reporter, diag.TyNoAssocType, t.Span,
			"associated types may only be projected from `Self` or a type parameter").Emit()
		return b.Error
	}
	tr, err := icx.traitRefForAssoc(t.Span, qual.Decl, trait, name)
	if err != nil {
		return b.Error
	}
	return icx.c.Types.Projection(tr, name)
}

// traitRefForAssoc finds, among the bounds of the parameter, the reference to
// the trait defining the named associated type, searching supertraits too.
func (icx *itemCtxt) traitRefForAssoc(span source.Span, param ast.DeclID, trait ast.DeclID, name source.StringID) (types.TraitRef, error) {
	preds, err := icx.c.paramBoundsFor(icx, span, param)
	if err != nil {
		return types.TraitRef{}, err
	}
	for _, p := range preds {
		tr, ok := p.SelfTraitRef()
		if !ok {
			continue
		}
		if found, ok := icx.searchTraitAndSupers(span, tr, trait, name); ok {
			return found, nil
		}
	}
	diag.ReportError(icx.c.Reporter, diag.TyNoAssocType, span,
		fmt.Sprintf("associated type `%s` not found for `%s`",
			icx.c.str(name), icx.c.declName(param))).Emit()
	return types.TraitRef{}, errReported
}

func (icx *itemCtxt) searchTraitAndSupers(span source.Span, tr types.TraitRef, want ast.DeclID, name source.StringID) (types.TraitRef, bool) {
	if tr.Decl == want && icx.c.traitDefinesAssocType(tr.Decl, name) {
		return tr, true
	}
	if err := icx.c.EnsureSuperPredicates(span, tr.Decl); err != nil {
		return types.TraitRef{}, false
	}
	sp := icx.c.superPreds[tr.Decl]
	if sp == nil {
		return types.TraitRef{}, false
	}
	selfTy := icx.traitRefSelf(tr)
	for _, p := range sp.All() {
		sup, ok := p.SelfTraitRef()
		if !ok || sup.Decl == tr.Decl {
			continue
		}
		// Rebase the supertrait reference onto the subject type.
		var su types.Substs
		su.Types.Push(types.SpaceSelf, selfTy)
		rebased := icx.c.Types.SubstituteTraitRef(sup, &su)
		if found, ok := icx.searchTraitAndSupers(span, rebased, want, name); ok {
			return found, true
		}
	}
	return types.TraitRef{}, false
}

func (icx *itemCtxt) traitRefSelf(tr types.TraitRef) types.TypeID {
	if substs := icx.c.Types.SubstsOf(tr.Substs); substs != nil {
		return substs.SelfType()
	}
	return types.NoTypeID
}

// substsForPath builds the substitutions for a path against the target's
// generics: explicit arguments first, declared defaults for the rest, with an
// arity diagnostic when the counts cannot be reconciled.
func (icx *itemCtxt) substsForPath(t *ast.Ty, generics *types.Generics) types.SubstsID {
	b := icx.c.Types.Builtins()
	var out types.Substs

	typeDefs := generics.Types.Get(types.SpaceType)
	given := t.Args.Types
	required := 0
	for _, def := range typeDefs {
		if !def.Default.IsValid() {
			required++
		}
	}
	if len(given) > len(typeDefs) || len(given) < required {
		diag.ReportError(icx.c.Reporter, diag.TyWrongArgCount, t.Span,
			fmt.Sprintf("wrong number of type arguments to `%s`: expected %d, found %d",
				icx.c.declName(t.Decl), len(typeDefs), len(given))).Emit()
	}
	for i, def := range typeDefs {
		switch {
		case i < len(given):
			out.Types.Push(types.SpaceType, icx.ty(given[i]))
		case def.Default.IsValid():
			// Defaults may mention earlier parameters of the same list.
			out.Types.Push(types.SpaceType, icx.c.Types.Substitute(def.Default, &out))
		default:
			out.Types.Push(types.SpaceType, b.Error)
		}
	}

	regionDefs := generics.Regions.Get(types.SpaceType)
	for i, def := range regionDefs {
		if i < len(t.Args.Regions) {
			out.Regions.Push(types.SpaceType, icx.region(t.Args.Regions[i]))
		} else {
			out.Regions.Push(types.SpaceType, icx.c.Types.InternRegion(
				types.MakeEarlyBound(def.Space, def.Index, def.Name)))
		}
	}
	return icx.c.Types.InternSubsts(out)
}

func (c *Context) str(id source.StringID) string {
	return c.Store.Strings.MustLookup(id)
}

// paramPosition locates a parameter declaration inside its owner's generics
// block, mapping the owner kind to the parameter space.
func (c *Context) paramPosition(param ast.DeclID) (types.ParamSpace, uint32) {
	owner := c.Store.Parent(param)
	space := types.SpaceType
	gen := c.ownerGenerics(owner)
	switch c.Store.Kind(owner) {
	case ast.DeclFn, ast.DeclForeignFn, ast.DeclMethod:
		space = types.SpaceFn
	}
	if gen != nil {
		list := gen.TypeParams
		if c.Store.Kind(param) == ast.DeclRegionParam {
			list = gen.RegionParams
		}
		for i, p := range list {
			if p == param {
				return space, uint32(i)
			}
		}
	}
	panic(fmt.Sprintf("collect: parameter %q not found in its owner's generics",
		c.declName(param)))
}

func (c *Context) ownerGenerics(owner ast.DeclID) *ast.Generics {
	switch c.Store.Kind(owner) {
	case ast.DeclFn, ast.DeclForeignFn:
		return c.Store.Generics(c.Store.Fn(owner).Generics)
	case ast.DeclTypeAlias:
		return c.Store.Generics(c.Store.Alias(owner).Generics)
	case ast.DeclStruct:
		return c.Store.Generics(c.Store.Struct(owner).Generics)
	case ast.DeclEnum:
		return c.Store.Generics(c.Store.Enum(owner).Generics)
	case ast.DeclTrait:
		return c.Store.Generics(c.Store.Trait(owner).Generics)
	case ast.DeclImpl:
		return c.Store.Generics(c.Store.Impl(owner).Generics)
	case ast.DeclMethod:
		return c.Store.Generics(c.Store.Method(owner).Sig.Generics)
	default:
		return nil
	}
}
