package collect

import (
	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// traitDefOf computes (or returns the cached) trait definition: its generics
// with the synthesized Self parameter, its self trait reference and the names
// of its associated types. Callers go through TraitDefOf for cycle guarding.
func (c *Context) traitDefOf(id ast.DeclID) *types.TraitDef {
	if td, ok := c.traitDefs[id]; ok {
		c.Stats.TraitDefHits++
		return td
	}
	c.Stats.TraitDefComputes++

	t := c.Store.Trait(id)
	span := c.Store.Span(id)
	paren := c.Store.HasAttr(id, "paren_sugar")
	if paren && !c.Store.HasUnitAttr("unboxed_closures") {
		diag.ReportError(c.Reporter, diag.TyParenSugarReserved, span,
			"the `paren_sugar` attribute is a temporary means of controlling which traits can use parenthesized notation").
			WithNote(span, "add `#![feature(unboxed_closures)]` to the unit attributes to use it").
			Emit()
	}

	icx := c.icx(astSource{owner: id, generics: t.Generics})
	generics := c.tyGenericsForTrait(icx, id, t.Generics)
	ref := types.TraitRef{Decl: id, Substs: c.mkItemSubsts(&generics)}

	var assocNames []source.StringID
	for _, item := range t.Items {
		if c.Store.Kind(item) == ast.DeclAssocType {
			assocNames = append(assocNames, c.Store.Name(item))
		}
	}

	td := &types.TraitDef{
		Decl:           id,
		Unsafe:         t.Unsafe,
		ParenSugar:     paren,
		Generics:       generics,
		Ref:            ref,
		AssocTypeNames: assocNames,
	}
	c.traitDefs[id] = td
	return td
}

// ensureSuperPredicatesStep computes the direct super-predicates of a trait:
// the supertrait listing plus every where-clause bound whose subject is Self.
// It returns the declarations of the directly named supertraits so the caller
// can close the set transitively. The converted predicates are cached; bounds
// of other parameters are deliberately left untouched, scanning them here
// would manufacture cycles the source never contains.
func (c *Context) ensureSuperPredicatesStep(trait ast.DeclID) []ast.DeclID {
	c.Stats.SuperPredSteps++

	if cached, ok := c.superPreds[trait]; ok {
		return superTraitDecls(cached)
	}

	// Forces the trait's generics first so the Self parameter is registered.
	c.traitDefOf(trait)
	t := c.Store.Trait(trait)
	span := c.Store.Span(trait)
	icx := c.icx(astSource{owner: trait, generics: t.Generics})

	selfTy := icx.selfType()
	supb := icx.computeBounds(span, selfTy, t.Supertraits, false)
	preds := supb.predicates(c, selfTy)

	whereSrc := astSource{owner: trait, generics: t.Generics}
	preds = append(preds, whereSrc.paramBounds(icx, span, trait)...)

	set := &types.PredicateSet{}
	for _, p := range preds {
		set.Preds.Push(types.SpaceSelf, p)
	}
	c.superPreds[trait] = set
	return superTraitDecls(set)
}

// superTraitDecls extracts the trait declarations named by the self-bound
// trait predicates of a cached super-predicate set.
func superTraitDecls(set *types.PredicateSet) []ast.DeclID {
	var out []ast.DeclID
	for _, p := range set.All() {
		if tr, ok := p.SelfTraitRef(); ok {
			out = append(out, tr.Decl)
		}
	}
	return out
}

// convertTraitPredicates assembles the full predicate set of a trait: the
// super-predicates, the reflexive Self bound, the generic parameter bounds and
// the bounds declared on each associated type.
func (c *Context) convertTraitPredicates(id ast.DeclID, td *types.TraitDef) types.PredicateSet {
	t := c.Store.Trait(id)

	base := types.PredicateSet{}
	if supers, ok := c.superPreds[id]; ok {
		base = supers.Clone()
	}
	base.Preds.Push(types.SpaceSelf, types.TraitPredicate(td.Ref))

	icx := c.icx(astSource{owner: id, generics: t.Generics})
	set := c.tyGenericPredicates(icx, types.SpaceType, t.Generics, base)

	for _, item := range t.Items {
		if c.Store.Kind(item) != ast.DeclAssocType {
			continue
		}
		at := c.Store.AssocType(item)
		if len(at.Bounds) == 0 {
			continue
		}
		subject := c.Types.Projection(td.Ref, c.Store.Name(item))
		b := icx.computeBounds(c.Store.Span(item), subject, at.Bounds, true)
		for _, p := range b.predicates(c, subject) {
			set.Preds.Push(types.SpaceType, p)
		}
	}
	return set
}

// convertTrait resolves a trait declaration: definition, super-predicates,
// full predicates and every associated item, consts first, then types, then
// methods, so that later phases can rely on the earlier ones.
func (c *Context) convertTrait(id ast.DeclID) {
	span := c.Store.Span(id)
	td, err := c.TraitDefOf(span, id)
	if err != nil {
		return
	}
	if err := c.EnsureSuperPredicates(span, id); err != nil {
		return
	}

	preds := c.convertTraitPredicates(id, td)
	if _, ok := c.predicates[id]; !ok {
		c.putPredicates(id, preds)
	}

	t := c.Store.Trait(id)
	icx := c.icx(predicateSource{set: &preds})
	selfTy := icx.selfType()

	dup := newDupChecker(c)
	var items []types.AssocItem

	for _, item := range t.Items {
		if c.Store.Kind(item) != ast.DeclAssocConst {
			continue
		}
		if dup.seen(item, nsValue) {
			continue
		}
		ac := c.Store.AssocConst(item)
		ty := icx.ty(ac.Ty)
		if _, ok := c.schemes[item]; !ok {
			c.putScheme(item, types.Scheme{Generics: td.Generics.Clone(), Ty: ty})
			c.putPredicates(item, preds.Clone())
		}
		items = append(items, types.AssocItem{
			Kind:      types.AssocConst,
			Name:      c.Store.Name(item),
			Decl:      item,
			Container: id,
			InTrait:   true,
			Vis:       types.VisPublic,
			Ty:        ty,
			HasValue:  ac.HasValue,
		})
	}

	for _, item := range t.Items {
		if c.Store.Kind(item) != ast.DeclAssocType {
			continue
		}
		if dup.seen(item, nsType) {
			continue
		}
		at := c.Store.AssocType(item)
		value := types.NoTypeID
		if at.Value.IsValid() {
			value = icx.ty(at.Value)
		}
		items = append(items, types.AssocItem{
			Kind:      types.AssocType,
			Name:      c.Store.Name(item),
			Decl:      item,
			Container: id,
			InTrait:   true,
			Vis:       types.VisPublic,
			Ty:        value,
		})
	}

	for _, item := range t.Items {
		if c.Store.Kind(item) != ast.DeclMethod {
			continue
		}
		if dup.seen(item, nsValue) {
			continue
		}
		items = append(items, c.convertMethod(item, id, selfTy, &td.Generics, &preds, true, true))
	}

	c.assocItems[id] = items
}

// convertMethod resolves one method of a trait or impl: layered generics,
// layered predicates and the function-definition type with the receiver as
// leading parameter.
func (c *Context) convertMethod(mid, container ast.DeclID, rcvr types.TypeID, containerGenerics *types.Generics, containerPreds *types.PredicateSet, inTrait, public bool) types.AssocItem {
	m := c.Store.Method(mid)
	icx := c.icx(pairSource{
		a: predicateSource{set: containerPreds},
		b: astSource{owner: mid, generics: m.Sig.Generics},
	})
	generics := c.tyGenericsForFn(icx, m.Sig.Generics, *containerGenerics)
	preds := c.tyGenericPredicatesForFn(icx, m.Sig.Generics, containerPreds.Clone())
	ty := c.fnType(icx, mid, &m.Sig, &generics, rcvr, m.SelfKind)

	if _, ok := c.schemes[mid]; !ok {
		c.putScheme(mid, types.Scheme{Generics: generics, Ty: ty})
		c.putPredicates(mid, preds)
	}

	vis := types.VisPrivate
	if public || c.Store.Decl(mid).Public {
		vis = types.VisPublic
	}
	return types.AssocItem{
		Kind:      types.AssocMethod,
		Name:      c.Store.Name(mid),
		Decl:      mid,
		Container: container,
		InTrait:   inTrait,
		Vis:       vis,
		FnTy:      ty,
	}
}

// itemNamespace splits associated items the way name resolution does: types
// in one namespace, consts and methods in the other.
type itemNamespace uint8

const (
	nsValue itemNamespace = iota
	nsType
)

type dupChecker struct {
	c     *Context
	names map[itemNamespace]map[source.StringID]struct{}
}

func newDupChecker(c *Context) *dupChecker {
	return &dupChecker{c: c, names: map[itemNamespace]map[source.StringID]struct{}{
		nsValue: {},
		nsType:  {},
	}}
}

// seen reports (and diagnoses) a duplicate associated item name within one
// namespace.
func (d *dupChecker) seen(item ast.DeclID, ns itemNamespace) bool {
	name := d.c.Store.Name(item)
	if _, dup := d.names[ns][name]; dup {
		diag.ReportError(d.c.Reporter, diag.TyDuplicateAssocItem, d.c.Store.Span(item),
			"duplicate definitions with name `"+d.c.str(name)+"`").Emit()
		return true
	}
	d.names[ns][name] = struct{}{}
	return false
}
