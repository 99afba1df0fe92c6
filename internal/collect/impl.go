package collect

import (
	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/types"
)

// convertImpl resolves an impl block: its generics and predicates, the self
// type, the implemented trait reference if any, and every associated item in
// three phases so methods can see the constants and types before them.
func (c *Context) convertImpl(id ast.DeclID) {
	im := c.Store.Impl(id)
	icxAst := c.icx(astSource{owner: id, generics: im.Generics})
	generics := c.tyGenericsForTypeOrImpl(icxAst, im.Generics)
	preds := c.tyGenericPredicatesForTypeOrImpl(icxAst, im.Generics)
	selfTy := icxAst.ty(im.SelfTy)
	c.putScheme(id, types.Scheme{Generics: generics, Ty: selfTy})
	c.putPredicates(id, preds)

	var traitRef types.TraitRef
	if im.TraitRef.IsValid() {
		header := c.Store.Ty(im.TraitRef)
		if header.Kind == ast.TyPath && c.Store.Kind(header.Decl) == ast.DeclTrait {
			var projections []types.Predicate
			tr, err := icxAst.instantiateTraitRef(header.Span, header.Decl, &header.Args, selfTy, &projections)
			if err == nil {
				traitRef = tr
				c.implRefs[id] = tr
			}
		} else {
			diag.ReportError(c.Reporter, diag.TyNotATrait, header.Span,
				"`"+c.declName(header.Decl)+"` is not a trait").Emit()
		}
	}
	isTraitImpl := traitRef.IsValid()

	// Items of a trait impl take the trait's visibility no matter how they
	// were written.
	icx := c.icx(predicateSource{set: &preds})
	dup := newDupChecker(c)
	var items []types.AssocItem

	for _, item := range im.Items {
		if c.Store.Kind(item) != ast.DeclAssocConst {
			continue
		}
		if dup.seen(item, nsValue) {
			continue
		}
		ac := c.Store.AssocConst(item)
		ty := icx.ty(ac.Ty)
		if _, ok := c.schemes[item]; !ok {
			c.putScheme(item, types.Scheme{Generics: generics.Clone(), Ty: ty})
			c.putPredicates(item, preds.Clone())
		}
		items = append(items, types.AssocItem{
			Kind:      types.AssocConst,
			Name:      c.Store.Name(item),
			Decl:      item,
			Container: id,
			Vis:       implItemVis(c, item, isTraitImpl),
			Ty:        ty,
			HasValue:  ac.HasValue,
		})
	}

	for _, item := range im.Items {
		if c.Store.Kind(item) != ast.DeclAssocType {
			continue
		}
		if dup.seen(item, nsType) {
			continue
		}
		if !isTraitImpl {
			diag.ReportError(c.Reporter, diag.TyAssocTypeInInherent, c.Store.Span(item),
				"associated types are not allowed in inherent impls").Emit()
			continue
		}
		at := c.Store.AssocType(item)
		value := types.NoTypeID
		if at.Value.IsValid() {
			value = icx.ty(at.Value)
		}
		if _, ok := c.schemes[item]; !ok {
			c.putScheme(item, types.Scheme{Generics: generics.Clone(), Ty: value})
			c.putPredicates(item, preds.Clone())
		}
		items = append(items, types.AssocItem{
			Kind:      types.AssocType,
			Name:      c.Store.Name(item),
			Decl:      item,
			Container: id,
			Vis:       implItemVis(c, item, isTraitImpl),
			Ty:        value,
		})
	}

	for _, item := range im.Items {
		if c.Store.Kind(item) != ast.DeclMethod {
			continue
		}
		if dup.seen(item, nsValue) {
			continue
		}
		ai := c.convertMethod(item, id, selfTy, &generics, &preds, false, isTraitImpl)
		items = append(items, ai)
	}

	c.assocItems[id] = items

	c.enforceImplParamsConstrained(&generics, selfTy, traitRef, &preds)
	c.enforceImplRegionsConstrained(&generics, selfTy, traitRef, &preds, items)
}

func implItemVis(c *Context, item ast.DeclID, isTraitImpl bool) types.Visibility {
	if isTraitImpl || c.Store.Decl(item).Public {
		return types.VisPublic
	}
	return types.VisPrivate
}

// convertDefaultImpl records a blanket default (`impl Trait for ..`) on the
// trait's definition.
func (c *Context) convertDefaultImpl(id ast.DeclID) {
	di := c.Store.DefaultImpl(id)
	header := c.Store.Ty(di.TraitRef)
	if header.Kind != ast.TyPath || c.Store.Kind(header.Decl) != ast.DeclTrait {
		diag.ReportError(c.Reporter, diag.TyNotATrait, header.Span,
			"`"+c.declName(header.Decl)+"` is not a trait").Emit()
		return
	}
	td, err := c.TraitDefOf(header.Span, header.Decl)
	if err != nil {
		return
	}
	td.HasDefaultImpl = true
}
