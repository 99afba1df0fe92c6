package collect

import (
	"fmt"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// Scheme returns the type scheme of a declaration, computing and caching it on
// first request. A cyclic request fails with the already-reported sentinel.
func (c *Context) Scheme(span source.Span, id ast.DeclID) (types.Scheme, error) {
	if s, ok := c.schemes[id]; ok {
		c.Stats.SchemeHits++
		return s, nil
	}
	var out types.Scheme
	err := c.cycleCheck(span, request{kind: reqScheme, decl: id}, func() error {
		// The cache may have been filled by a sibling request while this one
		// was queued behind the guard.
		if s, ok := c.schemes[id]; ok {
			c.Stats.SchemeHits++
			out = s
			return nil
		}
		c.Stats.SchemeComputes++
		out = c.computeScheme(id)
		c.putScheme(id, out)
		return nil
	})
	return out, err
}

// TraitDefOf returns the interned trait definition, guarding against cyclic
// requests.
func (c *Context) TraitDefOf(span source.Span, id ast.DeclID) (*types.TraitDef, error) {
	if td, ok := c.traitDefs[id]; ok {
		c.Stats.TraitDefHits++
		return td, nil
	}
	var out *types.TraitDef
	err := c.cycleCheck(span, request{kind: reqTraitDef, decl: id}, func() error {
		out = c.traitDefOf(id)
		return nil
	})
	return out, err
}

// EnsureSuperPredicates makes the transitive super-predicates of a trait
// available, reporting a cycle when a trait extends itself in any form.
func (c *Context) EnsureSuperPredicates(span source.Span, trait ast.DeclID) error {
	return c.cycleCheck(span, request{kind: reqSuperPredicates, decl: trait}, func() error {
		supers := c.ensureSuperPredicatesStep(trait)
		for _, dep := range supers {
			if err := c.EnsureSuperPredicates(span, dep); err != nil {
				return err
			}
		}
		return nil
	})
}

// paramBoundsFor returns the predicates that bound a type parameter, drawn
// from the item context's active bounds source, guarded against cycles.
func (c *Context) paramBoundsFor(icx *itemCtxt, span source.Span, param ast.DeclID) ([]types.Predicate, error) {
	var out []types.Predicate
	err := c.cycleCheck(span, request{kind: reqParamBounds, decl: param}, func() error {
		c.Stats.ParamBoundQueries++
		out = icx.bounds.paramBounds(icx, span, param)
		return nil
	})
	return out, err
}

// computeScheme builds the scheme for declaration kinds that own one. Kinds
// converted through their container (fields, variants, associated items) are
// registered by the item converter instead; routing them here is a resolver
// bug.
func (c *Context) computeScheme(id ast.DeclID) types.Scheme {
	d := c.Store.Decl(id)
	switch d.Kind {
	case ast.DeclStatic, ast.DeclForeignStatic:
		icx := c.icx(emptySource{})
		return types.Scheme{Ty: icx.ty(c.Store.Static(id).Ty)}

	case ast.DeclConst:
		icx := c.icx(emptySource{})
		return types.Scheme{Ty: icx.ty(c.Store.Const(id).Ty)}

	case ast.DeclFn, ast.DeclForeignFn:
		fn := c.Store.Fn(id)
		icx := c.icx(astSource{owner: id, generics: fn.Generics})
		generics := c.tyGenericsForFn(icx, fn.Generics, types.Generics{})
		if d.Kind == ast.DeclForeignFn {
			c.checkForeignFnParams(fn)
			// Calling across the foreign boundary is always unsafe.
			sig := *fn
			sig.Unsafe = true
			return types.Scheme{Generics: generics, Ty: c.fnType(icx, id, &sig, &generics, types.NoTypeID, ast.SelfNone)}
		}
		ty := c.fnType(icx, id, fn, &generics, types.NoTypeID, ast.SelfNone)
		return types.Scheme{Generics: generics, Ty: ty}

	case ast.DeclTypeAlias:
		alias := c.Store.Alias(id)
		icx := c.icx(astSource{owner: id, generics: alias.Generics})
		generics := c.tyGenericsForTypeOrImpl(icx, alias.Generics)
		return types.Scheme{Generics: generics, Ty: icx.ty(alias.Underlying)}

	case ast.DeclStruct:
		st := c.Store.Struct(id)
		icx := c.icx(astSource{owner: id, generics: st.Generics})
		generics := c.tyGenericsForTypeOrImpl(icx, st.Generics)
		ty := c.Types.Adt(id, c.mkItemSubsts(&generics))
		return types.Scheme{Generics: generics, Ty: ty}

	case ast.DeclEnum:
		en := c.Store.Enum(id)
		icx := c.icx(astSource{owner: id, generics: en.Generics})
		generics := c.tyGenericsForTypeOrImpl(icx, en.Generics)
		ty := c.Types.Adt(id, c.mkItemSubsts(&generics))
		return types.Scheme{Generics: generics, Ty: ty}

	default:
		panic(fmt.Sprintf("collect: no scheme entry point for %s %q", d.Kind, c.declName(id)))
	}
}

// fnType interns the function-definition type of a fn, foreign fn or method.
// The receiver type, when any, becomes the first parameter.
func (c *Context) fnType(icx *itemCtxt, id ast.DeclID, fn *ast.FnDecl, generics *types.Generics, rcvr types.TypeID, selfKind ast.SelfKind) types.TypeID {
	b := c.Types.Builtins()
	var params []types.TypeID
	switch selfKind {
	case ast.SelfValue:
		params = append(params, rcvr)
	case ast.SelfRef:
		params = append(params, c.Types.Intern(types.MakeRef(b.Static, rcvr, false)))
	case ast.SelfRefMut:
		params = append(params, c.Types.Intern(types.MakeRef(b.Static, rcvr, true)))
	}
	for _, p := range fn.Params {
		params = append(params, icx.ty(p.Ty))
	}
	ret := b.Unit
	if fn.Ret.IsValid() {
		ret = icx.ty(fn.Ret)
	}
	return c.Types.FnDef(types.FnInfo{
		Decl:     id,
		Substs:   c.mkItemSubsts(generics),
		Params:   c.Types.InternTypeList(params),
		Ret:      ret,
		Unsafe:   fn.Unsafe,
		Variadic: fn.Variadic,
	})
}

// checkForeignFnParams rejects pattern bindings in foreign declarations.
func (c *Context) checkForeignFnParams(fn *ast.FnDecl) {
	for _, p := range fn.Params {
		if p.HasPattern {
			diag.ReportError(c.Reporter, diag.TyForeignParamPattern, p.Span,
				"patterns aren't allowed in foreign function declarations").Emit()
		}
	}
}
