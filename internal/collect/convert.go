package collect

import (
	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// convertItem resolves one top-level declaration: its scheme, its predicates
// and everything nested under it. Items are converted at most once; demanded
// sub-requests arriving first simply leave their results in the caches.
func (c *Context) convertItem(id ast.DeclID) {
	if c.converted[id] {
		return
	}
	c.converted[id] = true

	switch c.Store.Kind(id) {
	case ast.DeclFn, ast.DeclForeignFn:
		c.convertTypedItem(id)
	case ast.DeclStatic, ast.DeclForeignStatic, ast.DeclConst:
		c.convertTypedItem(id)
	case ast.DeclTypeAlias:
		alias := c.Store.Alias(id)
		c.ensureNoTyParamBounds(c.Store.Span(id), alias.Generics, "type")
		c.convertTypedItem(id)
	case ast.DeclStruct:
		c.convertStruct(id)
	case ast.DeclEnum:
		c.convertEnum(id)
	case ast.DeclTrait:
		c.convertTrait(id)
	case ast.DeclImpl:
		c.convertImpl(id)
	case ast.DeclDefaultImpl:
		c.convertDefaultImpl(id)
	}
}

// convertTypedItem handles the declaration kinds whose conversion is exactly
// their scheme plus generic predicates.
func (c *Context) convertTypedItem(id ast.DeclID) {
	span := c.Store.Span(id)
	if _, err := c.Scheme(span, id); err != nil {
		return
	}
	if _, ok := c.predicates[id]; ok {
		return
	}
	switch c.Store.Kind(id) {
	case ast.DeclFn, ast.DeclForeignFn:
		fn := c.Store.Fn(id)
		icx := c.icx(astSource{owner: id, generics: fn.Generics})
		c.putPredicates(id, c.tyGenericPredicatesForFn(icx, fn.Generics, types.PredicateSet{}))
	case ast.DeclTypeAlias:
		alias := c.Store.Alias(id)
		icx := c.icx(astSource{owner: id, generics: alias.Generics})
		c.putPredicates(id, c.tyGenericPredicatesForTypeOrImpl(icx, alias.Generics))
	default:
		c.putPredicates(id, types.PredicateSet{})
	}
}

func (c *Context) convertStruct(id ast.DeclID) {
	span := c.Store.Span(id)
	scheme, err := c.Scheme(span, id)
	if err != nil {
		return
	}
	st := c.Store.Struct(id)
	icx := c.icx(astSource{owner: id, generics: st.Generics})
	preds := c.tyGenericPredicatesForTypeOrImpl(icx, st.Generics)
	if _, ok := c.predicates[id]; !ok {
		c.putPredicates(id, preds)
	}

	c.convertFields(icx, st.Fields, &scheme, &preds)
	if st.Ctor.IsValid() {
		c.convertCtor(icx, st.Ctor, st.Fields, scheme, preds)
	}
}

func (c *Context) convertEnum(id ast.DeclID) {
	span := c.Store.Span(id)
	scheme, err := c.Scheme(span, id)
	if err != nil {
		return
	}
	en := c.Store.Enum(id)
	icx := c.icx(astSource{owner: id, generics: en.Generics})
	preds := c.tyGenericPredicatesForTypeOrImpl(icx, en.Generics)
	if _, ok := c.predicates[id]; !ok {
		c.putPredicates(id, preds)
	}

	c.evalDiscriminants(en)
	for _, vid := range en.Variants {
		v := c.Store.Variant(vid)
		c.convertFields(icx, v.Fields, &scheme, &preds)
		if v.Tuple {
			c.convertCtor(icx, vid, v.Fields, scheme, preds)
		} else if _, ok := c.schemes[vid]; !ok {
			c.putScheme(vid, scheme)
			c.putPredicates(vid, preds)
		}
	}
}

// convertFields writes per-field schemes, sharing the container's generics and
// predicates, and rejects duplicate field names.
func (c *Context) convertFields(icx *itemCtxt, fields []ast.DeclID, container *types.Scheme, preds *types.PredicateSet) {
	seen := make(map[source.StringID]source.Span, len(fields))
	for _, fid := range fields {
		name := c.Store.Name(fid)
		if first, dup := seen[name]; dup {
			diag.ReportError(c.Reporter, diag.TyDuplicateField, c.Store.Span(fid),
				"field `"+c.str(name)+"` is already declared").
				WithNote(first, "previously declared here").Emit()
			continue
		}
		seen[name] = c.Store.Span(fid)
		f := c.Store.Field(fid)
		c.putScheme(fid, types.Scheme{Generics: container.Generics.Clone(), Ty: icx.ty(f.Ty)})
		c.putPredicates(fid, preds.Clone())
	}
}

// convertCtor gives a tuple constructor (or unit constructor) its function or
// value scheme. The constructor shares the container's generics.
func (c *Context) convertCtor(icx *itemCtxt, ctor ast.DeclID, fields []ast.DeclID, container types.Scheme, preds types.PredicateSet) {
	ty := container.Ty
	if len(fields) > 0 {
		params := make([]types.TypeID, 0, len(fields))
		for _, fid := range fields {
			params = append(params, icx.ty(c.Store.Field(fid).Ty))
		}
		gen := container.Generics.Clone()
		ty = c.Types.FnDef(types.FnInfo{
			Decl:   ctor,
			Substs: c.mkItemSubsts(&gen),
			Params: c.Types.InternTypeList(params),
			Ret:    container.Ty,
		})
	}
	if _, ok := c.schemes[ctor]; !ok {
		c.putScheme(ctor, types.Scheme{Generics: container.Generics.Clone(), Ty: ty})
		c.putPredicates(ctor, preds.Clone())
	}
}
