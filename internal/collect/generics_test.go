package collect

import (
	"testing"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/types"
)

func (e *env) regionRef(decl ast.DeclID) ast.RegionRef {
	return ast.RegionRef{Name: e.store.Name(decl), Decl: decl, Span: e.span()}
}

func (e *env) regionBound(decl ast.DeclID) ast.Bound {
	return ast.Bound{Kind: ast.BoundRegion, Span: e.span(), Region: e.regionRef(decl)}
}

// Object-lifetime defaults: none declared, exactly one, and ambiguous.
func TestObjectLifetimeDefaults(t *testing.T) {
	e := newEnv(t)
	e.sized()
	st := e.store.NewStruct(e.name("Holder"), e.span(), true, ast.StructDecl{})
	ra := e.store.NewRegionParam(e.name("'a"), e.span(), st, ast.RegionParamDecl{})
	rb := e.store.NewRegionParam(e.name("'b"), e.span(), st, ast.RegionParamDecl{})
	plain := e.store.NewTypeParam(e.name("P"), e.span(), st, ast.TypeParamDecl{})
	one := e.store.NewTypeParam(e.name("Q"), e.span(), st, ast.TypeParamDecl{
		Bounds: []ast.Bound{e.regionBound(ra)},
	})
	many := e.store.NewTypeParam(e.name("R"), e.span(), st, ast.TypeParamDecl{
		Bounds: []ast.Bound{e.regionBound(ra)},
	})
	gid := e.store.NewGenerics(ast.Generics{
		RegionParams: []ast.DeclID{ra, rb},
		TypeParams:   []ast.DeclID{plain, one, many},
		Where: []ast.WherePred{{
			Kind:   ast.WhereBound,
			Span:   e.span(),
			Ty:     e.path(many),
			Bounds: []ast.Bound{e.regionBound(rb)},
		}},
	})
	e.store.Struct(st).Generics = gid
	e.store.AddTopLevel(st)

	e.c.Unit()
	e.wantNoErrors()

	check := func(param ast.DeclID, kind types.ObjectLifetimeDefaultKind) {
		t.Helper()
		def, ok := e.c.TypeParamDefOf(param)
		if !ok {
			t.Fatalf("no def recorded for %s", e.c.declName(param))
		}
		if def.Object.Kind != kind {
			t.Fatalf("object default of %s = %v, want %v", e.c.declName(param), def.Object.Kind, kind)
		}
	}
	check(plain, types.ObjectLifetimeBase)
	check(one, types.ObjectLifetimeSpecific)
	check(many, types.ObjectLifetimeAmbiguous)

	def, _ := e.c.TypeParamDefOf(one)
	r, ok := e.ty.RegionOf(def.Object.Region)
	if !ok || r.Kind != types.RegionEarlyBound || r.Index != 0 {
		t.Fatalf("specific default region = %+v, want early-bound 'a", r)
	}
}

// A parameter default may not mention a parameter declared at or after it.
func TestDefaultForwardReferenceRejected(t *testing.T) {
	e := newEnv(t)
	e.sized()
	st := e.store.NewStruct(e.name("Late"), e.span(), true, ast.StructDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), st, ast.TypeParamDecl{})
	up := e.store.NewTypeParam(e.name("U"), e.span(), st, ast.TypeParamDecl{})
	e.store.TypeParam(tp).Default = e.path(up)
	e.store.Struct(st).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp, up}})
	e.store.AddTopLevel(st)

	e.c.Unit()
	e.wantOne(diag.TyDefaultForwardRef, "forward declared identifiers")

	def, _ := e.c.TypeParamDefOf(tp)
	if def.Default != e.ty.Builtins().Error {
		t.Fatal("rejected default did not collapse to the error type")
	}
}

// Defaults in fn space only warn, and stay usable, when the fallback feature
// is enabled.
func TestDefaultOutsideTypeSpaceWarns(t *testing.T) {
	e := newEnv(t)
	e.sized()
	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), fn, ast.TypeParamDecl{Default: e.unitTy()})
	e.store.Fn(fn).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp}})
	e.store.AddTopLevel(fn)

	e.c.Unit()
	ds := e.diags(diag.TyDefaultOutsideType)
	if len(ds) != 1 || ds[0].Severity != diag.SevWarning {
		t.Fatalf("want one warning, got %v", ds)
	}
}

func TestDefaultOutsideTypeSpaceFeatureGate(t *testing.T) {
	e := newEnv(t)
	e.sized()
	e.store.UnitAttrs = append(e.store.UnitAttrs, "default_type_parameter_fallback")
	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), fn, ast.TypeParamDecl{Default: e.unitTy()})
	e.store.Fn(fn).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp}})
	e.store.AddTopLevel(fn)

	e.c.Unit()
	if ds := e.diags(diag.TyDefaultOutsideType); len(ds) != 0 {
		t.Fatalf("feature-gated default still warned: %v", ds)
	}
}

// `?Sized` removes the implicit bound; relaxing anything else warns and keeps
// it; a second marker is an error.
func TestRelaxedBounds(t *testing.T) {
	e := newEnv(t)
	sized := e.sized()
	other := e.store.NewTrait(e.name("Other"), e.span(), true, ast.TraitDecl{})

	maybe := func(trait ast.DeclID) ast.Bound {
		return ast.Bound{Kind: ast.BoundMaybe, Span: e.span(), Trait: e.path(trait)}
	}

	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{})
	relaxed := e.store.NewTypeParam(e.name("A"), e.span(), fn, ast.TypeParamDecl{
		Bounds: []ast.Bound{maybe(sized)},
	})
	useless := e.store.NewTypeParam(e.name("B"), e.span(), fn, ast.TypeParamDecl{
		Bounds: []ast.Bound{maybe(other)},
	})
	double := e.store.NewTypeParam(e.name("C"), e.span(), fn, ast.TypeParamDecl{
		Bounds: []ast.Bound{maybe(sized), maybe(sized)},
	})
	e.store.Fn(fn).Generics = e.store.NewGenerics(ast.Generics{
		TypeParams: []ast.DeclID{relaxed, useless, double},
	})
	e.store.AddTopLevel(other, fn)

	e.c.Unit()
	e.wantOne(diag.TyDuplicateRelaxedBound, "more than one relaxed default bound")
	e.wantOne(diag.TyUselessRelaxedBound, "does nothing")

	ps, _ := e.c.Predicates(fn)
	sizedOn := map[uint32]bool{}
	for _, p := range ps.All() {
		tr, ok := p.SelfTraitRef()
		if !ok || tr.Decl != sized {
			continue
		}
		self := e.ty.SubstsOf(tr.Substs).SelfType()
		info := e.ty.ParamInfoOf(e.mustType(self))
		sizedOn[info.Index] = true
	}
	if sizedOn[0] {
		t.Fatal("relaxed parameter still carries the implicit bound")
	}
	if !sizedOn[1] {
		t.Fatal("uselessly relaxed parameter lost the implicit bound")
	}
}

// Fn-space parameter lists carry the container's type-space list as a prefix.
func TestMethodGenericsLayering(t *testing.T) {
	e := newEnv(t)
	e.sized()
	st := e.store.NewStruct(e.name("Store"), e.span(), true, ast.StructDecl{})
	sp := e.store.NewTypeParam(e.name("S"), e.span(), st, ast.TypeParamDecl{})
	e.store.Struct(st).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{sp}})

	imp := e.store.NewImpl(e.span(), ast.ImplDecl{})
	it := e.store.NewTypeParam(e.name("T"), e.span(), imp, ast.TypeParamDecl{})
	e.store.Impl(imp).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{it}})
	e.store.Impl(imp).SelfTy = e.path(st, e.path(it))

	m := e.store.NewMethod(e.name("insert"), e.span(), imp, true, ast.MethodDecl{SelfKind: ast.SelfRefMut})
	mp := e.store.NewTypeParam(e.name("K"), e.span(), m, ast.TypeParamDecl{})
	e.store.Method(m).Sig.Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{mp}})
	e.store.Impl(imp).Items = []ast.DeclID{m}
	e.store.AddTopLevel(st, imp)

	e.c.Unit()
	e.wantNoErrors()

	scheme, ok := e.c.SchemeOf(m)
	if !ok {
		t.Fatal("method scheme missing")
	}
	if got := scheme.Generics.Types.Len(types.SpaceType); got != 1 {
		t.Fatalf("method inherits %d type-space params, want 1", got)
	}
	if got := scheme.Generics.Types.Len(types.SpaceFn); got != 1 {
		t.Fatalf("method declares %d fn-space params, want 1", got)
	}
	def, _ := e.c.TypeParamDefOf(mp)
	if def.Space != types.SpaceFn || def.Index != 0 {
		t.Fatalf("method param resolved to %v/%d, want fn space index 0", def.Space, def.Index)
	}
}
