package collect

import (
	"strings"
	"testing"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
	"ferrite/internal/types"
)

// env wires a store, an interner and a bag-backed context together and offers
// shorthands for building declaration graphs by hand.
type env struct {
	t     *testing.T
	store *ast.Store
	ty    *types.Interner
	bag   *diag.Bag
	c     *Context
	pos   uint32
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := ast.NewStore(source.NewInterner())
	bag := diag.NewBag(128)
	e := &env{t: t, store: store, ty: types.NewInterner(), bag: bag}
	e.c = New(store, e.ty, diag.BagReporter{Bag: bag})
	return e
}

func (e *env) span() source.Span {
	e.pos += 16
	return source.Span{Start: e.pos, End: e.pos + 8}
}

func (e *env) name(s string) source.StringID { return e.store.Strings.Intern(s) }

// sized registers the builtin marker trait so implicit bounds resolve.
func (e *env) sized() ast.DeclID {
	if e.store.Lang.Sized.IsValid() {
		return e.store.Lang.Sized
	}
	id := e.store.NewTrait(e.name("Sized"), e.span(), true, ast.TraitDecl{})
	e.store.Lang.Sized = id
	e.store.AddTopLevel(id)
	return id
}

func (e *env) path(decl ast.DeclID, args ...ast.TyID) ast.TyID {
	return e.store.NewTy(ast.Ty{Kind: ast.TyPath, Span: e.span(), Decl: decl, Args: ast.TyArgs{Types: args}})
}

func (e *env) unitTy() ast.TyID {
	return e.store.NewTy(ast.Ty{Kind: ast.TyTuple, Span: e.span()})
}

func (e *env) traitBound(trait ast.DeclID) ast.Bound {
	return ast.Bound{Kind: ast.BoundTrait, Span: e.span(), Trait: e.path(trait)}
}

func (e *env) intExpr(v uint64) ast.ExprID {
	return e.store.NewExpr(ast.Expr{Kind: ast.ExprInt, Span: e.span(), IntVal: v})
}

func (e *env) diags(code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range e.bag.Items() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func (e *env) wantNoErrors() {
	e.t.Helper()
	for _, d := range e.bag.Items() {
		if d.Severity == diag.SevError {
			e.t.Fatalf("unexpected error: [%s] %s", d.Code.ID(), d.Message)
		}
	}
}

func (e *env) wantOne(code diag.Code, substr string) diag.Diagnostic {
	e.t.Helper()
	ds := e.diags(code)
	if len(ds) != 1 {
		e.t.Fatalf("want exactly one %s diagnostic, got %d", code.ID(), len(ds))
	}
	if !strings.Contains(ds[0].Message, substr) {
		e.t.Fatalf("diagnostic %q does not mention %q", ds[0].Message, substr)
	}
	return ds[0]
}

func (e *env) mustType(id types.TypeID) types.Type {
	e.t.Helper()
	t, ok := e.ty.Lookup(id)
	if !ok {
		e.t.Fatalf("type %d not interned", id)
	}
	return t
}

func TestSchemeMemoized(t *testing.T) {
	e := newEnv(t)
	pt := e.store.NewStruct(e.name("Point"), e.span(), true, ast.StructDecl{})
	f1 := e.store.NewFn(e.name("origin"), e.span(), true, ast.FnDecl{Ret: e.path(pt)})
	f2 := e.store.NewFn(e.name("consume"), e.span(), true, ast.FnDecl{
		Params: []ast.Param{{Name: e.name("p"), Ty: e.path(pt), Span: e.span()}},
	})
	e.store.AddTopLevel(pt, f1, f2)

	e.c.Unit()
	e.wantNoErrors()

	if got := e.c.Stats.SchemeComputes; got != 3 {
		t.Fatalf("SchemeComputes = %d, want 3 (struct plus two fns)", got)
	}
	if got := e.c.Stats.SchemeHits; got != 2 {
		t.Fatalf("SchemeHits = %d, want 2 (one per signature mention)", got)
	}
}

func TestTraitAssocTypeLookupUsesCachedDef(t *testing.T) {
	e := newEnv(t)
	e.sized()
	tr := e.store.NewTrait(e.name("Stream"), e.span(), true, ast.TraitDecl{})
	item := e.store.NewAssocType(e.name("Chunk"), e.span(), tr, true, ast.AssocTypeDecl{})
	e.store.Trait(tr).Items = []ast.DeclID{item}
	e.store.AddTopLevel(tr)

	if _, err := e.c.TraitDefOf(e.span(), tr); err != nil {
		t.Fatalf("trait def: %v", err)
	}
	if _, cached := e.c.traitDefs[tr]; !cached {
		t.Fatal("trait def was not cached")
	}
	if !e.c.traitDefinesAssocType(tr, e.name("Chunk")) {
		t.Fatal("cached trait def does not report its associated type")
	}
	if e.c.traitDefinesAssocType(tr, e.name("Elem")) {
		t.Fatal("associated type reported that the trait never declares")
	}
}

func TestAliasSchemeCycleReported(t *testing.T) {
	e := newEnv(t)
	a := e.store.NewTypeAlias(e.name("First"), e.span(), true, ast.AliasDecl{})
	b := e.store.NewTypeAlias(e.name("Second"), e.span(), true, ast.AliasDecl{})
	e.store.Alias(a).Underlying = e.path(b)
	e.store.Alias(b).Underlying = e.path(a)
	e.store.AddTopLevel(a, b)

	e.c.Unit()

	d := e.wantOne(diag.TyCycle, "unsupported cyclic reference")
	if len(d.Notes) != 3 {
		t.Fatalf("cycle narration has %d notes, want 3", len(d.Notes))
	}
	if !strings.Contains(d.Notes[0].Msg, "the cycle begins when processing `First`") {
		t.Fatalf("first note %q does not open the narration", d.Notes[0].Msg)
	}
	if !strings.Contains(d.Notes[1].Msg, "processing `Second`") {
		t.Fatalf("middle note %q does not continue the narration", d.Notes[1].Msg)
	}
	for _, id := range []ast.DeclID{a, b} {
		scheme, ok := e.c.SchemeOf(id)
		if !ok {
			t.Fatalf("no scheme recorded for %s", e.c.declName(id))
		}
		if scheme.Ty != e.ty.Builtins().Error {
			t.Fatalf("scheme of %s is %v, want the error type", e.c.declName(id), scheme.Ty)
		}
	}
}

func TestSupertraitCycleReported(t *testing.T) {
	e := newEnv(t)
	a := e.store.NewTrait(e.name("Producer"), e.span(), true, ast.TraitDecl{})
	b := e.store.NewTrait(e.name("Consumer"), e.span(), true, ast.TraitDecl{})
	e.store.Trait(a).Supertraits = []ast.Bound{e.traitBound(b)}
	e.store.Trait(b).Supertraits = []ast.Bound{e.traitBound(a)}
	e.store.AddTopLevel(a, b)

	e.c.Unit()

	ds := e.diags(diag.TyCycle)
	if len(ds) == 0 {
		t.Fatal("no cycle diagnostic reported for mutually recursive supertraits")
	}
	d := ds[0]
	if !strings.Contains(d.Message, "unsupported cyclic reference") {
		t.Fatalf("unexpected cycle message %q", d.Message)
	}
	if len(d.Notes) != 3 {
		t.Fatalf("cycle narration has %d notes, want 3", len(d.Notes))
	}
	if !strings.Contains(d.Notes[0].Msg, "the cycle begins when computing the supertraits of `Producer`") {
		t.Fatalf("first note %q does not open the narration", d.Notes[0].Msg)
	}
	if !strings.Contains(d.Notes[1].Msg, "which then requires computing the supertraits of `Consumer`") {
		t.Fatalf("middle note %q does not continue the narration", d.Notes[1].Msg)
	}
	if !strings.Contains(d.Notes[2].Msg, "completing the cycle") {
		t.Fatalf("last note %q does not close the narration", d.Notes[2].Msg)
	}
}

// A method returning the trait's own associated type must resolve without a
// manufactured cycle: the trait definition is cached before the body converts.
func TestMethodUsingOwnAssocType(t *testing.T) {
	e := newEnv(t)
	e.sized()
	tr := e.store.NewTrait(e.name("Iterator"), e.span(), true, ast.TraitDecl{})
	item := e.store.NewAssocType(e.name("Item"), e.span(), tr, true, ast.AssocTypeDecl{})
	ret := e.store.NewTy(ast.Ty{Kind: ast.TyPath, Span: e.span(), Decl: item})
	next := e.store.NewMethod(e.name("next"), e.span(), tr, true, ast.MethodDecl{
		Sig:      ast.FnDecl{Ret: ret},
		SelfKind: ast.SelfRefMut,
	})
	e.store.Trait(tr).Items = []ast.DeclID{item, next}
	e.store.AddTopLevel(tr)

	e.c.Unit()
	e.wantNoErrors()

	scheme, ok := e.c.SchemeOf(next)
	if !ok {
		t.Fatal("method scheme not recorded")
	}
	fnTy := e.mustType(scheme.Ty)
	if fnTy.Kind != types.KindFnDef {
		t.Fatalf("method scheme is %v, want a fn-def type", fnTy.Kind)
	}
	info := e.ty.FnInfoOf(fnTy)
	retTy := e.mustType(info.Ret)
	if retTy.Kind != types.KindProjection {
		t.Fatalf("return type is %v, want a projection", retTy.Kind)
	}
	if got := e.ty.ProjectionInfoOf(retTy).Trait.Decl; got != tr {
		t.Fatalf("projection resolves to declaration %d, want the defining trait", got)
	}
}

// Trait bounds come out ordered by declaration identity, not by the order the
// source listed them.
func TestParamBoundsDeterministicOrder(t *testing.T) {
	e := newEnv(t)
	e.sized()
	zed := e.store.NewTrait(e.name("Zed"), e.span(), true, ast.TraitDecl{})
	alpha := e.store.NewTrait(e.name("Alpha"), e.span(), true, ast.TraitDecl{})
	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), fn, ast.TypeParamDecl{
		Bounds: []ast.Bound{e.traitBound(alpha), e.traitBound(zed)},
	})
	e.store.Fn(fn).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp}})
	e.store.AddTopLevel(zed, alpha, fn)

	e.c.Unit()
	e.wantNoErrors()

	ps, ok := e.c.Predicates(fn)
	if !ok {
		t.Fatal("fn predicates not recorded")
	}
	var traitOrder []ast.DeclID
	for _, p := range ps.All() {
		if tr, ok := p.SelfTraitRef(); ok && tr.Decl != e.store.Lang.Sized {
			traitOrder = append(traitOrder, tr.Decl)
		}
	}
	if len(traitOrder) != 2 || traitOrder[0] != zed || traitOrder[1] != alpha {
		t.Fatalf("trait bound order = %v, want [%d %d] (declaration order)", traitOrder, zed, alpha)
	}
}

// `T::Assoc` resolves through the bound that supplies the defining trait.
func TestProjectionFromParamBound(t *testing.T) {
	e := newEnv(t)
	e.sized()
	tr := e.store.NewTrait(e.name("Has"), e.span(), true, ast.TraitDecl{})
	out := e.store.NewAssocType(e.name("Out"), e.span(), tr, true, ast.AssocTypeDecl{})
	e.store.Trait(tr).Items = []ast.DeclID{out}

	fn := e.store.NewFn(e.name("pick"), e.span(), true, ast.FnDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), fn, ast.TypeParamDecl{
		Bounds: []ast.Bound{e.traitBound(tr)},
	})
	gid := e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp}})
	ret := e.store.NewTy(ast.Ty{Kind: ast.TyPath, Span: e.span(), Decl: out, Qual: e.path(tp)})
	e.store.Fn(fn).Generics = gid
	e.store.Fn(fn).Ret = ret
	e.store.AddTopLevel(tr, fn)

	e.c.Unit()
	e.wantNoErrors()

	if e.c.Stats.ParamBoundQueries == 0 {
		t.Fatal("projection resolution never consulted the parameter bounds")
	}
	scheme, _ := e.c.SchemeOf(fn)
	info := e.ty.FnInfoOf(e.mustType(scheme.Ty))
	retTy := e.mustType(info.Ret)
	if retTy.Kind != types.KindProjection {
		t.Fatalf("return type is %v, want a projection", retTy.Kind)
	}
	proj := e.ty.ProjectionInfoOf(retTy)
	if proj.Trait.Decl != tr {
		t.Fatalf("projection trait is declaration %d, want `Has`", proj.Trait.Decl)
	}
	self := e.ty.SubstsOf(proj.Trait.Substs).SelfType()
	selfTy := e.mustType(self)
	if selfTy.Kind != types.KindParam {
		t.Fatalf("projection self type is %v, want the parameter", selfTy.Kind)
	}
}

// The defining trait may sit behind a supertrait edge of the written bound.
func TestProjectionThroughSupertrait(t *testing.T) {
	e := newEnv(t)
	e.sized()
	base := e.store.NewTrait(e.name("Base"), e.span(), true, ast.TraitDecl{})
	out := e.store.NewAssocType(e.name("Out"), e.span(), base, true, ast.AssocTypeDecl{})
	e.store.Trait(base).Items = []ast.DeclID{out}
	sub := e.store.NewTrait(e.name("Sub"), e.span(), true, ast.TraitDecl{})
	e.store.Trait(sub).Supertraits = []ast.Bound{e.traitBound(base)}

	fn := e.store.NewFn(e.name("pick"), e.span(), true, ast.FnDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), fn, ast.TypeParamDecl{
		Bounds: []ast.Bound{e.traitBound(sub)},
	})
	e.store.Fn(fn).Generics = e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp}})
	e.store.Fn(fn).Ret = e.store.NewTy(ast.Ty{Kind: ast.TyPath, Span: e.span(), Decl: out, Qual: e.path(tp)})
	e.store.AddTopLevel(base, sub, fn)

	e.c.Unit()
	e.wantNoErrors()

	scheme, _ := e.c.SchemeOf(fn)
	info := e.ty.FnInfoOf(e.mustType(scheme.Ty))
	retTy := e.mustType(info.Ret)
	if retTy.Kind != types.KindProjection {
		t.Fatalf("return type is %v, want a projection", retTy.Kind)
	}
	if got := e.ty.ProjectionInfoOf(retTy).Trait.Decl; got != base {
		t.Fatalf("projection trait is declaration %d, want `Base`", got)
	}
}

// The trait's own predicate set starts with its super-predicates and the
// reflexive Self bound.
func TestTraitPredicatesIncludeReflexiveSelf(t *testing.T) {
	e := newEnv(t)
	e.sized()
	base := e.store.NewTrait(e.name("Base"), e.span(), true, ast.TraitDecl{})
	sub := e.store.NewTrait(e.name("Sub"), e.span(), true, ast.TraitDecl{})
	e.store.Trait(sub).Supertraits = []ast.Bound{e.traitBound(base)}
	e.store.AddTopLevel(base, sub)

	e.c.Unit()
	e.wantNoErrors()

	ps, ok := e.c.Predicates(sub)
	if !ok {
		t.Fatal("trait predicates not recorded")
	}
	sawSelf, sawSuper := false, false
	for _, p := range ps.All() {
		tr, ok := p.SelfTraitRef()
		if !ok {
			continue
		}
		switch tr.Decl {
		case sub:
			sawSelf = true
		case base:
			sawSuper = true
		}
	}
	if !sawSelf || !sawSuper {
		t.Fatalf("predicates sawSelf=%v sawSuper=%v, want both", sawSelf, sawSuper)
	}
}

func TestForeignFnUnsafeAndPatternRejected(t *testing.T) {
	e := newEnv(t)
	ff := e.store.NewForeignFn(e.name("read"), e.span(), true, ast.FnDecl{
		Params: []ast.Param{{Name: e.name("buf"), Ty: e.unitTy(), HasPattern: true, Span: e.span()}},
	})
	e.store.AddTopLevel(ff)

	e.c.Unit()
	e.wantOne(diag.TyForeignParamPattern, "patterns aren't allowed in foreign function declarations")

	scheme, _ := e.c.SchemeOf(ff)
	info := e.ty.FnInfoOf(e.mustType(scheme.Ty))
	if !info.Unsafe {
		t.Fatal("foreign fn type is not unsafe")
	}
}

func TestPlaceholderInSignatureRejected(t *testing.T) {
	e := newEnv(t)
	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{
		Ret: e.store.NewTy(ast.Ty{Kind: ast.TyInfer, Span: e.span()}),
	})
	e.store.AddTopLevel(fn)

	e.c.Unit()
	e.wantOne(diag.TyPlaceholderInSignature, "type placeholder `_` is not allowed")
}

func TestAliasExpansionAndParamBoundWarning(t *testing.T) {
	e := newEnv(t)
	e.sized()
	marker := e.store.NewTrait(e.name("Marker"), e.span(), true, ast.TraitDecl{})
	alias := e.store.NewTypeAlias(e.name("PairOf"), e.span(), true, ast.AliasDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), alias, ast.TypeParamDecl{
		Bounds: []ast.Bound{e.traitBound(marker)},
	})
	gid := e.store.NewGenerics(ast.Generics{TypeParams: []ast.DeclID{tp}})
	under := e.store.NewTy(ast.Ty{Kind: ast.TyTuple, Span: e.span(), Elems: []ast.TyID{e.path(tp), e.path(tp)}})
	e.store.Alias(alias).Generics = gid
	e.store.Alias(alias).Underlying = under

	fn := e.store.NewFn(e.name("use_alias"), e.span(), true, ast.FnDecl{
		Ret: e.path(alias, e.unitTy()),
	})
	e.store.AddTopLevel(marker, alias, fn)

	e.c.Unit()
	e.wantOne(diag.TyAliasParamBound, "trait bounds are not (yet) enforced")

	scheme, _ := e.c.SchemeOf(fn)
	info := e.ty.FnInfoOf(e.mustType(scheme.Ty))
	ret := e.mustType(info.Ret)
	if ret.Kind != types.KindTuple {
		t.Fatalf("alias use expanded to %v, want the underlying tuple", ret.Kind)
	}
	elems := e.ty.TypeList(types.TypeListID(ret.Payload))
	if len(elems) != 2 || elems[0] != e.ty.Builtins().Unit || elems[1] != e.ty.Builtins().Unit {
		t.Fatalf("alias expansion produced %v, want two unit elements", elems)
	}
}

func TestWrongTypeArgumentCount(t *testing.T) {
	e := newEnv(t)
	st := e.store.NewStruct(e.name("Only"), e.span(), true, ast.StructDecl{})
	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{
		Ret: e.path(st, e.unitTy()),
	})
	e.store.AddTopLevel(st, fn)

	e.c.Unit()
	e.wantOne(diag.TyWrongArgCount, "wrong number of type arguments")
}

func TestWhereEqualityConstraintRejected(t *testing.T) {
	e := newEnv(t)
	e.sized()
	fn := e.store.NewFn(e.name("f"), e.span(), true, ast.FnDecl{})
	tp := e.store.NewTypeParam(e.name("T"), e.span(), fn, ast.TypeParamDecl{})
	e.store.Fn(fn).Generics = e.store.NewGenerics(ast.Generics{
		TypeParams: []ast.DeclID{tp},
		Where:      []ast.WherePred{{Kind: ast.WhereEq, Span: e.span()}},
	})
	e.store.AddTopLevel(fn)

	e.c.Unit()
	e.wantOne(diag.TyEqualityConstraint, "equality constraints are not supported")
}

func TestParenSugarGated(t *testing.T) {
	e := newEnv(t)
	tr := e.store.NewTrait(e.name("CallOnce"), e.span(), true, ast.TraitDecl{})
	e.store.AddAttr(tr, "paren_sugar")
	e.store.AddTopLevel(tr)

	e.c.Unit()
	e.wantOne(diag.TyParenSugarReserved, "paren_sugar")
	if got := e.c.traitDefs[tr]; got == nil || !got.ParenSugar {
		t.Fatal("trait def does not carry the paren-sugar flag")
	}
}

func TestDefaultImplMarksTrait(t *testing.T) {
	e := newEnv(t)
	tr := e.store.NewTrait(e.name("Send"), e.span(), true, ast.TraitDecl{})
	di := e.store.NewDefaultImpl(e.span(), ast.DefaultImplDecl{TraitRef: e.path(tr)})
	e.store.AddTopLevel(tr, di)

	e.c.Unit()
	e.wantNoErrors()
	if !e.c.TraitHasDefaultImpl(tr) {
		t.Fatal("default impl not recorded on the trait definition")
	}
}
