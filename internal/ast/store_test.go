package ast

import (
	"testing"

	"ferrite/internal/source"
)

func TestStoreConstructorsAndAccessors(t *testing.T) {
	s := NewStore(nil)

	name := s.Strings.Intern("Point")
	fieldX := s.Strings.Intern("x")

	st := s.NewStruct(name, source.Span{}, true, StructDecl{})
	fx := s.NewField(fieldX, source.Span{}, st, true, FieldDecl{})
	s.Struct(st).Fields = append(s.Struct(st).Fields, fx)
	s.AddTopLevel(st)

	if got := s.Kind(st); got != DeclStruct {
		t.Fatalf("Kind(st) = %s, want %s", got, DeclStruct)
	}
	if got := s.NameStr(st); got != "Point" {
		t.Fatalf("NameStr(st) = %q, want %q", got, "Point")
	}
	if got := s.Parent(fx); got != st {
		t.Fatalf("Parent(field) = %d, want %d", got, st)
	}
	if got := len(s.Struct(st).Fields); got != 1 {
		t.Fatalf("struct has %d fields, want 1", got)
	}
	if got := s.NumDecls(); got != 2 {
		t.Fatalf("NumDecls() = %d, want 2", got)
	}
	if len(s.TopLevel) != 1 || s.TopLevel[0] != st {
		t.Fatalf("TopLevel = %v, want [%d]", s.TopLevel, st)
	}
}

func TestStoreSentinelsPanic(t *testing.T) {
	s := NewStore(nil)

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s did not panic", name)
			}
		}()
		fn()
	}

	mustPanic("Decl(0)", func() { s.Decl(NoDeclID) })
	mustPanic("Ty(0)", func() { s.Ty(NoTyID) })
	mustPanic("Expr(0)", func() { s.Expr(NoExprID) })

	tr := s.NewTrait(s.Strings.Intern("Show"), source.Span{}, true, TraitDecl{})
	mustPanic("Struct(trait)", func() { s.Struct(tr) })
}

func TestStoreKindMismatchMessage(t *testing.T) {
	s := NewStore(nil)
	en := s.NewEnum(s.Strings.Intern("Color"), source.Span{}, false, EnumDecl{})
	if s.Kind(en) != DeclEnum {
		t.Fatalf("Kind = %s, want %s", s.Kind(en), DeclEnum)
	}
	if s.Kind(NoDeclID) != DeclInvalid {
		t.Fatalf("Kind(sentinel) = %s, want %s", s.Kind(NoDeclID), DeclInvalid)
	}
}

func TestStoreAttrs(t *testing.T) {
	s := NewStore(nil)
	tr := s.NewTrait(s.Strings.Intern("Call"), source.Span{}, true, TraitDecl{})

	if s.HasAttr(tr, "paren_sugar") {
		t.Fatal("attr present before AddAttr")
	}
	s.AddAttr(tr, "paren_sugar")
	if !s.HasAttr(tr, "paren_sugar") {
		t.Fatal("attr missing after AddAttr")
	}

	if s.HasUnitAttr("unboxed_closures") {
		t.Fatal("unit attr present before set")
	}
	s.UnitAttrs = append(s.UnitAttrs, "unboxed_closures")
	if !s.HasUnitAttr("unboxed_closures") {
		t.Fatal("unit attr missing after set")
	}
}

func TestGenericsHandleZeroIsEmpty(t *testing.T) {
	s := NewStore(nil)
	if g := s.Generics(NoGenericsID); !g.IsEmpty() {
		t.Fatal("sentinel generics should be empty")
	}

	tp := s.NewTypeParam(s.Strings.Intern("T"), source.Span{}, NoDeclID, TypeParamDecl{})
	gid := s.NewGenerics(Generics{TypeParams: []DeclID{tp}})
	g := s.Generics(gid)
	if g.IsEmpty() || len(g.TypeParams) != 1 {
		t.Fatalf("generics = %+v, want one type param", g)
	}
}
