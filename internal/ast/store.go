package ast

import (
	"fmt"

	"fortio.org/safecast"

	"ferrite/internal/source"
)

// LangItems records the builtin declarations the resolver must know about.
type LangItems struct {
	Sized DeclID // the builtin "sized" marker trait
}

// Store is the declaration store for one compilation unit: flat arenas
// addressed by the ID types, with index 0 of every arena reserved as the
// invalid sentinel. The front-end populates it; the resolver reads it.
type Store struct {
	Decls []Decl

	Fns          []FnDecl
	Statics      []StaticDecl
	Consts       []ConstDecl
	Aliases      []AliasDecl
	Structs      []StructDecl
	Enums        []EnumDecl
	Variants     []VariantDecl
	Fields       []FieldDecl
	Traits       []TraitDecl
	Impls        []ImplDecl
	DefaultImpls []DefaultImplDecl
	AssocConsts  []AssocConstDecl
	AssocTypes   []AssocTypeDecl
	Methods      []MethodDecl
	TypeParamTab []TypeParamDecl
	RegionParTab []RegionParamDecl

	GenericsTab []Generics
	Tys         []Ty
	Exprs       []Expr

	// TopLevel lists the unit's top-level declarations in source order.
	TopLevel []DeclID

	// Attrs maps a declaration to its attribute names. Attributes only gate
	// legacy or experimental behavior; none changes the core algorithm.
	Attrs map[DeclID][]string

	// UnitAttrs holds unit-level attributes such as feature gates.
	UnitAttrs []string

	Lang LangItems

	Strings *source.Interner `msgpack:"-"`
}

// NewStore returns a store with every arena seeded with its index-0 sentinel.
func NewStore(strings *source.Interner) *Store {
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Store{
		Decls: []Decl{{}},

		Fns:          []FnDecl{{}},
		Statics:      []StaticDecl{{}},
		Consts:       []ConstDecl{{}},
		Aliases:      []AliasDecl{{}},
		Structs:      []StructDecl{{}},
		Enums:        []EnumDecl{{}},
		Variants:     []VariantDecl{{}},
		Fields:       []FieldDecl{{}},
		Traits:       []TraitDecl{{}},
		Impls:        []ImplDecl{{}},
		DefaultImpls: []DefaultImplDecl{{}},
		AssocConsts:  []AssocConstDecl{{}},
		AssocTypes:   []AssocTypeDecl{{}},
		Methods:      []MethodDecl{{}},
		TypeParamTab: []TypeParamDecl{{}},
		RegionParTab: []RegionParamDecl{{}},

		GenericsTab: []Generics{{}},
		Tys:         []Ty{{}},
		Exprs:       []Expr{{}},

		Attrs:   make(map[DeclID][]string),
		Strings: strings,
	}
}

func conv32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("arena index overflow: %w", err))
	}
	return v
}

func (s *Store) newDecl(kind DeclKind, name source.StringID, span source.Span, parent DeclID, public bool, payload uint32) DeclID {
	id := conv32(len(s.Decls))
	s.Decls = append(s.Decls, Decl{
		Kind:    kind,
		Name:    name,
		Span:    span,
		Parent:  parent,
		Public:  public,
		Payload: payload,
	})
	return DeclID(id)
}

// Decl returns the declaration record for id. Panics on the sentinel.
func (s *Store) Decl(id DeclID) *Decl {
	if !id.IsValid() || int(id) >= len(s.Decls) {
		panic(fmt.Sprintf("ast: invalid decl id %d", id))
	}
	return &s.Decls[id]
}

// Kind is a nil-safe kind lookup: the sentinel maps to DeclInvalid.
func (s *Store) Kind(id DeclID) DeclKind {
	if !id.IsValid() || int(id) >= len(s.Decls) {
		return DeclInvalid
	}
	return s.Decls[id].Kind
}

// Parent returns the enclosing declaration, or NoDeclID for top-level items.
func (s *Store) Parent(id DeclID) DeclID { return s.Decl(id).Parent }

// Name returns the interned name of the declaration.
func (s *Store) Name(id DeclID) source.StringID { return s.Decl(id).Name }

// NameStr resolves the declaration name to its text.
func (s *Store) NameStr(id DeclID) string { return s.Strings.MustLookup(s.Decl(id).Name) }

// Span returns the source span of the declaration.
func (s *Store) Span(id DeclID) source.Span { return s.Decl(id).Span }

// Constructors. Each appends the payload record and the decl record and
// returns the new DeclID. Payload fields that reference children are filled
// in afterwards through the payload accessor.

func (s *Store) NewFn(name source.StringID, span source.Span, public bool, fn FnDecl) DeclID {
	p := conv32(len(s.Fns))
	s.Fns = append(s.Fns, fn)
	return s.newDecl(DeclFn, name, span, NoDeclID, public, p)
}

func (s *Store) NewForeignFn(name source.StringID, span source.Span, public bool, fn FnDecl) DeclID {
	p := conv32(len(s.Fns))
	s.Fns = append(s.Fns, fn)
	return s.newDecl(DeclForeignFn, name, span, NoDeclID, public, p)
}

func (s *Store) NewStatic(name source.StringID, span source.Span, public bool, st StaticDecl) DeclID {
	p := conv32(len(s.Statics))
	s.Statics = append(s.Statics, st)
	return s.newDecl(DeclStatic, name, span, NoDeclID, public, p)
}

func (s *Store) NewForeignStatic(name source.StringID, span source.Span, public bool, st StaticDecl) DeclID {
	p := conv32(len(s.Statics))
	s.Statics = append(s.Statics, st)
	return s.newDecl(DeclForeignStatic, name, span, NoDeclID, public, p)
}

func (s *Store) NewConst(name source.StringID, span source.Span, public bool, c ConstDecl) DeclID {
	p := conv32(len(s.Consts))
	s.Consts = append(s.Consts, c)
	return s.newDecl(DeclConst, name, span, NoDeclID, public, p)
}

func (s *Store) NewTypeAlias(name source.StringID, span source.Span, public bool, a AliasDecl) DeclID {
	p := conv32(len(s.Aliases))
	s.Aliases = append(s.Aliases, a)
	return s.newDecl(DeclTypeAlias, name, span, NoDeclID, public, p)
}

func (s *Store) NewStruct(name source.StringID, span source.Span, public bool, st StructDecl) DeclID {
	p := conv32(len(s.Structs))
	s.Structs = append(s.Structs, st)
	return s.newDecl(DeclStruct, name, span, NoDeclID, public, p)
}

func (s *Store) NewEnum(name source.StringID, span source.Span, public bool, e EnumDecl) DeclID {
	p := conv32(len(s.Enums))
	s.Enums = append(s.Enums, e)
	return s.newDecl(DeclEnum, name, span, NoDeclID, public, p)
}

func (s *Store) NewVariant(name source.StringID, span source.Span, parent DeclID, v VariantDecl) DeclID {
	p := conv32(len(s.Variants))
	s.Variants = append(s.Variants, v)
	return s.newDecl(DeclVariant, name, span, parent, true, p)
}

func (s *Store) NewField(name source.StringID, span source.Span, parent DeclID, public bool, f FieldDecl) DeclID {
	p := conv32(len(s.Fields))
	s.Fields = append(s.Fields, f)
	return s.newDecl(DeclField, name, span, parent, public, p)
}

// NewCtor registers the constructor item of a tuple struct. It carries no
// payload of its own; the parent struct describes the fields.
func (s *Store) NewCtor(name source.StringID, span source.Span, parent DeclID, public bool) DeclID {
	return s.newDecl(DeclCtor, name, span, parent, public, 0)
}

func (s *Store) NewTrait(name source.StringID, span source.Span, public bool, t TraitDecl) DeclID {
	p := conv32(len(s.Traits))
	s.Traits = append(s.Traits, t)
	return s.newDecl(DeclTrait, name, span, NoDeclID, public, p)
}

func (s *Store) NewImpl(span source.Span, im ImplDecl) DeclID {
	p := conv32(len(s.Impls))
	s.Impls = append(s.Impls, im)
	return s.newDecl(DeclImpl, source.NoStringID, span, NoDeclID, false, p)
}

func (s *Store) NewDefaultImpl(span source.Span, di DefaultImplDecl) DeclID {
	p := conv32(len(s.DefaultImpls))
	s.DefaultImpls = append(s.DefaultImpls, di)
	return s.newDecl(DeclDefaultImpl, source.NoStringID, span, NoDeclID, false, p)
}

func (s *Store) NewAssocConst(name source.StringID, span source.Span, parent DeclID, public bool, c AssocConstDecl) DeclID {
	p := conv32(len(s.AssocConsts))
	s.AssocConsts = append(s.AssocConsts, c)
	return s.newDecl(DeclAssocConst, name, span, parent, public, p)
}

func (s *Store) NewAssocType(name source.StringID, span source.Span, parent DeclID, public bool, t AssocTypeDecl) DeclID {
	p := conv32(len(s.AssocTypes))
	s.AssocTypes = append(s.AssocTypes, t)
	return s.newDecl(DeclAssocType, name, span, parent, public, p)
}

func (s *Store) NewMethod(name source.StringID, span source.Span, parent DeclID, public bool, m MethodDecl) DeclID {
	p := conv32(len(s.Methods))
	s.Methods = append(s.Methods, m)
	return s.newDecl(DeclMethod, name, span, parent, public, p)
}

func (s *Store) NewTypeParam(name source.StringID, span source.Span, parent DeclID, tp TypeParamDecl) DeclID {
	p := conv32(len(s.TypeParamTab))
	s.TypeParamTab = append(s.TypeParamTab, tp)
	return s.newDecl(DeclTypeParam, name, span, parent, false, p)
}

func (s *Store) NewRegionParam(name source.StringID, span source.Span, parent DeclID, rp RegionParamDecl) DeclID {
	p := conv32(len(s.RegionParTab))
	s.RegionParTab = append(s.RegionParTab, rp)
	return s.newDecl(DeclRegionParam, name, span, parent, false, p)
}

// NewGenerics interns a generics record and returns its handle.
func (s *Store) NewGenerics(g Generics) GenericsID {
	id := conv32(len(s.GenericsTab))
	s.GenericsTab = append(s.GenericsTab, g)
	return GenericsID(id)
}

// NewTy appends a type expression node.
func (s *Store) NewTy(t Ty) TyID {
	id := conv32(len(s.Tys))
	s.Tys = append(s.Tys, t)
	return TyID(id)
}

// NewExpr appends an expression node.
func (s *Store) NewExpr(e Expr) ExprID {
	id := conv32(len(s.Exprs))
	s.Exprs = append(s.Exprs, e)
	return ExprID(id)
}

func (s *Store) payload(id DeclID, want DeclKind) uint32 {
	d := s.Decl(id)
	if d.Kind != want {
		panic(fmt.Sprintf("ast: decl %d is %s, want %s", id, d.Kind, want))
	}
	return d.Payload
}

// Payload accessors return mutable pointers so the front-end can link
// children in after creating them.

func (s *Store) Fn(id DeclID) *FnDecl {
	d := s.Decl(id)
	if d.Kind != DeclFn && d.Kind != DeclForeignFn {
		panic(fmt.Sprintf("ast: decl %d is %s, want fn", id, d.Kind))
	}
	return &s.Fns[d.Payload]
}

func (s *Store) Static(id DeclID) *StaticDecl {
	d := s.Decl(id)
	if d.Kind != DeclStatic && d.Kind != DeclForeignStatic {
		panic(fmt.Sprintf("ast: decl %d is %s, want static", id, d.Kind))
	}
	return &s.Statics[d.Payload]
}

func (s *Store) Const(id DeclID) *ConstDecl { return &s.Consts[s.payload(id, DeclConst)] }

func (s *Store) Alias(id DeclID) *AliasDecl { return &s.Aliases[s.payload(id, DeclTypeAlias)] }

func (s *Store) Struct(id DeclID) *StructDecl { return &s.Structs[s.payload(id, DeclStruct)] }

func (s *Store) Enum(id DeclID) *EnumDecl { return &s.Enums[s.payload(id, DeclEnum)] }

func (s *Store) Variant(id DeclID) *VariantDecl { return &s.Variants[s.payload(id, DeclVariant)] }

func (s *Store) Field(id DeclID) *FieldDecl { return &s.Fields[s.payload(id, DeclField)] }

func (s *Store) Trait(id DeclID) *TraitDecl { return &s.Traits[s.payload(id, DeclTrait)] }

func (s *Store) Impl(id DeclID) *ImplDecl { return &s.Impls[s.payload(id, DeclImpl)] }

func (s *Store) DefaultImpl(id DeclID) *DefaultImplDecl {
	return &s.DefaultImpls[s.payload(id, DeclDefaultImpl)]
}

func (s *Store) AssocConst(id DeclID) *AssocConstDecl {
	return &s.AssocConsts[s.payload(id, DeclAssocConst)]
}

func (s *Store) AssocType(id DeclID) *AssocTypeDecl {
	return &s.AssocTypes[s.payload(id, DeclAssocType)]
}

func (s *Store) Method(id DeclID) *MethodDecl { return &s.Methods[s.payload(id, DeclMethod)] }

func (s *Store) TypeParam(id DeclID) *TypeParamDecl {
	return &s.TypeParamTab[s.payload(id, DeclTypeParam)]
}

func (s *Store) RegionParam(id DeclID) *RegionParamDecl {
	return &s.RegionParTab[s.payload(id, DeclRegionParam)]
}

// Generics resolves a generics handle. NoGenericsID yields the empty record.
func (s *Store) Generics(id GenericsID) *Generics {
	if !id.IsValid() {
		return &s.GenericsTab[0]
	}
	return &s.GenericsTab[id]
}

// Ty resolves a type expression handle. Panics on the sentinel.
func (s *Store) Ty(id TyID) *Ty {
	if !id.IsValid() || int(id) >= len(s.Tys) {
		panic(fmt.Sprintf("ast: invalid ty id %d", id))
	}
	return &s.Tys[id]
}

// Expr resolves an expression handle. Panics on the sentinel.
func (s *Store) Expr(id ExprID) *Expr {
	if !id.IsValid() || int(id) >= len(s.Exprs) {
		panic(fmt.Sprintf("ast: invalid expr id %d", id))
	}
	return &s.Exprs[id]
}

// AddTopLevel appends ids to the unit's top-level declaration list.
func (s *Store) AddTopLevel(ids ...DeclID) {
	s.TopLevel = append(s.TopLevel, ids...)
}

// AddAttr tags a declaration with a named attribute.
func (s *Store) AddAttr(id DeclID, name string) {
	s.Attrs[id] = append(s.Attrs[id], name)
}

// HasAttr reports whether the declaration carries the named attribute.
func (s *Store) HasAttr(id DeclID, name string) bool {
	for _, a := range s.Attrs[id] {
		if a == name {
			return true
		}
	}
	return false
}

// HasUnitAttr reports whether the unit carries the named attribute.
func (s *Store) HasUnitAttr(name string) bool {
	for _, a := range s.UnitAttrs {
		if a == name {
			return true
		}
	}
	return false
}

// NumDecls reports the number of live declarations, sentinel excluded.
func (s *Store) NumDecls() int { return len(s.Decls) - 1 }
