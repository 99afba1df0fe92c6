package ast

import "ferrite/internal/source"

// Generics is one surface generics block: the declared parameters plus the
// where-clause. Parameters are DeclTypeParam / DeclRegionParam declarations so
// the resolver can cache per-parameter facts against their DeclIDs.
type Generics struct {
	TypeParams   []DeclID
	RegionParams []DeclID
	Where        []WherePred
}

// IsEmpty reports whether the block declares nothing and constrains nothing.
func (g *Generics) IsEmpty() bool {
	return len(g.TypeParams) == 0 && len(g.RegionParams) == 0 && len(g.Where) == 0
}

// WherePredKind classifies where-clause entries.
type WherePredKind uint8

const (
	WhereBound  WherePredKind = iota // Ty: Bound + Bound ...
	WhereRegion                      // 'a: 'b + 'c
	WhereEq                          // A = B (unsupported, diagnosed)
)

// WherePred is one where-clause entry.
type WherePred struct {
	Kind         WherePredKind
	Span         source.Span
	Ty           TyID // WhereBound subject
	Bounds       []Bound
	Region       RegionRef // WhereRegion subject
	RegionBounds []RegionRef
	EqLhs        TyID
	EqRhs        TyID
}

// BoundKind classifies one surface bound.
type BoundKind uint8

const (
	BoundTrait  BoundKind = iota // T: Foo<...>
	BoundRegion                  // T: 'a
	BoundMaybe                   // T: ?Foo (default-bound relaxation)
)

// Bound is one entry of a surface bound list.
type Bound struct {
	Kind   BoundKind
	Span   source.Span
	Trait  TyID // TyPath naming the bound trait (BoundTrait, BoundMaybe)
	Region RegionRef
}

// RegionRef is a resolved reference to a lifetime: either 'static or a
// declared lifetime parameter.
type RegionRef struct {
	Name     source.StringID
	Decl     DeclID // the DeclRegionParam this reference resolves to
	IsStatic bool
	Span     source.Span
}

// IsValid reports whether the reference names a lifetime at all.
func (r RegionRef) IsValid() bool { return r.IsStatic || r.Decl.IsValid() }
