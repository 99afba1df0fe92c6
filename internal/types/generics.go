package types

import (
	"ferrite/internal/ast"
	"ferrite/internal/source"
)

// ObjectLifetimeDefaultKind classifies the lifetime assumed for a type
// parameter used in an object-like position when none is written.
type ObjectLifetimeDefaultKind uint8

const (
	// ObjectLifetimeBase means no explicit lifetime bound reaches the
	// parameter; downstream applies the base default.
	ObjectLifetimeBase ObjectLifetimeDefaultKind = iota
	// ObjectLifetimeSpecific means exactly one lifetime bound reaches the
	// parameter and is recorded in Region.
	ObjectLifetimeSpecific
	// ObjectLifetimeAmbiguous means multiple distinct lifetimes reach the
	// parameter; downstream must require an explicit annotation.
	ObjectLifetimeAmbiguous
)

// ObjectLifetimeDefault pairs the kind with the specific region, when any.
type ObjectLifetimeDefault struct {
	Kind   ObjectLifetimeDefaultKind
	Region RegionID
}

// TypeParamDef describes one declared (or synthesized) type parameter.
type TypeParamDef struct {
	Name    source.StringID
	Decl    ast.DeclID // the parameter's own declaration node
	Space   ParamSpace
	Index   uint32
	Default TypeID // NoTypeID when absent
	Object  ObjectLifetimeDefault
}

// RegionParamDef describes one declared lifetime parameter.
type RegionParamDef struct {
	Name   source.StringID
	Decl   ast.DeclID
	Space  ParamSpace
	Index  uint32
	Bounds []RegionID // regions this parameter must outlive
}

// Generics is the ordered generic-parameter list of a declaration. An
// Fn-space list always contains its container's Type-space list as a prefix.
type Generics struct {
	Types   PerSpace[TypeParamDef]
	Regions PerSpace[RegionParamDef]
}

// Clone deep-copies the parameter lists.
func (g Generics) Clone() Generics {
	return Generics{Types: g.Types.Clone(), Regions: g.Regions.Clone()}
}

// IsEmpty reports whether no parameter is declared in any space.
func (g *Generics) IsEmpty() bool {
	return g.Types.TotalLen() == 0 && g.Regions.TotalLen() == 0
}

// TypeParam returns the parameter def at space/index.
func (g *Generics) TypeParam(space ParamSpace, index uint32) (TypeParamDef, bool) {
	defs := g.Types.Get(space)
	if int(index) >= len(defs) {
		return TypeParamDef{}, false
	}
	return defs[index], true
}
