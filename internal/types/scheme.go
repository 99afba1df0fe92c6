package types

import (
	"ferrite/internal/ast"
	"ferrite/internal/source"
)

// Scheme is the shape of an entity's type before instantiation: the core type
// plus the generic parameters it is abstracted over. Exactly one scheme exists
// per declaration; it is written once and read many times.
type Scheme struct {
	Generics Generics
	Ty       TypeID
}

// TraitDef is the interned definition of a trait: computed once and shared by
// reference thereafter.
type TraitDef struct {
	Decl           ast.DeclID
	Unsafe         bool
	ParenSugar     bool // parenthesized-call-sugar notation allowed
	Generics       Generics
	Ref            TraitRef // Self implements this trait
	AssocTypeNames []source.StringID
	HasDefaultImpl bool
}

// DefinesAssocType reports whether the trait declares an associated type with
// the given name.
func (td *TraitDef) DefinesAssocType(name source.StringID) bool {
	for _, n := range td.AssocTypeNames {
		if n == name {
			return true
		}
	}
	return false
}

// AssocItemKind classifies associated items of a trait or impl.
type AssocItemKind uint8

const (
	AssocConst AssocItemKind = iota
	AssocType
	AssocMethod
)

func (k AssocItemKind) String() string {
	switch k {
	case AssocConst:
		return "const"
	case AssocType:
		return "type"
	case AssocMethod:
		return "method"
	default:
		return "assoc"
	}
}

// Visibility of an associated item after container rules are applied.
type Visibility uint8

const (
	VisPrivate Visibility = iota
	VisPublic
)

// AssocItem records the resolved form of one associated constant, type or
// method together with its container.
type AssocItem struct {
	Kind      AssocItemKind
	Name      source.StringID
	Decl      ast.DeclID
	Container ast.DeclID // the trait or impl declaration
	InTrait   bool       // container is a trait (vs. an impl)
	Vis       Visibility
	Ty        TypeID // const/type value; NoTypeID for a trait assoc type without default
	FnTy      TypeID // method function type
	HasValue  bool   // assoc const carries a default/value
}
