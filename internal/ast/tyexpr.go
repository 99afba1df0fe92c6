package ast

import "ferrite/internal/source"

// TyKind is the closed set of type-syntax shapes. Paths arrive pre-resolved:
// name resolution runs upstream, so every TyPath carries the declaration it
// denotes.
type TyKind uint8

const (
	TyInvalid TyKind = iota
	TyPath           // named type: struct/enum/alias/type-param/assoc-type/trait
	TySelf           // the Self type inside a trait
	TyRef            // &'r T / &'r mut T
	TyRawPtr         // *const T / *mut T
	TySlice          // [T]
	TyTuple          // (T, U, ...) and () for unit
	TyInfer          // `_`, rejected inside item signatures
	TyTraitObject    // dyn Trait<...> (+ 'r)
)

// Ty is one type-syntax node.
type Ty struct {
	Kind    TyKind
	Span    source.Span
	Decl    DeclID // TyPath / TyTraitObject target
	Qual    TyID   // qualified-path subject, as in `T::Assoc`: the `T` part
	Elem    TyID   // ref/rawptr/slice element
	Mutable bool
	Region  RegionRef // ref region / trait-object lifetime
	Elems   []TyID    // tuple elements
	Args    TyArgs    // path generic arguments
}

// TyArgs carries the generic arguments written on a path.
type TyArgs struct {
	Regions  []RegionRef
	Types    []TyID
	Bindings []AssocBinding
}

// IsEmpty reports whether no argument was written.
func (a *TyArgs) IsEmpty() bool {
	return len(a.Regions) == 0 && len(a.Types) == 0 && len(a.Bindings) == 0
}

// AssocBinding is an inline associated-type equality such as `Item = u32`.
type AssocBinding struct {
	Name source.StringID
	Ty   TyID
	Span source.Span
}
