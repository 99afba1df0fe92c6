package ast

// DeclID identifies a declaration inside the store. Declaration identifiers
// are opaque, unique for the whole unit and stable once assigned.
type DeclID uint32

// NoDeclID marks the absence of a declaration reference.
const NoDeclID DeclID = 0

// IsValid reports whether the ID refers to an allocated declaration.
func (id DeclID) IsValid() bool { return id != NoDeclID }

// TyID identifies a type-syntax node inside the store.
type TyID uint32

// NoTyID marks the absence of a type-syntax reference.
const NoTyID TyID = 0

// IsValid reports whether the ID refers to an allocated type node.
func (id TyID) IsValid() bool { return id != NoTyID }

// ExprID identifies a constant-expression node inside the store.
type ExprID uint32

// NoExprID marks the absence of an expression reference.
const NoExprID ExprID = 0

// IsValid reports whether the ID refers to an allocated expression.
func (id ExprID) IsValid() bool { return id != NoExprID }

// GenericsID identifies a generics block inside the store.
type GenericsID uint32

// NoGenericsID marks an empty generics block.
const NoGenericsID GenericsID = 0

// IsValid reports whether the ID refers to an allocated generics block.
func (id GenericsID) IsValid() bool { return id != NoGenericsID }
