package ast

import (
	"fmt"

	"ferrite/internal/source"
)

// DeclKind is the closed set of declaration kinds the resolver dispatches on.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclFn
	DeclForeignFn
	DeclStatic
	DeclForeignStatic
	DeclConst
	DeclTypeAlias
	DeclStruct
	DeclEnum
	DeclVariant
	DeclField
	DeclCtor // tuple-struct constructor, registered separately from the type
	DeclTrait
	DeclImpl
	DeclDefaultImpl
	DeclAssocConst
	DeclAssocType
	DeclMethod
	DeclTypeParam
	DeclRegionParam
)

func (k DeclKind) String() string {
	switch k {
	case DeclFn:
		return "fn"
	case DeclForeignFn:
		return "foreign fn"
	case DeclStatic:
		return "static"
	case DeclForeignStatic:
		return "foreign static"
	case DeclConst:
		return "const"
	case DeclTypeAlias:
		return "type alias"
	case DeclStruct:
		return "struct"
	case DeclEnum:
		return "enum"
	case DeclVariant:
		return "variant"
	case DeclField:
		return "field"
	case DeclCtor:
		return "constructor"
	case DeclTrait:
		return "trait"
	case DeclImpl:
		return "impl"
	case DeclDefaultImpl:
		return "default impl"
	case DeclAssocConst:
		return "associated const"
	case DeclAssocType:
		return "associated type"
	case DeclMethod:
		return "method"
	case DeclTypeParam:
		return "type parameter"
	case DeclRegionParam:
		return "lifetime parameter"
	default:
		return fmt.Sprintf("DeclKind(%d)", k)
	}
}

// Decl is the common header of every declaration. Kind-specific payloads live
// in the store's side tables, addressed by Payload.
type Decl struct {
	Kind    DeclKind
	Name    source.StringID
	Span    source.Span
	Parent  DeclID
	Public  bool
	Payload uint32
}

// Param is one value parameter of a function or method.
type Param struct {
	Name       source.StringID
	Ty         TyID
	HasPattern bool // true when the surface form binds through a pattern
	Span       source.Span
}

// FnDecl is the payload of DeclFn / DeclForeignFn and the signature part of
// DeclMethod.
type FnDecl struct {
	Generics GenericsID
	Params   []Param
	Ret      TyID // NoTyID means the unit type
	Unsafe   bool
	Variadic bool
}

// StaticDecl is the payload of DeclStatic / DeclForeignStatic.
type StaticDecl struct {
	Ty      TyID
	Mutable bool
}

// ConstDecl is the payload of DeclConst.
type ConstDecl struct {
	Ty    TyID
	Value ExprID
}

// AliasDecl is the payload of DeclTypeAlias.
type AliasDecl struct {
	Generics   GenericsID
	Underlying TyID
}

// StructDecl is the payload of DeclStruct. Fields are DeclField children in
// declaration order; Ctor is set for tuple structs only.
type StructDecl struct {
	Generics GenericsID
	Fields   []DeclID
	Tuple    bool
	Ctor     DeclID
}

// IntRepr describes an enum's representation integer type.
type IntRepr struct {
	Signed bool
	Bits   uint8 // 0 means the platform-default int
}

func (r IntRepr) String() string {
	prefix := "u"
	if r.Signed {
		prefix = "i"
	}
	if r.Bits == 0 {
		if r.Signed {
			return "int"
		}
		return "uint"
	}
	return fmt.Sprintf("%s%d", prefix, r.Bits)
}

// Width returns the representation width in bits, resolving the
// platform-default to 64.
func (r IntRepr) Width() uint8 {
	if r.Bits == 0 {
		return 64
	}
	return r.Bits
}

// Mask returns the bit mask covering the representation width.
func (r IntRepr) Mask() uint64 {
	w := r.Width()
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

// MaxValue returns the largest representable value as a bit pattern.
func (r IntRepr) MaxValue() uint64 {
	if r.Signed {
		return r.Mask() >> 1
	}
	return r.Mask()
}

// Render formats a discriminant bit pattern with the sign the representation
// gives it.
func (r IntRepr) Render(bits uint64) string {
	bits &= r.Mask()
	if r.Signed && bits > r.MaxValue() {
		// Sign-extend to 64 bits before printing.
		w := r.Width()
		if w < 64 {
			bits |= ^uint64(0) << w
		}
		return fmt.Sprintf("%d", int64(bits))
	}
	return fmt.Sprintf("%d", bits)
}

// EnumDecl is the payload of DeclEnum. Variants are DeclVariant children.
type EnumDecl struct {
	Generics GenericsID
	Repr     IntRepr
	Variants []DeclID
}

// VariantDecl is the payload of DeclVariant. The variant declaration doubles
// as its constructor item.
type VariantDecl struct {
	Fields []DeclID
	Tuple  bool
	Discr  ExprID // NoExprID when the discriminant is implicit
}

// FieldDecl is the payload of DeclField.
type FieldDecl struct {
	Ty TyID
}

// TraitDecl is the payload of DeclTrait.
type TraitDecl struct {
	Generics    GenericsID
	Unsafe      bool
	Supertraits []Bound
	Items       []DeclID // assoc consts/types/methods in declaration order
}

// ImplDecl is the payload of DeclImpl.
type ImplDecl struct {
	Generics GenericsID
	SelfTy   TyID
	TraitRef TyID // TyPath naming the implemented trait; NoTyID for inherent impls
	Unsafe   bool
	Items    []DeclID
}

// DefaultImplDecl is the payload of DeclDefaultImpl (`impl Trait for ..`).
type DefaultImplDecl struct {
	TraitRef TyID
}

// AssocConstDecl is the payload of DeclAssocConst.
type AssocConstDecl struct {
	Ty       TyID
	HasValue bool
}

// AssocTypeDecl is the payload of DeclAssocType. Bounds apply on the trait
// side; Value is the impl-side binding or the trait-side default.
type AssocTypeDecl struct {
	Bounds []Bound
	Value  TyID
}

// MethodDecl is the payload of DeclMethod.
type MethodDecl struct {
	Sig      FnDecl
	SelfKind SelfKind
}

// SelfKind describes the receiver of a method.
type SelfKind uint8

const (
	SelfNone SelfKind = iota
	SelfValue
	SelfRef
	SelfRefMut
)

// TypeParamDecl is the payload of DeclTypeParam.
type TypeParamDecl struct {
	Bounds  []Bound
	Default TyID
}

// RegionParamDecl is the payload of DeclRegionParam.
type RegionParamDecl struct {
	Bounds []RegionRef
}
