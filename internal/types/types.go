package types

import (
	"fmt"

	"ferrite/internal/ast"
	"ferrite/internal/source"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// IsValid reports whether the ID refers to an interned type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindError        // placeholder substituted after a reported error
	KindUnit
	KindBool
	KindChar
	KindStr
	KindInt
	KindUint
	KindFloat
	KindParam
	KindRef
	KindRawPtr
	KindSlice
	KindTuple
	KindFnDef
	KindAdt
	KindProjection
	KindTraitObject
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindError:
		return "error"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindStr:
		return "str"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindParam:
		return "param"
	case KindRef:
		return "ref"
	case KindRawPtr:
		return "rawptr"
	case KindSlice:
		return "slice"
	case KindTuple:
		return "tuple"
	case KindFnDef:
		return "fndef"
	case KindAdt:
		return "adt"
	case KindProjection:
		return "projection"
	case KindTraitObject:
		return "traitobject"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers and floats.
type Width uint8

const (
	WidthAny Width = 0 // platform-sized int/uint, default float
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Type is a compact descriptor for any supported type. Kind-specific payloads
// live in side tables addressed by Payload.
type Type struct {
	Kind    Kind
	Elem    TypeID   // ref/rawptr/slice element
	Width   Width    // numeric primitives
	Mutable bool     // ref/rawptr mutability
	Region  RegionID // ref region
	Payload uint32   // index into a kind-specific side table
}

// ParamInfo is the payload of a KindParam type.
type ParamInfo struct {
	Space ParamSpace
	Index uint32
	Name  source.StringID
}

// AdtInfo is the payload of a KindAdt type: a struct or enum declaration
// applied to substitutions.
type AdtInfo struct {
	Decl   ast.DeclID
	Substs SubstsID
}

// FnInfo is the payload of a KindFnDef type: the zero-sized type of one
// particular function declaration.
type FnInfo struct {
	Decl     ast.DeclID
	Substs   SubstsID
	Params   TypeListID
	Ret      TypeID
	Unsafe   bool
	Variadic bool
}

// ProjectionInfo is the payload of a KindProjection type: the associated type
// AssocName of the bound trait reference.
type ProjectionInfo struct {
	Trait     TraitRef
	AssocName source.StringID
}

// ObjectInfo is the payload of a KindTraitObject type.
type ObjectInfo struct {
	Trait  TraitRef
	Region RegionID
}

// TraitRef names a trait declaration applied to substitutions; the Self type
// occupies the self slot of the substitutions.
type TraitRef struct {
	Decl   ast.DeclID
	Substs SubstsID
}

// IsValid reports whether the trait reference names a declaration.
func (tr TraitRef) IsValid() bool { return tr.Decl.IsValid() }

// TypeListID identifies an interned sequence of types.
type TypeListID uint32

// NoTypeListID marks the absence of a type list.
const NoTypeListID TypeListID = 0

// SubstsID identifies an interned substitution (per-space types and regions).
type SubstsID uint32

// NoSubstsID marks the absence of substitutions.
const NoSubstsID SubstsID = 0

// Substs carries one type per type parameter and one region per region
// parameter, partitioned by space.
type Substs struct {
	Types   PerSpace[TypeID]
	Regions PerSpace[RegionID]
}

// SelfType returns the type in the self slot, if any.
func (s *Substs) SelfType() TypeID {
	if len(s.Types.SelfItems) == 0 {
		return NoTypeID
	}
	return s.Types.SelfItems[0]
}

// Descriptor helpers.

// MakeInt describes a signed integer of the given width (WidthAny for "int").
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakeRef describes &'r T or &'r mut T depending on the mutable flag.
func MakeRef(region RegionID, elem TypeID, mutable bool) Type {
	return Type{Kind: KindRef, Region: region, Elem: elem, Mutable: mutable}
}

// MakeRawPtr describes *const T / *mut T.
func MakeRawPtr(elem TypeID, mutable bool) Type {
	return Type{Kind: KindRawPtr, Elem: elem, Mutable: mutable}
}

// MakeSlice describes [T].
func MakeSlice(elem TypeID) Type {
	return Type{Kind: KindSlice, Elem: elem}
}
