package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. The 7xxx block belongs to the
// signature-collection pass; 4xxx is reserved for I/O and 5xxx for
// project manifests, mirroring where the driver and CLI report from.
type Code uint16

const (
	UnknownCode Code = 0

	// I/O and snapshot loading.
	IOError           Code = 4000
	IOSnapshotDecode  Code = 4001
	IOSnapshotVersion Code = 4002

	// Project manifests.
	PrjManifestParse   Code = 5000
	PrjManifestMissing Code = 5001
	PrjUnitNotFound    Code = 5002

	// Signature collection.
	TyInfo                   Code = 7000
	TyCycle                  Code = 7001
	TyPlaceholderInSignature Code = 7002
	TyDuplicateField         Code = 7003
	TyDuplicateAssocItem     Code = 7004
	TyAssocTypeInInherent    Code = 7005
	TyEqualityConstraint     Code = 7006
	TyForeignParamPattern    Code = 7007
	TyAliasParamBound        Code = 7008
	TyDiscrNotInteger        Code = 7009
	TyDiscrEvalFailed        Code = 7010
	TyDiscrOverflow          Code = 7011
	TyUnconstrainedParam     Code = 7012
	TyDefaultForwardRef      Code = 7013
	TyDefaultOutsideType     Code = 7014
	TyDuplicateRelaxedBound  Code = 7015
	TyUselessRelaxedBound    Code = 7016
	TyParenSugarReserved     Code = 7017
	TyWrongArgCount          Code = 7018
	TyNotATrait              Code = 7019
	TyNoAssocType            Code = 7020
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown error",

	IOError:           "I/O error",
	IOSnapshotDecode:  "failed to decode unit snapshot",
	IOSnapshotVersion: "unit snapshot uses an unsupported schema version",

	PrjManifestParse:   "failed to parse ferrite.toml",
	PrjManifestMissing: "manifest section missing",
	PrjUnitNotFound:    "unit listed in manifest was not found",

	TyInfo:                   "signature collection note",
	TyCycle:                  "cyclic reference between types/traits",
	TyPlaceholderInSignature: "type placeholder not allowed in item signatures",
	TyDuplicateField:         "field is already declared",
	TyDuplicateAssocItem:     "duplicate associated item",
	TyAssocTypeInInherent:    "associated types are not allowed in inherent impls",
	TyEqualityConstraint:     "equality constraints in where clauses are not supported",
	TyForeignParamPattern:    "patterns are not allowed in foreign function declarations",
	TyAliasParamBound:        "trait bounds are not enforced in type alias definitions",
	TyDiscrNotInteger:        "expected integer constant for enum discriminant",
	TyDiscrEvalFailed:        "constant evaluation error in enum discriminant",
	TyDiscrOverflow:          "enum discriminant overflowed",
	TyUnconstrainedParam:     "parameter is not constrained by the impl trait, self type, or predicates",
	TyDefaultForwardRef:      "type parameter default cannot use forward declared identifiers",
	TyDefaultOutsideType:     "defaults for type parameters are only allowed on type-level generics",
	TyDuplicateRelaxedBound:  "type parameter has more than one relaxed default bound",
	TyUselessRelaxedBound:    "relaxed bound does nothing because the given trait is not a default bound",
	TyParenSugarReserved:     "parenthetical trait notation is reserved for builtin traits",
	TyWrongArgCount:          "wrong number of generic arguments",
	TyNotATrait:              "referenced item is not a trait",
	TyNoAssocType:            "trait declares no matching associated type",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("TY%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
