package types

import (
	"fmt"

	"ferrite/internal/source"
)

// RegionID uniquely identifies a region (lifetime) inside the interner.
type RegionID uint32

// NoRegionID marks the absence of a region.
const NoRegionID RegionID = 0

// IsValid reports whether the ID refers to an interned region.
func (id RegionID) IsValid() bool { return id != NoRegionID }

// RegionKind enumerates the supported region flavors.
type RegionKind uint8

const (
	RegionInvalid RegionKind = iota
	RegionStatic
	RegionEarlyBound // a declared lifetime parameter, identified by space/index
)

func (k RegionKind) String() string {
	switch k {
	case RegionInvalid:
		return "invalid"
	case RegionStatic:
		return "static"
	case RegionEarlyBound:
		return "early"
	default:
		return fmt.Sprintf("RegionKind(%d)", k)
	}
}

// Region is the structural descriptor of a lifetime.
type Region struct {
	Kind  RegionKind
	Space ParamSpace
	Index uint32
	Name  source.StringID
}

// MakeEarlyBound describes the declared lifetime parameter at space/index.
func MakeEarlyBound(space ParamSpace, index uint32, name source.StringID) Region {
	return Region{Kind: RegionEarlyBound, Space: space, Index: index, Name: name}
}
