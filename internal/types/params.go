package types

import "ferrite/internal/source"

// Parameter identifies a generic parameter occurrence found while walking a
// type: either a type parameter or an early-bound region.
type Parameter struct {
	IsRegion bool
	Space    ParamSpace
	Index    uint32
	Name     source.StringID
}

// ParametersOf collects every generic parameter reachable from id. Regions are
// included only when includeRegions is set.
func (in *Interner) ParametersOf(id TypeID, includeRegions bool) []Parameter {
	var out []Parameter
	in.collectParams(id, includeRegions, &out)
	return out
}

// ParametersOfTraitRef collects parameters reachable from a trait reference's
// substitutions.
func (in *Interner) ParametersOfTraitRef(tr TraitRef, includeRegions bool) []Parameter {
	var out []Parameter
	in.collectSubstsParams(tr.Substs, includeRegions, &out)
	return out
}

func (in *Interner) collectParams(id TypeID, includeRegions bool, out *[]Parameter) {
	t, ok := in.Lookup(id)
	if !ok {
		return
	}
	switch t.Kind {
	case KindParam:
		info := in.ParamInfoOf(t)
		*out = append(*out, Parameter{Space: info.Space, Index: info.Index, Name: info.Name})
	case KindRef:
		if includeRegions {
			in.collectRegionParam(t.Region, out)
		}
		in.collectParams(t.Elem, includeRegions, out)
	case KindRawPtr, KindSlice:
		in.collectParams(t.Elem, includeRegions, out)
	case KindTuple:
		for _, e := range in.TypeList(TypeListID(t.Payload)) {
			in.collectParams(e, includeRegions, out)
		}
	case KindFnDef:
		info := in.FnInfoOf(t)
		for _, e := range in.TypeList(info.Params) {
			in.collectParams(e, includeRegions, out)
		}
		in.collectParams(info.Ret, includeRegions, out)
		in.collectSubstsParams(info.Substs, includeRegions, out)
	case KindAdt:
		in.collectSubstsParams(in.AdtInfoOf(t).Substs, includeRegions, out)
	case KindProjection:
		in.collectSubstsParams(in.ProjectionInfoOf(t).Trait.Substs, includeRegions, out)
	case KindTraitObject:
		info := in.ObjectInfoOf(t)
		if includeRegions {
			in.collectRegionParam(info.Region, out)
		}
		in.collectSubstsParams(info.Trait.Substs, includeRegions, out)
	}
}

func (in *Interner) collectSubstsParams(id SubstsID, includeRegions bool, out *[]Parameter) {
	substs := in.SubstsOf(id)
	if substs == nil {
		return
	}
	for _, space := range Spaces {
		for _, t := range substs.Types.Get(space) {
			in.collectParams(t, includeRegions, out)
		}
		if includeRegions {
			for _, r := range substs.Regions.Get(space) {
				in.collectRegionParam(r, out)
			}
		}
	}
}

func (in *Interner) collectRegionParam(id RegionID, out *[]Parameter) {
	r, ok := in.RegionOf(id)
	if !ok || r.Kind != RegionEarlyBound {
		return
	}
	*out = append(*out, Parameter{IsRegion: true, Space: r.Space, Index: r.Index, Name: r.Name})
}
