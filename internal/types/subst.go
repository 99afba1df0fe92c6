package types

// Substitute folds a type, replacing every generic parameter (type or region)
// by its entry in substs. Parameters without an entry are left untouched so
// partial substitutions stay conservative.
func (in *Interner) Substitute(id TypeID, substs *Substs) TypeID {
	if substs == nil || !id.IsValid() {
		return id
	}
	t, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case KindParam:
		info := in.ParamInfoOf(t)
		repl := substs.Types.Get(info.Space)
		if int(info.Index) < len(repl) && repl[info.Index].IsValid() {
			return repl[info.Index]
		}
		return id
	case KindRef:
		elem := in.Substitute(t.Elem, substs)
		region := in.substituteRegion(t.Region, substs)
		if elem == t.Elem && region == t.Region {
			return id
		}
		return in.Intern(MakeRef(region, elem, t.Mutable))
	case KindRawPtr:
		if elem := in.Substitute(t.Elem, substs); elem != t.Elem {
			return in.Intern(MakeRawPtr(elem, t.Mutable))
		}
		return id
	case KindSlice:
		if elem := in.Substitute(t.Elem, substs); elem != t.Elem {
			return in.Intern(MakeSlice(elem))
		}
		return id
	case KindTuple:
		elems := in.substituteList(TypeListID(t.Payload), substs)
		return in.Tuple(in.TypeList(elems))
	case KindFnDef:
		info := in.FnInfoOf(t)
		info.Params = in.substituteList(info.Params, substs)
		info.Ret = in.Substitute(info.Ret, substs)
		info.Substs = in.substituteSubsts(info.Substs, substs)
		return in.FnDef(info)
	case KindAdt:
		info := in.AdtInfoOf(t)
		return in.Adt(info.Decl, in.substituteSubsts(info.Substs, substs))
	case KindProjection:
		info := in.ProjectionInfoOf(t)
		tr := TraitRef{Decl: info.Trait.Decl, Substs: in.substituteSubsts(info.Trait.Substs, substs)}
		return in.Projection(tr, info.AssocName)
	case KindTraitObject:
		info := in.ObjectInfoOf(t)
		tr := TraitRef{Decl: info.Trait.Decl, Substs: in.substituteSubsts(info.Trait.Substs, substs)}
		return in.TraitObject(tr, in.substituteRegion(info.Region, substs))
	default:
		return id
	}
}

// SubstituteTraitRef applies substs to a trait reference.
func (in *Interner) SubstituteTraitRef(tr TraitRef, substs *Substs) TraitRef {
	return TraitRef{Decl: tr.Decl, Substs: in.substituteSubsts(tr.Substs, substs)}
}

// SubstitutePredicate applies substs to every type and region in a predicate.
func (in *Interner) SubstitutePredicate(p Predicate, substs *Substs) Predicate {
	out := p
	if p.Trait.IsValid() {
		out.Trait = in.SubstituteTraitRef(p.Trait, substs)
	}
	out.Value = in.Substitute(p.Value, substs)
	out.Ty = in.Substitute(p.Ty, substs)
	out.Region = in.substituteRegion(p.Region, substs)
	out.Outlived = in.substituteRegion(p.Outlived, substs)
	return out
}

func (in *Interner) substituteList(id TypeListID, substs *Substs) TypeListID {
	elems := in.TypeList(id)
	out := make([]TypeID, len(elems))
	changed := false
	for i, e := range elems {
		out[i] = in.Substitute(e, substs)
		changed = changed || out[i] != e
	}
	if !changed {
		return id
	}
	return in.InternTypeList(out)
}

func (in *Interner) substituteSubsts(id SubstsID, substs *Substs) SubstsID {
	inner := in.SubstsOf(id)
	if inner == nil {
		return id
	}
	var out Substs
	for _, space := range Spaces {
		for _, t := range inner.Types.Get(space) {
			out.Types.Push(space, in.Substitute(t, substs))
		}
		for _, r := range inner.Regions.Get(space) {
			out.Regions.Push(space, in.substituteRegion(r, substs))
		}
	}
	return in.InternSubsts(out)
}

func (in *Interner) substituteRegion(id RegionID, substs *Substs) RegionID {
	r, ok := in.RegionOf(id)
	if !ok || r.Kind != RegionEarlyBound {
		return id
	}
	repl := substs.Regions.Get(r.Space)
	if int(r.Index) < len(repl) && repl[r.Index].IsValid() {
		return repl[r.Index]
	}
	return id
}
