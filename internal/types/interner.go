package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"ferrite/internal/ast"
	"ferrite/internal/source"
)

// Builtins stores TypeIDs for common primitive types and the static region.
type Builtins struct {
	Error  TypeID
	Unit   TypeID
	Bool   TypeID
	Char   TypeID
	Str    TypeID
	Int    TypeID
	Uint   TypeID
	Float  TypeID
	Static RegionID
}

// Interner provides stable TypeIDs and RegionIDs by hashing structural keys.
// Every structural value is looked up by its canonical key before a new
// instance is allocated, so equal structures share one ID.
type Interner struct {
	types   []Type
	regions []Region
	lists   [][]TypeID
	substs  []Substs

	params      []ParamInfo
	adts        []AdtInfo
	fns         []FnInfo
	projections []ProjectionInfo
	objects     []ObjectInfo

	typeIndex   map[string]TypeID
	regionIndex map[string]RegionID
	listIndex   map[string]TypeListID
	substsIndex map[string]SubstsID

	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		typeIndex:   make(map[string]TypeID, 64),
		regionIndex: make(map[string]RegionID, 16),
		listIndex:   make(map[string]TypeListID, 16),
		substsIndex: make(map[string]SubstsID, 16),
	}
	// Index 0 of every table is the invalid sentinel.
	in.types = append(in.types, Type{})
	in.regions = append(in.regions, Region{})
	in.lists = append(in.lists, nil)
	in.substs = append(in.substs, Substs{})
	in.params = append(in.params, ParamInfo{})
	in.adts = append(in.adts, AdtInfo{})
	in.fns = append(in.fns, FnInfo{})
	in.projections = append(in.projections, ProjectionInfo{})
	in.objects = append(in.objects, ObjectInfo{})

	in.builtins.Error = in.Intern(Type{Kind: KindError})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.Str = in.Intern(Type{Kind: KindStr})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.Float = in.Intern(MakeFloat(WidthAny))
	in.builtins.Static = in.InternRegion(Region{Kind: RegionStatic})
	return in
}

// Builtins returns IDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID. Payload-carrying
// kinds must go through their dedicated constructors instead.
func (in *Interner) Intern(t Type) TypeID {
	switch t.Kind {
	case KindInvalid:
		return NoTypeID
	case KindParam, KindTuple, KindFnDef, KindAdt, KindProjection, KindTraitObject:
		panic(fmt.Sprintf("types: Intern called with payload kind %v", t.Kind))
	}
	return in.internKeyed(typeKey(t), t)
}

// Param interns the type of a generic parameter at space/index.
func (in *Interner) Param(space ParamSpace, index uint32, name source.StringID) TypeID {
	key := fmt.Sprintf("p:%d:%d:%d", space, index, name)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	payload := in.pushPayload(len(in.params))
	in.params = append(in.params, ParamInfo{Space: space, Index: index, Name: name})
	return in.internKeyed(key, Type{Kind: KindParam, Payload: payload})
}

// SelfParam interns the `Self` type parameter of a trait.
func (in *Interner) SelfParam(name source.StringID) TypeID {
	return in.Param(SpaceSelf, 0, name)
}

// Tuple interns a tuple type over the given element types.
func (in *Interner) Tuple(elems []TypeID) TypeID {
	if len(elems) == 0 {
		return in.builtins.Unit
	}
	list := in.InternTypeList(elems)
	key := fmt.Sprintf("t:%d", list)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	return in.internKeyed(key, Type{Kind: KindTuple, Payload: uint32(list)})
}

// FnDef interns the type of one particular function declaration.
func (in *Interner) FnDef(info FnInfo) TypeID {
	key := fmt.Sprintf("f:%d:%d:%d:%d:%t:%t",
		info.Decl, info.Substs, info.Params, info.Ret, info.Unsafe, info.Variadic)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	payload := in.pushPayload(len(in.fns))
	in.fns = append(in.fns, info)
	return in.internKeyed(key, Type{Kind: KindFnDef, Payload: payload})
}

// Adt interns a struct/enum type applied to substitutions.
func (in *Interner) Adt(decl ast.DeclID, substs SubstsID) TypeID {
	key := fmt.Sprintf("a:%d:%d", decl, substs)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	payload := in.pushPayload(len(in.adts))
	in.adts = append(in.adts, AdtInfo{Decl: decl, Substs: substs})
	return in.internKeyed(key, Type{Kind: KindAdt, Payload: payload})
}

// Projection interns `<trait ref>::AssocName`.
func (in *Interner) Projection(trait TraitRef, assocName source.StringID) TypeID {
	key := fmt.Sprintf("j:%d:%d:%d", trait.Decl, trait.Substs, assocName)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	payload := in.pushPayload(len(in.projections))
	in.projections = append(in.projections, ProjectionInfo{Trait: trait, AssocName: assocName})
	return in.internKeyed(key, Type{Kind: KindProjection, Payload: payload})
}

// TraitObject interns a trait-object type with its lifetime bound.
func (in *Interner) TraitObject(trait TraitRef, region RegionID) TypeID {
	key := fmt.Sprintf("o:%d:%d:%d", trait.Decl, trait.Substs, region)
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	payload := in.pushPayload(len(in.objects))
	in.objects = append(in.objects, ObjectInfo{Trait: trait, Region: region})
	return in.internKeyed(key, Type{Kind: KindTraitObject, Payload: payload})
}

// InternRegion ensures the region descriptor has a stable RegionID.
func (in *Interner) InternRegion(r Region) RegionID {
	if r.Kind == RegionInvalid {
		return NoRegionID
	}
	key := fmt.Sprintf("r:%d:%d:%d:%d", r.Kind, r.Space, r.Index, r.Name)
	if id, ok := in.regionIndex[key]; ok {
		return id
	}
	lenRegions, err := safecast.Conv[uint32](len(in.regions))
	if err != nil {
		panic(fmt.Errorf("len(regions) overflow: %w", err))
	}
	id := RegionID(lenRegions)
	in.regions = append(in.regions, r)
	in.regionIndex[key] = id
	return id
}

// InternTypeList interns a sequence of types.
func (in *Interner) InternTypeList(elems []TypeID) TypeListID {
	var sb strings.Builder
	for _, e := range elems {
		fmt.Fprintf(&sb, "%d,", e)
	}
	key := sb.String()
	if id, ok := in.listIndex[key]; ok {
		return id
	}
	lenLists, err := safecast.Conv[uint32](len(in.lists))
	if err != nil {
		panic(fmt.Errorf("len(lists) overflow: %w", err))
	}
	id := TypeListID(lenLists)
	in.lists = append(in.lists, append([]TypeID(nil), elems...))
	in.listIndex[key] = id
	return id
}

// InternSubsts interns a substitution.
func (in *Interner) InternSubsts(s Substs) SubstsID {
	var sb strings.Builder
	for _, space := range Spaces {
		sb.WriteByte('|')
		for _, t := range s.Types.Get(space) {
			fmt.Fprintf(&sb, "%d,", t)
		}
		sb.WriteByte(';')
		for _, r := range s.Regions.Get(space) {
			fmt.Fprintf(&sb, "%d,", r)
		}
	}
	key := sb.String()
	if id, ok := in.substsIndex[key]; ok {
		return id
	}
	lenSubsts, err := safecast.Conv[uint32](len(in.substs))
	if err != nil {
		panic(fmt.Errorf("len(substs) overflow: %w", err))
	}
	id := SubstsID(lenSubsts)
	in.substs = append(in.substs, Substs{Types: s.Types.Clone(), Regions: s.Regions.Clone()})
	in.substsIndex[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// RegionOf returns the descriptor for a RegionID.
func (in *Interner) RegionOf(id RegionID) (Region, bool) {
	if id == NoRegionID || int(id) >= len(in.regions) {
		return Region{}, false
	}
	return in.regions[id], true
}

// TypeList returns the elements of an interned list. Callers must not modify it.
func (in *Interner) TypeList(id TypeListID) []TypeID {
	if id == NoTypeListID || int(id) >= len(in.lists) {
		return nil
	}
	return in.lists[id]
}

// SubstsOf returns the interned substitution. Callers must not modify it.
func (in *Interner) SubstsOf(id SubstsID) *Substs {
	if id == NoSubstsID || int(id) >= len(in.substs) {
		return nil
	}
	return &in.substs[id]
}

// ParamInfoOf returns the payload of a KindParam type.
func (in *Interner) ParamInfoOf(t Type) ParamInfo { return in.params[t.Payload] }

// AdtInfoOf returns the payload of a KindAdt type.
func (in *Interner) AdtInfoOf(t Type) AdtInfo { return in.adts[t.Payload] }

// FnInfoOf returns the payload of a KindFnDef type.
func (in *Interner) FnInfoOf(t Type) FnInfo { return in.fns[t.Payload] }

// ProjectionInfoOf returns the payload of a KindProjection type.
func (in *Interner) ProjectionInfoOf(t Type) ProjectionInfo { return in.projections[t.Payload] }

// ObjectInfoOf returns the payload of a KindTraitObject type.
func (in *Interner) ObjectInfoOf(t Type) ObjectInfo { return in.objects[t.Payload] }

func (in *Interner) internKeyed(key string, t Type) TypeID {
	if id, ok := in.typeIndex[key]; ok {
		return id
	}
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.typeIndex[key] = id
	return id
}

func (in *Interner) pushPayload(tableLen int) uint32 {
	payload, err := safecast.Conv[uint32](tableLen)
	if err != nil {
		panic(fmt.Errorf("payload table overflow: %w", err))
	}
	return payload
}

func typeKey(t Type) string {
	return fmt.Sprintf("k%d:e%d:w%d:m%t:r%d", t.Kind, t.Elem, t.Width, t.Mutable, t.Region)
}
