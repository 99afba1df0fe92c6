package types

import "ferrite/internal/source"

// PredicateKind enumerates the constraint flavors tracked by the resolver.
type PredicateKind uint8

const (
	PredInvalid PredicateKind = iota
	// PredTrait is "Ty implements Trait<...>" where Ty occupies the self slot
	// of the trait reference.
	PredTrait
	// PredProjection is "<Ty as Trait>::AssocName == Value".
	PredProjection
	// PredTypeOutlives is "Ty: 'r".
	PredTypeOutlives
	// PredRegionOutlives is "'r: 's".
	PredRegionOutlives
	// PredWellFormed and PredObjectSafe are produced by later phases but are
	// part of the closed predicate vocabulary, so the checker can match
	// exhaustively.
	PredWellFormed
	PredObjectSafe
)

// Predicate is one constraint on types/regions.
type Predicate struct {
	Kind      PredicateKind
	Trait     TraitRef        // PredTrait, PredProjection
	AssocName source.StringID // PredProjection
	Value     TypeID          // PredProjection equality value
	Ty        TypeID          // PredTypeOutlives / PredWellFormed subject
	Region    RegionID        // PredTypeOutlives / PredRegionOutlives bound
	Outlived  RegionID        // PredRegionOutlives subject
}

// TraitPredicate builds "self of tr implements tr".
func TraitPredicate(tr TraitRef) Predicate {
	return Predicate{Kind: PredTrait, Trait: tr}
}

// ProjectionPredicate builds "<tr>::name == value".
func ProjectionPredicate(tr TraitRef, name source.StringID, value TypeID) Predicate {
	return Predicate{Kind: PredProjection, Trait: tr, AssocName: name, Value: value}
}

// TypeOutlivesPredicate builds "ty: region".
func TypeOutlivesPredicate(ty TypeID, region RegionID) Predicate {
	return Predicate{Kind: PredTypeOutlives, Ty: ty, Region: region}
}

// RegionOutlivesPredicate builds "sub: sup".
func RegionOutlivesPredicate(sub, sup RegionID) Predicate {
	return Predicate{Kind: PredRegionOutlives, Outlived: sub, Region: sup}
}

// SelfTraitRef reports the trait reference when the predicate is a trait
// bound, for walking supertrait edges.
func (p Predicate) SelfTraitRef() (TraitRef, bool) {
	if p.Kind != PredTrait {
		return TraitRef{}, false
	}
	return p.Trait, true
}

// PredicateSet is the ordered, space-partitioned constraint set of one
// declaration.
type PredicateSet struct {
	Preds PerSpace[Predicate]
}

// Clone deep-copies the set.
func (ps PredicateSet) Clone() PredicateSet {
	return PredicateSet{Preds: ps.Preds.Clone()}
}

// All returns every predicate in canonical space order.
func (ps *PredicateSet) All() []Predicate {
	return ps.Preds.All()
}

// Push appends a predicate to the given space.
func (ps *PredicateSet) Push(space ParamSpace, p Predicate) {
	ps.Preds.Push(space, p)
}

// Extend appends predicates to the given space in order.
func (ps *PredicateSet) Extend(space ParamSpace, preds []Predicate) {
	for _, p := range preds {
		ps.Preds.Push(space, p)
	}
}
