package types

import "fmt"

// ParamSpace names the three independent numbering spaces for generic
// parameters. Self holds the synthesized trait Self parameter, Type holds the
// parameters of the enclosing type/trait/impl/alias, Fn holds parameters
// introduced by a function or method signature.
type ParamSpace uint8

const (
	SpaceSelf ParamSpace = iota
	SpaceType
	SpaceFn
)

// Spaces lists all parameter spaces in canonical order.
var Spaces = [...]ParamSpace{SpaceSelf, SpaceType, SpaceFn}

func (s ParamSpace) String() string {
	switch s {
	case SpaceSelf:
		return "self"
	case SpaceType:
		return "type"
	case SpaceFn:
		return "fn"
	default:
		return fmt.Sprintf("ParamSpace(%d)", s)
	}
}

// PerSpace keeps one ordered sequence per parameter space. Indices within a
// space are contiguous from zero.
type PerSpace[T any] struct {
	SelfItems []T
	TypeItems []T
	FnItems   []T
}

// Push appends v to the given space and returns its index within that space.
func (p *PerSpace[T]) Push(space ParamSpace, v T) int {
	slot := p.slot(space)
	*slot = append(*slot, v)
	return len(*slot) - 1
}

// Get returns the sequence for a space. The returned slice aliases the store.
func (p *PerSpace[T]) Get(space ParamSpace) []T {
	return *p.slot(space)
}

// Len reports the number of entries in a space.
func (p *PerSpace[T]) Len(space ParamSpace) int {
	return len(*p.slot(space))
}

// IsEmptyIn reports whether a space holds no entries.
func (p *PerSpace[T]) IsEmptyIn(space ParamSpace) bool {
	return p.Len(space) == 0
}

// TotalLen reports the number of entries across all spaces.
func (p *PerSpace[T]) TotalLen() int {
	return len(p.SelfItems) + len(p.TypeItems) + len(p.FnItems)
}

// All returns the entries of every space concatenated in canonical order
// (self, type, fn). The result is a fresh slice.
func (p *PerSpace[T]) All() []T {
	out := make([]T, 0, p.TotalLen())
	out = append(out, p.SelfItems...)
	out = append(out, p.TypeItems...)
	out = append(out, p.FnItems...)
	return out
}

// Clone deep-copies the per-space sequences (elements are copied by value).
func (p PerSpace[T]) Clone() PerSpace[T] {
	return PerSpace[T]{
		SelfItems: append([]T(nil), p.SelfItems...),
		TypeItems: append([]T(nil), p.TypeItems...),
		FnItems:   append([]T(nil), p.FnItems...),
	}
}

func (p *PerSpace[T]) slot(space ParamSpace) *[]T {
	switch space {
	case SpaceSelf:
		return &p.SelfItems
	case SpaceType:
		return &p.TypeItems
	case SpaceFn:
		return &p.FnItems
	default:
		panic(fmt.Sprintf("types: bad param space %d", space))
	}
}
