// Package collect resolves the generic type signature and constraint set of
// every declaration in one compilation unit. It walks the declaration graph on
// demand, memoizing each result in write-once caches and detecting dependency
// cycles through an explicit request stack instead of the call stack.
package collect

import (
	"errors"
	"fmt"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/types"
)

// errReported marks a branch whose failure was already diagnosed. Callers
// substitute the error type and keep going.
var errReported = errors.New("collect: error already reported")

// Stats counts cache activity. Tests use it to observe that repeated requests
// hit the cache instead of recomputing.
type Stats struct {
	SchemeComputes    uint64
	SchemeHits        uint64
	TraitDefComputes  uint64
	TraitDefHits      uint64
	SuperPredSteps    uint64
	ParamBoundQueries uint64
}

// Context owns every cache this pass populates. One Context per unit; all
// operations run on a single goroutine.
type Context struct {
	Store    *ast.Store
	Types    *types.Interner
	Reporter diag.Reporter

	stack []request

	schemes      map[ast.DeclID]types.Scheme
	predicates   map[ast.DeclID]types.PredicateSet
	traitDefs    map[ast.DeclID]*types.TraitDef
	superPreds   map[ast.DeclID]*types.PredicateSet
	typeParams   map[ast.DeclID]types.TypeParamDef
	regionParams map[ast.DeclID]types.RegionParamDef
	assocItems   map[ast.DeclID][]types.AssocItem
	implRefs     map[ast.DeclID]types.TraitRef
	discrs       map[ast.DeclID]uint64
	converted    map[ast.DeclID]bool

	Stats Stats
}

// New builds a resolution context over a populated store. A nil reporter
// discards diagnostics.
func New(store *ast.Store, interner *types.Interner, reporter diag.Reporter) *Context {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Context{
		Store:    store,
		Types:    interner,
		Reporter: reporter,

		schemes:      make(map[ast.DeclID]types.Scheme),
		predicates:   make(map[ast.DeclID]types.PredicateSet),
		traitDefs:    make(map[ast.DeclID]*types.TraitDef),
		superPreds:   make(map[ast.DeclID]*types.PredicateSet),
		typeParams:   make(map[ast.DeclID]types.TypeParamDef),
		regionParams: make(map[ast.DeclID]types.RegionParamDef),
		assocItems:   make(map[ast.DeclID][]types.AssocItem),
		implRefs:     make(map[ast.DeclID]types.TraitRef),
		discrs:       make(map[ast.DeclID]uint64),
		converted:    make(map[ast.DeclID]bool),
	}
}

// Unit resolves every top-level declaration of the store. Order across
// independent items is irrelevant: anything needed early is pulled in on
// demand and memoized.
func (c *Context) Unit() {
	for _, id := range c.Store.TopLevel {
		c.convertItem(id)
	}
}

// Write-once cache plumbing. A double insert is a resolver bug, never user
// input, so it panics.

func (c *Context) putScheme(id ast.DeclID, s types.Scheme) {
	if _, dup := c.schemes[id]; dup {
		panic(fmt.Sprintf("collect: scheme for %s %q written twice",
			c.Store.Kind(id), c.declName(id)))
	}
	c.schemes[id] = s
}

func (c *Context) putPredicates(id ast.DeclID, ps types.PredicateSet) {
	if _, dup := c.predicates[id]; dup {
		panic(fmt.Sprintf("collect: predicates for %s %q written twice",
			c.Store.Kind(id), c.declName(id)))
	}
	c.predicates[id] = ps
}

func (c *Context) putTypeParamDef(id ast.DeclID, def types.TypeParamDef) {
	if _, dup := c.typeParams[id]; dup {
		panic(fmt.Sprintf("collect: type parameter def %q written twice", c.declName(id)))
	}
	c.typeParams[id] = def
}

// Predicates returns the cached constraint set of a declaration.
func (c *Context) Predicates(id ast.DeclID) (types.PredicateSet, bool) {
	ps, ok := c.predicates[id]
	return ps, ok
}

// SchemeOf returns the cached type scheme without forcing computation.
func (c *Context) SchemeOf(id ast.DeclID) (types.Scheme, bool) {
	s, ok := c.schemes[id]
	return s, ok
}

// SchemeCount reports how many type schemes the pass has produced so far.
func (c *Context) SchemeCount() int {
	return len(c.schemes)
}

// TypeParamDefOf returns the resolved definition of a type parameter.
func (c *Context) TypeParamDefOf(id ast.DeclID) (types.TypeParamDef, bool) {
	def, ok := c.typeParams[id]
	return def, ok
}

// AssocItemsOf returns the associated items recorded for a trait or impl, in
// conversion order: constants, then types, then methods.
func (c *Context) AssocItemsOf(container ast.DeclID) []types.AssocItem {
	return c.assocItems[container]
}

// ImplTraitRef returns the implemented trait reference of an impl, if any.
func (c *Context) ImplTraitRef(impl ast.DeclID) (types.TraitRef, bool) {
	tr, ok := c.implRefs[impl]
	return tr, ok
}

// Discriminant returns the computed discriminant bit pattern of an enum
// variant. The value is masked to the enum's representation width; use
// IntRepr.Render to display it with the right sign.
func (c *Context) Discriminant(variant ast.DeclID) (uint64, bool) {
	v, ok := c.discrs[variant]
	return v, ok
}

// TraitHasDefaultImpl reports whether a `impl Trait for ..` declaration was
// seen for the trait.
func (c *Context) TraitHasDefaultImpl(trait ast.DeclID) bool {
	if td, ok := c.traitDefs[trait]; ok {
		return td.HasDefaultImpl
	}
	return false
}

func (c *Context) declName(id ast.DeclID) string {
	if !id.IsValid() {
		return "?"
	}
	d := c.Store.Decl(id)
	if d.Name == 0 {
		return d.Kind.String()
	}
	return c.Store.Strings.MustLookup(d.Name)
}
