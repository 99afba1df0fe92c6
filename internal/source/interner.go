package source

import "slices"

// StringID is an index into the string interner.
type StringID uint32

// NoStringID marks the absence of a name.
const NoStringID StringID = 0

// Interner deduplicates identifier strings behind stable IDs.
type Interner struct {
	byID  []string            // byID[0] = "" for NoStringID
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern inserts the string and returns its ID, reusing an existing ID when present.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}
	// Own copy so the interner does not pin the caller's buffer.
	cpy := string([]byte(s))
	id := StringID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Lookup returns the string for an ID.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup panics when the ID is invalid.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("source: invalid string ID")
	}
	return s
}

// Len returns the number of interned strings, counting NoStringID.
func (i *Interner) Len() int {
	return len(i.byID)
}

// Snapshot returns a copy of all interned strings, indexed by StringID.
func (i *Interner) Snapshot() []string {
	return slices.Clone(i.byID)
}

// Restore rebuilds the interner from a snapshot produced by Snapshot.
func (i *Interner) Restore(strings []string) {
	if len(strings) == 0 {
		strings = []string{""}
	}
	i.byID = slices.Clone(strings)
	i.index = make(map[string]StringID, len(strings))
	for id, s := range strings {
		i.index[s] = StringID(id)
	}
}
