package geoname

import "fmt"

// Store owns the canonical, contiguous sequence of Location records for one
// dataset generation and the parallel geoid->Ref index. It is append-only
// while a generation is being built and frozen (read-only) once Freeze is
// called; every Ref handed out before or after Freeze stays valid for the
// Store's lifetime.
type Store struct {
	locations []Location
	byGeoid   map[int64]Ref
	frozen    bool
}

// NewStore returns an empty Store sized for an expected number of locations.
func NewStore(expected int) *Store {
	return &Store{
		locations: make([]Location, 0, expected),
		byGeoid:   make(map[int64]Ref, expected),
	}
}

// Append adds loc to the store and returns its Ref. Append panics if called
// after Freeze or if loc.Geoid duplicates an existing entry — both indicate
// a loader bug, not a data condition the caller should recover from.
func (s *Store) Append(loc Location) Ref {
	if s.frozen {
		panic("geoname: Append called on a frozen Store")
	}
	if _, exists := s.byGeoid[loc.Geoid]; exists {
		panic(fmt.Sprintf("geoname: duplicate geoid %d", loc.Geoid))
	}
	ref := Ref(len(s.locations))
	s.locations = append(s.locations, loc)
	s.byGeoid[loc.Geoid] = ref
	return ref
}

// Freeze marks the store read-only. Safe to call more than once.
func (s *Store) Freeze() {
	s.frozen = true
}

// Get returns the Location at ref. Callers must only pass Refs obtained
// from this same Store.
func (s *Store) Get(ref Ref) Location {
	return s.locations[ref]
}

// Lookup resolves a geoid to its Ref, reporting whether it was found.
func (s *Store) Lookup(geoid int64) (Ref, bool) {
	ref, ok := s.byGeoid[geoid]
	return ref, ok
}

// Len returns the number of locations in the store.
func (s *Store) Len() int {
	return len(s.locations)
}

// All returns every Ref in insertion order, suitable for building the
// synthetic "all" keyword membership.
func (s *Store) All() []Ref {
	refs := make([]Ref, len(s.locations))
	for i := range s.locations {
		refs[i] = Ref(i)
	}
	return refs
}

// SetPriority updates the priority of the location at ref in place. Only
// the ranker, during load before publication, is expected to call this.
func (s *Store) SetPriority(ref Ref, priority int64) {
	s.locations[ref].Priority = priority
}
