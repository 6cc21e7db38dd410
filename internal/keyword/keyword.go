// Package keyword implements the keyword membership index: a dictionary
// from keyword label to the ordered sequence of locations carrying that
// label, plus the synthetic "all" keyword.
package keyword

import "github.com/fmidev/geonames-engine/internal/geoname"

// All is the synthetic keyword label that always contains the entire
// corpus.
const All = "all"

// Index maps keyword labels to the ordered sequence of location references
// belonging to that keyword.
type Index struct {
	members map[string][]geoname.Ref
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{members: make(map[string][]geoname.Ref)}
}

// Add appends ref to keyword's member sequence, preserving insertion order.
func (idx *Index) Add(keyword string, ref geoname.Ref) {
	idx.members[keyword] = append(idx.members[keyword], ref)
}

// Members returns the ordered member sequence for keyword. A non-existent
// keyword returns (nil, false); callers treat that as an empty result, not
// an error.
func (idx *Index) Members(keyword string) ([]geoname.Ref, bool) {
	refs, ok := idx.members[keyword]
	return refs, ok
}

// Has reports whether keyword is registered. A registered keyword may have
// no members: Freeze always registers "all", even over an empty store.
func (idx *Index) Has(keyword string) bool {
	_, ok := idx.members[keyword]
	return ok
}

// Keywords returns every registered keyword label.
func (idx *Index) Keywords() []string {
	out := make([]string, 0, len(idx.members))
	for k := range idx.members {
		out = append(out, k)
	}
	return out
}

// Freeze finalizes the synthetic "all" keyword to exactly the given refs,
// overwriting anything previously registered under that label. Call once,
// after the location store is fully populated.
func (idx *Index) Freeze(allRefs []geoname.Ref) {
	idx.members[All] = allRefs
}

// All returns the entire keyword->members map, for callers that need to
// serialize an Index wholesale (snapshot persistence). The caller must not
// mutate the returned map.
func (idx *Index) All() map[string][]geoname.Ref {
	return idx.members
}

// NewIndexFromMembers rebuilds an Index from a previously-serialized
// keyword->members map, for snapshot restoration.
func NewIndexFromMembers(members map[string][]geoname.Ref) *Index {
	if members == nil {
		members = make(map[string][]geoname.Ref)
	}
	return &Index{members: members}
}
