// Package geoname defines the canonical location record and the location
// store: the contiguous, append-only-during-load sequence of records plus
// the geoid lookup that every other index references by position.
package geoname

import "math"

// Feature is a GeoNames-style classifier code (PPL, PPLC, PPLA2, SYNOP, ...).
type Feature string

// CoverType enumerates the land-cover classification resolved from the
// injected LandCover service. NoCover is the sentinel used when the service
// has no answer for a coordinate.
type CoverType string

const NoCover CoverType = "NoData"

// Ref is a stable, generation-scoped reference to a Location: its index into
// the owning Store's slice. It stays valid for the lifetime of the
// generation that produced it and must never be interpreted against a
// different generation's Store.
type Ref int

const NoRef Ref = -1

// Location is the canonical, immutable-after-load place record. The only
// field mutated after construction is Priority, written once by the ranker
// before the generation is published. Translating a Location never mutates
// it in place; Translate returns a new value.
type Location struct {
	Geoid        int64
	Name         string
	ISO2         string
	Municipality int64
	Area         string
	Feature      Feature
	Country      string
	Longitude    float64
	Latitude     float64
	Timezone     string
	Population   int64
	Elevation    float64
	Dem          float64
	CoverType    CoverType
	Priority     int64

	// Front-end annotations, preserved verbatim by the core.
	FMISID int64
	Radius float64
	Type   string
}

// NewLocation returns a Location with the float fields defaulted to the
// sentinels the source row uses to mean "absent" (NaN elevation, NoData
// cover).
func NewLocation(geoid int64, name string) Location {
	return Location{
		Geoid:     geoid,
		Name:      name,
		Elevation: math.NaN(),
		Dem:       math.NaN(),
		CoverType: NoCover,
	}
}

// HasElevation reports whether Elevation was resolved (source row or DEM
// service), as opposed to the NaN sentinel.
func (l Location) HasElevation() bool {
	return !math.IsNaN(l.Elevation)
}

// HasDem reports whether Dem was resolved.
func (l Location) HasDem() bool {
	return !math.IsNaN(l.Dem)
}
