// Package wkt renders Location coordinates as WKT geometry text: a single
// POINT for one location, a MULTIPOINT for several, matching the shape the
// original engine's WktGeometry.cpp produced for the administrative meta
// endpoint. This is construction only — there is no parser for arbitrary
// WKT input here; that stays out of scope per the specification.
package wkt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// coordPrecision is the number of decimal digits kept when formatting a
// coordinate, matching the six-digit precision the original engine's SVG/WKT
// export used.
const coordPrecision = 6

// Point renders a single location's coordinates as a WKT POINT. A location
// with no resolved coordinates (both zero) still renders; the caller is
// responsible for deciding whether that Location should appear at all.
func Point(loc geoname.Location) string {
	return fmt.Sprintf("POINT(%s %s)", formatCoord(loc.Longitude), formatCoord(loc.Latitude))
}

// MultiPoint renders a list of locations as a single WKT MULTIPOINT. An
// empty list renders as "MULTIPOINT EMPTY" rather than an invalid
// zero-element MULTIPOINT().
func MultiPoint(locations []geoname.Location) string {
	if len(locations) == 0 {
		return "MULTIPOINT EMPTY"
	}
	points := make([]string, len(locations))
	for i, loc := range locations {
		points[i] = fmt.Sprintf("%s %s", formatCoord(loc.Longitude), formatCoord(loc.Latitude))
	}
	return "MULTIPOINT(" + strings.Join(points, ", ") + ")"
}

// Geometry renders locations as WKT, choosing POINT for a single location
// and MULTIPOINT otherwise; an empty slice renders as "MULTIPOINT EMPTY".
func Geometry(locations []geoname.Location) string {
	if len(locations) == 1 {
		return Point(locations[0])
	}
	return MultiPoint(locations)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', coordPrecision, 64)
}
