// Package httpapi implements the C8 query front-end's external surface: the
// query-parameter parser and HTTP handlers described in the specification's
// "External Interfaces" section. It is deliberately thin — per the spec,
// "the core consumes only the resolved (tag, location, type, radius)
// tuples" — so this package's only job is turning place/places/area/areas/
// path/paths/bbox/bboxes/lonlat/lonlats/latlon/latlons/geoid/geoids/keyword/
// wkt/fmisid/lpnn/wmo/lang/feature/maxdistance query parameters into calls
// against internal/engine, then formatting the result. Grounded on the
// teacher's internal/gateway/{handler,router} and pkg/middleware for the
// HTTP idiom.
package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// coordQuery is one resolved coordinate tuple: a longitude/latitude pair
// plus an optional per-point radius override.
type coordQuery struct {
	Lon, Lat  float64
	RadiusKm  float64
	HasRadius bool
}

// namedQuery pairs a name pattern (optionally already combined with an
// area, "name,area") with the tag it was parsed from, for response
// labelling.
type namedQuery struct {
	Tag     string
	Pattern string
}

// parsedQuery is the fully resolved request: every tag the front-end
// recognizes, reduced to the tuples the engine understands.
type parsedQuery struct {
	Lang        string
	Keyword     string
	Features    []geoname.Feature
	MaxDistance float64
	WKT         bool

	Names   []namedQuery
	Geoids  []int64
	Coords  []coordQuery
	Keyword2 string // value of the "keyword" tag, distinct from the scoping Keyword option

	Identifiers map[string][]int64 // "fmisid" | "lpnn" | "wmo" -> requested values
}

// parseQuery turns a raw query string's values into a parsedQuery. It
// returns an error for a malformed coordinate list or a path containing a
// space, per the specification's "paths forbid spaces" rule; every other
// tag is best-effort and silently ignores values it cannot parse, since a
// single bad tuple should not fail an entire multi-tag request.
func parseQuery(q map[string][]string) (parsedQuery, error) {
	var p parsedQuery
	p.Lang = firstValue(q, "lang")
	p.Keyword = firstValue(q, "keyword")
	p.Keyword2 = p.Keyword
	p.WKT = hasTag(q, "wkt")
	p.Identifiers = make(map[string][]int64)

	if raw := firstValue(q, "maxdistance"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			p.MaxDistance = v
		}
	}
	if raw := firstValue(q, "feature"); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			code = strings.TrimSpace(code)
			if code != "" {
				p.Features = append(p.Features, geoname.Feature(code))
			}
		}
	}

	// "place"/"area" are single values; "places"/"areas" are semicolon-
	// separated lists. A comma is never used as a list separator here,
	// since the pattern itself may already be a "name,area" disambiguation
	// form (§4.C6) and splitting on comma would break that.
	if pattern := firstValue(q, "place"); pattern != "" {
		appendNames(&p, "place", []string{pattern}, firstValue(q, "area"))
	}
	if raw := firstValue(q, "places"); raw != "" {
		appendNames(&p, "places", strings.Split(raw, ";"), "")
	}
	if area := firstValue(q, "area"); area != "" && firstValue(q, "place") == "" {
		appendNames(&p, "area", []string{area}, "")
	}
	if raw := firstValue(q, "areas"); raw != "" {
		appendNames(&p, "areas", strings.Split(raw, ";"), "")
	}

	for _, raw := range strings.Split(firstValue(q, "geoid"), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			p.Geoids = append(p.Geoids, id)
		}
	}
	for _, raw := range strings.Split(firstValue(q, "geoids"), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			p.Geoids = append(p.Geoids, id)
		}
	}

	for _, tag := range []string{"fmisid", "lpnn", "wmo"} {
		for _, raw := range strings.Split(firstValue(q, tag), ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
				p.Identifiers[tag] = append(p.Identifiers[tag], id)
			}
		}
	}

	coordTags := []struct {
		tag     string
		swap    bool
		forbidSpaces, forbidRadius bool
	}{
		{"lonlat", false, false, false},
		{"lonlats", false, false, false},
		{"latlon", true, false, false},
		{"latlons", true, false, false},
		{"path", false, true, false},
		{"paths", false, true, true},
	}
	for _, ct := range coordTags {
		raw := firstValue(q, ct.tag)
		if raw == "" {
			continue
		}
		if ct.forbidSpaces && strings.ContainsAny(raw, " \t") {
			return parsedQuery{}, fmt.Errorf("httpapi: %q must not contain spaces", ct.tag)
		}
		for _, part := range splitCoordList(raw) {
			cq, err := parseCoord(part, ct.swap)
			if err != nil {
				return parsedQuery{}, err
			}
			if ct.forbidRadius {
				cq.HasRadius = false
			}
			p.Coords = append(p.Coords, cq)
		}
	}

	if raw := firstValue(q, "bbox"); raw != "" {
		if cq, err := parseBBox(raw); err == nil {
			p.Coords = append(p.Coords, cq)
		}
	}
	if raw := firstValue(q, "bboxes"); raw != "" {
		for _, part := range strings.Split(raw, ";") {
			if cq, err := parseBBox(part); err == nil {
				p.Coords = append(p.Coords, cq)
			}
		}
	}

	return p, nil
}

// appendNames attaches area (if any) to each pattern as the "name,area"
// form the suggest trie's keys already carry, then records it under tag.
func appendNames(p *parsedQuery, tag string, patterns []string, area string) {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if area != "" {
			pattern = pattern + "," + area
		}
		p.Names = append(p.Names, namedQuery{Tag: tag, Pattern: pattern})
	}
}

// parseCoord parses one "lon,lat" or "lon,lat:radius" tuple (or "lat,lon"
// when swap is set, for the latlon family).
func parseCoord(raw string, swap bool) (coordQuery, error) {
	radiusPart := ""
	coordPart := raw
	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		coordPart, radiusPart = raw[:idx], raw[idx+1:]
	}
	fields := strings.Split(coordPart, ",")
	if len(fields) != 2 {
		return coordQuery{}, fmt.Errorf("httpapi: malformed coordinate %q", raw)
	}
	a, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	b, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err1 != nil || err2 != nil {
		return coordQuery{}, fmt.Errorf("httpapi: malformed coordinate %q", raw)
	}
	cq := coordQuery{Lon: a, Lat: b}
	if swap {
		cq.Lon, cq.Lat = b, a
	}
	if radiusPart != "" {
		if r, err := strconv.ParseFloat(radiusPart, 64); err == nil {
			cq.RadiusKm, cq.HasRadius = r, true
		}
	}
	return cq, nil
}

// parseBBox parses "lon1,lat1,lon2,lat2[:radius]" into a single coordQuery
// centered on the box, with the radius defaulted to half the great-circle
// distance in kilometres between the two corners unless the caller
// supplied an explicit trailing radius.
func parseBBox(raw string) (coordQuery, error) {
	radiusPart := ""
	coordPart := raw
	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		coordPart, radiusPart = raw[:idx], raw[idx+1:]
	}
	fields := strings.Split(coordPart, ",")
	if len(fields) != 4 {
		return coordQuery{}, fmt.Errorf("httpapi: malformed bbox %q", raw)
	}
	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return coordQuery{}, fmt.Errorf("httpapi: malformed bbox %q", raw)
		}
		vals[i] = v
	}
	lon1, lat1, lon2, lat2 := vals[0], vals[1], vals[2], vals[3]
	cq := coordQuery{Lon: (lon1 + lon2) / 2, Lat: (lat1 + lat2) / 2}
	if radiusPart != "" {
		if r, err := strconv.ParseFloat(radiusPart, 64); err == nil {
			cq.RadiusKm, cq.HasRadius = r, true
		}
	} else {
		cq.RadiusKm = haversineKm(lon1, lat1, lon2, lat2) / 2
		cq.HasRadius = true
	}
	return cq, nil
}

func splitCoordList(raw string) []string {
	return strings.Split(raw, ";")
}

func firstValue(q map[string][]string, key string) string {
	if vs, ok := q[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func hasTag(q map[string][]string, key string) bool {
	_, ok := q[key]
	return ok
}
