// Package translate implements the three independent translation tables
// (countries, municipalities, place names) and the Translate operation that
// produces a new, localized Location without mutating the canonical record.
package translate

import (
	"strings"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// Table maps a key (geoid, country name, or municipality id) and a
// lowercased language to a translated string. Insertion order establishes
// rank: the first translation inserted for a given (key, language) wins,
// matching the loader's "preferred, shortest, alphabetical" SQL ordering.
type Table[K comparable] struct {
	entries map[K]map[string]string
}

// NewTable returns an empty translation table.
func NewTable[K comparable]() *Table[K] {
	return &Table[K]{entries: make(map[K]map[string]string)}
}

// Insert records translated for (key, language) if no translation has been
// recorded yet for that pair; later inserts for the same pair are no-ops,
// implementing first-wins semantics.
func (t *Table[K]) Insert(key K, language, translated string) {
	language = strings.ToLower(language)
	byLang, ok := t.entries[key]
	if !ok {
		byLang = make(map[string]string)
		t.entries[key] = byLang
	}
	if _, exists := byLang[language]; exists {
		return
	}
	byLang[language] = translated
}

// Lookup returns the translation for (key, language), reporting whether one
// was found. Callers treat a miss as "use the canonical value".
func (t *Table[K]) Lookup(key K, language string) (string, bool) {
	byLang, ok := t.entries[key]
	if !ok {
		return "", false
	}
	v, ok := byLang[strings.ToLower(language)]
	return v, ok
}

// All returns the table's entire key->language->translation map, for
// callers that need to serialize a Table wholesale (snapshot persistence).
// The caller must not mutate the returned map.
func (t *Table[K]) All() map[K]map[string]string {
	return t.entries
}

// NewTableFromEntries rebuilds a Table from a previously-serialized
// key->language->translation map, for snapshot restoration.
func NewTableFromEntries[K comparable](entries map[K]map[string]string) *Table[K] {
	if entries == nil {
		entries = make(map[K]map[string]string)
	}
	return &Table[K]{entries: entries}
}

// Tables bundles the three translation tables the loader populates.
type Tables struct {
	Countries     *Table[string] // keyed by official country name
	Municipalities *Table[int64]
	PlaceNames    *Table[int64] // keyed by geoid
}

// NewTables returns three empty tables.
func NewTables() *Tables {
	return &Tables{
		Countries:      NewTable[string](),
		Municipalities: NewTable[int64](),
		PlaceNames:     NewTable[int64](),
	}
}

// CountryName returns the localized name for iso2 given its canonical
// country name, falling back to the canonical name on a miss (or "" if
// canonicalName is itself empty, per the location record's convention of an
// empty iso2 meaning "no country").
func (t *Tables) CountryName(canonicalName, language string) string {
	if canonicalName == "" {
		return ""
	}
	if v, ok := t.Countries.Lookup(canonicalName, language); ok {
		return v
	}
	return canonicalName
}

// Translate returns a new Location with Name, Area, and Country localized
// to language; the original loc is left untouched and the geoid is
// preserved, satisfying the identity-preservation property. countryName is
// the canonical country name for loc.ISO2 (the caller owns the
// iso2->canonical-name mapping built at load time).
func Translate(loc geoname.Location, language, countryName string, tables *Tables) geoname.Location {
	out := loc

	if name, ok := tables.PlaceNames.Lookup(loc.Geoid, language); ok {
		out.Name = name
	}

	out.Area = translateArea(loc, language, tables)
	out.Country = tables.CountryName(countryName, language)

	return out
}

// translateArea handles the municipality/country area string, including the
// US special case "<admin1>, <country>" where only the country half is
// translated.
func translateArea(loc geoname.Location, language string, tables *Tables) string {
	area := loc.Area
	if area == "" {
		return area
	}
	// US case: "<admin1>, <country>" — only the country half translates.
	if idx := strings.LastIndex(area, ", "); idx >= 0 {
		admin := area[:idx]
		country := area[idx+2:]
		if v, ok := tables.Countries.Lookup(country, language); ok {
			return admin + ", " + v
		}
		return area
	}
	if loc.Municipality != 0 {
		if v, ok := tables.Municipalities.Lookup(loc.Municipality, language); ok {
			return v
		}
		return area
	}
	if v, ok := tables.Countries.Lookup(area, language); ok {
		return v
	}
	return area
}
