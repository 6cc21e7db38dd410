// Package loader implements the C1 loader: the SQL phase that materializes
// one dataset generation from the relational source, followed by the
// in-memory index-building phase (C5 spatial, C6 suggest, C7 ranker).
package loader

import (
	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/spatial"
	"github.com/fmidev/geonames-engine/internal/suggest"
	"github.com/fmidev/geonames-engine/internal/translate"
)

// Generation bundles every index built for one load/reload cycle. It is
// immutable once returned from Load; the engine publishes it atomically and
// discards the previous one.
type Generation struct {
	Store    *geoname.Store
	Keywords *keyword.Index
	Tables   *translate.Tables
	Suggest  *suggest.Index
	// Spatial holds one nearest-neighbour tree per keyword, matching the
	// keyword index's membership sets.
	Spatial map[string]*spatial.Index
	// CountryNames maps iso2 -> canonical (English) country name, needed by
	// Translate callers to resolve the localized country field.
	CountryNames map[string]string
	// Languages maps geoid -> the set of languages that have a place-name
	// translation for it, so the suggest index builder knows which
	// per-language tries to populate for each location without scanning
	// the translation table back.
	Languages map[int64]map[string]struct{}

	Fingerprint int64
	HasFingerprint bool

	// Warnings is reported as-is by the engine's Meta (the administrative
	// geonames?type=meta endpoint). Load does not fill it: rows discarded
	// for a null timezone and keyword rows naming an unknown geoid are only
	// logged.
	Warnings []string
}
