package engine

import (
	"context"
	"sort"

	"github.com/fmidev/geonames-engine/internal/cache"
	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/rank"
	"github.com/fmidev/geonames-engine/internal/suggest"
	"github.com/fmidev/geonames-engine/internal/translate"
)

// NameSearch implements name_search. The pattern may carry a "name,area"
// form (e.g. "Kumpula,Helsinki"); since the suggest trie's keys are built
// as "<name-suffix>, <area>, <geoid>" (§4.C6), matching the raw pattern
// against the trie directly disambiguates same-named places by area without
// any extra parsing, so name_search is implemented as a suggest lookup
// scoped to the requested (or "all") keyword.
func (e *Engine) NameSearch(ctx context.Context, name string, opts Options) ([]geoname.Location, error) {
	if err := e.checkForbidden(name); err != nil {
		return nil, err
	}

	key := cache.NameKey(name+"|"+opts.keywordOrDefault(defaultKeyword), opts.hash())
	return e.cache.GetOrCompute(key, e.cache.AllowEmptyForNameSearch(), func() ([]geoname.Location, error) {
		result, err := e.pool.Submit(ctx, func(ctx context.Context) (any, error) {
			gen := e.current()
			kw := opts.keywordOrDefault(defaultKeyword)
			if !gen.Keywords.Has(kw) {
				return []geoname.Location(nil), nil
			}
			locations := suggest.Suggest(suggest.Params{
				Index:           gen.Suggest,
				Keywords:        gen.Keywords,
				Store:           gen.Store,
				Tables:          gen.Tables,
				Normalizer:      e.normalizer,
				CountryNames:    gen.CountryNames,
				Pattern:         name,
				Language:        opts.Language,
				KeywordList:     []string{kw},
				PageSize:        opts.ResultLimit,
				ExactMatchBonus: e.exactMatchBonus,
			})
			return locations, nil
		})
		if err != nil {
			return nil, err
		}
		return asLocations(result), nil
	})
}

// IDSearch implements id_search: at most one location, translated.
func (e *Engine) IDSearch(ctx context.Context, geoid int64, opts Options) ([]geoname.Location, error) {
	key := cache.IDKey(geoid, opts.hash())
	return e.cache.GetOrCompute(key, false, func() ([]geoname.Location, error) {
		result, err := e.pool.Submit(ctx, func(ctx context.Context) (any, error) {
			gen := e.current()
			ref, ok := gen.Store.Lookup(geoid)
			if !ok {
				return []geoname.Location(nil), nil
			}
			loc := translate.Translate(gen.Store.Get(ref), opts.Language, gen.CountryNames[gen.Store.Get(ref).ISO2], gen.Tables)
			return []geoname.Location{loc}, nil
		})
		if err != nil {
			return nil, err
		}
		return asLocations(result), nil
	})
}

// LonLatSearch implements lonlat_search. Per §9's documented Open Question,
// the candidate set is gathered unbounded (result_limit is not passed to
// the spatial lookup), ranked, and only then trimmed to result_limit —
// "rank-then-trim" — rather than limiting before ranking.
func (e *Engine) LonLatSearch(ctx context.Context, lon, lat, radiusKm float64, opts Options) ([]geoname.Location, error) {
	key := cache.LonLatKey(lon, lat, radiusKm, opts.hash())
	return e.cache.GetOrCompute(key, false, func() ([]geoname.Location, error) {
		result, err := e.pool.Submit(ctx, func(ctx context.Context) (any, error) {
			gen := e.current()
			kw := opts.keywordOrDefault(defaultKeyword)
			idx, ok := gen.Spatial[kw]
			if !ok {
				return []geoname.Location(nil), nil
			}
			refs := idx.Nearest(lon, lat, radiusKm, 0)
			rank.SortByPriority(refs, gen.Store)
			if opts.ResultLimit > 0 && len(refs) > opts.ResultLimit {
				refs = refs[:opts.ResultLimit]
			}
			locations := make([]geoname.Location, 0, len(refs))
			for _, ref := range refs {
				canonical := gen.Store.Get(ref)
				locations = append(locations, translate.Translate(canonical, opts.Language, gen.CountryNames[canonical.ISO2], gen.Tables))
			}
			return locations, nil
		})
		if err != nil {
			return nil, err
		}
		return asLocations(result), nil
	})
}

// KeywordSearch implements keyword_search: every member of keyword,
// translated and sorted by priority. Blocks on suggest-ready first, per the
// suspension-point rule in §5.
func (e *Engine) KeywordSearch(ctx context.Context, kw string, opts Options) ([]geoname.Location, error) {
	key := cache.KeywordKey(kw, opts.hash())
	return e.cache.GetOrCompute(key, false, func() ([]geoname.Location, error) {
		result, err := e.pool.Submit(ctx, func(ctx context.Context) (any, error) {
			gen := e.current()
			if err := e.waitForSuggestReady(ctx, gen); err != nil {
				return nil, err
			}
			refs, ok := gen.Keywords.Members(kw)
			if !ok {
				return []geoname.Location(nil), nil
			}
			ordered := append([]geoname.Ref(nil), refs...)
			rank.SortByPriority(ordered, gen.Store)
			if opts.ResultLimit > 0 && len(ordered) > opts.ResultLimit {
				ordered = ordered[:opts.ResultLimit]
			}
			locations := make([]geoname.Location, 0, len(ordered))
			for _, ref := range ordered {
				canonical := gen.Store.Get(ref)
				locations = append(locations, translate.Translate(canonical, opts.Language, gen.CountryNames[canonical.ISO2], gen.Tables))
			}
			return locations, nil
		})
		if err != nil {
			return nil, err
		}
		return asLocations(result), nil
	})
}

// Suggest implements suggest (and, with opts.Duplicates, suggest_duplicates);
// never cached, since trie lookups are already fast.
func (e *Engine) Suggest(pattern string, language string, keywords []string, page, pageSize int, duplicates bool) []geoname.Location {
	gen := e.current()
	return suggest.Suggest(suggest.Params{
		Index:           gen.Suggest,
		Keywords:        gen.Keywords,
		Store:           gen.Store,
		Tables:          gen.Tables,
		Normalizer:      e.normalizer,
		CountryNames:    gen.CountryNames,
		Pattern:         pattern,
		Language:        language,
		KeywordList:     keywordsOrAll(keywords),
		Page:            page,
		PageSize:        pageSize,
		Duplicates:      duplicates,
		ExactMatchBonus: e.exactMatchBonus,
	})
}

// SuggestMultilang implements suggest_multilang.
func (e *Engine) SuggestMultilang(pattern string, languages []string, keywords []string, page, pageSize int, duplicates bool) map[string][]geoname.Location {
	gen := e.current()
	return suggest.SuggestMultilang(suggest.MultilangParams{
		Index:        gen.Suggest,
		Keywords:     gen.Keywords,
		Store:        gen.Store,
		Tables:       gen.Tables,
		Normalizer:   e.normalizer,
		CountryNames: gen.CountryNames,
		Pattern:      pattern,
		Languages:    languages,
		KeywordList:  keywordsOrAll(keywords),
		Page:         page,
		PageSize:     pageSize,
		Duplicates:   duplicates,
	})
}

// Nearest implements nearest: at most one location, the closest member of
// keyword within radiusKm, translated. Blocks on suggest-ready and returns
// no result (nil, nil) for an unknown keyword.
func (e *Engine) Nearest(ctx context.Context, lon, lat, radiusKm float64, language, kw string) (*geoname.Location, error) {
	gen := e.current()
	if err := e.waitForSuggestReady(ctx, gen); err != nil {
		return nil, err
	}
	idx, ok := gen.Spatial[kw]
	if !ok {
		return nil, nil
	}
	refs := idx.Nearest(lon, lat, radiusKm, 1)
	if len(refs) == 0 {
		return nil, nil
	}
	canonical := gen.Store.Get(refs[0])
	loc := translate.Translate(canonical, language, gen.CountryNames[canonical.ISO2], gen.Tables)
	return &loc, nil
}

// FeatureSearch implements feature_search: the nearest location within
// radiusKm whose feature code is in features, translated. If none matches,
// an anonymous location (geoid 0, no name) is synthesized with DEM/land
// cover resolved live; no timezone lookup service is modeled by this
// engine, so the synthesized location's Timezone stays empty, a documented
// simplification of the original "resolved timezone" behaviour.
func (e *Engine) FeatureSearch(ctx context.Context, lon, lat, radiusKm float64, language string, features []geoname.Feature) geoname.Location {
	gen := e.current()
	if idx, ok := gen.Spatial[keyword.All]; ok {
		for _, ref := range idx.Nearest(lon, lat, radiusKm, 0) {
			canonical := gen.Store.Get(ref)
			if hasFeature(canonical.Feature, features) {
				return translate.Translate(canonical, language, gen.CountryNames[canonical.ISO2], gen.Tables)
			}
		}
	}

	anon := geoname.NewLocation(0, "")
	anon.Longitude = lon
	anon.Latitude = lat
	if e.dem != nil {
		anon.Elevation = e.dem.Elevation(ctx, lon, lat)
		anon.Dem = anon.Elevation
		anon.CoverType = e.dem.CoverType(ctx, lon, lat)
	}
	return anon
}

// Sort implements sort: an in-place priority sort, descending, stable.
func (e *Engine) Sort(locations []geoname.Location) {
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Priority > locations[j].Priority
	})
}

// CountryName implements country_name.
func (e *Engine) CountryName(iso2, language string) string {
	gen := e.current()
	return gen.Tables.CountryName(gen.CountryNames[iso2], language)
}

func keywordsOrAll(keywords []string) []string {
	if len(keywords) == 0 {
		return []string{defaultKeyword}
	}
	return keywords
}

func hasFeature(feature geoname.Feature, wanted []geoname.Feature) bool {
	for _, w := range wanted {
		if feature == w {
			return true
		}
	}
	return false
}

func asLocations(v any) []geoname.Location {
	if v == nil {
		return nil
	}
	return v.([]geoname.Location)
}
