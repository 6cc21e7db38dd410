// query.go implements the suggest/suggest_duplicates/suggest_multilang
// algorithm described in the specification's C6 section: per-keyword trie
// lookups, the exact-match bonus, translation, sort, dedupe, and pagination.
package suggest

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/translate"
)

// Params configures a single-language Suggest (or, with Duplicates=true,
// suggest_duplicates) call.
type Params struct {
	Index        *Index
	Keywords     *keyword.Index
	Store        *geoname.Store
	Tables       *translate.Tables
	Normalizer   *Normalizer
	CountryNames map[string]string // iso2 -> canonical country name

	Pattern         string
	Language        string // "" selects the canonical-only trie
	KeywordList     []string
	Page            int
	PageSize        int
	Duplicates      bool
	ExactMatchBonus int64
	Predicate       func(geoname.Location) bool
}

type candidateEntry struct {
	ref         geoname.Ref
	loc         geoname.Location
	adjPriority int64
	normName    string
}

// Suggest runs the single-language suggest algorithm. It returns nil (an
// empty result; there is no error return) both for an unknown keyword and for a pattern that
// normalizes to nothing (e.g. an empty string), per the empty-input guard.
func Suggest(p Params) []geoname.Location {
	for _, kw := range p.KeywordList {
		if !p.Keywords.Has(kw) {
			return nil
		}
	}
	normalizedPattern := p.Normalizer.Key(p.Pattern)
	if normalizedPattern == "" {
		return nil
	}

	candidates, exact := p.gatherCandidates(normalizedPattern)
	if len(candidates) == 0 {
		return nil
	}

	entries := make([]candidateEntry, 0, len(candidates))
	for ref := range candidates {
		canonical := p.Store.Get(ref)
		if p.Predicate != nil && !p.Predicate(canonical) {
			continue
		}
		loc := translate.Translate(canonical, p.Language, p.CountryNames[canonical.ISO2], p.Tables)
		adj := loc.Priority
		if exact[ref] {
			adj += p.ExactMatchBonus
		}
		entries = append(entries, candidateEntry{
			ref:         ref,
			loc:         loc,
			adjPriority: adj,
			normName:    p.Normalizer.Key(loc.Name),
		})
	}

	entries = sortAndDedupe(entries, p.Duplicates)
	return paginate(entries, p.Page, p.PageSize)
}

// gatherCandidates walks the canonical and (if Language != "") per-language
// tries for every keyword in order, returning the union of matched refs and
// the subset whose normalized name equals normalizedPattern exactly.
func (p Params) gatherCandidates(normalizedPattern string) (map[geoname.Ref]bool, map[geoname.Ref]bool) {
	candidates := make(map[geoname.Ref]bool)
	exact := make(map[geoname.Ref]bool)
	lang := strings.ToLower(p.Language)

	for _, kw := range p.KeywordList {
		if trie := p.Index.canonicalTrie(kw); trie != nil {
			for _, ref := range trie.PrefixMatches(normalizedPattern) {
				candidates[ref] = true
				if p.Index.canonicalNorm[ref] == normalizedPattern {
					exact[ref] = true
				}
			}
		}
		if p.Language == "" {
			continue
		}
		if ltrie := p.Index.languageTrie(lang, kw); ltrie != nil {
			for _, ref := range ltrie.PrefixMatches(normalizedPattern) {
				candidates[ref] = true
				if norm, ok := p.Index.languageNorm[lang]; ok && norm[ref] == normalizedPattern {
					exact[ref] = true
				}
			}
		}
	}
	return candidates, exact
}

func sortAndDedupe(entries []candidateEntry, duplicates bool) []candidateEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.loc.Name != b.loc.Name {
			return a.loc.Name < b.loc.Name
		}
		if a.loc.ISO2 != b.loc.ISO2 {
			return a.loc.ISO2 < b.loc.ISO2
		}
		if a.loc.Area != b.loc.Area {
			return a.loc.Area < b.loc.Area
		}
		return a.adjPriority > b.adjPriority // "-priority ascending" == priority descending
	})

	seen := make(map[string]bool, len(entries))
	deduped := entries[:0]
	for _, e := range entries {
		var key string
		if duplicates {
			key = strconv.FormatInt(e.loc.Geoid, 10)
		} else {
			key = e.loc.Name + "\x00" + e.loc.ISO2 + "\x00" + e.loc.Area
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, e)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.adjPriority != b.adjPriority {
			return a.adjPriority > b.adjPriority
		}
		if a.normName != b.normName {
			return a.normName < b.normName
		}
		return a.loc.Area < b.loc.Area
	})
	return deduped
}

func paginate(entries []candidateEntry, page, pageSize int) []geoname.Location {
	if pageSize <= 0 {
		pageSize = len(entries)
	}
	start := page * pageSize
	if start < 0 || start >= len(entries) {
		return nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	out := make([]geoname.Location, 0, end-start)
	for _, e := range entries[start:end] {
		out = append(out, e.loc)
	}
	return out
}

// MultilangParams configures suggest_multilang: the same candidate set,
// sorted and paginated once against canonical fields (no exact-match
// bonus, per the original engine's known limitation), then materialized
// into one translated list per requested language so every language view
// shares identical ordering and page boundaries.
type MultilangParams struct {
	Index        *Index
	Keywords     *keyword.Index
	Store        *geoname.Store
	Tables       *translate.Tables
	Normalizer   *Normalizer
	CountryNames map[string]string

	Pattern     string
	Languages   []string
	KeywordList []string
	Page        int
	PageSize    int
	Duplicates  bool
	Predicate   func(geoname.Location) bool
}

// SuggestMultilang returns one result list per requested language, keyed by
// the language string as given.
func SuggestMultilang(p MultilangParams) map[string][]geoname.Location {
	for _, kw := range p.KeywordList {
		if !p.Keywords.Has(kw) {
			return nil
		}
	}
	normalizedPattern := p.Normalizer.Key(p.Pattern)
	if normalizedPattern == "" {
		return nil
	}

	candidates := make(map[geoname.Ref]bool)
	for _, kw := range p.KeywordList {
		if trie := p.Index.canonicalTrie(kw); trie != nil {
			for _, ref := range trie.PrefixMatches(normalizedPattern) {
				candidates[ref] = true
			}
		}
		for _, lang := range p.Languages {
			if ltrie := p.Index.languageTrie(lang, kw); ltrie != nil {
				for _, ref := range ltrie.PrefixMatches(normalizedPattern) {
					candidates[ref] = true
				}
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	entries := make([]candidateEntry, 0, len(candidates))
	for ref := range candidates {
		canonical := p.Store.Get(ref)
		if p.Predicate != nil && !p.Predicate(canonical) {
			continue
		}
		entries = append(entries, candidateEntry{
			ref:         ref,
			loc:         canonical,
			adjPriority: canonical.Priority,
			normName:    p.Normalizer.Key(canonical.Name),
		})
	}

	deduped := sortAndDedupe(entries, p.Duplicates)
	trimmed := paginateRefs(deduped, p.Page, p.PageSize)

	out := make(map[string][]geoname.Location, len(p.Languages))
	for _, lang := range p.Languages {
		list := make([]geoname.Location, 0, len(trimmed))
		for _, ref := range trimmed {
			canonical := p.Store.Get(ref)
			list = append(list, translate.Translate(canonical, lang, p.CountryNames[canonical.ISO2], p.Tables))
		}
		out[lang] = list
	}
	return out
}

func paginateRefs(entries []candidateEntry, page, pageSize int) []geoname.Ref {
	if pageSize <= 0 {
		pageSize = len(entries)
	}
	start := page * pageSize
	if start < 0 || start >= len(entries) {
		return nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	out := make([]geoname.Ref, 0, end-start)
	for _, e := range entries[start:end] {
		out = append(out, e.ref)
	}
	return out
}
