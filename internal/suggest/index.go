package suggest

import (
	"strings"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// Index holds the canonical per-keyword tries and the per-language,
// per-keyword tries built over translated names, plus the normalized-name
// side tables used for the exact-match bonus comparison in Suggest.
type Index struct {
	canonical map[string]*Trie
	language  map[string]map[string]*Trie

	canonicalNorm map[geoname.Ref]string
	languageNorm  map[string]map[geoname.Ref]string

	ready bool
}

// Builder accumulates entries for one dataset generation's Index.
type Builder struct {
	normalizer        *Normalizer
	asciiAutocomplete bool

	canonical     map[string]*Trie
	language      map[string]map[string]*Trie
	canonicalNorm map[geoname.Ref]string
	languageNorm  map[string]map[geoname.Ref]string
}

// NewBuilder returns an empty Builder.
func NewBuilder(normalizer *Normalizer, asciiAutocomplete bool) *Builder {
	return &Builder{
		normalizer:        normalizer,
		asciiAutocomplete: asciiAutocomplete,
		canonical:         make(map[string]*Trie),
		language:          make(map[string]map[string]*Trie),
		canonicalNorm:     make(map[geoname.Ref]string),
		languageNorm:      make(map[string]map[geoname.Ref]string),
	}
}

// AddCanonical inserts ref under keyword's canonical trie for name/area/geoid,
// plus the transliterated ASCII variant when enabled and different.
func (b *Builder) AddCanonical(keyword string, ref geoname.Ref, name, area string, geoid int64) {
	trie := b.trieFor(b.canonical, keyword)
	b.insertName(trie, ref, name, area, geoid)
	b.canonicalNorm[ref] = b.normalizer.Key(name)
}

// AddLanguage inserts ref under keyword's trie for the given language, over
// the translated name, plus its transliterated ASCII variant when enabled
// and different.
func (b *Builder) AddLanguage(language, keyword string, ref geoname.Ref, name, area string, geoid int64) {
	language = strings.ToLower(language)
	byKeyword, ok := b.language[language]
	if !ok {
		byKeyword = make(map[string]*Trie)
		b.language[language] = byKeyword
	}
	trie, ok := byKeyword[keyword]
	if !ok {
		trie = NewTrie()
		byKeyword[keyword] = trie
	}
	b.insertName(trie, ref, name, area, geoid)

	norm, ok := b.languageNorm[language]
	if !ok {
		norm = make(map[geoname.Ref]string)
		b.languageNorm[language] = norm
	}
	norm[ref] = b.normalizer.Key(name)
}

func (b *Builder) trieFor(m map[string]*Trie, keyword string) *Trie {
	trie, ok := m[keyword]
	if !ok {
		trie = NewTrie()
		m[keyword] = trie
	}
	return trie
}

func (b *Builder) insertName(trie *Trie, ref geoname.Ref, name, area string, geoid int64) {
	for _, key := range b.normalizer.SuffixKeys(name, area, geoid) {
		trie.Insert(key, ref)
	}
	if !b.asciiAutocomplete {
		return
	}
	translit := Transliterate(name)
	if translit == name {
		return
	}
	for _, key := range b.normalizer.SuffixKeys(translit, area, geoid) {
		trie.Insert(key, ref)
	}
}

// Build freezes the accumulated tries into a queryable Index with
// suggest-ready set false; the caller flips it true once, via MarkReady,
// after this generation is otherwise fully indexed.
func (b *Builder) Build() *Index {
	return &Index{
		canonical:     b.canonical,
		language:      b.language,
		canonicalNorm: b.canonicalNorm,
		languageNorm:  b.languageNorm,
	}
}

// MarkReady flips the suggest-ready flag. The flag transitions false->true
// exactly once per dataset generation.
func (idx *Index) MarkReady() {
	idx.ready = true
}

// Ready reports whether suggest has been indexed for this generation.
func (idx *Index) Ready() bool {
	return idx.ready
}

// canonicalTrie returns the canonical trie for keyword, or nil.
func (idx *Index) canonicalTrie(keyword string) *Trie {
	return idx.canonical[keyword]
}

// languageTrie returns the per-language trie for (language, keyword), or
// nil if there is none.
func (idx *Index) languageTrie(language, keyword string) *Trie {
	byKeyword, ok := idx.language[strings.ToLower(language)]
	if !ok {
		return nil
	}
	return byKeyword[keyword]
}
