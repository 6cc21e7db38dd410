package suggest

import (
	"strconv"
	"strings"
	"unicode"
)

// Normalizer implements the suggest pipeline's normalization step: word
// splitting, suffix generation, and the collated/whitespace-stripped
// "treeword" key.
type Normalizer struct {
	collator          *Collator
	removeUnderscores bool
}

// NewNormalizer builds a Normalizer over the given collator.
func NewNormalizer(collator *Collator, removeUnderscores bool) *Normalizer {
	return &Normalizer{collator: collator, removeUnderscores: removeUnderscores}
}

// Key returns the normalized "treeword" for raw text: whitespace is removed
// before collating, so "Kumpula,Helsinki" and "Kumpula, Helsinki" share a
// key, and the collated key is case- and accent-insensitive; punctuation
// such as commas still counts. It is used both for the pattern a caller
// searches with and, via SuffixKeys, for trie entries.
func (n *Normalizer) Key(text string) string {
	if n.removeUnderscores {
		text = strings.ReplaceAll(text, "_", " ")
	}
	key := n.collator.Key(stripWhitespace(text))
	return stripWhitespace(key)
}

// Words splits text on whitespace and on the separators listed in
// isWordBoundaryPunct, discarding empty segments.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || isWordBoundaryPunct(r)
	})
}

// isWordBoundaryPunct reports whether r separates words for the purposes of
// suffix generation. Internal punctuation like apostrophes is kept so
// "O'Brien" stays one word; separators like commas and slashes split.
func isWordBoundaryPunct(r rune) bool {
	switch r {
	case ',', '/', ';', '(', ')':
		return true
	default:
		return false
	}
}

// SuffixKeys returns one normalized treeword per suffix of name's word
// sequence ("Ho Chi Minh City", "Chi Minh City", ..., "City"), each built by
// concatenating the suffix with ", area, geoid" before collating, so that
// entries for the same name-suffix but different locations get distinct
// trie keys while sharing a common collated prefix.
func (n *Normalizer) SuffixKeys(name, area string, geoid int64) []string {
	words := Words(name)
	if len(words) == 0 {
		return nil
	}
	keys := make([]string, 0, len(words))
	for i := range words {
		suffix := strings.Join(words[i:], " ")
		full := suffix + ", " + area + ", " + strconv.FormatInt(geoid, 10)
		keys = append(keys, n.Key(full))
	}
	return keys
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
