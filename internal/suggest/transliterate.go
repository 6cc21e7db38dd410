// Package suggest additions: the ASCII transliteration name-variant layer.
// Both the original and the transliterated forms stay searchable; this is
// never a replacement for the original name.
package suggest

import "github.com/mozillazg/go-unidecode"

// Transliterate converts name to its closest ASCII approximation (e.g.
// "Äänekoski" -> "Aanekoski"). Callers add the transliterated form's
// normalized keys as additional trie entries only when it differs from the
// original name.
func Transliterate(name string) string {
	return unidecode.Unidecode(name)
}
