package engine

import "fmt"

// Options carries the per-query parameters that vary the cache key and the
// candidate set a search considers: the language results are translated
// into, the keyword scoping the search (defaults to the synthetic "all"
// keyword), and an optional result-count limit (0 means unlimited).
type Options struct {
	Language    string
	Keyword     string
	ResultLimit int
}

// hash returns a stable, cache-key-safe encoding of o, combined by the
// caller with the query-specific part of the key.
func (o Options) hash() string {
	return fmt.Sprintf("%s|%s|%d", o.Language, o.Keyword, o.ResultLimit)
}

func (o Options) keywordOrDefault(defaultKeyword string) string {
	if o.Keyword == "" {
		return defaultKeyword
	}
	return o.Keyword
}
