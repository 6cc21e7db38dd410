package suggest

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator produces primary-strength sort keys: case-, accent-, and
// width-insensitive, matching the Nordic test cases that require
// "Ä"/"ä"/"A"/"a" to collate together. Collator is safe for concurrent use;
// each call borrows its own Buffer.
type Collator struct {
	c *collate.Collator
}

// NewCollator builds a Collator for the given locale string (e.g.
// "fi_FI.UTF-8", "en_US", "sv"). An unparseable locale falls back to
// language.Und, which still yields a stable, if not linguistically tuned,
// primary-strength ordering.
func NewCollator(locale string) *Collator {
	tag := parseLocale(locale)
	return &Collator{
		c: collate.New(tag, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth),
	}
}

// Key returns s's primary-strength collation key as a string, with any
// trailing NUL byte the underlying library appends stripped, per the
// engine's handling of libraries that terminate sort keys with a null byte.
func (c *Collator) Key(s string) string {
	var buf collate.Buffer
	key := c.c.KeyFromString(&buf, s)
	return strings.TrimRight(string(key), "\x00")
}

func parseLocale(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.Und
	}
	// Strip a trailing ".UTF-8"/".utf8"-style encoding suffix and convert
	// POSIX-style underscores to BCP47 hyphens (e.g. "fi_FI.UTF-8" -> "fi-FI").
	if idx := strings.IndexByte(locale, '.'); idx >= 0 {
		locale = locale[:idx]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und
	}
	return tag
}
