package suggest

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// fallbackEncodings maps the configuration strings accepted by
// LocaleConfig.FallbackEncodings to their decoder.
var fallbackEncodings = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// DecodeFallback iterates the configured fallback encodings in order and
// returns the first one that decodes raw into valid UTF-8. Called only when
// raw is not already valid UTF-8, per the suggest pipeline's handling of
// patterns submitted in a legacy encoding.
func DecodeFallback(raw []byte, encodings []string) (string, bool) {
	for _, name := range encodings {
		enc, ok := fallbackEncodings[name]
		if !ok {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		if utf8.Valid(decoded) {
			return string(decoded), true
		}
	}
	return "", false
}

// NormalizePattern resolves a suggest pattern that may not be valid UTF-8:
// if raw decodes as UTF-8 already it is returned unchanged, otherwise each
// configured fallback encoding is tried in turn.
func NormalizePattern(raw string, encodings []string) (string, bool) {
	if utf8.Valid([]byte(raw)) {
		return raw, true
	}
	decoded, ok := DecodeFallback([]byte(raw), encodings)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(decoded), true
}
