package slug

import (
	"strings"
	"unicode"
)

// translit maps common Latin letters with diacritics to ASCII.
var translit = map[rune]string{
	'ç': "c", 'ğ': "g", 'ı': "i", 'ö': "o", 'ş': "s", 'ü': "u",
	'ä': "a", 'ß': "ss", 'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
	'á': "a", 'à': "a", 'â': "a", 'å': "a", 'ã': "a",
	'í': "i", 'ì': "i", 'î': "i", 'ï': "i",
	'ó': "o", 'ò': "o", 'ô': "o", 'õ': "o", 'ø': "o",
	'ú': "u", 'ù': "u", 'û': "u", 'ñ': "n", 'æ': "ae", 'œ': "oe",
}

// Generate creates a URL- and filename-safe slug from name. Letters are
// lowercased and transliterated, runs of anything else collapse to a single
// hyphen, and the result is cut to at most maxLen bytes (0 means unlimited).
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Birthday Ideas 2026!" → "birthday-ideas-2026"
func Generate(name string, maxLen int) string {
	var b strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(name) {
		var out string
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			out = string(r)
		case unicode.Is(unicode.Mn, r):
			// Combining marks, e.g. the dot left behind by lowercasing 'İ'.
			continue
		default:
			out = translit[r]
		}

		if out == "" {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteString(out)
	}

	s := b.String()
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}
