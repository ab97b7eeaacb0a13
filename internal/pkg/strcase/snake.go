package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts a camel or Pascal case identifier to snake_case.
// Acronyms are kept together: "HTTPServer" becomes "http_server" and
// "userID" becomes "user_id".
func ToLowerSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]

			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}

			// Break before an upper rune when the previous rune ends a word,
			// or when an acronym is followed by a new word.
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && next != 0 && unicode.IsLower(next)) {
				b.WriteByte('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
