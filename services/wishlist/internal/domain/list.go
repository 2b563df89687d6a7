package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DefaultListName is used when a list is created without a usable name.
const DefaultListName = "My Wishlist"

// List is a named collection of wishlisted products held by one owner.
type List struct {
	ID        string    `json:"id"`
	Owner     Owner     `json:"-"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the list belongs to o.
func (l *List) OwnedBy(o Owner) bool {
	return !o.IsZero() && l.Owner == o
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeName strips markup and control characters from a list name,
// collapses whitespace and truncates to maxLen runes. A blank result falls
// back to fallback.
func SanitizeName(name string, maxLen int, fallback string) string {
	name = tagPattern.ReplaceAllString(name, "")
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		runes := []rune(name)
		name = strings.TrimSpace(string(runes[:maxLen]))
	}
	if name == "" {
		return fallback
	}
	return name
}
