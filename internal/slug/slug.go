// internal/slug/slug.go
//
// Slug and path helpers.
//
// • Make(title) ─ converts arbitrary text into a URL-safe slug restricted to
//   ASCII a-z, 0-9 and “-”.
// • Valid(s) ─ reports whether s already has slug shape.
// • BuildPath(parent, slug) ─ joins parent path + slug with a single “/” and
//   guarantees exactly one leading slash.
//
// Rules (Make)
// ------------
// 1. Decompose and drop combining marks, so “Baião” becomes “Baiao” and
//    “Ação” becomes “Acao”.
// 2. Lower-case everything.
// 3. Convert any run of non-[a-z0-9] characters to one “-”.
// 4. Trim leading / trailing “-”.
// 5. If the result is empty, return "item".
//
// Notes
// -----
// • Slugs are max 100 bytes; callers may truncate earlier if they prefer.

package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 100

// Make converts title → lower-kebab ASCII.
func Make(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))

	lastWasDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			// punctuation, spaces, and leftover non-ASCII collapse to one dash
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "item"
	}
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// Valid reports whether s is non-empty, lower-case, hyphen-separated ASCII
// with no leading, trailing, or doubled dashes.
func Valid(s string) bool {
	if s == "" || len(s) > maxLen || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	prevDash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevDash = false
		case c == '-':
			if prevDash {
				return false
			}
			prevDash = true
		default:
			return false
		}
	}
	return true
}

// BuildPath joins parent + slug ensuring exactly one leading slash and no
// duplicate separators.
func BuildPath(parent, slug string) string {
	parent = strings.Trim(parent, "/")
	slug = strings.Trim(slug, "/")

	switch {
	case parent == "" && slug == "":
		return "/"
	case parent == "":
		return "/" + slug
	case slug == "":
		return "/" + parent
	default:
		return "/" + parent + "/" + slug
	}
}
