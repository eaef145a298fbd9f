// Package slug derives URL-safe identifiers from post titles.
package slug

import (
	"strings"

	gosimple "github.com/gosimple/slug"
)

// Derive lowercases title, transliterates it to ASCII and joins the
// remaining alphanumeric runs with single hyphens. It is deterministic and
// may return "" for titles without letters or digits.
func Derive(title string) string {
	s := gosimple.MakeLang(title, "en")
	// gosimple keeps underscores; the URL form only allows [a-z0-9-]
	s = strings.ReplaceAll(s, "_", "-")
	return collapse(s)
}

func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevDash := true
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
