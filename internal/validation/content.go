package validation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

const maxSanitizePasses = 4

// SanitizeText strips all markup from s and trims surrounding whitespace.
// Entities are decoded only while the decoded text stays free of markup, so
// "Tom &amp; Jerry" reads back as "Tom & Jerry" but "&lt;script&gt;" never
// turns into a tag. Input that does not settle keeps the escaped form.
func SanitizeText(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		cleaned := strictPolicy.Sanitize(s)
		decoded := html.UnescapeString(cleaned)
		if decoded == s {
			return strings.TrimSpace(decoded)
		}
		s = decoded
	}
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// SanitizeRichText keeps the safe subset of HTML a blog body may use.
func SanitizeRichText(s string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

// NormalizeTagNames trims names, drops empties and removes duplicates while
// keeping the first occurrence order.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := SanitizeText(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
