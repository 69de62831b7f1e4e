// Package slug provides URL-friendly slug generation from catalog names.
package slug

import (
	"regexp"
	"strings"
)

var (
	// disallowed matches anything that isn't a lowercase latin letter, a
	// digit, Hangul, a space, or a hyphen. Korean product names keep their
	// script in the slug.
	disallowed = regexp.MustCompile(`[^a-z0-9\p{Hangul}\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Make creates a URL-friendly slug from the given string.
// Example: "Scan Lens 2.0 (F-Theta)" -> "scan-lens-20-f-theta"
func Make(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = disallowed.ReplaceAllString(result, "")
	result = strings.Join(strings.Fields(result), "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
