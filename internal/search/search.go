// Package search prepares free-text terms for the product search index.
//
// Terms are sanitized down to word characters, split on whitespace, and turned
// into an OR-combined prefix tsquery evaluated against the derived search
// table. Matching is deliberately broad: tokens widen the result set, ranking
// narrows it.
package search

import (
	"regexp"
	"strings"
)

// nonWord matches anything outside letters (any script, Hangul included),
// digits, underscore, and whitespace.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Sanitize strips characters that have no place in a search token. The result
// may be empty, which callers must treat as "no text filter".
func Sanitize(term string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(term, " "))
}

// Tokens splits a raw term into sanitized search tokens.
func Tokens(term string) []string {
	return strings.Fields(Sanitize(term))
}

// PrefixQuery builds a to_tsquery expression with one prefix clause per token,
// combined with OR: "scan lens" -> "scan:* | lens:*". An empty return value
// means the term sanitized away entirely and no text clause should be emitted.
func PrefixQuery(term string) string {
	tokens := Tokens(term)
	if len(tokens) == 0 {
		return ""
	}

	clauses := make([]string, len(tokens))
	for i, tok := range tokens {
		clauses[i] = tok + ":*"
	}
	return strings.Join(clauses, " | ")
}

// SKUPattern builds the ILIKE pattern for the parallel SKU match. It uses the
// raw trimmed term, not the sanitized tokens, so punctuation-heavy SKUs still
// match literally. LIKE wildcards in the input are escaped.
func SKUPattern(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}
