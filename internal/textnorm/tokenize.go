// Package textnorm holds the single canonical tokenizer and similarity
// helpers shared by the quality gate, dedup rule, contradiction detection,
// hot-correction topic extraction, and consolidation (spec.md §9: "Keeping
// it in a single place is required for invariant 3 to hold").
package textnorm

import (
	"strings"
	"unicode"
)

// stopWords is the small stop-word set dropped during tokenization.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "this": true, "that": true,
	"it": true, "its": true, "as": true, "from": true, "into": true, "not": true,
}

// Tokenize lowercases text, strips punctuation, and drops tokens of length
// <= 2 and stop words. This is the canonical tokenizer referenced
// throughout spec.md §4.3/§4.7/§9.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	out := tokens[:0]
	for _, t := range tokens {
		if len(t) > 2 && !stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// TokenSet returns Tokenize(text) deduplicated into a set.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(text) {
		set[t] = true
	}
	return set
}

// Jaccard computes intersection-over-union of the two texts' token sets,
// per the canonical tokenizer. Two empty sets have similarity 0.
func Jaccard(a, b string) float64 {
	return JaccardSets(TokenSet(a), TokenSet(b))
}

// JaccardSets computes Jaccard similarity directly over two token sets.
func JaccardSets(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// NormalizeIntent lowercases and collapses whitespace, for use as the
// (kind, normalized-intent) uniqueness key (spec.md §3 invariant 3).
func NormalizeIntent(intent string) string {
	fields := strings.Fields(strings.ToLower(intent))
	return strings.Join(fields, " ")
}
