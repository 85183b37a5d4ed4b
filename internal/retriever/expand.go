package retriever

import "strings"

// maxExpandedTerms bounds the expanded query to at most 8 terms total
// (spec.md §4.5).
const maxExpandedTerms = 8

// expandQuery tokenizes query on whitespace, drops tokens ≤ 2 chars,
// lowercases, and grows the token set via the synonym map up to
// maxExpandedTerms, then joins with FTS5's OR operator. If query reduces
// to zero usable tokens, the original raw query is returned unchanged so
// the caller can still attempt a literal FTS match.
func expandQuery(query string) string {
	seen := make(map[string]bool)
	var terms []string

	addTerm := func(t string) bool {
		if seen[t] || len(terms) >= maxExpandedTerms {
			return false
		}
		seen[t] = true
		terms = append(terms, t)
		return true
	}

	for _, raw := range strings.Fields(query) {
		tok := strings.ToLower(raw)
		if len(tok) <= 2 {
			continue
		}
		if !addTerm(tok) {
			continue
		}
		for _, syn := range synonyms[tok] {
			if len(terms) >= maxExpandedTerms {
				break
			}
			addTerm(syn)
		}
	}

	if len(terms) == 0 {
		return query
	}
	return strings.Join(terms, " OR ")
}
