package memory

import (
	"fmt"
	"strings"
	"time"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/textnorm"
)

// defaultContradictionThreshold is the Jaccard similarity floor used when
// the adaptive_config override (spec.md §9 open question) is absent.
const defaultContradictionThreshold = 0.5

var negationMarkers = []string{"never", "avoid", "don't", "do not", "stop ", "shouldn't", "should not"}

// detectContradiction looks for an active item of the same kind whose
// intent negates item's intent (spec.md §4.8.2). On a match it
// deactivates the older item, records a SUPERSEDED_BY edge, and returns
// its id; otherwise it returns "".
func (s *Store) detectContradiction(item memtypes.Item) (string, error) {
	threshold := s.contradictionThreshold

	candidates, err := s.db.GetByKind(item.Kind, 500)
	if err != nil {
		return "", fmt.Errorf("contradiction scan: %w", err)
	}

	for _, other := range candidates {
		if other.ID == item.ID {
			continue
		}
		if !mutuallyExclusive(item.Intent, other.Intent) {
			continue
		}
		if textnorm.Jaccard(item.Intent, other.Intent) < threshold {
			continue
		}

		older, newer := other, item
		if newer.CreatedAt < older.CreatedAt {
			older, newer = newer, older
		}

		if err := s.db.DeactivateItem(older.ID, newer.ID); err != nil {
			return "", fmt.Errorf("deactivate superseded item: %w", err)
		}
		if err := s.db.InsertEdge(memtypes.Edge{
			SourceID:  older.ID,
			TargetID:  newer.ID,
			Relation:  memtypes.RelationSupersededBy,
			Weight:    1.0,
			Timestamp: time.Now().UnixMilli(),
		}); err != nil {
			return "", fmt.Errorf("insert superseded_by edge: %w", err)
		}
		logging.Get(logging.CategoryMemory).Info("contradiction: %s superseded by %s", older.ID, newer.ID)
		return older.ID, nil
	}

	return "", nil
}

// mutuallyExclusive reports whether a and b assert opposite things
// (spec.md §4.8.2's "use X" vs "never X"/"avoid X" heuristic). The simple
// case is one side carrying a negation marker and the other not. When both
// sides carry one ("Always use const, never var" vs "Always use var,
// never const") that test is blind, so the markers' subjects have to be
// compared directly: which token is negated, not just whether a negation
// marker is present anywhere in the string.
func mutuallyExclusive(a, b string) bool {
	an, bn := hasNegation(a), hasNegation(b)
	if an != bn {
		return true
	}
	if !an {
		return false
	}

	negA, negB := negatedTokens(a), negatedTokens(b)
	if len(negA) == 0 || len(negB) == 0 || sameTokenSet(negA, negB) {
		return false
	}

	assertedA := tokensExcluding(textnorm.TokenSet(a), negA)
	assertedB := tokensExcluding(textnorm.TokenSet(b), negB)

	return tokenSetsIntersect(negA, assertedB) || tokenSetsIntersect(negB, assertedA)
}

func hasNegation(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range negationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// negatedTokens returns the token immediately following each negation
// marker found in s: the subject the marker is actually attached to,
// e.g. "never var" yields {"var"}, not just "this text has a negation".
func negatedTokens(s string) map[string]bool {
	lower := strings.ToLower(s)
	out := make(map[string]bool)
	for _, marker := range negationMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(marker):]
		toks := textnorm.Tokenize(rest)
		if len(toks) > 0 {
			out[toks[0]] = true
		}
	}
	return out
}

// negationMarkerTokens is the tokenized form of negationMarkers, excluded
// from the "asserted" side of a statement so a marker word itself never
// counts as something the statement asserts.
var negationMarkerTokens = func() map[string]bool {
	out := make(map[string]bool)
	for _, marker := range negationMarkers {
		for _, t := range textnorm.Tokenize(marker) {
			out[t] = true
		}
	}
	return out
}()

// tokensExcluding returns set minus every token in excl and minus the
// negation marker vocabulary.
func tokensExcluding(set, excl map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for t := range set {
		if excl[t] || negationMarkerTokens[t] {
			continue
		}
		out[t] = true
	}
	return out
}

func sameTokenSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for t := range a {
		if !b[t] {
			return false
		}
	}
	return true
}

func tokenSetsIntersect(a, b map[string]bool) bool {
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

// parseThreshold parses the adaptive_config string value into a float64.
func parseThreshold(raw string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(raw, "%g", &f)
	return f, err
}
