// Package quality implements the pure predicate that rejects short,
// generic, or duplicate content before it reaches storage (spec.md §4.3).
package quality

import (
	"fmt"
	"regexp"
	"strings"

	"cortexmcp/internal/textnorm"
)

// Rule names surfaced in a Rejection, for the RPC adapter's structured
// "rejected" error text.
const (
	RuleTooShort      = "too_short"
	RuleTooLong       = "too_long"
	RuleGenericPhrase = "generic_phrase"
	RuleAllCaps       = "all_caps"
	RuleRepeatedChar  = "repeated_char"
	RuleBareURL       = "bare_url"
	RuleWhitespace    = "whitespace_only"
)

// storeContentMax is the §4.3 quality-layer bound; store_memory's 5000-char
// bound at the RPC boundary (spec.md §6, §8) is enforced by the RPC
// adapter, not here.
const (
	minContentLen    = 15
	storeContentMax  = 500
	allCapsMinLength = 20
	maxRepeatedChar  = 8
)

var (
	urlPattern    = regexp.MustCompile(`^\s*(https?://|www\.)\S+\s*$`)
	genericPhrases = []string{
		"use best practices",
		"follow conventions",
		"handle errors",
		"write clean code",
		"add proper error handling",
		"make it more robust",
	}
)

// Rejection describes why content failed the quality gate.
type Rejection struct {
	Rule    string
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// reject builds a Rejection value and formats its message consistently.
func reject(rule, format string, args ...interface{}) *Rejection {
	return &Rejection{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Check runs the non-dedup rules of the quality gate against raw content
// (spec.md §4.3). A nil return means the content may proceed to the dedup
// check and then storage.
func Check(content string) *Rejection {
	trimmed := strings.TrimSpace(content)

	if trimmed == "" {
		return reject(RuleWhitespace, "content is empty or whitespace-only")
	}
	if len(trimmed) < minContentLen {
		return reject(RuleTooShort, "content is %d characters, minimum is %d", len(trimmed), minContentLen)
	}
	if len(trimmed) > storeContentMax {
		return reject(RuleTooLong, "content is %d characters, maximum is %d", len(trimmed), storeContentMax)
	}
	if urlPattern.MatchString(trimmed) {
		return reject(RuleBareURL, "content is a bare URL")
	}
	if len(trimmed) > allCapsMinLength && isAllCaps(trimmed) {
		return reject(RuleAllCaps, "content is all-caps and longer than %d characters", allCapsMinLength)
	}
	if hasExcessiveRepeat(trimmed, maxRepeatedChar) {
		return reject(RuleRepeatedChar, "a character repeats more than %d times consecutively", maxRepeatedChar)
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return reject(RuleGenericPhrase, "content matches the generic-phrase blacklist (%q)", phrase)
		}
	}
	return nil
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func hasExcessiveRepeat(s string, max int) bool {
	if len(s) == 0 {
		return false
	}
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run > max {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// DedupThreshold is the Jaccard similarity at or above which a new intent
// is considered a duplicate of an existing active item of the same kind
// (spec.md §4.3 — "dedup, not reject").
const DedupThreshold = 0.7

// IsDuplicateIntent reports whether candidate is similar enough to
// existing to be treated as the same memory, per the canonical tokenizer.
func IsDuplicateIntent(candidate, existing string) bool {
	return textnorm.Jaccard(candidate, existing) >= DedupThreshold
}
