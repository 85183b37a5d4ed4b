// Package ranker applies the Ranker's multiplicative boosts to a fused
// candidate list and produces the final ordering (spec.md §4.6).
package ranker

import (
	"sort"
	"strings"
	"time"

	"cortexmcp/internal/aging"
	"cortexmcp/internal/memtypes"
)

// kindBoost is the per-kind multiplier (spec.md §4.6).
var kindBoost = map[memtypes.Kind]float64{
	memtypes.KindCorrection:       1.5,
	memtypes.KindDecision:         1.3,
	memtypes.KindConvention:       1.2,
	memtypes.KindBugFix:           1.1,
	memtypes.KindInsight:          1.0,
	memtypes.KindFailedSuggestion: 1.0,
	memtypes.KindProvenPattern:    1.0,
	memtypes.KindDependency:       0.8,
}

const (
	dayMs  = int64(24 * time.Hour / time.Millisecond)
	weekMs = 7 * dayMs
)

// Context carries the optional signals the Ranker uses for the file
// affinity and attention boosts (spec.md §4.6, §4.6.1).
type Context struct {
	Query       string
	CurrentFile string
	NowMs       int64
}

// Rank multiplies each item's fused score by the kind/access/recency/
// file-affinity/attention/confidence-decay boosts, then stably sorts
// descending with the storage tiebreak (spec.md §4.6).
func Rank(items []memtypes.ScoredItem, ctx Context) []memtypes.ScoredItem {
	now := ctx.NowMs
	if now == 0 {
		now = time.Now().UnixMilli()
	}
	mode := classifyAttention(ctx.Query)

	ranked := make([]memtypes.ScoredItem, len(items))
	copy(ranked, items)

	for i := range ranked {
		item := ranked[i].Item
		score := ranked[i].Score

		score *= kindBoost[item.Kind]
		score *= 1 + 0.1*float64(item.AccessCount)
		score *= recencyBoost(now, item.Timestamp)
		if ctx.CurrentFile != "" && fileAffinityMatch(ctx.CurrentFile, item.RelatedFiles) {
			score *= 1.5
		}
		score *= attentionBoost(mode, item.Kind)
		score *= aging.EffectiveImportance(item, now)

		ranked[i].Score = score
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Item.Timestamp != ranked[j].Item.Timestamp {
			return ranked[i].Item.Timestamp > ranked[j].Item.Timestamp
		}
		return ranked[i].Item.ID < ranked[j].Item.ID
	})

	return ranked
}

func recencyBoost(now, timestamp int64) float64 {
	age := now - timestamp
	switch {
	case age < dayMs:
		return 1.5
	case age < weekMs:
		return 1.2
	default:
		return 1.0
	}
}

func fileAffinityMatch(currentFile string, relatedFiles []string) bool {
	for _, f := range relatedFiles {
		if strings.Contains(currentFile, f) || strings.Contains(f, currentFile) {
			return true
		}
	}
	return false
}

// AttentionMode is the inferred intent category driving §4.6.1's extra
// per-mode boosts.
type AttentionMode string

const (
	ModeDebugging   AttentionMode = "debugging"
	ModeRefactoring AttentionMode = "refactoring"
	ModeReview      AttentionMode = "review"
	ModeCoding      AttentionMode = "coding"
)

var modeKeywords = map[AttentionMode][]string{
	ModeDebugging:   {"fix", "bug", "crash", "error", "broken", "issue", "regression"},
	ModeRefactoring: {"refactor", "rewrite", "restructure", "clean"},
	ModeReview:      {"review", "audit", "check"},
}

// ClassifyAttention infers the attention mode from the raw query (spec.md
// §4.6.1). Defaults to coding. Exported for the Context Assembler's L2
// attention label.
func ClassifyAttention(query string) AttentionMode {
	return classifyAttention(query)
}

// classifyAttention infers the attention mode from the raw query (spec.md
// §4.6.1). Defaults to coding.
func classifyAttention(query string) AttentionMode {
	lower := strings.ToLower(query)
	for _, mode := range []AttentionMode{ModeDebugging, ModeRefactoring, ModeReview} {
		for _, kw := range modeKeywords[mode] {
			if strings.Contains(lower, kw) {
				return mode
			}
		}
	}
	return ModeCoding
}

// attentionBoost applies the extra per-mode, per-kind multiplier on top of
// the base kind boost (spec.md §4.6.1).
func attentionBoost(mode AttentionMode, kind memtypes.Kind) float64 {
	switch mode {
	case ModeDebugging:
		switch kind {
		case memtypes.KindBugFix:
			return 1.4
		case memtypes.KindCorrection:
			return 1.1
		}
	case ModeRefactoring:
		switch kind {
		case memtypes.KindConvention:
			return 1.3
		case memtypes.KindProvenPattern:
			return 1.2
		}
	case ModeReview:
		switch kind {
		case memtypes.KindCorrection:
			return 1.2
		case memtypes.KindDecision:
			return 1.1
		}
	case ModeCoding:
		switch kind {
		case memtypes.KindConvention:
			return 1.2
		case memtypes.KindDecision:
			return 1.1
		}
	}
	return 1.0
}
