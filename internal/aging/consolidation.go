package aging

import (
	"fmt"
	"sort"
	"strings"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/textnorm"
)

// consolidationActiveFloor is the minimum active-item count that triggers
// consolidation at all (spec.md §4.7.3).
const consolidationActiveFloor = 50

// consolidationMinKindGroup is the minimum same-kind population required
// before that kind is scanned for consolidation groups.
const consolidationMinKindGroup = 3

// consolidationJaccardFloor is the pairwise-to-seed similarity threshold
// for joining a consolidation group.
const consolidationJaccardFloor = 0.5

// consolidationMinGroupSize is the minimum group size that gets
// synthesized into a merged item.
const consolidationMinGroupSize = 3

// edgeWriter is the subset of *memory.Store consolidation needs beyond
// storeWithImportance: writing the new synthesized item and its
// REPLACED_BY edges.
type edgeWriter interface {
	storeWithImportance
	InsertItemDirect(item memtypes.Item) error
	AddEdge(edge memtypes.Edge) error
}

// ConsolidationStats reports what a Consolidate pass did.
type ConsolidationStats struct {
	GroupsSynthesized int
	ItemsDeactivated  int
}

// Consolidate implements spec.md §4.7.3: when active count exceeds 50, scan
// each kind with ≥3 items for Jaccard-similar clusters (≥0.5 to a seed),
// synthesize a merged item for clusters of size ≥3, and supersede the
// originals with REPLACED_BY edges. Idempotent: a second run over
// already-consolidated (now inactive) originals finds nothing to group.
func Consolidate(s edgeWriter, newID func() string, nowMs int64) (ConsolidationStats, error) {
	timer := logging.StartTimer(logging.CategoryAging, "Consolidate")
	defer timer.Stop()

	var stats ConsolidationStats

	active, err := s.GetActive(10000)
	if err != nil {
		return stats, fmt.Errorf("load active items: %w", err)
	}
	if len(active) <= consolidationActiveFloor {
		return stats, nil
	}

	byKind := make(map[memtypes.Kind][]memtypes.Item)
	for _, item := range active {
		byKind[item.Kind] = append(byKind[item.Kind], item)
	}

	for kind, items := range byKind {
		if len(items) < consolidationMinKindGroup {
			continue
		}
		groups := groupBySeed(items)
		for _, group := range groups {
			if len(group) < consolidationMinGroupSize {
				continue
			}
			if err := synthesizeGroup(s, newID, kind, group, nowMs); err != nil {
				return stats, fmt.Errorf("synthesize group for kind %s: %w", kind, err)
			}
			stats.GroupsSynthesized++
			stats.ItemsDeactivated += len(group)
		}
	}

	return stats, nil
}

// groupBySeed forms clusters where every member has Jaccard similarity
// ≥ consolidationJaccardFloor to the group's seed (the first ungrouped
// item encountered). Each item belongs to at most one group.
func groupBySeed(items []memtypes.Item) [][]memtypes.Item {
	used := make([]bool, len(items))
	var groups [][]memtypes.Item

	for i := range items {
		if used[i] {
			continue
		}
		seed := items[i]
		group := []memtypes.Item{seed}
		used[i] = true

		for j := i + 1; j < len(items); j++ {
			if used[j] {
				continue
			}
			if textnorm.Jaccard(seed.Intent, items[j].Intent) >= consolidationJaccardFloor {
				group = append(group, items[j])
				used[j] = true
			}
		}
		groups = append(groups, group)
	}

	return groups
}

func synthesizeGroup(s edgeWriter, newID func() string, kind memtypes.Kind, group []memtypes.Item, nowMs int64) error {
	topic := topicWords(group)

	avgImportance := 0.0
	var files, tags []string
	seenFiles := make(map[string]bool)
	seenTags := make(map[string]bool)
	for _, item := range group {
		avgImportance += item.Importance
		for _, f := range item.RelatedFiles {
			if !seenFiles[f] {
				seenFiles[f] = true
				files = append(files, f)
			}
		}
		for _, tag := range item.Tags {
			if !seenTags[tag] {
				seenTags[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	avgImportance /= float64(len(group))
	if !seenTags["consolidated"] {
		tags = append(tags, "consolidated")
	}

	merged := memtypes.Item{
		ID:           newID(),
		Kind:         kind,
		Intent:       fmt.Sprintf("Recurring %s pattern (%d occurrences): %s", strings.ToLower(string(kind)), len(group), topic),
		CreatedAt:    nowMs,
		Timestamp:    nowMs,
		Confidence:   0.8,
		Importance:   clamp(avgImportance*1.2, 0.1, 1.0),
		IsActive:     true,
		RelatedFiles: files,
		Tags:         tags,
	}

	if err := s.InsertItemDirect(merged); err != nil {
		return fmt.Errorf("insert synthesized item: %w", err)
	}

	for _, original := range group {
		if err := s.Deactivate(original.ID, merged.ID); err != nil {
			return fmt.Errorf("deactivate original %s: %w", original.ID, err)
		}
		if err := s.AddEdge(memtypes.Edge{
			SourceID:  original.ID,
			TargetID:  merged.ID,
			Relation:  memtypes.RelationReplacedBy,
			Weight:    1.0,
			Timestamp: nowMs,
		}); err != nil {
			return fmt.Errorf("insert replaced_by edge for %s: %w", original.ID, err)
		}
	}

	return nil
}

// topicWords extracts the most frequent non-stopword tokens across a
// group's intents, for the synthesized item's "topic words" clause.
func topicWords(group []memtypes.Item) string {
	counts := make(map[string]int)
	for _, item := range group {
		for token := range textnorm.TokenSet(item.Intent) {
			counts[token]++
		}
	}

	type tokenCount struct {
		token string
		count int
	}
	var ranked []tokenCount
	for token, count := range counts {
		ranked = append(ranked, tokenCount{token, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})

	limit := 5
	if len(ranked) < limit {
		limit = len(ranked)
	}
	words := make([]string, limit)
	for i := 0; i < limit; i++ {
		words[i] = ranked[i].token
	}
	return strings.Join(words, ", ")
}
