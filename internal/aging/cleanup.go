package aging

import (
	"fmt"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/textnorm"
)

// defaultActiveCap is the soft ceiling on active items (spec.md §5).
const defaultActiveCap = 500

const (
	insightMaxAgeDays = 14
	anyKindMaxAgeDays = 30
)

// Engine holds the active-item cap and runs Cleanup against a store;
// Consolidate and LearningRateBoost are package-level functions.
type Engine struct {
	cap int
}

// New constructs an Engine with the default active-item cap.
func New() *Engine {
	return &Engine{cap: defaultActiveCap}
}

// WithCap overrides the active-item cap. Only tests call it: the assembler
// builds its engine with New, so the configured limits.active_item_cap
// does not reach Cleanup.
func (e *Engine) WithCap(cap int) *Engine {
	e.cap = cap
	return e
}

// CleanupStats reports what a Cleanup pass did.
type CleanupStats struct {
	DeactivatedStale   int
	DeactivatedOverCap int
	MergedDuplicates   int
}

// storeWithImportance is the subset of *memory.Store the aging engine
// depends on, kept as an interface so Cleanup/Consolidate can be tested
// without a real database.
type storeWithImportance interface {
	GetActive(limit int) ([]memtypes.Item, error)
	Deactivate(id string, supersededBy string) error
	SetImportance(id string, importance float64) error
	AddAccessCount(id string, delta int) error
	TotalCount() (int, error)
}

// Cleanup implements spec.md §4.7.2: stale-item deactivation, over-cap
// trimming, and identical-intent merging. Idempotent.
func (e *Engine) Cleanup(s storeWithImportance, nowMs int64) (CleanupStats, error) {
	timer := logging.StartTimer(logging.CategoryAging, "Cleanup")
	defer timer.Stop()

	var stats CleanupStats

	active, err := s.GetActive(e.cap * 4)
	if err != nil {
		return stats, fmt.Errorf("load active items: %w", err)
	}

	for _, item := range active {
		if item.AccessCount != 0 {
			continue
		}
		ageDays := float64(nowMs-item.CreatedAt) / msPerDay
		stale := (item.Kind == memtypes.KindInsight && ageDays >= insightMaxAgeDays) || ageDays >= anyKindMaxAgeDays
		if !stale {
			continue
		}
		if err := s.Deactivate(item.ID, ""); err != nil {
			return stats, fmt.Errorf("deactivate stale item %s: %w", item.ID, err)
		}
		stats.DeactivatedStale++
	}

	// Re-fetch: the stale pass above may have shrunk the active set.
	active, err = s.GetActive(e.cap * 4)
	if err != nil {
		return stats, fmt.Errorf("reload active items: %w", err)
	}

	if len(active) > e.cap {
		sortByImportanceAsc(active, nowMs)
		excess := len(active) - e.cap
		for i := 0; i < excess; i++ {
			if err := s.Deactivate(active[i].ID, ""); err != nil {
				return stats, fmt.Errorf("deactivate over-cap item %s: %w", active[i].ID, err)
			}
			stats.DeactivatedOverCap++
		}
		active = active[excess:]
	}

	merged, err := mergeIdenticalIntents(s, active)
	if err != nil {
		return stats, fmt.Errorf("merge identical intents: %w", err)
	}
	stats.MergedDuplicates = merged

	return stats, nil
}

func sortByImportanceAsc(items []memtypes.Item, nowMs int64) {
	// Simple insertion sort: active-item volumes here are bounded by the
	// cap (a few hundred), so this stays cheap without importing sort for
	// a one-off ascending-by-computed-key ordering.
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && EffectiveImportance(items[j-1], nowMs) > EffectiveImportance(items[j], nowMs) {
			items[j-1], items[j] = items[j], items[j-1]
			j--
		}
	}
}

// mergeIdenticalIntents groups active items by normalized intent within
// each kind; keeps the highest-importance member, folds the others'
// access_count into it, bumps its importance, and deactivates the rest
// with superseded_by set (spec.md §4.7.2).
func mergeIdenticalIntents(s storeWithImportance, items []memtypes.Item) (int, error) {
	type groupKey struct {
		kind   memtypes.Kind
		intent string
	}
	groups := make(map[groupKey][]memtypes.Item)
	for _, item := range items {
		key := groupKey{kind: item.Kind, intent: textnorm.NormalizeIntent(item.Intent)}
		groups[key] = append(groups[key], item)
	}

	merged := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		best := group[0]
		for _, candidate := range group[1:] {
			if candidate.Importance > best.Importance {
				best = candidate
			}
		}

		newImportance := best.Importance + 0.05*float64(len(group)-1)
		if newImportance > 1.0 {
			newImportance = 1.0
		}
		if err := s.SetImportance(best.ID, newImportance); err != nil {
			return merged, err
		}

		for _, member := range group {
			if member.ID == best.ID {
				continue
			}
			if err := s.AddAccessCount(best.ID, member.AccessCount); err != nil {
				return merged, err
			}
			if err := s.Deactivate(member.ID, best.ID); err != nil {
				return merged, err
			}
			merged++
		}
	}

	return merged, nil
}
