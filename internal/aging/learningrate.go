package aging

import (
	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/textnorm"
)

const (
	learningRateFloorThree = 0.95
	learningRateFloorTwo   = 0.85
)

// LearningRateBoost implements spec.md §4.7.4: for each topic token
// appearing in ≥3 active CORRECTION items, raise every contributing item's
// importance to at least 0.95; for ≥2, at least 0.85. Idempotent: raising
// an already-higher importance is a no-op.
func LearningRateBoost(s storeWithImportance) (int, error) {
	timer := logging.StartTimer(logging.CategoryAging, "LearningRateBoost")
	defer timer.Stop()

	corrections, err := s.GetActive(10000)
	if err != nil {
		return 0, err
	}

	byTopic := make(map[string][]memtypes.Item)
	for _, item := range corrections {
		if item.Kind != memtypes.KindCorrection {
			continue
		}
		for token := range textnorm.TokenSet(item.Intent) {
			byTopic[token] = append(byTopic[token], item)
		}
	}

	// An item can belong to several topic groups at once (one per token in
	// its intent), each with its own floor. Map iteration order over
	// byTopic is randomized, so writing SetImportance per-group against the
	// item's stale in-memory Importance would make the final value
	// order-dependent: a ≥2 group could overwrite 0.85 after a ≥3 group
	// already wrote 0.95. Collect the highest floor each item qualifies
	// for across every group first, then write once per item.
	floors := make(map[string]float64)
	items := make(map[string]memtypes.Item)
	for _, group := range byTopic {
		if len(group) < 2 {
			continue
		}
		floor := learningRateFloorTwo
		if len(group) >= 3 {
			floor = learningRateFloorThree
		}
		for _, item := range group {
			items[item.ID] = item
			if floor > floors[item.ID] {
				floors[item.ID] = floor
			}
		}
	}

	boosted := 0
	for id, floor := range floors {
		if items[id].Importance >= floor {
			continue
		}
		if err := s.SetImportance(id, floor); err != nil {
			return boosted, err
		}
		boosted++
	}

	return boosted, nil
}
