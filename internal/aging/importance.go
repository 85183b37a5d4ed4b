// Package aging implements the Aging Engine's four sub-policies: effective
// importance, cleanup, consolidation, and the learning-rate boost (spec.md
// §4.7). All four are idempotent and safe to invoke repeatedly.
package aging

import (
	"time"

	"cortexmcp/internal/memtypes"
)

const msPerDay = float64(24 * time.Hour / time.Millisecond)

// importanceWriteThreshold is the minimum |new - current| delta that
// justifies a persistent write (spec.md §4.7.1).
const importanceWriteThreshold = 0.05

// EffectiveImportance computes base × decay × access_boost × recency_boost,
// clamped to [0.1, 1.0] (spec.md §4.7.1). It is a pure function of the item
// and the current time: the Ranker calls it per-candidate on every search,
// and the cleanup pass calls it to order over-cap items for deactivation.
// The computed value is not written back to storage.
func EffectiveImportance(item memtypes.Item, nowMs int64) float64 {
	ageDays := float64(nowMs-item.CreatedAt) / msPerDay
	if ageDays < 0 {
		ageDays = 0
	}
	decay := 1.0 / (1.0 + ageDays*0.02)

	accessBoost := 1.0 + 0.1*float64(item.AccessCount)
	if accessBoost > 2.0 {
		accessBoost = 2.0
	}

	recencyBoost := 1.0
	if item.LastAccessed > 0 {
		sinceAccessDays := float64(nowMs-item.LastAccessed) / msPerDay
		switch {
		case sinceAccessDays <= 1:
			recencyBoost = 1.3
		case sinceAccessDays <= 7:
			recencyBoost = 1.1
		}
	}

	effective := item.Importance * decay * accessBoost * recencyBoost
	return clamp(effective, 0.1, 1.0)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ShouldPersist reports whether newImportance differs enough from
// current to justify a storage write (spec.md §4.7.1).
func ShouldPersist(current, newImportance float64) bool {
	delta := newImportance - current
	if delta < 0 {
		delta = -delta
	}
	return delta > importanceWriteThreshold
}
