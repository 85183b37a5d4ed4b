package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cortexmcp/internal/memtypes"
)

func TestEffectiveImportanceDecaysWithAge(t *testing.T) {
	now := time.Now().UnixMilli()
	fresh := memtypes.Item{Importance: 0.8, CreatedAt: now, AccessCount: 0}
	old := memtypes.Item{Importance: 0.8, CreatedAt: now - int64(100*msPerDay), AccessCount: 0}

	assert.Greater(t, EffectiveImportance(fresh, now), EffectiveImportance(old, now))
}

func TestEffectiveImportanceClampedToRange(t *testing.T) {
	now := time.Now().UnixMilli()
	ancient := memtypes.Item{Importance: 0.2, CreatedAt: now - int64(5000*msPerDay)}
	assert.GreaterOrEqual(t, EffectiveImportance(ancient, now), 0.1)

	heavilyAccessed := memtypes.Item{Importance: 1.0, CreatedAt: now, AccessCount: 100, LastAccessed: now}
	assert.LessOrEqual(t, EffectiveImportance(heavilyAccessed, now), 1.0)
}

func TestShouldPersistRespectsThreshold(t *testing.T) {
	assert.False(t, ShouldPersist(0.5, 0.52))
	assert.True(t, ShouldPersist(0.5, 0.6))
}
