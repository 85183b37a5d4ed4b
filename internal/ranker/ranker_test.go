package ranker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cortexmcp/internal/memtypes"
)

func TestRankAppliesKindBoost(t *testing.T) {
	now := time.Now().UnixMilli()
	items := []memtypes.ScoredItem{
		{Item: memtypes.Item{ID: "a", Kind: memtypes.KindDependency, Importance: 0.5, CreatedAt: now, Timestamp: now}, Score: 1.0},
		{Item: memtypes.Item{ID: "b", Kind: memtypes.KindCorrection, Importance: 0.5, CreatedAt: now, Timestamp: now}, Score: 1.0},
	}

	ranked := Rank(items, Context{NowMs: now})
	assert.Equal(t, "b", ranked[0].Item.ID, "CORRECTION (x1.5) should outrank DEPENDENCY (x0.8) given equal base score")
}

func TestRankDebuggingQueryBoostsBugFix(t *testing.T) {
	now := time.Now().UnixMilli()
	items := []memtypes.ScoredItem{
		{Item: memtypes.Item{ID: "convention", Kind: memtypes.KindConvention, Importance: 0.5, CreatedAt: now, Timestamp: now}, Score: 1.0},
		{Item: memtypes.Item{ID: "bugfix", Kind: memtypes.KindBugFix, Importance: 0.5, CreatedAt: now, Timestamp: now}, Score: 1.0},
	}

	ranked := Rank(items, Context{Query: "why does this crash on startup", NowMs: now})
	assert.Equal(t, "bugfix", ranked[0].Item.ID)
}

func TestRankFileAffinityBoost(t *testing.T) {
	now := time.Now().UnixMilli()
	items := []memtypes.ScoredItem{
		{Item: memtypes.Item{ID: "unrelated", Kind: memtypes.KindInsight, Importance: 0.5, CreatedAt: now, Timestamp: now, RelatedFiles: []string{"other.go"}}, Score: 1.0},
		{Item: memtypes.Item{ID: "related", Kind: memtypes.KindInsight, Importance: 0.5, CreatedAt: now, Timestamp: now, RelatedFiles: []string{"main.go"}}, Score: 1.0},
	}

	ranked := Rank(items, Context{CurrentFile: "main.go", NowMs: now})
	assert.Equal(t, "related", ranked[0].Item.ID)
}

func TestRankStableTiebreakByTimestampThenID(t *testing.T) {
	now := time.Now().UnixMilli()
	items := []memtypes.ScoredItem{
		{Item: memtypes.Item{ID: "z", Kind: memtypes.KindInsight, Importance: 0.5, CreatedAt: now, Timestamp: now}, Score: 1.0},
		{Item: memtypes.Item{ID: "a", Kind: memtypes.KindInsight, Importance: 0.5, CreatedAt: now, Timestamp: now}, Score: 1.0},
	}

	ranked := Rank(items, Context{NowMs: now})
	assert.Equal(t, "a", ranked[0].Item.ID, "identical scores and timestamps break ties by lexicographic id")
}

func TestClassifyAttentionModes(t *testing.T) {
	assert.Equal(t, ModeDebugging, classifyAttention("fix the crash in login"))
	assert.Equal(t, ModeRefactoring, classifyAttention("refactor the ranker package"))
	assert.Equal(t, ModeReview, classifyAttention("review this diff"))
	assert.Equal(t, ModeCoding, classifyAttention("add a new endpoint"))
}
