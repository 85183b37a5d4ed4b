package aging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexmcp/internal/memtypes"
)

type fakeStore struct {
	items      map[string]*memtypes.Item
	edges      []memtypes.Edge
	nextID     int
}

func newFakeStore(items ...memtypes.Item) *fakeStore {
	s := &fakeStore{items: make(map[string]*memtypes.Item)}
	for i := range items {
		cp := items[i]
		s.items[cp.ID] = &cp
	}
	return s
}

func (f *fakeStore) GetActive(limit int) ([]memtypes.Item, error) {
	var out []memtypes.Item
	for _, item := range f.items {
		if item.IsActive {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeStore) Deactivate(id string, supersededBy string) error {
	if item, ok := f.items[id]; ok {
		item.IsActive = false
		item.SupersededBy = supersededBy
	}
	return nil
}

func (f *fakeStore) SetImportance(id string, importance float64) error {
	if item, ok := f.items[id]; ok {
		item.Importance = importance
	}
	return nil
}

func (f *fakeStore) AddAccessCount(id string, delta int) error {
	if item, ok := f.items[id]; ok {
		item.AccessCount += delta
	}
	return nil
}

func (f *fakeStore) TotalCount() (int, error) {
	return len(f.items), nil
}

func (f *fakeStore) InsertItemDirect(item memtypes.Item) error {
	cp := item
	f.items[cp.ID] = &cp
	return nil
}

func (f *fakeStore) AddEdge(edge memtypes.Edge) error {
	f.edges = append(f.edges, edge)
	return nil
}

func (f *fakeStore) newID() string {
	f.nextID++
	return fmt.Sprintf("synth-%d", f.nextID)
}

func TestCleanupDeactivatesStaleZeroAccessInsight(t *testing.T) {
	now := int64(1_000_000_000)
	old := now - int64(20*msPerDay)
	s := newFakeStore(memtypes.Item{
		ID: "insight-1", Kind: memtypes.KindInsight, IsActive: true,
		CreatedAt: old, Timestamp: old, AccessCount: 0, Importance: 0.5,
	})

	stats, err := New().Cleanup(s, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeactivatedStale)
	assert.False(t, s.items["insight-1"].IsActive)
}

func TestCleanupKeepsRecentOrAccessedItems(t *testing.T) {
	now := int64(1_000_000_000)
	recent := now - int64(2*msPerDay)
	s := newFakeStore(
		memtypes.Item{ID: "recent", Kind: memtypes.KindInsight, IsActive: true, CreatedAt: recent, Timestamp: recent, Importance: 0.5},
		memtypes.Item{ID: "accessed", Kind: memtypes.KindInsight, IsActive: true, CreatedAt: now - int64(40*msPerDay), Timestamp: now, AccessCount: 3, Importance: 0.5},
	)

	stats, err := New().Cleanup(s, now)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DeactivatedStale)
	assert.True(t, s.items["recent"].IsActive)
	assert.True(t, s.items["accessed"].IsActive)
}

func TestCleanupMergesIdenticalIntents(t *testing.T) {
	now := int64(1_000_000_000)
	s := newFakeStore(
		memtypes.Item{ID: "dup-1", Kind: memtypes.KindConvention, Intent: "use gofmt before committing", IsActive: true, CreatedAt: now, Timestamp: now, Importance: 0.5, AccessCount: 2},
		memtypes.Item{ID: "dup-2", Kind: memtypes.KindConvention, Intent: "Use Gofmt Before Committing", IsActive: true, CreatedAt: now, Timestamp: now, Importance: 0.6, AccessCount: 1},
	)

	stats, err := New().Cleanup(s, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MergedDuplicates)
	assert.True(t, s.items["dup-2"].IsActive)
	assert.False(t, s.items["dup-1"].IsActive)
	assert.Equal(t, "dup-2", s.items["dup-1"].SupersededBy)
	assert.Equal(t, 3, s.items["dup-2"].AccessCount)
}

func TestCleanupEnforcesActiveCap(t *testing.T) {
	now := int64(1_000_000_000)
	var items []memtypes.Item
	for i := 0; i < 5; i++ {
		items = append(items, memtypes.Item{
			ID: fmt.Sprintf("item-%d", i), Kind: memtypes.KindInsight, Intent: fmt.Sprintf("unique fact number %d", i),
			IsActive: true, CreatedAt: now, Timestamp: now, AccessCount: 1, Importance: float64(i) / 10,
		})
	}
	s := newFakeStore(items...)

	stats, err := New().WithCap(3).Cleanup(s, now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DeactivatedOverCap)

	active, _ := s.GetActive(100)
	assert.Len(t, active, 3)
}

func TestConsolidateSkipsWhenBelowActiveFloor(t *testing.T) {
	s := newFakeStore(memtypes.Item{ID: "a", Kind: memtypes.KindBugFix, IsActive: true, Intent: "fix crash"})
	stats, err := Consolidate(s, s.newID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.GroupsSynthesized)
}

func TestConsolidateSynthesizesGroupAboveFloor(t *testing.T) {
	var items []memtypes.Item
	for i := 0; i < 60; i++ {
		items = append(items, memtypes.Item{
			ID: fmt.Sprintf("filler-%d", i), Kind: memtypes.KindInsight,
			Intent: fmt.Sprintf("filler%d", i), IsActive: true, Importance: 0.3,
		})
	}
	for i := 0; i < 4; i++ {
		items = append(items, memtypes.Item{
			ID: fmt.Sprintf("bugfix-%d", i), Kind: memtypes.KindBugFix,
			Intent: "fix login timeout race condition bug", IsActive: true, Importance: 0.5,
		})
	}
	s := newFakeStore(items...)

	stats, err := Consolidate(s, s.newID, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GroupsSynthesized)
	assert.Equal(t, 4, stats.ItemsDeactivated)

	var survivors int
	for _, item := range s.items {
		if item.Kind == memtypes.KindBugFix && item.IsActive {
			survivors++
		}
	}
	assert.Equal(t, 1, survivors)
}

func TestLearningRateBoostRaisesRepeatedCorrectionTopics(t *testing.T) {
	s := newFakeStore(
		memtypes.Item{ID: "c1", Kind: memtypes.KindCorrection, Intent: "always validate user input before query", IsActive: true, Importance: 0.4},
		memtypes.Item{ID: "c2", Kind: memtypes.KindCorrection, Intent: "validate input before database query execution", IsActive: true, Importance: 0.4},
		memtypes.Item{ID: "c3", Kind: memtypes.KindCorrection, Intent: "validate all input before query to avoid injection", IsActive: true, Importance: 0.4},
	)

	boosted, err := LearningRateBoost(s)
	require.NoError(t, err)
	assert.Greater(t, boosted, 0)
	assert.GreaterOrEqual(t, s.items["c1"].Importance, learningRateFloorThree)
}
