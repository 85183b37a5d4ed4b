package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil)
}

func TestAddInsertsNewItem(t *testing.T) {
	s := newTestStore(t)
	result, err := s.Add(context.Background(), memtypes.Item{
		Kind:   memtypes.KindConvention,
		Intent: "always run gofmt before committing",
		Action: "gofmt -w .",
	})
	require.NoError(t, err)
	assert.False(t, result.Deduped)
	assert.NotEmpty(t, result.Item.ID)
	assert.True(t, result.Item.IsActive)
}

func TestAddDedupsExactNormalizedIntent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindDecision, Intent: "use postgres for storage"})
	require.NoError(t, err)

	second, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindDecision, Intent: "Use Postgres For Storage"})
	require.NoError(t, err)

	assert.True(t, second.Deduped)
	assert.Equal(t, first.Item.ID, second.Item.ID)

	refreshed, err := s.Get(first.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.AccessCount)
}

func TestAddDedupsNearDuplicateIntent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindBugFix, Intent: "fix race condition in worker pool shutdown"})
	require.NoError(t, err)

	second, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindBugFix, Intent: "fix race condition in the worker pool shutdown path"})
	require.NoError(t, err)

	assert.True(t, second.Deduped)
	assert.Equal(t, first.Item.ID, second.Item.ID)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Add(context.Background(), memtypes.Item{Kind: memtypes.KindInsight, Intent: "the build cache lives under .cache/go-build"})
	require.NoError(t, err)

	require.NoError(t, s.Deactivate(res.Item.ID, ""))
	require.NoError(t, s.Deactivate(res.Item.ID, ""))

	item, err := s.Get(res.Item.ID)
	require.NoError(t, err)
	assert.False(t, item.IsActive)
}

func TestContradictionDeactivatesOlderOppositeItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindConvention, Intent: "use tabs for indentation in this repo"})
	require.NoError(t, err)

	newer, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindConvention, Intent: "never use tabs for indentation in this repo"})
	require.NoError(t, err)

	assert.True(t, newer.ContradictionFound)
	assert.Equal(t, older.Item.ID, newer.SupersededID)

	refreshed, err := s.Get(older.Item.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsActive)
	assert.Equal(t, newer.Item.ID, refreshed.SupersededBy)
}

func TestContradictionDetectsSymmetricNegationSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindConvention, Intent: "Always use const, never var"})
	require.NoError(t, err)

	newer, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindConvention, Intent: "Always use var, never const"})
	require.NoError(t, err)

	assert.True(t, newer.ContradictionFound)
	assert.Equal(t, older.Item.ID, newer.SupersededID)
}

func TestGetRelatedWalksEdgesBreadthFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindDecision, Intent: "adopt errgroup for fan-out"})
	require.NoError(t, err)
	b, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindDecision, Intent: "adopt singleflight for recall cache"})
	require.NoError(t, err)
	c, err := s.Add(ctx, memtypes.Item{Kind: memtypes.KindDecision, Intent: "adopt sqlite-vec for ann search"})
	require.NoError(t, err)

	require.NoError(t, s.AddEdge(memtypes.Edge{SourceID: a.Item.ID, TargetID: b.Item.ID, Relation: memtypes.RelationRelatedTo}))
	require.NoError(t, s.AddEdge(memtypes.Edge{SourceID: b.Item.ID, TargetID: c.Item.ID, Relation: memtypes.RelationRelatedTo}))

	related, err := s.GetRelated(a.Item.ID, 2, 10)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, 1, related[0].Depth)
	assert.Equal(t, b.Item.ID, related[0].Item.ID)
	assert.Equal(t, 2, related[1].Depth)
	assert.Equal(t, c.Item.ID, related[1].Item.ID)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
