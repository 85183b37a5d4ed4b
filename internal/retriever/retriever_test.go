package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/store"
)

type fakeMemoryStore struct {
	ftsResults    []store.FTSResult
	vectorResults []store.VectorResult
	fileResults   []memtypes.Item
}

func (f *fakeMemoryStore) SearchFTS(query string, limit int) ([]store.FTSResult, error) {
	return f.ftsResults, nil
}

func (f *fakeMemoryStore) SearchVector(ctx context.Context, query string, limit int) ([]store.VectorResult, error) {
	return f.vectorResults, nil
}

func (f *fakeMemoryStore) GetByFile(path string, limit int) ([]memtypes.Item, error) {
	return f.fileResults, nil
}

func TestExpandQueryAddsSynonymsUpToCap(t *testing.T) {
	expanded := expandQuery("auth sql")
	assert.Contains(t, expanded, "auth")
	assert.Contains(t, expanded, "database")
	assert.Contains(t, expanded, " OR ")
}

func TestExpandQueryDropsShortTokens(t *testing.T) {
	expanded := expandQuery("to a database")
	assert.NotContains(t, expanded, " to ")
	assert.Contains(t, expanded, "db")
}

func TestSearchFusesAndWeightsSources(t *testing.T) {
	shared := memtypes.Item{ID: "shared", Kind: memtypes.KindBugFix, Intent: "fix login crash"}
	onlyVec := memtypes.Item{ID: "vec-only", Kind: memtypes.KindInsight, Intent: "cache warms lazily"}

	fake := &fakeMemoryStore{
		ftsResults:    []store.FTSResult{{Item: shared, Rank: -2.0}},
		vectorResults: []store.VectorResult{{Item: shared, Cosine: 0.9}, {Item: onlyVec, Cosine: 0.5}},
	}

	r := New(fake)
	results, err := r.Search(context.Background(), Query{Text: "login crash", MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]memtypes.ScoredItem{}
	for _, item := range results {
		byID[item.Item.ID] = item
	}

	sharedResult := byID["shared"]
	assert.ElementsMatch(t, []string{"fts", "vector"}, sharedResult.MatchMethod)
	assert.Greater(t, sharedResult.Score, byID["vec-only"].Score)
}

func TestSearchAppliesKindFilter(t *testing.T) {
	bug := memtypes.Item{ID: "bug", Kind: memtypes.KindBugFix, Intent: "fix crash"}
	insight := memtypes.Item{ID: "insight", Kind: memtypes.KindInsight, Intent: "note on caching"}

	fake := &fakeMemoryStore{
		ftsResults: []store.FTSResult{{Item: bug, Rank: -1}, {Item: insight, Rank: -1}},
	}

	r := New(fake)
	results, err := r.Search(context.Background(), Query{
		Text:       "crash",
		MaxResults: 10,
		Filter:     Filter{Kinds: []memtypes.Kind{memtypes.KindBugFix}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bug", results[0].Item.ID)
}

func TestSearchCachesIdenticalQueries(t *testing.T) {
	fake := &fakeMemoryStore{
		ftsResults: []store.FTSResult{{Item: memtypes.Item{ID: "a", Intent: "x"}, Rank: -1}},
	}
	r := New(fake)
	ctx := context.Background()

	first, err := r.Search(ctx, Query{Text: "x", MaxResults: 5})
	require.NoError(t, err)

	fake.ftsResults = nil // cache hit should not observe this mutation
	second, err := r.Search(ctx, Query{Text: "x", MaxResults: 5})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
