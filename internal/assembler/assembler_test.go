package assembler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexmcp/internal/aging"
	"cortexmcp/internal/memory"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/retriever"
	"cortexmcp/internal/store"
)

type fakeAssemblerStore struct {
	items     []memtypes.Item
	summaries []store.DailySummary
	now       int64
	added     []memtypes.Item
}

func (f *fakeAssemblerStore) EnsureIdentity(string) error { return nil }
func (f *fakeAssemblerStore) UpsertDailySummary(day, topic, summary string) error {
	f.summaries = append(f.summaries, store.DailySummary{Day: day, Topic: topic, Summary: summary})
	return nil
}
func (f *fakeAssemblerStore) RecentDailySummaries(excludeDay string, limit int) ([]store.DailySummary, error) {
	var out []store.DailySummary
	for _, s := range f.summaries {
		if s.Day != excludeDay {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeAssemblerStore) GetActive(limit int) ([]memtypes.Item, error) {
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}
func (f *fakeAssemblerStore) GetByKind(kind memtypes.Kind, limit int) ([]memtypes.Item, error) {
	var out []memtypes.Item
	for _, item := range f.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeAssemblerStore) GetByFile(path string, limit int) ([]memtypes.Item, error) {
	var out []memtypes.Item
	for _, item := range f.items {
		for _, rf := range item.RelatedFiles {
			if strings.Contains(rf, path) || strings.Contains(path, rf) {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}
func (f *fakeAssemblerStore) GetRelated(id string, maxHops, limit int) ([]memtypes.RelatedItem, error) {
	return nil, nil
}
func (f *fakeAssemblerStore) Add(ctx context.Context, partial memtypes.Item) (*memory.AddResult, error) {
	f.added = append(f.added, partial)
	return &memory.AddResult{Item: partial}, nil
}
func (f *fakeAssemblerStore) Deactivate(id string, supersededBy string) error   { return nil }
func (f *fakeAssemblerStore) SetImportance(id string, importance float64) error { return nil }
func (f *fakeAssemblerStore) AddAccessCount(id string, delta int) error         { return nil }
func (f *fakeAssemblerStore) InsertItemDirect(item memtypes.Item) error         { return nil }
func (f *fakeAssemblerStore) AddEdge(edge memtypes.Edge) error                  { return nil }
func (f *fakeAssemblerStore) TotalCount() (int, error)                         { return len(f.items), nil }
func (f *fakeAssemblerStore) Now() int64                                       { return f.now }

type fakeSearcher struct {
	results []memtypes.ScoredItem
}

func (f *fakeSearcher) Search(ctx context.Context, q retriever.Query) ([]memtypes.ScoredItem, error) {
	return f.results, nil
}

func TestAssembleOmitsSectionsSilentlyWhenEmpty(t *testing.T) {
	fs := &fakeAssemblerStore{now: 1700000000000}
	a := &Assembler{store: fs, retriever: &fakeSearcher{}, agingEngine: aging.New(), workspaceRoot: t.TempDir()}

	text, err := a.Assemble(context.Background(), Request{})
	require.NoError(t, err)
	assert.Contains(t, text, "## Session")
	assert.NotContains(t, text, "## Core context", "no items means L5 is silently omitted")
}

func TestAssembleIncludesCoreContextAndAttentionLabel(t *testing.T) {
	fs := &fakeAssemblerStore{
		now: 1700000000000,
		items: []memtypes.Item{
			{ID: "1", Kind: memtypes.KindCorrection, Intent: "never use global state", Importance: 0.9, Timestamp: 1700000000000, IsActive: true},
		},
	}
	a := &Assembler{store: fs, retriever: &fakeSearcher{}, agingEngine: aging.New(), workspaceRoot: t.TempDir()}

	text, err := a.Assemble(context.Background(), Request{Topic: "fix the crash"})
	require.NoError(t, err)
	assert.Contains(t, text, "mode: debugging")
	assert.Contains(t, text, "## Core context")
	assert.Contains(t, text, "never use global state")
}

func TestAssembleTruncatesOversizedText(t *testing.T) {
	items := []memtypes.Item{
		{ID: "huge", Kind: memtypes.KindDecision, Intent: strings.Repeat("x", 20000),
			Importance: 0.9, Timestamp: 1700000000000, IsActive: true},
	}
	fs := &fakeAssemblerStore{now: 1700000000000, items: items}
	a := &Assembler{store: fs, retriever: &fakeSearcher{}, agingEngine: aging.New(), workspaceRoot: t.TempDir()}

	text, err := a.Assemble(context.Background(), Request{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), maxContextChars)
	assert.Contains(t, text, "context truncated")
}
