// Package retriever implements the Hybrid Retriever: query expansion,
// parallel FTS/vector/file-scoped fan-out, weighted fusion, and filtering
// (spec.md §4.5). Its output feeds the Ranker (internal/ranker).
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/store"
)

// source weights for fusion (spec.md §4.5).
const (
	weightFTS    = 0.35
	weightVector = 0.50
	weightFile   = 0.15
)

// MaxResults is the hard cap on requested result size (spec.md §4.5).
const MaxResults = 50

// fanoutMultiplier widens each sub-search beyond the caller's max_results
// so fusion has enough candidates to rank from (spec.md §4.5 step 2).
const fanoutMultiplier = 2

// memoryStore is the subset of *memory.Store the retriever depends on; kept
// as an interface so retriever tests can fake it without a real database.
type memoryStore interface {
	SearchFTS(query string, limit int) ([]store.FTSResult, error)
	SearchVector(ctx context.Context, query string, limit int) ([]store.VectorResult, error)
	GetByFile(path string, limit int) ([]memtypes.Item, error)
}

// Filter narrows the fused candidate list before ranking (spec.md §4.5
// step 4).
type Filter struct {
	Kinds        []memtypes.Kind
	SinceMs      int64
	MinImportance float64
	Files        []string
}

// Query is the retriever's input (spec.md §4.5).
type Query struct {
	Text        string
	CurrentFile string
	MaxResults  int
	Filter      Filter
}

// Retriever runs the hybrid search pipeline against a memoryStore, with a
// singleflight-backed cache collapsing identical concurrent queries (spec.md
// §5: 50-entry/60s recall cache).
type Retriever struct {
	ms    memoryStore
	group singleflight.Group
	cache *recallCache
}

// New constructs a Retriever over ms.
func New(ms memoryStore) *Retriever {
	return &Retriever{ms: ms, cache: newRecallCache(50, 60*time.Second)}
}

// Search runs the full pipeline: expand, fan out, fuse, filter. The result
// is not yet ranked — callers pass it to internal/ranker.
func (r *Retriever) Search(ctx context.Context, q Query) ([]memtypes.ScoredItem, error) {
	timer := logging.StartTimer(logging.CategoryRetriever, "Search")
	defer timer.Stop()

	maxResults := q.MaxResults
	if maxResults <= 0 || maxResults > MaxResults {
		maxResults = MaxResults
	}

	cacheKey := fmt.Sprintf("%s|%d", q.Text, maxResults)
	if cached, ok := r.cache.get(cacheKey); ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(cacheKey, func() (interface{}, error) {
		items, err := r.search(ctx, q, maxResults)
		if err != nil {
			return nil, err
		}
		r.cache.put(cacheKey, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]memtypes.ScoredItem), nil
}

func (r *Retriever) search(ctx context.Context, q Query, maxResults int) ([]memtypes.ScoredItem, error) {
	expanded := expandQuery(q.Text)
	subLimit := maxResults * fanoutMultiplier

	var ftsResults []store.FTSResult
	var vectorResults []store.VectorResult
	var fileResults []memtypes.Item

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := r.ms.SearchFTS(expanded, subLimit)
		if err != nil {
			logging.Get(logging.CategoryRetriever).Warn("fts search failed: %v", err)
			return nil
		}
		if len(results) == 0 && expanded != q.Text {
			// Expansion produced no hits; retry with the raw query
			// (spec.md §4.5 step 1).
			results, err = r.ms.SearchFTS(q.Text, subLimit)
			if err != nil {
				logging.Get(logging.CategoryRetriever).Warn("fallback fts search failed: %v", err)
				return nil
			}
		}
		ftsResults = results
		return nil
	})

	g.Go(func() error {
		results, err := r.ms.SearchVector(gctx, q.Text, subLimit)
		if err != nil {
			logging.Get(logging.CategoryRetriever).Warn("vector search failed: %v", err)
			return nil
		}
		vectorResults = results
		return nil
	})

	if q.CurrentFile != "" {
		g.Go(func() error {
			results, err := r.ms.GetByFile(q.CurrentFile, subLimit)
			if err != nil {
				logging.Get(logging.CategoryRetriever).Warn("file-scoped search failed: %v", err)
				return nil
			}
			fileResults = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(ftsResults, vectorResults, fileResults)
	filtered := applyFilter(fused, q.Filter)
	return filtered, nil
}

func fuse(fts []store.FTSResult, vector []store.VectorResult, file []memtypes.Item) []memtypes.ScoredItem {
	byID := make(map[string]*memtypes.ScoredItem)

	order := func(id string, item memtypes.Item, score float64, method string) {
		if existing, ok := byID[id]; ok {
			existing.Score += score
			if !containsMethod(existing.MatchMethod, method) {
				existing.MatchMethod = append(existing.MatchMethod, method)
			}
			return
		}
		byID[id] = &memtypes.ScoredItem{Item: item, Score: score, MatchMethod: []string{method}}
	}

	for _, r := range fts {
		// FTS rank is smaller-is-better; negate and weight so a better
		// (more negative) rank contributes more (spec.md §4.4, §4.5).
		order(r.Item.ID, r.Item, -r.Rank*weightFTS, "fts")
	}
	for _, r := range vector {
		order(r.Item.ID, r.Item, r.Cosine*weightVector, "vector")
	}
	for _, item := range file {
		order(item.ID, item, weightFile, "file")
	}

	results := make([]memtypes.ScoredItem, 0, len(byID))
	for _, v := range byID {
		results = append(results, *v)
	}
	return results
}

func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

func applyFilter(items []memtypes.ScoredItem, f Filter) []memtypes.ScoredItem {
	if len(f.Kinds) == 0 && f.SinceMs == 0 && f.MinImportance == 0 && len(f.Files) == 0 {
		return items
	}

	kindSet := make(map[memtypes.Kind]bool, len(f.Kinds))
	for _, k := range f.Kinds {
		kindSet[k] = true
	}

	var filtered []memtypes.ScoredItem
	for _, si := range items {
		if len(kindSet) > 0 && !kindSet[si.Item.Kind] {
			continue
		}
		if f.SinceMs > 0 && si.Item.Timestamp < f.SinceMs {
			continue
		}
		if f.MinImportance > 0 && si.Item.Importance < f.MinImportance {
			continue
		}
		if len(f.Files) > 0 && !intersectsFiles(si.Item.RelatedFiles, f.Files) {
			continue
		}
		filtered = append(filtered, si)
	}
	return filtered
}

func intersectsFiles(itemFiles, filterFiles []string) bool {
	for _, a := range itemFiles {
		for _, b := range filterFiles {
			if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
				return true
			}
		}
	}
	return false
}
