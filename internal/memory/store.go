// Package memory implements the Memory Store: the orchestration layer
// above internal/store that owns id generation, dedup, contradiction
// detection, reinforcement, and graph traversal (spec.md §4.4).
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cortexmcp/internal/embedding"
	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/quality"
	"cortexmcp/internal/store"
	"cortexmcp/internal/textnorm"
)

// Store wires the durable store.DB to the id/dedup/contradiction policies
// that sit above raw CRUD. It is the only place that generates item ids, so
// every code path that wants a new item goes through Add.
type Store struct {
	db                     *store.DB
	embedder               embedding.Embedder
	now                    func() int64
	contradictionThreshold float64
}

// contradictionThresholdKey is the adaptive_config row read once at
// construction (spec.md §9 open question: not hot-reloaded).
const contradictionThresholdKey = "contradiction_jaccard_threshold"

// New wraps db with the dedup/contradiction/embedding policies. embedder may
// be nil, in which case vectors are never written and search_vector always
// returns no results (degraded to FTS-only per spec.md §4.2).
func New(db *store.DB, embedder embedding.Embedder) *Store {
	threshold := defaultContradictionThreshold
	if raw, ok, err := db.GetConfig(contradictionThresholdKey); err == nil && ok {
		if parsed, perr := parseThreshold(raw); perr == nil {
			threshold = parsed
		}
	}
	return &Store{db: db, embedder: embedder, now: nowMillis, contradictionThreshold: threshold}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// AddResult reports what Add actually did, for the RPC adapter's response
// text and the §4.8.2 contradiction note.
type AddResult struct {
	Item               memtypes.Item
	Deduped            bool
	ContradictionFound bool
	SupersededID       string
}

// Add first looks for an active item of the same kind with the same
// normalized intent and, if there is one, touches and returns it.
// Otherwise it runs contradiction detection against the new, not yet
// inserted item; only when no contradiction was found does it scan for a
// Jaccard near-duplicate to touch and return instead; finally it inserts
// the new item (spec.md §4.4 add, §4.8.2). Embedding is scheduled asynchronously and never blocks this
// call (spec.md §4.2, §5).
func (s *Store) Add(ctx context.Context, partial memtypes.Item) (*AddResult, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "Add")
	defer timer.Stop()

	now := s.now()
	normalized := textnorm.NormalizeIntent(partial.Intent)

	if existing, err := s.db.FindActiveByNormalizedIntent(partial.Kind, normalized); err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	} else if existing != nil {
		if err := s.db.TouchItem(existing.ID, now); err != nil {
			return nil, fmt.Errorf("touch duplicate: %w", err)
		}
		existing.AccessCount++
		existing.LastAccessed = now
		return &AddResult{Item: *existing, Deduped: true}, nil
	}

	item := partial
	item.ID = uuid.NewString()
	item.CreatedAt = now
	if item.Timestamp == 0 {
		item.Timestamp = now
	}
	if item.Confidence == 0 {
		item.Confidence = 0.5
	}
	if item.Importance == 0 {
		item.Importance = 0.5
	}
	item.IsActive = true

	// Contradiction detection (spec.md §4.8.2) runs against the
	// not-yet-inserted item before the Jaccard near-duplicate scan below.
	// A statement and its negation are textually near-identical, so
	// checking dedup first would swallow the opposite statement as a
	// "duplicate" of the very item it's meant to supersede and
	// detectContradiction would never run.
	superseded, err := s.detectContradiction(item)
	if err != nil {
		logging.Get(logging.CategoryMemory).Warn("contradiction detection failed for %s: %v", item.ID, err)
	}

	if superseded == "" {
		// The exact-normalized-intent check above is a cheap pre-filter;
		// the full Jaccard dedup rule (spec.md §4.3) still needs a scan
		// of same-kind active items for near-duplicates below exact
		// match. Skipped when a contradiction was just found, since that
		// item is a deliberate opposite, not a duplicate.
		if dup, err := s.findNearDuplicate(partial.Kind, partial.Intent); err != nil {
			return nil, fmt.Errorf("near-dup scan: %w", err)
		} else if dup != nil {
			if err := s.db.TouchItem(dup.ID, now); err != nil {
				return nil, fmt.Errorf("touch near-duplicate: %w", err)
			}
			dup.AccessCount++
			dup.LastAccessed = now
			return &AddResult{Item: *dup, Deduped: true}, nil
		}
	}

	if err := s.db.InsertItem(item); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	result := &AddResult{Item: item}
	if superseded != "" {
		result.ContradictionFound = true
		result.SupersededID = superseded
	}

	s.scheduleEmbed(item)

	return result, nil
}

// findNearDuplicate scans active items of kind for one whose intent is
// Jaccard-similar (≥ 0.7) to intent, per spec.md §4.3. It is a bounded
// linear scan: the active-item cap (500, spec.md §5) keeps this cheap.
func (s *Store) findNearDuplicate(kind memtypes.Kind, intent string) (*memtypes.Item, error) {
	candidates, err := s.db.GetByKind(kind, 500)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if quality.IsDuplicateIntent(intent, candidates[i].Intent) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// scheduleEmbed fires the embedding write off the request path (spec.md
// §4.2, §5): failures are logged, never surfaced, and never block Add.
func (s *Store) scheduleEmbed(item memtypes.Item) {
	if s.embedder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text := item.Intent + " " + item.Action + " " + item.Reason
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			logging.Get(logging.CategoryEmbedding).Warn("embed failed for %s: %v", item.ID, err)
			return
		}
		if err := s.db.UpsertVector(item.ID, vec, s.now()); err != nil {
			logging.Get(logging.CategoryEmbedding).Warn("vector write failed for %s: %v", item.ID, err)
		}
	}()
}

// InsertItemDirect persists an already-fully-formed item (id, timestamps,
// importance all set by the caller) with no dedup or contradiction check.
// Used by the aging engine's consolidation pass, which synthesizes a
// merged item from a cluster it already owns (spec.md §4.7.3).
func (s *Store) InsertItemDirect(item memtypes.Item) error {
	return s.db.InsertItem(item)
}

// Update replaces the provided fields on an active item (spec.md §4.4).
func (s *Store) Update(id string, changes memtypes.Item) error {
	return s.db.UpdateItem(id, changes)
}

// Get returns the item with id, or nil.
func (s *Store) Get(id string) (*memtypes.Item, error) {
	return s.db.GetItem(id)
}

// Deactivate soft-deletes id, idempotently (spec.md §4.4).
func (s *Store) Deactivate(id string, supersededBy string) error {
	return s.db.DeactivateItem(id, supersededBy)
}

// Touch records a reinforcement access on id.
func (s *Store) Touch(id string) error {
	return s.db.TouchItem(id, s.now())
}

// GetActive, GetByKind, GetByFile mirror the storage layer directly; the
// Memory Store adds no policy on top of these reads.
func (s *Store) GetActive(limit int) ([]memtypes.Item, error) { return s.db.GetActive(limit) }
func (s *Store) GetByKind(kind memtypes.Kind, limit int) ([]memtypes.Item, error) {
	return s.db.GetByKind(kind, limit)
}
func (s *Store) GetByFile(path string, limit int) ([]memtypes.Item, error) {
	return s.db.GetByFile(path, limit)
}

// SearchFTS runs an FTS query; rank is smaller-is-better (spec.md §4.4).
func (s *Store) SearchFTS(query string, limit int) ([]store.FTSResult, error) {
	return s.db.SearchFTS(query, limit)
}

// SearchVector embeds query and runs brute-force cosine search. Returns no
// results, not an error, if no embedder is configured.
func (s *Store) SearchVector(ctx context.Context, query string, limit int) ([]store.VectorResult, error) {
	if s.embedder == nil {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.db.SearchVector(vec, limit)
}

// AddEdge, EdgesFrom, EdgesTo mirror the storage layer; ids are assumed
// caller-supplied (edges are usually created alongside a just-inserted item
// whose id is already known).
func (s *Store) AddEdge(edge memtypes.Edge) error {
	if edge.Timestamp == 0 {
		edge.Timestamp = s.now()
	}
	if edge.Weight == 0 {
		edge.Weight = 1.0
	}
	return s.db.InsertEdge(edge)
}
func (s *Store) EdgesFrom(id string) ([]memtypes.Edge, error) { return s.db.EdgesFrom(id) }
func (s *Store) EdgesTo(id string) ([]memtypes.Edge, error)   { return s.db.EdgesTo(id) }

// SetImportance persistently updates an item's importance (used by the
// aging engine).
func (s *Store) SetImportance(id string, importance float64) error {
	return s.db.SetImportance(id, importance)
}

// AddAccessCount folds delta into an item's access_count (used by the
// aging engine's identical-intent merge).
func (s *Store) AddAccessCount(id string, delta int) error {
	return s.db.AddAccessCount(id, delta)
}

// ActiveCount, TotalCount, RebuildIndex, Close delegate directly.
func (s *Store) ActiveCount() (int, error) { return s.db.ActiveCount() }
func (s *Store) TotalCount() (int, error)  { return s.db.TotalCount() }
func (s *Store) RebuildIndex() error       { return s.db.RebuildIndex() }
func (s *Store) Close() error              { return s.db.Close() }

// EnsureIdentity, UpsertDailySummary, RecentDailySummaries back the Context
// Assembler's L0/L3 sections (spec.md §4.8).
func (s *Store) EnsureIdentity(workspaceRoot string) error {
	return s.db.EnsureIdentity(workspaceRoot, s.now())
}
func (s *Store) UpsertDailySummary(day, topic, summary string) error {
	return s.db.UpsertDailySummary(store.DailySummary{Day: day, Topic: topic, Summary: summary, CreatedAt: s.now()})
}
func (s *Store) RecentDailySummaries(excludeDay string, limit int) ([]store.DailySummary, error) {
	return s.db.RecentDailySummaries(excludeDay, limit)
}

// GetConfig, SetConfig expose the adaptive_config table for §9's tunables.
func (s *Store) GetConfig(key string) (string, bool, error) { return s.db.GetConfig(key) }
func (s *Store) SetConfig(key, value string) error          { return s.db.SetConfig(key, value) }

// Now returns the store's clock (used by the Context Assembler so every
// section shares one timestamp per assembly).
func (s *Store) Now() int64 { return s.now() }
