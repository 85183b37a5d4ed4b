// Package memtypes defines the data model shared by every layer of the
// memory engine: storage, quality gate, retriever, ranker, aging engine,
// context assembler, and the RPC adapter. Keeping it in its own package
// avoids import cycles between those layers (spec.md §3).
package memtypes

// Kind categorizes an Item and drives ranking boosts (spec.md §4.6).
type Kind string

const (
	KindCorrection       Kind = "CORRECTION"
	KindDecision         Kind = "DECISION"
	KindConvention       Kind = "CONVENTION"
	KindBugFix           Kind = "BUG_FIX"
	KindInsight          Kind = "INSIGHT"
	KindFailedSuggestion Kind = "FAILED_SUGGESTION"
	KindProvenPattern    Kind = "PROVEN_PATTERN"
	KindDependency       Kind = "DEPENDENCY"
)

// ValidKind reports whether k is one of the eight recognized item kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindCorrection, KindDecision, KindConvention, KindBugFix,
		KindInsight, KindFailedSuggestion, KindProvenPattern, KindDependency:
		return true
	default:
		return false
	}
}

// AllKinds lists every item kind, used by get_by_kind sweeps and stats.
var AllKinds = []Kind{
	KindCorrection, KindDecision, KindConvention, KindBugFix,
	KindInsight, KindFailedSuggestion, KindProvenPattern, KindDependency,
}

// UnknownOutcome is the sentinel default for Item.Outcome (spec.md §3).
const UnknownOutcome = "unknown"

// Item is the fundamental persisted observation (spec.md §3).
type Item struct {
	ID            string
	Kind          Kind
	Intent        string
	Action        string
	Reason        string
	Impact        string
	Outcome       string
	RelatedFiles  []string
	Tags          []string
	CreatedAt     int64 // epoch-ms, set at insertion
	Timestamp     int64 // epoch-ms, caller-settable
	Confidence    float64
	Importance    float64
	AccessCount   int
	LastAccessed  int64
	IsActive      bool
	SupersededBy  string
	SourceEventID string
}

// Relation categorizes a directed Edge between two items (spec.md §3).
type Relation string

const (
	RelationRelatedTo    Relation = "RELATED_TO"
	RelationSupersededBy Relation = "SUPERSEDED_BY"
	RelationReplacedBy   Relation = "REPLACED_BY"
	RelationCausedBy     Relation = "CAUSED_BY"
	RelationContradicts  Relation = "CONTRADICTS"
)

// Edge is a directed, weighted link between two items. The triple
// (SourceID, TargetID, Relation) is unique (spec.md §3). Edges never
// cascade-delete: deactivating an item leaves its edges readable.
type Edge struct {
	SourceID  string
	TargetID  string
	Relation  Relation
	Weight    float64
	Timestamp int64
}

// Event is an append-only raw-input log entry (spec.md §3). Never mutated
// after insertion except Processed transitioning false -> true.
type Event struct {
	ID        int64
	EventType string
	Source    string
	Content   string
	Diff      string
	File      string
	Metadata  string // JSON-encoded, optional
	Timestamp int64
	Processed bool
}

// ScoredItem pairs an Item with a retrieval/ranking score and the set of
// match methods ("fts", "vector", "file") that surfaced it.
type ScoredItem struct {
	Item        Item
	Score       float64
	MatchMethod []string
}

// RelatedItem pairs an Item reached via graph traversal with its BFS depth.
type RelatedItem struct {
	Item  Item
	Depth int
}
