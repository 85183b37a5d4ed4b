// Package assembler implements the Context Assembler: the layered L0-L12
// pipeline that produces the "start of conversation" priming text (spec.md
// §4.8). Each layer is a small dedicated function; a layer's absence is
// silent, and layers are joined with blank-line separators rather than
// deduplicated line-by-line.
package assembler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"cortexmcp/internal/aging"
	"cortexmcp/internal/logging"
	"cortexmcp/internal/memory"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/retriever"
	"cortexmcp/internal/store"
)

// maxContextChars is the hard cap on the assembled text (spec.md §4.8).
const maxContextChars = 12000

const truncationMarker = "\n\n[context truncated at 12000 chars — use a targeted recall for the rest]"

// memoryStore is the subset of *memory.Store the assembler depends on,
// kept narrow so tests can fake it. It also satisfies aging's
// storeWithImportance/edgeWriter interfaces structurally.
type memoryStore interface {
	EnsureIdentity(workspaceRoot string) error
	UpsertDailySummary(day, topic, summary string) error
	RecentDailySummaries(excludeDay string, limit int) ([]store.DailySummary, error)
	GetActive(limit int) ([]memtypes.Item, error)
	GetByKind(kind memtypes.Kind, limit int) ([]memtypes.Item, error)
	GetByFile(path string, limit int) ([]memtypes.Item, error)
	GetRelated(id string, maxHops, limit int) ([]memtypes.RelatedItem, error)
	Add(ctx context.Context, partial memtypes.Item) (*memory.AddResult, error)
	Deactivate(id string, supersededBy string) error
	SetImportance(id string, importance float64) error
	AddAccessCount(id string, delta int) error
	InsertItemDirect(item memtypes.Item) error
	AddEdge(edge memtypes.Edge) error
	TotalCount() (int, error)
	Now() int64
}

// searcher is the subset of *retriever.Retriever the assembler needs.
type searcher interface {
	Search(ctx context.Context, q retriever.Query) ([]memtypes.ScoredItem, error)
}

// Request carries the caller-supplied inputs to Assemble (spec.md §4.8,
// the force_recall/get_context tool parameters).
type Request struct {
	Topic       string
	CurrentFile string
}

// Assembler orchestrates the L0-L12 sections into one capped text blob.
type Assembler struct {
	store         memoryStore
	retriever     searcher
	agingEngine   *aging.Engine
	workspaceRoot string
	projectIndex  ProjectIndex
	gitTimeout    time.Duration
}

// New builds an Assembler. projectIndex may be nil, in which case L11/L12
// are silently omitted (spec.md §4.8, §1's external-scanner seam).
func New(ms *memory.Store, r *retriever.Retriever, workspaceRoot string, projectIndex ProjectIndex) *Assembler {
	return &Assembler{
		store:         ms,
		retriever:     r,
		agingEngine:   aging.New(),
		workspaceRoot: workspaceRoot,
		projectIndex:  projectIndex,
		gitTimeout:    5 * time.Second,
	}
}

// Assemble runs every section in order, swallowing per-section errors
// (logged, never propagated — spec.md §7's "scanner failures... cause the
// corresponding section to be omitted but never fail the enclosing
// request"), then truncates to maxContextChars with a trailing marker.
func (a *Assembler) Assemble(ctx context.Context, req Request) (string, error) {
	timer := logging.StartTimer(logging.CategoryAssembler, "Assemble")
	defer timer.Stop()

	now := a.store.Now()

	var b strings.Builder
	emit := func(name, section string) {
		if section == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section)
	}

	emit("L0", a.sectionSessionBoundary(req.Topic, now))
	emit("L1", a.sectionMaintenance(now))
	emit("L2", a.sectionAttentionLabel(req.Topic))
	emit("L3", a.sectionRecentSessions(now))
	emit("L4", a.sectionHotCorrections())
	emit("L5", a.sectionCoreContext(now))
	emit("L6", a.sectionAnticipation(req.CurrentFile))
	emit("L7", a.sectionTemporal(now))
	emit("L8", a.sectionWorkspaceState(ctx))
	emit("L8.5", a.sectionGitMemory(ctx, now))
	emit("L9", a.sectionTopicSearch(ctx, req))
	emit("L10", a.sectionKnowledgeGaps())
	emit("L11", a.sectionExportMap(ctx))
	emit("L12", a.sectionArchitectureGraph(ctx))

	text := b.String()
	if len(text) > maxContextChars {
		text = text[:maxContextChars-len(truncationMarker)] + truncationMarker
	}
	return text, nil
}

func newItemID() string { return uuid.NewString() }
