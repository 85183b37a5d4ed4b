package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cortexmcp/internal/memtypes"
)

const bundleVersion = 1

// exportedMemory mirrors one entry of the export bundle (spec.md §6).
type exportedMemory struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Intent       string   `json:"intent"`
	Action       string   `json:"action"`
	Reason       *string  `json:"reason"`
	Tags         []string `json:"tags"`
	RelatedFiles []string `json:"relatedFiles"`
	Confidence   float64  `json:"confidence"`
	Importance   float64  `json:"importance"`
	AccessCount  int      `json:"accessCount"`
	CreatedAt    int64    `json:"createdAt"`
	Timestamp    string   `json:"timestamp"`
}

type exportBundle struct {
	Version     int              `json:"version"`
	ExportedAt  string           `json:"exportedAt"`
	MemoryCount int              `json:"memoryCount"`
	Memories    []exportedMemory `json:"memories"`
}

func itemToExported(item memtypes.Item) exportedMemory {
	var reason *string
	if item.Reason != "" {
		reason = &item.Reason
	}
	return exportedMemory{
		ID:           item.ID,
		Type:         string(item.Kind),
		Intent:       item.Intent,
		Action:       item.Action,
		Reason:       reason,
		Tags:         item.Tags,
		RelatedFiles: item.RelatedFiles,
		Confidence:   item.Confidence,
		Importance:   item.Importance,
		AccessCount:  item.AccessCount,
		CreatedAt:    item.CreatedAt,
		Timestamp:    time.UnixMilli(item.Timestamp).UTC().Format(time.RFC3339),
	}
}

// exportActiveItemCap bounds a single export_memories call; the active-item
// cap (500, spec.md §5) already keeps the store within this.
const exportActiveItemCap = 10000

// bundleStore is the narrow surface ExportBundle/ImportBundle need; the RPC
// Server's *memory.Store and the cmd/cortex-mcp CLI both satisfy it, so the
// bundle logic lives in one place for both (spec.md §6 export/import).
type bundleStore interface {
	GetActive(limit int) ([]memtypes.Item, error)
	GetByKind(kind memtypes.Kind, limit int) ([]memtypes.Item, error)
	InsertItemDirect(item memtypes.Item) error
	Now() int64
}

// ExportBundle renders every active item as the spec.md §6 versioned
// export bundle, pretty-printed JSON.
func ExportBundle(ms bundleStore) (string, error) {
	items, err := ms.GetActive(exportActiveItemCap)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	bundle := exportBundle{Version: bundleVersion, ExportedAt: time.UnixMilli(ms.Now()).UTC().Format(time.RFC3339), MemoryCount: len(items)}
	for _, item := range items {
		bundle.Memories = append(bundle.Memories, itemToExported(item))
	}

	encoded, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export encode failed: %w", err)
	}
	return string(encoded), nil
}

// ImportBundle applies a bundle idempotently (spec.md §6): a
// (type, lowercased-intent) match already present is skipped, not
// overwritten; insert errors are counted, never raised.
func ImportBundle(ms bundleStore, data []byte) (imported, skipped, failed int, err error) {
	var bundle exportBundle
	if unmarshalErr := json.Unmarshal(data, &bundle); unmarshalErr != nil {
		return 0, 0, 0, fmt.Errorf("invalid bundle: %w", unmarshalErr)
	}
	if bundle.Version != bundleVersion {
		return 0, 0, 0, fmt.Errorf("unknown bundle version %d, expected %d", bundle.Version, bundleVersion)
	}

	existing := make(map[string]bool)
	for _, kind := range memtypes.AllKinds {
		items, err := ms.GetByKind(kind, exportActiveItemCap)
		if err != nil {
			continue
		}
		for _, item := range items {
			existing[string(item.Kind)+"|"+strings.ToLower(item.Intent)] = true
		}
	}

	for _, m := range bundle.Memories {
		key := m.Type + "|" + strings.ToLower(m.Intent)
		if existing[key] {
			skipped++
			continue
		}

		reason := ""
		if m.Reason != nil {
			reason = *m.Reason
		}
		timestampMs := m.CreatedAt
		if parsed, perr := time.Parse(time.RFC3339, m.Timestamp); perr == nil {
			timestampMs = parsed.UnixMilli()
		}

		item := memtypes.Item{
			ID:           m.ID,
			Kind:         memtypes.Kind(m.Type),
			Intent:       m.Intent,
			Action:       m.Action,
			Reason:       reason,
			Tags:         m.Tags,
			RelatedFiles: m.RelatedFiles,
			Confidence:   m.Confidence,
			Importance:   m.Importance,
			AccessCount:  m.AccessCount,
			CreatedAt:    m.CreatedAt,
			Timestamp:    timestampMs,
			IsActive:     true,
		}
		if item.ID == "" {
			failed++
			continue
		}
		if insertErr := ms.InsertItemDirect(item); insertErr != nil {
			failed++
			continue
		}
		existing[key] = true
		imported++
	}

	return imported, skipped, failed, nil
}

func (s *Server) toolExportMemories(ctx context.Context, raw json.RawMessage) toolResult {
	encoded, err := ExportBundle(s.store)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(encoded)
}

type importMemoriesArgs struct {
	Data json.RawMessage `json:"data"`
}

func (s *Server) toolImportMemories(ctx context.Context, raw json.RawMessage) toolResult {
	var args importMemoriesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}

	imported, skipped, failed, err := ImportBundle(s.store, args.Data)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(fmt.Sprintf("Imported %d, skipped %d (already present), failed %d.", imported, skipped, failed))
}
