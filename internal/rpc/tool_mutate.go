package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/quality"
)

type updateMemoryArgs struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// toolUpdateMemory replaces a memory's content: it inserts a fresh item
// carrying the original's kind/files/tags, deactivates the original with a
// SUPERSEDED_BY edge to the replacement, and returns the new id.
func (s *Server) toolUpdateMemory(ctx context.Context, raw json.RawMessage) toolResult {
	var args updateMemoryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if strings.TrimSpace(args.ID) == "" || strings.TrimSpace(args.Content) == "" {
		return errorResult("id and content are required")
	}
	if len(args.Content) > storeContentMax {
		return errorResult(fmt.Sprintf("content is %d characters, maximum is %d", len(args.Content), storeContentMax))
	}

	original, err := s.store.Get(args.ID)
	if err != nil {
		return errorResult("lookup failed: " + err.Error())
	}
	if original == nil {
		return errorResult(fmt.Sprintf("no memory with id %q", args.ID))
	}
	if rej := quality.Check(args.Content); rej != nil {
		return errorResult(fmt.Sprintf("rejected (%s): %s", rej.Rule, rej.Message))
	}

	reason := args.Reason
	if reason == "" {
		reason = original.Reason
	}
	result, err := s.store.Add(ctx, memtypes.Item{
		Kind:         original.Kind,
		Intent:       args.Content,
		Reason:       reason,
		RelatedFiles: original.RelatedFiles,
		Tags:         original.Tags,
		Confidence:   original.Confidence,
		Importance:   original.Importance,
	})
	if err != nil {
		return errorResult("store failed: " + err.Error())
	}

	if err := s.store.Deactivate(original.ID, result.Item.ID); err != nil {
		return errorResult("deactivate original failed: " + err.Error())
	}
	if err := s.store.AddEdge(memtypes.Edge{
		SourceID: original.ID,
		TargetID: result.Item.ID,
		Relation: memtypes.RelationSupersededBy,
		Weight:   1.0,
	}); err != nil {
		return errorResult("link superseded edge failed: " + err.Error())
	}

	return textResult(fmt.Sprintf("Updated: %s superseded by %s.", original.ID, result.Item.ID))
}

type deleteMemoryArgs struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (s *Server) toolDeleteMemory(ctx context.Context, raw json.RawMessage) toolResult {
	var args deleteMemoryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if strings.TrimSpace(args.ID) == "" {
		return errorResult("id is required")
	}

	existing, err := s.store.Get(args.ID)
	if err != nil {
		return errorResult("lookup failed: " + err.Error())
	}
	if existing == nil {
		return errorResult(fmt.Sprintf("no memory with id %q", args.ID))
	}

	if err := s.store.Deactivate(args.ID, ""); err != nil {
		return errorResult("delete failed: " + err.Error())
	}
	if args.Reason != "" {
		return textResult(fmt.Sprintf("Deleted %s (%s).", args.ID, args.Reason))
	}
	return textResult(fmt.Sprintf("Deleted %s.", args.ID))
}

type listMemoriesArgs struct {
	Type  string `json:"type"`
	Limit int    `json:"limit"`
}

const listMemoriesDefaultLimit = 50

func (s *Server) toolListMemories(ctx context.Context, raw json.RawMessage) toolResult {
	var args listMemoriesArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	limit := args.Limit
	if limit <= 0 {
		limit = listMemoriesDefaultLimit
	}

	var items []memtypes.Item
	var err error
	if args.Type != "" {
		kind := memtypes.Kind(strings.ToUpper(strings.TrimSpace(args.Type)))
		if !memtypes.ValidKind(kind) {
			return errorResult(fmt.Sprintf("unknown memory type %q", args.Type))
		}
		items, err = s.store.GetByKind(kind, limit)
	} else {
		items, err = s.store.GetActive(limit)
	}
	if err != nil {
		return errorResult("list failed: " + err.Error())
	}

	if len(items) == 0 {
		return textResult("No memories stored.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d memories:\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s (id=%s)\n", i+1, item.Kind, item.Intent, item.ID)
	}
	return textResult(strings.TrimRight(b.String(), "\n"))
}
