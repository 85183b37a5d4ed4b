package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/quality"
)

// storeContentMax is the RPC-boundary bound on store_memory's content
// (spec.md §6, §8); the quality gate applies its own, tighter 500-char
// bound underneath this one.
const storeContentMax = 5000

type storeMemoryArgs struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Reason  string   `json:"reason"`
	Files   []string `json:"files"`
	Tags    []string `json:"tags"`
}

func (s *Server) toolStoreMemory(ctx context.Context, raw json.RawMessage) toolResult {
	var args storeMemoryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	kind := memtypes.Kind(strings.ToUpper(strings.TrimSpace(args.Type)))
	if !memtypes.ValidKind(kind) {
		return errorResult(fmt.Sprintf("unknown memory type %q", args.Type))
	}
	if len(args.Content) > storeContentMax {
		return errorResult(fmt.Sprintf("content is %d characters, maximum is %d", len(args.Content), storeContentMax))
	}

	return s.storeItem(ctx, kind, args.Content, args.Reason, args.Files, args.Tags)
}

type quickStoreArgs struct {
	Memory string `json:"memory"`
}

const quickStoreMinLen = 5

func (s *Server) toolQuickStore(ctx context.Context, raw json.RawMessage) toolResult {
	var args quickStoreArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	trimmed := strings.TrimSpace(args.Memory)
	if len(trimmed) < quickStoreMinLen {
		return errorResult(fmt.Sprintf("memory is %d characters, minimum is %d", len(trimmed), quickStoreMinLen))
	}
	if len(trimmed) > storeContentMax {
		return errorResult(fmt.Sprintf("content is %d characters, maximum is %d", len(trimmed), storeContentMax))
	}

	kind := classifyQuickStoreKind(trimmed)
	return s.storeItem(ctx, kind, trimmed, "", nil, nil)
}

// quickStoreKeywords maps keyword families to the kind quick_store infers
// when the caller doesn't specify one. A keyword matches anywhere in the
// text, and families are tried in this order (spec.md §4.2 quick path).
var quickStoreKeywords = []struct {
	kind     memtypes.Kind
	keywords []string
}{
	{memtypes.KindCorrection, []string{"actually", "correction", "wrong", "instead", "not "}},
	{memtypes.KindBugFix, []string{"bug", "fixed", "fix:", "crash", "error"}},
	{memtypes.KindConvention, []string{"always", "never", "convention", "style", "prefer"}},
	{memtypes.KindDecision, []string{"decided", "decision", "we will", "going with", "chose"}},
}

func classifyQuickStoreKind(text string) memtypes.Kind {
	lower := strings.ToLower(text)
	for _, entry := range quickStoreKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.kind
			}
		}
	}
	return memtypes.KindInsight
}

// storeItem runs the quality gate then Add, formatting the §4.8.2
// contradiction note when the store flags one.
func (s *Server) storeItem(ctx context.Context, kind memtypes.Kind, content, reason string, files, tags []string) toolResult {
	if rej := quality.Check(content); rej != nil {
		return errorResult(fmt.Sprintf("rejected (%s): %s", rej.Rule, rej.Message))
	}

	result, err := s.store.Add(ctx, memtypes.Item{
		Kind:         kind,
		Intent:       content,
		Reason:       reason,
		RelatedFiles: files,
		Tags:         tags,
		Confidence:   0.8,
		Importance:   0.5,
	})
	if err != nil {
		return errorResult("store failed: " + err.Error())
	}

	var b strings.Builder
	if result.Deduped {
		fmt.Fprintf(&b, "Duplicate of existing memory %s; access count bumped.", result.Item.ID)
	} else {
		fmt.Fprintf(&b, "Stored %s memory %s.", kind, result.Item.ID)
	}
	if result.ContradictionFound {
		fmt.Fprintf(&b, " Note: this contradicts an earlier memory (%s), which has been superseded.", result.SupersededID)
	}
	return textResult(b.String())
}
