package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/ranker"
	"cortexmcp/internal/retriever"
)

// recallQueryMax is the §6/§8 RPC-boundary bound on recall_memory's query
// string; the quality gate's own 500-char bound (internal/quality) governs
// stored content, not retrieval queries.
const recallQueryMax = 1000
const recallMaxResultsCap = 50
const defaultMaxResults = 10

type recallMemoryArgs struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"maxResults"`
	CurrentFile string `json:"currentFile"`
}

func (s *Server) toolRecallMemory(ctx context.Context, raw json.RawMessage) toolResult {
	var args recallMemoryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("query is required")
	}
	if len(args.Query) > recallQueryMax {
		return errorResult(fmt.Sprintf("query is %d characters, maximum is %d", len(args.Query), recallQueryMax))
	}

	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > recallMaxResultsCap {
		maxResults = recallMaxResultsCap
	}

	hits, err := s.retriever.Search(ctx, retriever.Query{
		Text:        args.Query,
		CurrentFile: args.CurrentFile,
		MaxResults:  maxResults,
	})
	if err != nil {
		return errorResult("recall failed: " + err.Error())
	}

	ranked := ranker.Rank(hits, ranker.Context{Query: args.Query, CurrentFile: args.CurrentFile, NowMs: s.store.Now()})
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	return textResult(formatRankedItems(ranked))
}

func formatRankedItems(items []memtypes.ScoredItem) string {
	if len(items) == 0 {
		return "No memories matched."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d memories found:\n", len(items))
	for i, si := range items {
		fmt.Fprintf(&b, "%d. [%s] (score %.3f) %s", i+1, si.Item.Kind, si.Score, si.Item.Intent)
		if si.Item.Action != "" {
			fmt.Fprintf(&b, " (%s)", si.Item.Action)
		}
		if len(si.Item.RelatedFiles) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(si.Item.RelatedFiles, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
