package rpc

import (
	"context"
	"encoding/json"

	"cortexmcp/internal/assembler"
)

type forceRecallArgs struct {
	Topic       string `json:"topic"`
	CurrentFile string `json:"currentFile"`
}

// toolForceRecall invokes the Context Assembler directly (spec.md §4.9);
// the assembler's topic-search section goes through the Hybrid Retriever
// and its recall cache. Shared by force_recall and its get_context alias.
func (s *Server) toolForceRecall(ctx context.Context, raw json.RawMessage) toolResult {
	var args forceRecallArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}

	text, err := s.assembler.Assemble(ctx, assembler.Request{Topic: args.Topic, CurrentFile: args.CurrentFile})
	if err != nil {
		return errorResult("context assembly failed: " + err.Error())
	}
	if text == "" {
		return textResult("No context available yet.")
	}
	return textResult(text)
}
