package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/quality"
)

const autoLearnTextMin = 20

type autoLearnArgs struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// sentenceSplit separates free text into candidate sentences (spec.md §6:
// "regex-extracts candidate items"). LLM augmentation is named as optional
// in the same line; no LLM client is wired in this build (DESIGN.md), so
// extraction is regex-only.
var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

func (s *Server) toolAutoLearn(ctx context.Context, raw json.RawMessage) toolResult {
	var args autoLearnArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	trimmed := strings.TrimSpace(args.Text)
	if len(trimmed) < autoLearnTextMin {
		return errorResult(fmt.Sprintf("text is %d characters, minimum is %d", len(trimmed), autoLearnTextMin))
	}

	candidates := extractCandidates(trimmed)
	if len(candidates) == 0 {
		return textResult("No candidate memories extracted.")
	}

	stored, skipped := 0, 0
	var ids []string
	for _, content := range candidates {
		if rej := quality.Check(content); rej != nil {
			skipped++
			continue
		}
		kind := classifyQuickStoreKind(content)
		result, err := s.store.Add(ctx, memtypes.Item{
			Kind:       kind,
			Intent:     content,
			Reason:     args.Context,
			Confidence: 0.6,
			Importance: 0.4,
		})
		if err != nil {
			skipped++
			continue
		}
		stored++
		ids = append(ids, result.Item.ID)
	}

	return textResult(fmt.Sprintf("Extracted %d candidates: %d stored, %d skipped. Ids: %s",
		len(candidates), stored, skipped, strings.Join(ids, ", ")))
}

// extractCandidates splits text into sentence-sized candidates and keeps
// the ones that look like standalone statements (spec.md §4.3's minimum
// length applies again downstream via the quality gate).
func extractCandidates(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	var out []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if len(trimmed) < 15 {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
