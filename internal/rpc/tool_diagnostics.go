package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *Server) toolGetStats(ctx context.Context, raw json.RawMessage) toolResult {
	active, err := s.store.ActiveCount()
	if err != nil {
		return errorResult("stats failed: " + err.Error())
	}
	total, err := s.store.TotalCount()
	if err != nil {
		return errorResult("stats failed: " + err.Error())
	}

	s.mu.Lock()
	storeCalls, learnCalls, totalCalls := s.storeCalls, s.learnCalls, s.totalCalls
	s.mu.Unlock()

	return textResult(fmt.Sprintf(
		"active=%d total=%d\nsession calls: store=%d/%d auto_learn=%d/%d total=%d/%d",
		active, total,
		storeCalls, s.limits.MaxStoreCalls,
		learnCalls, s.limits.MaxAutoLearnCalls,
		totalCalls, s.limits.MaxTotalCalls,
	))
}

func (s *Server) toolHealthCheck(ctx context.Context, raw json.RawMessage) toolResult {
	if s.degraded {
		return errorResult("degraded: " + s.degradedReason)
	}
	active, err := s.store.ActiveCount()
	if err != nil {
		return errorResult("storage unhealthy: " + err.Error())
	}
	return textResult(fmt.Sprintf("ok: storage reachable, %d active memories, workspace=%s", active, s.workspace))
}

// toolScanProject, toolVerifyCode, and toolVerifyFiles are the tool-surface
// slots for an external project/code scanner (spec.md §1, §4.8: scanners
// feed the assembler through the ProjectIndex seam, not through the RPC
// adapter directly). No scanner is wired in this build, so they report
// that plainly rather than attempting to scan anything themselves.
func (s *Server) toolScanProject(ctx context.Context, raw json.RawMessage) toolResult {
	return textResult("no project scanner configured; export_map/architecture_graph context sections are omitted")
}

func (s *Server) toolVerifyCode(ctx context.Context, raw json.RawMessage) toolResult {
	return textResult("no code verifier configured")
}

func (s *Server) toolVerifyFiles(ctx context.Context, raw json.RawMessage) toolResult {
	return textResult("no file verifier configured")
}
