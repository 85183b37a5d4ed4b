package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// toolHandler implements one tool's business logic. It always returns a
// toolResult; failures are reported via IsError, never a Go error that
// would escape as an RPC error object (spec.md §7).
type toolHandler func(s *Server, ctx context.Context, raw json.RawMessage) toolResult

type toolEntry struct {
	schema  toolSchema
	handler toolHandler
	// counts selects which rate-limit counter(s) this tool consumes
	// beyond the always-incremented total (spec.md §5).
	countsAsStore     bool
	countsAsAutoLearn bool
}

var toolRegistry = map[string]toolEntry{
	"recall_memory": {
		schema:  toolSchema{Name: "recall_memory", Description: "Retrieve ranked memories matching a query", InputSchema: schemaRecallMemory},
		handler: (*Server).toolRecallMemory,
	},
	"store_memory": {
		schema:        toolSchema{Name: "store_memory", Description: "Store a typed memory item", InputSchema: schemaStoreMemory},
		handler:       (*Server).toolStoreMemory,
		countsAsStore: true,
	},
	"quick_store": {
		schema:        toolSchema{Name: "quick_store", Description: "Store a memory, auto-classifying its kind", InputSchema: schemaQuickStore},
		handler:       (*Server).toolQuickStore,
		countsAsStore: true,
	},
	"force_recall": {
		schema:  toolSchema{Name: "force_recall", Description: "Assemble the full layered context for a topic", InputSchema: schemaForceRecall},
		handler: (*Server).toolForceRecall,
	},
	"get_context": {
		schema:  toolSchema{Name: "get_context", Description: "Alias of force_recall with an optional topic", InputSchema: schemaForceRecall},
		handler: (*Server).toolForceRecall,
	},
	"auto_learn": {
		schema:            toolSchema{Name: "auto_learn", Description: "Extract candidate memories from free text", InputSchema: schemaAutoLearn},
		handler:           (*Server).toolAutoLearn,
		countsAsAutoLearn: true,
	},
	"update_memory": {
		schema:  toolSchema{Name: "update_memory", Description: "Replace a memory's content, superseding the original", InputSchema: schemaUpdateMemory},
		handler: (*Server).toolUpdateMemory,
	},
	"delete_memory": {
		schema:  toolSchema{Name: "delete_memory", Description: "Soft-delete a memory by id", InputSchema: schemaDeleteMemory},
		handler: (*Server).toolDeleteMemory,
	},
	"list_memories": {
		schema:  toolSchema{Name: "list_memories", Description: "List active memories, optionally filtered by kind", InputSchema: schemaListMemories},
		handler: (*Server).toolListMemories,
	},
	"get_stats": {
		schema:  toolSchema{Name: "get_stats", Description: "Report active/total item counts and this session's call counts against the rate limits", InputSchema: schemaEmpty},
		handler: (*Server).toolGetStats,
	},
	"health_check": {
		schema:  toolSchema{Name: "health_check", Description: "Report adapter health, including degraded-mode status", InputSchema: schemaEmpty},
		handler: (*Server).toolHealthCheck,
	},
	"scan_project": {
		schema:  toolSchema{Name: "scan_project", Description: "Project scanner plumbing (external scanner seam)", InputSchema: schemaEmpty},
		handler: (*Server).toolScanProject,
	},
	"verify_code": {
		schema:  toolSchema{Name: "verify_code", Description: "Code verifier plumbing (external scanner seam)", InputSchema: schemaEmpty},
		handler: (*Server).toolVerifyCode,
	},
	"verify_files": {
		schema:  toolSchema{Name: "verify_files", Description: "File verifier plumbing (external scanner seam)", InputSchema: schemaEmpty},
		handler: (*Server).toolVerifyFiles,
	},
	"export_memories": {
		schema:  toolSchema{Name: "export_memories", Description: "Export all memories as a versioned bundle", InputSchema: schemaEmpty},
		handler: (*Server).toolExportMemories,
	},
	"import_memories": {
		schema:  toolSchema{Name: "import_memories", Description: "Import a versioned bundle, idempotently", InputSchema: schemaImportMemories},
		handler: (*Server).toolImportMemories,
	},
}

var schemaEmpty = json.RawMessage(`{"type":"object","properties":{}}`)
var schemaRecallMemory = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"},"maxResults":{"type":"integer"},"currentFile":{"type":"string"}},"required":["query"]}`)
var schemaStoreMemory = json.RawMessage(`{"type":"object","properties":{"type":{"type":"string"},"content":{"type":"string"},"reason":{"type":"string"},"files":{"type":"array","items":{"type":"string"}},"tags":{"type":"array","items":{"type":"string"}}},"required":["type","content"]}`)
var schemaQuickStore = json.RawMessage(`{"type":"object","properties":{"memory":{"type":"string"}},"required":["memory"]}`)
var schemaForceRecall = json.RawMessage(`{"type":"object","properties":{"topic":{"type":"string"},"currentFile":{"type":"string"}}}`)
var schemaAutoLearn = json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"},"context":{"type":"string"}},"required":["text"]}`)
var schemaUpdateMemory = json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"},"content":{"type":"string"},"reason":{"type":"string"}},"required":["id","content"]}`)
var schemaDeleteMemory = json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"},"reason":{"type":"string"}},"required":["id"]}`)
var schemaListMemories = json.RawMessage(`{"type":"object","properties":{"type":{"type":"string"},"limit":{"type":"integer"}}}`)
var schemaImportMemories = json.RawMessage(`{"type":"object","properties":{"data":{"type":"object"}},"required":["data"]}`)

type toolsListResult struct {
	Tools []toolSchema `json:"tools"`
}

func (s *Server) handleToolsList() toolsListResult {
	var out toolsListResult
	for _, name := range toolOrder {
		out.Tools = append(out.Tools, toolRegistry[name].schema)
	}
	return out
}

// toolOrder fixes tools/list's output order (map iteration is
// unordered in Go, and a stable listing is friendlier for clients/tests).
var toolOrder = []string{
	"recall_memory", "store_memory", "quick_store", "force_recall", "get_context",
	"auto_learn", "update_memory", "delete_memory", "list_memories", "get_stats",
	"health_check", "scan_project", "verify_code", "verify_files",
	"export_memories", "import_memories",
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall dispatches a tools/call request. Rate-limit rejection,
// unknown tool names, and handler-level failures are all result-level
// isError payloads (spec.md §7) — only a malformed params envelope is a
// framing-level error.
func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (interface{}, *rpcError) {
	if s.degraded {
		return toolResultEnvelope(errorResult("degraded mode: " + s.degradedReason)), nil
	}

	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params"}
	}

	entry, ok := toolRegistry[params.Name]
	if !ok {
		return toolResultEnvelope(errorResult(fmt.Sprintf("unknown tool %q", params.Name))), nil
	}

	if rejected := s.checkRateLimit(entry); rejected != "" {
		return toolResultEnvelope(errorResult(rejected)), nil
	}

	result := entry.handler(s, ctx, params.Arguments)
	return toolResultEnvelope(result), nil
}

func toolResultEnvelope(r toolResult) toolResult { return r }

// checkRateLimit enforces spec.md §5's per-process-lifetime call caps,
// returning a human-readable rejection reason or "" if the call may
// proceed.
func (s *Server) checkRateLimit(entry toolEntry) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limits.MaxTotalCalls > 0 && s.totalCalls >= s.limits.MaxTotalCalls {
		return fmt.Sprintf("rate limit exceeded: %d total calls this session", s.limits.MaxTotalCalls)
	}
	if entry.countsAsStore && s.limits.MaxStoreCalls > 0 && s.storeCalls >= s.limits.MaxStoreCalls {
		return fmt.Sprintf("rate limit exceeded: %d store calls this session", s.limits.MaxStoreCalls)
	}
	if entry.countsAsAutoLearn && s.limits.MaxAutoLearnCalls > 0 && s.learnCalls >= s.limits.MaxAutoLearnCalls {
		return fmt.Sprintf("rate limit exceeded: %d auto_learn calls this session", s.limits.MaxAutoLearnCalls)
	}

	s.totalCalls++
	if entry.countsAsStore {
		s.storeCalls++
	}
	if entry.countsAsAutoLearn {
		s.learnCalls++
	}
	return ""
}
