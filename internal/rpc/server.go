package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"cortexmcp/internal/assembler"
	"cortexmcp/internal/config"
	"cortexmcp/internal/logging"
	"cortexmcp/internal/memory"
	"cortexmcp/internal/retriever"
)

// serverName/serverVersion answer initialize (spec.md §4.9).
const serverName = "cortex-mcp"
const serverVersion = "0.1.0"

// Server reads line-delimited JSON-RPC 2.0 requests from stdin and writes
// responses to stdout, one object per line. Logs never touch stdout — a
// hard invariant (spec.md §4.9).
type Server struct {
	store     *memory.Store
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	limits    config.LimitsConfig
	workspace string

	degraded       bool
	degradedReason string

	mu         sync.Mutex
	storeCalls int
	learnCalls int
	totalCalls int
}

// New builds a Server over a fully-initialized storage stack.
func New(ms *memory.Store, r *retriever.Retriever, asm *assembler.Assembler, limits config.LimitsConfig, workspace string) *Server {
	return &Server{store: ms, retriever: r, assembler: asm, limits: limits, workspace: workspace}
}

// NewDegraded builds a Server that answers every tool call with a
// result-level error, because storage failed to initialize (spec.md §7
// Degraded-mode). The adapter keeps reading requests so the client can
// still call health_check.
func NewDegraded(reason string) *Server {
	return &Server{degraded: true, degradedReason: reason}
}

// Run reads requests from r and writes responses to w until EOF or ctx is
// cancelled. Each line is one JSON-RPC request; a blank line is skipped.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	out := bufio.NewWriter(w)
	defer out.Flush()

	log := logging.Get(logging.CategoryRPC)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			// Notification: no response per JSON-RPC 2.0.
			continue
		}
		encoded, err := json.Marshal(resp)
		if err != nil {
			log.Warn("marshal response: %v", err)
			continue
		}
		out.Write(encoded)
		out.WriteByte('\n')
		if err := out.Flush(); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}

// handleLine parses and dispatches one request. It returns nil for a
// notification (no id); a line that is not valid JSON gets a parse-error
// response with no id.
func (s *Server) handleLine(ctx context.Context, line []byte) *response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return &response{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}}
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return &response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}}
	}

	result, rerr := s.dispatch(ctx, req.Method, req.Params)

	isNotification := len(req.ID) == 0
	if isNotification {
		return nil
	}
	if rerr != nil {
		return &response{JSONRPC: "2.0", ID: req.ID, Error: rerr}
	}
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// dispatch routes one method to its handler (spec.md §4.9). Unknown
// methods, a malformed tools/call params envelope, and resources/read
// failures are RPC errors; tool failures surface as a result-level
// isError payload.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (interface{}, *rpcError) {
	switch method {
	case "initialize":
		return s.handleInitialize(), nil
	case "notifications/initialized":
		return nil, nil
	case "tools/list", "list_tools":
		return s.handleToolsList(), nil
	case "tools/call", "call_tool":
		return s.handleToolsCall(ctx, params)
	case "resources/list", "list_resources":
		return s.handleResourcesList(), nil
	case "resources/read", "read_resource":
		return s.handleResourcesRead(ctx, params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + method}
	}
}

type initializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities"`
	ServerInfo      serverInfo      `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleInitialize() initializeResult {
	return initializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities:    json.RawMessage(`{"tools":{},"resources":{}}`),
		ServerInfo:      serverInfo{Name: serverName, Version: serverVersion},
	}
}
