package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexmcp/internal/assembler"
	"cortexmcp/internal/config"
	"cortexmcp/internal/memory"
	"cortexmcp/internal/retriever"
	"cortexmcp/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ms := memory.New(db, nil)
	r := retriever.New(ms)
	asm := assembler.New(ms, r, dir, nil)
	return New(ms, r, asm, config.Default().Limits, dir)
}

func TestHandleLineInitialize(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleLine(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)

	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"name":"cortex-mcp"`)
}

func TestHandleLineNotificationReturnsNil(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleLine(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, resp)
}

func TestHandleLineUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleLine(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"bogus"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestHandleLineParseError(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleLine(context.Background(), []byte(`not json`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestToolsListIncludesAllSixteenTools(t *testing.T) {
	s := newTestServer(t)
	result := s.handleToolsList()
	assert.Len(t, result.Tools, 16)
}

func TestStoreThenRecallMemoryRoundTrips(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	storeArgs, _ := json.Marshal(map[string]any{"name": "store_memory", "arguments": map[string]any{
		"type": "CONVENTION", "content": "always run gofmt before committing code changes",
	}})
	res, rerr := s.handleToolsCall(ctx, storeArgs)
	require.Nil(t, rerr)
	tr := res.(toolResult)
	require.False(t, tr.IsError, tr.Content)

	recallArgs, _ := json.Marshal(map[string]any{"name": "recall_memory", "arguments": map[string]any{
		"query": "gofmt",
	}})
	res, rerr = s.handleToolsCall(ctx, recallArgs)
	require.Nil(t, rerr)
	tr = res.(toolResult)
	assert.False(t, tr.IsError)
	assert.Contains(t, tr.Content[0].Text, "gofmt")
}

func TestStoreMemoryRejectsTooShortContent(t *testing.T) {
	s := newTestServer(t)
	args, _ := json.Marshal(map[string]any{"name": "store_memory", "arguments": map[string]any{
		"type": "INSIGHT", "content": "short",
	}})
	res, rerr := s.handleToolsCall(context.Background(), args)
	require.Nil(t, rerr)
	tr := res.(toolResult)
	assert.True(t, tr.IsError)
}

func TestToolsCallRejectsUnknownTool(t *testing.T) {
	s := newTestServer(t)
	args, _ := json.Marshal(map[string]any{"name": "not_a_tool", "arguments": map[string]any{}})
	res, rerr := s.handleToolsCall(context.Background(), args)
	require.Nil(t, rerr)
	tr := res.(toolResult)
	assert.True(t, tr.IsError)
}

func TestDegradedServerRejectsToolCalls(t *testing.T) {
	s := NewDegraded("storage init failed")
	args, _ := json.Marshal(map[string]any{"name": "health_check", "arguments": map[string]any{}})
	res, rerr := s.handleToolsCall(context.Background(), args)
	require.Nil(t, rerr)
	tr := res.(toolResult)
	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content[0].Text, "degraded")
}

func TestRunSkipsBlankLinesAndWritesOneResponsePerRequest(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader("\n{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"initialize\"}\n\n")
	var out bytes.Buffer
	err := s.Run(context.Background(), in, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestRateLimitExceededReturnsIsError(t *testing.T) {
	s := newTestServer(t)
	s.limits.MaxTotalCalls = 1
	args, _ := json.Marshal(map[string]any{"name": "health_check", "arguments": map[string]any{}})

	res, rerr := s.handleToolsCall(context.Background(), args)
	require.Nil(t, rerr)
	assert.False(t, res.(toolResult).IsError)

	res, rerr = s.handleToolsCall(context.Background(), args)
	require.Nil(t, rerr)
	assert.True(t, res.(toolResult).IsError)
}
