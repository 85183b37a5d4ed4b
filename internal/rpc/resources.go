package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"cortexmcp/internal/assembler"
)

const brainContextURI = "cortex://brain-context"

type resourcesListResult struct {
	Resources []resourceSchema `json:"resources"`
}

func (s *Server) handleResourcesList() resourcesListResult {
	if s.degraded {
		return resourcesListResult{}
	}
	return resourcesListResult{
		Resources: []resourceSchema{
			{
				URI:         brainContextURI,
				Name:        "brain-context",
				Description: "Context Assembler output: the layered priming text for the current workspace",
				MimeType:    "text/plain",
			},
		},
	}
}

type resourceReadParams struct {
	URI string `json:"uri"`
}

type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

type resourcesReadResult struct {
	Contents []resourceContent `json:"contents"`
}

func (s *Server) handleResourcesRead(ctx context.Context, raw json.RawMessage) (interface{}, *rpcError) {
	if s.degraded {
		return nil, &rpcError{Code: codeInternalError, Message: "degraded mode: " + s.degradedReason}
	}
	var params resourceReadParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params"}
	}
	if params.URI != brainContextURI {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("unknown resource %q", params.URI)}
	}

	text, err := s.assembler.Assemble(ctx, assembler.Request{})
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
	}
	return resourcesReadResult{Contents: []resourceContent{{URI: params.URI, MimeType: "text/plain", Text: text}}}, nil
}
