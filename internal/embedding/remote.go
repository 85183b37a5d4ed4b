package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cortexmcp/internal/logging"
)

// embedTimeout bounds a single request to the remote embedding server
// (spec.md §4.2, §5): the caller proceeds with FTS-only results if this
// elapses.
const embedTimeout = 30 * time.Second

// RemoteEmbedder wraps a local sentence-transformer-style HTTP server (the
// MiniLM-class model named in spec.md §1, pluggable behind this interface).
type RemoteEmbedder struct {
	endpoint string
	dims     int
	client   *http.Client
}

// NewRemoteEmbedder builds a client for a server exposing POST {endpoint}/embed.
func NewRemoteEmbedder(endpoint string, dims int) *RemoteEmbedder {
	return &RemoteEmbedder{
		endpoint: endpoint,
		dims:     dims,
		client:   &http.Client{Timeout: embedTimeout},
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

func (r *RemoteEmbedder) Dimensions() int { return r.dims }
func (r *RemoteEmbedder) Name() string    { return "remote-minilm" }

// Ready performs a zero-text health probe against the server.
func (r *RemoteEmbedder) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (r *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := r.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding server returned no vectors")
	}
	return vecs[0], nil
}

func (r *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "RemoteEmbedder.EmbedBatch")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("remote embed call failed: %v", err)
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	for i, v := range out.Vectors {
		out.Vectors[i] = normalize(v)
	}
	return out.Vectors, nil
}
