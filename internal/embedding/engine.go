// Package embedding turns text into fixed-dimension unit vectors for
// semantic (cosine) search over stored memory items.
//
// Embedding runs off the request path: the store schedules a call after an
// item is persisted, and retrieval tolerates a not-yet-embedded item (it is
// still reachable via the FTS index). The contract below is what the rest
// of the engine depends on — who implements it is an adapter decision.
package embedding

import (
	"context"
)

// Embedder generates vector embeddings for text. Every returned vector is
// L2-normalized and has length Dimensions().
type Embedder interface {
	// Embed generates an embedding for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of vectors this embedder produces.
	Dimensions() int

	// Name identifies the embedder implementation, for logging and stats.
	Name() string
}

// HealthChecker is an optional capability: an Embedder that implements it
// can be probed before it is relied on for a batch of work.
type HealthChecker interface {
	// Ready returns nil if the embedder is reachable and usable.
	Ready(ctx context.Context) error
}

// Augmenter optionally enriches auto_learn extraction using an external
// LLM. It is never required: on error or when absent, extraction falls
// back to the regex-only heuristic (§4.9 tool auto_learn, spec.md §6).
type Augmenter interface {
	Augment(ctx context.Context, text, context string) ([]string, error)
}

// DefaultDimensions is the vector width used when no embedder is
// configured to report a different one (matches common sentence-transformer
// models such as MiniLM).
const DefaultDimensions = 384

// New selects an Embedder given a provider name. An empty or unknown
// provider, or a remote engine that fails its readiness probe, falls back
// to the hasher so the contract (unit vector, cosine similarity meaningful)
// always holds — only quality degrades.
func New(ctx context.Context, provider, endpoint string, dimensions int) Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if provider == "remote" && endpoint != "" {
		re := NewRemoteEmbedder(endpoint, dimensions)
		if err := re.Ready(ctx); err == nil {
			return re
		}
	}
	return NewHashEmbedder(dimensions)
}
