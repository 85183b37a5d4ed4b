package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDimensionsAndUnitLength(t *testing.T) {
	h := NewHashEmbedder(384)
	v, err := h.Embed(context.Background(), "Always use Zod for schema validation")
	require.NoError(t, err)
	require.Len(t, v, 384)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-3)
}

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(128)
	v1, _ := h.Embed(context.Background(), "use functional components in React")
	v2, _ := h.Embed(context.Background(), "use functional components in React")
	assert.Equal(t, v1, v2)
}

func TestHashEmbedderSimilarTextMoreSimilarThanUnrelated(t *testing.T) {
	h := NewHashEmbedder(256)
	a, _ := h.Embed(context.Background(), "Always use Zod for schema validation in this project")
	b, _ := h.Embed(context.Background(), "Use Zod schema validation for user signup")
	c, _ := h.Embed(context.Background(), "The deployment pipeline runs on Kubernetes nightly")

	simAB := cosine(a, b)
	simAC := cosine(a, c)
	assert.Greater(t, simAB, simAC)
}

func TestHashEmbedderEmptyTextYieldsZeroVector(t *testing.T) {
	h := NewHashEmbedder(32)
	v, err := h.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestSplitWordsCamelAndSnakeCase(t *testing.T) {
	got := splitWords("parseJSONPayload file_path-name")
	assert.Contains(t, got, "parse")
	assert.Contains(t, got, "json")
	assert.Contains(t, got, "payload")
	assert.Contains(t, got, "file")
	assert.Contains(t, got, "path")
	assert.Contains(t, got, "name")
}

func cosine(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
