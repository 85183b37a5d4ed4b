package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is the fallback Embedder used when no model-backed engine
// loads (spec.md §4.2). It implements a TF-weighted unigram/bigram/trigram
// feature hasher, multi-hashed with DJB2 and FNV-1a into D dimensions with
// sign-bit dispersion (the standard feature-hashing trick), then
// L2-normalized. Search quality is lower than a learned embedding but the
// contract — unit vector, cosine similarity meaningful — holds.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a hasher producing vectors of the given width.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) Dimensions() int { return h.dims }
func (h *HashEmbedder) Name() string    { return "hash-tfidf-fallback" }

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return h.embedOne(text), nil
}

func (h *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embedOne(t)
	}
	return out, nil
}

// ngramWeight is a heuristic stand-in for an IDF term: shorter n-grams are
// more common across documents so carry less discriminative weight.
var ngramWeight = map[int]float64{1: 1.0, 2: 0.7, 3: 0.5}

func (h *HashEmbedder) embedOne(text string) []float32 {
	tokens := splitWords(text)
	counts := make(map[string]int)
	order := make(map[string]int) // n-gram order (1,2,3), for weighting

	addGram := func(gram string, n int) {
		counts[gram]++
		order[gram] = n
	}

	for i, t := range tokens {
		addGram(t, 1)
		if i+1 < len(tokens) {
			addGram(tokens[i]+"_"+tokens[i+1], 2)
		}
		if i+2 < len(tokens) {
			addGram(tokens[i]+"_"+tokens[i+1]+"_"+tokens[i+2], 3)
		}
	}

	vec := make([]float64, h.dims)
	for gram, count := range counts {
		tf := 1.0 + math.Log(float64(count))
		weight := tf * ngramWeight[order[gram]]

		d1 := djb2(gram)
		d2 := fnv1a(gram)

		idx1 := int(d1 % uint64(h.dims))
		sign1 := signBit(d1)
		vec[idx1] += sign1 * weight

		idx2 := int(d2 % uint64(h.dims))
		sign2 := signBit(d2)
		vec[idx2] += sign2 * weight
	}

	out := make([]float32, h.dims)
	for i, v := range vec {
		out[i] = float32(v)
	}
	return normalize(out)
}

func signBit(h uint64) float64 {
	if h&1 == 1 {
		return 1.0
	}
	return -1.0
}

func djb2(s string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(s); i++ {
		h = ((h << 5) + h) + uint64(s[i]) // h*33 + c
	}
	return h
}

func fnv1a(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// splitWords lowercases, strips punctuation, and splits camelCase /
// snake_case / kebab-case tokens into their component subwords.
func splitWords(text string) []string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r) || unicode.IsPunct(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])):
			flush()
			cur.WriteRune(r)
		case unicode.IsUpper(r) && i > 0 && unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// End of an acronym run: "JSONPayload" splits before "Payload".
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// normalize L2-normalizes v. A zero vector is returned unchanged (callers
// must treat it as having similarity 0 against anything, per spec.md §4.4).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
