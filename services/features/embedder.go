package features

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// HashingEmbedder is a deterministic stand-in for a real embedding
// model: it hashes word n-grams into a fixed-size vector and
// L2-normalizes the result. Similar texts map to similar vectors,
// which is enough for local development and retry detection.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates an embedder producing vectors of the
// given dimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	return &HashingEmbedder{dim: dim}
}

// Embed hashes the text's unigrams and bigrams into the vector.
func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dim)

	words := strings.Fields(strings.ToLower(text))
	add := func(token string) {
		sum := sha256.Sum256([]byte(token))
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(e.dim)
		sign := 1.0
		if sum[4]&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}
	for i, w := range words {
		add(w)
		if i > 0 {
			add(words[i-1] + " " + w)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}
