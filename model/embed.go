package model

import (
	"context"
	"math"
)

// Embedder maps texts to fixed-dimension vectors, one vector per input,
// order preserved. A bot never mixes vectors of two embedders in one
// index; swapping the embedder forces a full re-embed.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Generator produces an answer for a fully assembled prompt. Local and
// remote backends are interchangeable behind this contract.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// normalize scales a vector to unit length so cosine distance reduces to
// a dot product.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, x := range vec {
		vec[i] = x / norm
	}
	return vec
}
