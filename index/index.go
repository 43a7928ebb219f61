package index

import (
	"context"
	"errors"

	"ragchat/model"
	"ragchat/types"
)

var (
	// ErrNotFound means the persisted location holds no index yet.
	ErrNotFound = errors.New("vector index not found")
	// ErrNotInitialized means the index was used before Build or Load.
	ErrNotInitialized = errors.New("vector index not initialized")
	// ErrModelMismatch means the persisted vectors were produced by a
	// different embedding model than the one configured.
	ErrModelMismatch = errors.New("vector index embedding model mismatch")
)

// Store persists embedded chunks and serves nearest-neighbour lookups.
// Build, Add and Rebuild embed with the configured embedder, tag the state
// with the embedder model name and persist before returning, so the stored
// and the in-memory state never diverge.
type Store interface {
	// Load restores a previously persisted index; ErrNotFound when the
	// location is empty.
	Load(ctx context.Context) error
	// Build replaces any content with freshly embedded chunks.
	Build(ctx context.Context, chunks []types.Chunk) error
	// Add embeds and appends without touching existing entries.
	Add(ctx context.Context, chunks []types.Chunk) error
	// Rebuild discards prior content entirely, from any state.
	Rebuild(ctx context.Context, chunks []types.Chunk) error
	// Search returns the k nearest chunks by ascending cosine distance,
	// ties broken by insertion order.
	Search(ctx context.Context, query []float32, k int) ([]types.ScoredChunk, error)
	// SetEmbedder swaps the embedding capability; the caller must
	// Rebuild afterwards so no mixed-model vectors survive.
	SetEmbedder(e model.Embedder)
	// Chunks returns the live chunk set.
	Chunks() []types.Chunk
	// ModelTag reports which embedding model produced the stored vectors.
	ModelTag() string
	Len() int
}
