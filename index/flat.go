package index

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"sort"

	"ragchat/model"
	"ragchat/types"
)

// Flat is a brute-force cosine-distance index persisted to a single file.
// At the scale of one assistant's document set an exact scan is both
// simpler and better-ranked than an approximate structure.
type Flat struct {
	embedder model.Embedder
	savePath string

	loaded   bool
	modelTag string
	chunks   []types.Chunk
	vectors  [][]float32
}

// flatState is the on-disk layout at savePath.
type flatState struct {
	ModelTag string
	Chunks   []types.Chunk
	Vectors  [][]float32
}

func NewFlat(embedder model.Embedder, savePath string) *Flat {
	return &Flat{
		embedder: embedder,
		savePath: savePath,
	}
}

func (f *Flat) Load(_ context.Context) error {
	file, err := os.Open(f.savePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, f.savePath)
	}
	if err != nil {
		return fmt.Errorf("open index %s: %w", f.savePath, err)
	}
	defer file.Close()

	var state flatState
	if err := gob.NewDecoder(file).Decode(&state); err != nil {
		return fmt.Errorf("decode index %s: %w", f.savePath, err)
	}
	if state.ModelTag != f.embedder.ModelName() {
		return fmt.Errorf("%w: %s holds vectors from %q, configured model is %q",
			ErrModelMismatch, f.savePath, state.ModelTag, f.embedder.ModelName())
	}

	f.modelTag = state.ModelTag
	f.chunks = state.Chunks
	f.vectors = state.Vectors
	f.loaded = true
	return nil
}

func (f *Flat) Build(ctx context.Context, chunks []types.Chunk) error {
	vectors, err := f.embed(ctx, chunks)
	if err != nil {
		return err
	}
	f.chunks = chunks
	f.vectors = vectors
	f.modelTag = f.embedder.ModelName()
	f.loaded = true
	return f.save()
}

func (f *Flat) Add(ctx context.Context, chunks []types.Chunk) error {
	if !f.loaded {
		return ErrNotInitialized
	}
	vectors, err := f.embed(ctx, chunks)
	if err != nil {
		return err
	}
	f.chunks = append(f.chunks, chunks...)
	f.vectors = append(f.vectors, vectors...)
	return f.save()
}

func (f *Flat) Rebuild(ctx context.Context, chunks []types.Chunk) error {
	return f.Build(ctx, chunks)
}

func (f *Flat) Search(_ context.Context, query []float32, k int) ([]types.ScoredChunk, error) {
	if !f.loaded {
		return nil, ErrNotInitialized
	}
	if k <= 0 {
		k = types.DefaultKRetriever
	}
	if len(f.vectors) > 0 && len(query) != len(f.vectors[0]) {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d",
			len(query), len(f.vectors[0]))
	}

	scored := make([]types.ScoredChunk, len(f.chunks))
	for i := range f.chunks {
		scored[i] = types.ScoredChunk{
			Chunk:    f.chunks[i],
			Distance: cosineDistance(query, f.vectors[i]),
		}
	}
	// Stable sort keeps insertion order on equal distances.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (f *Flat) SetEmbedder(e model.Embedder) { f.embedder = e }

func (f *Flat) Chunks() []types.Chunk {
	out := make([]types.Chunk, len(f.chunks))
	copy(out, f.chunks)
	return out
}

func (f *Flat) ModelTag() string { return f.modelTag }

func (f *Flat) Len() int { return len(f.chunks) }

func (f *Flat) embed(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := f.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

// save synchronously persists the full state. Called at the end of every
// mutating operation.
func (f *Flat) save() error {
	file, err := os.Create(f.savePath)
	if err != nil {
		return fmt.Errorf("create index %s: %w", f.savePath, err)
	}
	defer file.Close()

	state := flatState{
		ModelTag: f.modelTag,
		Chunks:   f.chunks,
		Vectors:  f.vectors,
	}
	if err := gob.NewEncoder(file).Encode(&state); err != nil {
		return fmt.Errorf("encode index %s: %w", f.savePath, err)
	}
	return nil
}

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
