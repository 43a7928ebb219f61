package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ragchat/index"
	"ragchat/loader"
	"ragchat/model"
	"ragchat/splitter"
	"ragchat/types"
)

// ErrNotReady is returned by Chat while no index exists: no sources at
// construction, none added since, nothing persisted at the save path.
var ErrNotReady = errors.New("chatbot not ready: ingest documents first")

// Bot wires loading, chunking, embedding, retrieval and generation into a
// single Chat entry point. One operation runs at a time; concurrent use
// must be serialized by the caller.
type Bot struct {
	cfg       types.Config
	sources   []types.SourceDescriptor
	loader    *loader.Loader
	splitter  *splitter.Splitter
	embedder  model.Embedder
	generator model.Generator
	index     index.Store
	memory    *Memory
	ready     bool
	logger    *slog.Logger
}

// New builds the orchestrator. When the save path already holds a
// persisted index it is loaded; otherwise the given sources are ingested
// and a fresh index is built. An index persisted by a different embedding
// model is discarded and rebuilt the same way.
func New(ctx context.Context, cfg types.Config, generator model.Generator, embedder model.Embedder, idx index.Store, sources []types.SourceDescriptor) (*Bot, error) {
	cfg.ApplyDefaults()

	b := &Bot{
		cfg:       cfg,
		sources:   sources,
		loader:    loader.New(),
		splitter:  splitter.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder:  embedder,
		generator: generator,
		index:     idx,
		memory:    NewMemory(),
		logger:    slog.Default(),
	}

	err := idx.Load(ctx)
	switch {
	case err == nil:
		b.ready = true
		b.logger.Info("loaded persisted vector index", "chunks", idx.Len(), "model", idx.ModelTag())
	case errors.Is(err, index.ErrNotFound), errors.Is(err, index.ErrModelMismatch):
		if errors.Is(err, index.ErrModelMismatch) {
			b.logger.Warn("discarding persisted vector index", "reason", err)
		}
		if len(sources) == 0 {
			break
		}
		chunks, err := b.ingest(ctx, sources)
		if err != nil {
			return nil, err
		}
		if err := idx.Build(ctx, chunks); err != nil {
			return nil, fmt.Errorf("build vector index: %w", err)
		}
		b.ready = true
		b.logger.Info("built vector index", "chunks", idx.Len(), "save_path", cfg.SavePath)
	default:
		return nil, fmt.Errorf("load vector index: %w", err)
	}

	return b, nil
}

// ingest loads and splits a source set, failing the whole batch on any
// loader error.
func (b *Bot) ingest(ctx context.Context, sources []types.SourceDescriptor) ([]types.Chunk, error) {
	docs, err := b.loader.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	return b.splitter.Split(docs), nil
}

// Chat answers a question from the indexed documents and the conversation
// so far, and records the turn.
func (b *Bot) Chat(ctx context.Context, question string) (string, []types.ScoredChunk, error) {
	if !b.ready {
		return "", nil, ErrNotReady
	}

	vecs, err := b.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := b.index.Search(ctx, vecs[0], b.cfg.KRetriever)
	if err != nil {
		return "", nil, fmt.Errorf("search vector index: %w", err)
	}

	prompt := buildPrompt(b.cfg.SystemPrompt, hits, question, b.memory.Render())
	if n, err := promptTokens(prompt); err == nil {
		b.logger.Info("assembled prompt", "tokens", n, "chunks", len(hits), "history_turns", b.memory.Len())
	}

	answer, err := b.generator.Generate(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}

	b.memory.Record(question, answer)
	return answer, hits, nil
}

// AddSources ingests only the new sources and appends their chunks to the
// index, leaving existing entries untouched.
func (b *Bot) AddSources(ctx context.Context, newSources []types.SourceDescriptor) error {
	chunks, err := b.ingest(ctx, newSources)
	if err != nil {
		return err
	}

	if b.ready {
		err = b.index.Add(ctx, chunks)
	} else {
		err = b.index.Build(ctx, chunks)
	}
	if err != nil {
		return fmt.Errorf("index new sources: %w", err)
	}

	b.sources = append(b.sources, newSources...)
	b.ready = true
	b.logger.Info("added sources", "new", len(newSources), "chunks", b.index.Len())
	return nil
}

// RemoveSources drops the given descriptors and re-derives the index from
// the entire remaining source set, so no stale chunks survive.
func (b *Bot) RemoveSources(ctx context.Context, toRemove []types.SourceDescriptor) error {
	drop := make(map[string]struct{}, len(toRemove))
	for _, src := range toRemove {
		drop[src.Key()] = struct{}{}
	}

	var remaining []types.SourceDescriptor
	for _, src := range b.sources {
		if _, ok := drop[src.Key()]; !ok {
			remaining = append(remaining, src)
		}
	}

	chunks, err := b.ingest(ctx, remaining)
	if err != nil {
		return err
	}
	if err := b.index.Rebuild(ctx, chunks); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	b.sources = remaining
	b.logger.Info("removed sources", "removed", len(toRemove), "remaining", len(remaining), "chunks", b.index.Len())
	return nil
}

// ChangeModel swaps the generation backend and re-initializes the
// conversation chain, which resets the chat history.
func (b *Bot) ChangeModel(generator model.Generator) {
	b.generator = generator
	b.resetChain()
	b.logger.Info("generation backend replaced")
}

// ChangeRetriever swaps the embedder and re-embeds the whole chunk set, so
// the index never mixes vectors of two embedding models.
func (b *Bot) ChangeRetriever(ctx context.Context, embedder model.Embedder) error {
	b.embedder = embedder
	b.index.SetEmbedder(embedder)
	if err := b.index.Rebuild(ctx, b.index.Chunks()); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}
	b.cfg.EmbeddingsModel = embedder.ModelName()
	b.resetChain()
	b.logger.Info("embedder replaced", "model", embedder.ModelName(), "chunks", b.index.Len())
	return nil
}

// ChangePrompt replaces the system prompt template. No index work needed.
func (b *Bot) ChangePrompt(systemPrompt string) {
	b.cfg.SystemPrompt = systemPrompt
	b.resetChain()
	b.logger.Info("system prompt replaced")
}

// resetChain mirrors the conversation chain re-initialization: a fresh
// chain starts with fresh memory.
func (b *Bot) resetChain() {
	b.memory = NewMemory()
}

func (b *Bot) Ready() bool { return b.ready }

func (b *Bot) Memory() *Memory { return b.memory }

func (b *Bot) Sources() []types.SourceDescriptor {
	out := make([]types.SourceDescriptor, len(b.sources))
	copy(out, b.sources)
	return out
}

// Len reports the current number of indexed chunks.
func (b *Bot) Len() int { return b.index.Len() }
