package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ragchat/index"
	"ragchat/model"
	"ragchat/types"
)

const defaultDimension = 768

// Postgres implements index.Store on top of pgvector. Persistence is the
// database itself, so every mutating operation is durable once the
// statements commit.
type Postgres struct {
	pool     *pgxpool.Pool
	embedder model.Embedder
	dim      int

	loaded   bool
	modelTag string
	chunks   []types.Chunk
}

func NewPostgres(ctx context.Context, connStr string, embedder model.Embedder, dimension int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if dimension <= 0 {
		dimension = defaultDimension
	}

	p := &Postgres{pool: pool, embedder: embedder, dim: dimension}
	if err := p.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS rag_chunks (
		id UUID PRIMARY KEY,
		doc_id UUID NOT NULL,
		position INT NOT NULL,
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB,
		embedding vector(%d)
	);

	CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding ON rag_chunks
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

	CREATE TABLE IF NOT EXISTS rag_index_meta (
		id INT PRIMARY KEY DEFAULT 1,
		model_tag TEXT NOT NULL
	);
	`, p.dim)
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *Postgres) Load(ctx context.Context) error {
	var tag string
	err := p.pool.QueryRow(ctx, "SELECT model_tag FROM rag_index_meta WHERE id = 1").Scan(&tag)
	if err != nil {
		return fmt.Errorf("%w: no persisted pgvector index", index.ErrNotFound)
	}
	if tag != p.embedder.ModelName() {
		return fmt.Errorf("%w: stored vectors from %q, configured model is %q",
			index.ErrModelMismatch, tag, p.embedder.ModelName())
	}

	rows, err := p.pool.Query(ctx,
		"SELECT id, doc_id, chunk_index, content, metadata FROM rag_chunks ORDER BY position")
	if err != nil {
		return err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var meta []byte
		if err := rows.Scan(&c.ID, &c.DocID, &c.Index, &c.Content, &meta); err != nil {
			return err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &c.Metadata); err != nil {
				return fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	p.modelTag = tag
	p.chunks = chunks
	p.loaded = true
	return nil
}

func (p *Postgres) Build(ctx context.Context, chunks []types.Chunk) error {
	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, "TRUNCATE rag_chunks"); err != nil {
		return err
	}
	if err := p.insert(ctx, chunks, vectors, 0); err != nil {
		return err
	}

	tag := p.embedder.ModelName()
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO rag_index_meta (id, model_tag) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET model_tag = EXCLUDED.model_tag`, tag); err != nil {
		return err
	}

	p.modelTag = tag
	p.chunks = chunks
	p.loaded = true
	return nil
}

func (p *Postgres) Add(ctx context.Context, chunks []types.Chunk) error {
	if !p.loaded {
		return index.ErrNotInitialized
	}
	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return err
	}
	if err := p.insert(ctx, chunks, vectors, len(p.chunks)); err != nil {
		return err
	}
	p.chunks = append(p.chunks, chunks...)
	return nil
}

func (p *Postgres) Rebuild(ctx context.Context, chunks []types.Chunk) error {
	return p.Build(ctx, chunks)
}

func (p *Postgres) insert(ctx context.Context, chunks []types.Chunk, vectors [][]float32, basePos int) error {
	query := `
	INSERT INTO rag_chunks (id, doc_id, position, chunk_index, content, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode chunk metadata: %w", err)
		}
		_, err = p.pool.Exec(ctx, query,
			c.ID, c.DocID, basePos+i, c.Index, c.Content, meta, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

func (p *Postgres) Search(ctx context.Context, query []float32, k int) ([]types.ScoredChunk, error) {
	if !p.loaded {
		return nil, index.ErrNotInitialized
	}
	if k <= 0 {
		k = types.DefaultKRetriever
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, doc_id, chunk_index, content, metadata, embedding <=> $1 AS distance
		FROM rag_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, position
		LIMIT $2`, pgvector.NewVector(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []types.ScoredChunk
	for rows.Next() {
		var h types.ScoredChunk
		var meta []byte
		if err := rows.Scan(&h.ID, &h.DocID, &h.Index, &h.Content, &meta, &h.Distance); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (p *Postgres) SetEmbedder(e model.Embedder) { p.embedder = e }

func (p *Postgres) Chunks() []types.Chunk {
	out := make([]types.Chunk, len(p.chunks))
	copy(out, p.chunks)
	return out
}

func (p *Postgres) ModelTag() string { return p.modelTag }

func (p *Postgres) Len() int { return len(p.chunks) }

func (p *Postgres) embed(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
}
