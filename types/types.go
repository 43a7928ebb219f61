package types

import (
	"strings"

	"github.com/google/uuid"
)

type SourceKind string

const (
	SourceFile       SourceKind = "file"
	SourceURL        SourceKind = "url"
	SourceConfluence SourceKind = "confluence"
)

// SourceDescriptor points at one ingestible source. Every descriptor
// resolves to exactly one loader; an unknown format fails the whole batch.
type SourceDescriptor struct {
	Kind SourceKind

	// Kind == SourceFile
	Path string

	// Kind == SourceURL
	URL string

	// Kind == SourceConfluence
	BaseURL   string
	Username  string
	APIKey    string
	SpaceKey  string
	PageLimit int
}

func FileSource(path string) SourceDescriptor {
	return SourceDescriptor{Kind: SourceFile, Path: path}
}

func URLSource(raw string) SourceDescriptor {
	return SourceDescriptor{Kind: SourceURL, URL: raw}
}

func ConfluenceSource(baseURL, username, apiKey, spaceKey string, pageLimit int) SourceDescriptor {
	return SourceDescriptor{
		Kind:      SourceConfluence,
		BaseURL:   baseURL,
		Username:  username,
		APIKey:    apiKey,
		SpaceKey:  spaceKey,
		PageLimit: pageLimit,
	}
}

// Key returns a stable identity string used for add/remove bookkeeping.
func (s SourceDescriptor) Key() string {
	switch s.Kind {
	case SourceFile:
		return "file:" + s.Path
	case SourceURL:
		return "url:" + s.URL
	case SourceConfluence:
		return "confluence:" + strings.TrimRight(s.BaseURL, "/") + "/" + s.SpaceKey
	}
	return string(s.Kind)
}

// Document is raw loaded text plus its origin metadata. Immutable once
// produced by a loader.
type Document struct {
	ID       uuid.UUID
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded slice of a document's text. It inherits the parent
// document metadata and is regenerated whenever its source set changes.
type Chunk struct {
	ID       uuid.UUID
	DocID    uuid.UUID
	Index    int
	Content  string
	Metadata map[string]string
}

// ScoredChunk is a retrieval hit ranked by ascending embedding distance.
type ScoredChunk struct {
	Chunk
	Distance float64
}

// ConversationTurn is one (question, answer) pair of the chat history.
type ConversationTurn struct {
	Question string
	Answer   string
}

const (
	DefaultEmbeddingsModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	DefaultChunkSize       = 2000
	DefaultChunkOverlap    = 200
	DefaultKRetriever      = 5
	DefaultSavePath        = "vector_store.index"
)

// Config carries the orchestrator configuration. The change operations on
// the bot re-derive whatever state depends on a changed field.
type Config struct {
	EmbeddingsModel string
	ChunkSize       int
	ChunkOverlap    int
	KRetriever      int
	SavePath        string
	SystemPrompt    string
}

func (c *Config) ApplyDefaults() {
	if c.EmbeddingsModel == "" {
		c.EmbeddingsModel = DefaultEmbeddingsModel
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.KRetriever <= 0 {
		c.KRetriever = DefaultKRetriever
	}
	if c.SavePath == "" {
		c.SavePath = DefaultSavePath
	}
}
