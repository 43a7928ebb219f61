package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultMaxNewTokens = 512

// OllamaEmbedder computes embeddings through a local Ollama instance.
type OllamaEmbedder struct {
	apiURL string
	model  string
	client *http.Client
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewOllamaEmbedder(apiURL, model string) *OllamaEmbedder {
	if apiURL == "" {
		apiURL = os.Getenv("OLLAMA_EMBEDDING_URL")
	}
	return &OllamaEmbedder{
		apiURL: apiURL,
		model:  model,
		client: http.DefaultClient,
	}
}

func (e *OllamaEmbedder) ModelName() string { return e.model }

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(msg))
	}

	var out ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	norm := normalize(out.Embedding)
	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// OllamaModel is the locally-hosted causal model backend. Generation is
// capped at a fixed maximum new-token count.
type OllamaModel struct {
	apiURL       string
	model        string
	maxNewTokens int
	client       *http.Client
}

type ollamaGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Options struct {
		NumPredict int `json:"num_predict"`
	} `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaModel(apiURL, model string) *OllamaModel {
	if apiURL == "" {
		apiURL = os.Getenv("OLLAMA_GENERATE_URL")
	}
	return &OllamaModel{
		apiURL:       apiURL,
		model:        model,
		maxNewTokens: defaultMaxNewTokens,
		client:       http.DefaultClient,
	}
}

func (m *OllamaModel) Generate(ctx context.Context, prompt string) (string, error) {
	genReq := ollamaGenerateRequest{Model: m.model, Prompt: prompt}
	genReq.Options.NumPredict = m.maxNewTokens

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(msg))
	}

	// Ollama may answer with a single object or a stream of NDJSON
	// chunks; collect either into one string.
	var b strings.Builder
	dec := json.NewDecoder(resp.Body)
	for {
		var chunk ollamaGenerateResponse
		if err := dec.Decode(&chunk); err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		b.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	return b.String(), nil
}
