package model

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/loader"
)

func TestOpenAIEmbedderPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Equal(t, []string{"first", "second", "third"}, req.Input)

		// One distinct raw vector per input, in input order.
		resp := map[string]any{"data": []map[string]any{
			{"embedding": []float64{2, 0, 0}},
			{"embedding": []float64{0, 4, 0}},
			{"embedding": []float64{0, 0, 8}},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "test-key", "test-model")
	vecs, err := e.Embed(context.Background(), []string{"first", "second", "third"})

	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.InDelta(t, 1.0, float64(vecs[0][0]), 1e-6)
	assert.InDelta(t, 1.0, float64(vecs[1][1]), 1e-6)
	assert.InDelta(t, 1.0, float64(vecs[2][2]), 1e-6)
	for _, v := range vecs {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	}
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{
			{"embedding": []float64{1, 0}},
		}})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "", "test-model")
	_, err := e.Embed(context.Background(), []string{"first", "second"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vectors for 2 inputs")
}

func TestOpenAIEmbedderBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "", "test-model")
	_, err := e.Embed(context.Background(), []string{"first"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder("http://unused", "", "test-model")

	vecs, err := e.Embed(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestOllamaModelCollectsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, defaultMaxNewTokens, req.Options.NumPredict)

		w.Write([]byte(`{"response":"Hello","done":false}` + "\n"))
		w.Write([]byte(`{"response":" there","done":false}` + "\n"))
		w.Write([]byte(`{"response":"!","done":true}` + "\n"))
	}))
	defer srv.Close()

	m := NewOllamaModel(srv.URL, "llama3")
	answer, err := m.Generate(context.Background(), "say hello")

	require.NoError(t, err)
	assert.Equal(t, "Hello there!", answer)
}

func TestOllamaModelSingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "whole answer", Done: true})
	}))
	defer srv.Close()

	m := NewOllamaModel(srv.URL, "llama3")
	answer, err := m.Generate(context.Background(), "say it")

	require.NoError(t, err)
	assert.Equal(t, "whole answer", answer)
}

func TestOllamaEmbedderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	vecs, err := e.Embed(context.Background(), []string{"one"})

	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.InDelta(t, 0.6, float64(vecs[0][0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vecs[0][1]), 1e-6)
}

func TestGigaChatRequiresAPIKey(t *testing.T) {
	_, err := NewGigaChat(GigaChatConfig{})

	require.ErrorIs(t, err, loader.ErrMissingCredential)
	assert.Contains(t, err.Error(), "api_key")
}

func TestGigaChatGenerateWithTokenCache(t *testing.T) {
	authCalls := 0
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		assert.Equal(t, "Basic base64-creds", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("RqUID"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "GIGACHAT_API_PERS", r.PostForm.Get("scope"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_at":   time.Now().Add(time.Hour).UnixMilli(),
		})
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{
			{"message": map[string]string{"content": "  the answer  "}},
		}})
	}))
	defer api.Close()

	g, err := NewGigaChat(GigaChatConfig{
		APIKey:  "base64-creds",
		AuthURL: auth.URL,
		APIURL:  api.URL,
	})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "question one")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	_, err = g.Generate(context.Background(), "question two")
	require.NoError(t, err)
	assert.Equal(t, 1, authCalls, "valid token must be reused")
}

func TestGigaChatNoChoices(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_at":   time.Now().Add(time.Hour).UnixMilli(),
		})
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer api.Close()

	g, err := NewGigaChat(GigaChatConfig{APIKey: "key", AuthURL: auth.URL, APIURL: api.URL})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "question")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
