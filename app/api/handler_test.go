package api

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/bot"
	"ragchat/index"
	"ragchat/types"
)

type fakeEmbedder struct{ name string }

func (f *fakeEmbedder) ModelName() string { return f.name }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New32a()
		h.Write([]byte(text))
		x := h.Sum32()
		out[i] = []float32{float32(x%97)/97 + 0.01, float32(x%89)/89 + 0.01}
	}
	return out, nil
}

type fakeGenerator struct{}

func (g *fakeGenerator) Generate(context.Context, string) (string, error) {
	return "generated answer", nil
}

func newTestBot(t *testing.T, sources ...types.SourceDescriptor) *bot.Bot {
	t.Helper()
	cfg := types.Config{
		ChunkSize:    120,
		ChunkOverlap: 20,
		SavePath:     filepath.Join(t.TempDir(), "vector_store.index"),
	}
	emb := &fakeEmbedder{name: "model-1"}
	b, err := bot.New(context.Background(), cfg, &fakeGenerator{}, emb, index.NewFlat(emb, cfg.SavePath), sources)
	require.NoError(t, err)
	return b
}

func newTestApp(b *bot.Bot) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h := NewHandler(b)
	app.Get("/check/healthy", NewCheckHandler().HandleHealthy)
	app.Post("/api/v1/chat", h.HandleChat)
	app.Post("/api/v1/sources/add", h.HandleAddSources)
	app.Post("/api/v1/sources/remove", h.HandleRemoveSources)
	app.Post("/api/v1/prompt", h.HandleChangePrompt)
	return app
}

func corpusFile(t *testing.T, name string) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "Paragraph %02d talks about topic %02d in a couple of sentences. It adds a bit more detail too.\n\n", i, i)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func TestHandleHealthy(t *testing.T) {
	app := newTestApp(newTestBot(t))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/check/healthy", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleChat(t *testing.T) {
	src := types.FileSource(corpusFile(t, "corpus.txt"))
	app := newTestApp(newTestBot(t, src))

	resp := postJSON(t, app, "/api/v1/chat", `{"question":"what is topic 03 about?"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "generated answer", out.Answer)
	assert.Len(t, out.Sources, types.DefaultKRetriever)
	assert.NotEmpty(t, out.Sources[0].Metadata["source"])
}

func TestHandleChatMissingQuestion(t *testing.T) {
	app := newTestApp(newTestBot(t))

	resp := postJSON(t, app, "/api/v1/chat", `{}`)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var out ValidationError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Errors, "Question")
}

func TestHandleChatNotReady(t *testing.T) {
	app := newTestApp(newTestBot(t))

	resp := postJSON(t, app, "/api/v1/chat", `{"question":"anything"}`)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleChatMalformedBody(t *testing.T) {
	app := newTestApp(newTestBot(t))

	resp := postJSON(t, app, "/api/v1/chat", `{"question": broken`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAddSources(t *testing.T) {
	app := newTestApp(newTestBot(t))
	path := corpusFile(t, "added.txt")

	body := fmt.Sprintf(`{"sources":[{"kind":"file","path":%q}]}`, path)
	resp := postJSON(t, app, "/api/v1/sources/add", body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Sources int `json:"sources"`
		Chunks  int `json:"chunks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Sources)
	assert.Greater(t, out.Chunks, 0)
}

func TestHandleAddSourcesInvalidKind(t *testing.T) {
	app := newTestApp(newTestBot(t))

	resp := postJSON(t, app, "/api/v1/sources/add", `{"sources":[{"kind":"s3","path":"/x"}]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleAddSourcesUnsupportedFormat(t *testing.T) {
	app := newTestApp(newTestBot(t))
	path := filepath.Join(t.TempDir(), "deck.pptx")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	body := fmt.Sprintf(`{"sources":[{"kind":"file","path":%q}]}`, path)
	resp := postJSON(t, app, "/api/v1/sources/add", body)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleRemoveSources(t *testing.T) {
	first := corpusFile(t, "first.txt")
	second := corpusFile(t, "second.txt")
	b := newTestBot(t, types.FileSource(first), types.FileSource(second))
	app := newTestApp(b)

	body := fmt.Sprintf(`{"sources":[{"kind":"file","path":%q}]}`, first)
	resp := postJSON(t, app, "/api/v1/sources/remove", body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, b.Sources(), 1)
	assert.Equal(t, types.FileSource(second).Key(), b.Sources()[0].Key())
}

func TestHandleChangePrompt(t *testing.T) {
	app := newTestApp(newTestBot(t))

	resp := postJSON(t, app, "/api/v1/prompt", `{"system_prompt":"Answer tersely."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/api/v1/prompt", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
