package api

import (
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"ragchat/bot"
	"ragchat/model"
	"ragchat/types"
)

// Handler serves the orchestrator over HTTP. The bot itself is single
// threaded, so every operation takes the mutex.
type Handler struct {
	mu  sync.Mutex
	bot *bot.Bot
}

func NewHandler(b *bot.Bot) *Handler {
	return &Handler{bot: b}
}

type ChatResponse struct {
	Answer    string       `json:"answer"`
	Sources   []SourceView `json:"sources"`
	Timestamp time.Time    `json:"timestamp"`
}

type SourceView struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}

func (h *Handler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	answer, hits, err := h.bot.Chat(c.Context(), params.Question)
	if err != nil {
		return err
	}

	sources := make([]SourceView, len(hits))
	for i, hit := range hits {
		sources[i] = SourceView{
			Content:  hit.Content,
			Metadata: hit.Metadata,
			Distance: hit.Distance,
		}
	}
	return c.JSON(ChatResponse{
		Answer:    answer,
		Sources:   sources,
		Timestamp: time.Now(),
	})
}

func (h *Handler) HandleAddSources(c *fiber.Ctx) error {
	descriptors, err := parseSources(c)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.bot.AddSources(c.Context(), descriptors); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sources": len(h.bot.Sources()), "chunks": h.bot.Len()})
}

func (h *Handler) HandleRemoveSources(c *fiber.Ctx) error {
	descriptors, err := parseSources(c)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.bot.RemoveSources(c.Context(), descriptors); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sources": len(h.bot.Sources()), "chunks": h.bot.Len()})
}

func (h *Handler) HandleChangeModel(c *fiber.Ctx) error {
	var params types.ModelParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	var generator model.Generator
	if params.Local {
		generator = model.NewOllamaModel("", params.Name)
	} else {
		apiKey := params.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GIGACHAT_API_KEY")
		}
		g, err := model.NewGigaChat(model.GigaChatConfig{APIKey: apiKey, Model: params.Name})
		if err != nil {
			return err
		}
		generator = g
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.bot.ChangeModel(generator)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) HandleChangeRetriever(c *fiber.Ctx) error {
	var params types.RetrieverParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	embedder := model.NewOpenAIEmbedder("", "", params.EmbeddingsModel)
	if err := h.bot.ChangeRetriever(c.Context(), embedder); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "embeddings_model": params.EmbeddingsModel})
}

func (h *Handler) HandleChangePrompt(c *fiber.Ctx) error {
	var params types.PromptParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.bot.ChangePrompt(params.SystemPrompt)
	return c.JSON(fiber.Map{"status": "ok"})
}

func parseSources(c *fiber.Ctx) ([]types.SourceDescriptor, error) {
	var params types.SourceParams
	if c.BodyParser(&params) != nil {
		return nil, ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	descriptors := make([]types.SourceDescriptor, len(params.Sources))
	for i, s := range params.Sources {
		descriptors[i] = s.Descriptor()
	}
	return descriptors, nil
}
