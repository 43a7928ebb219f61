package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"ragchat/app/api"
	"ragchat/bot"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

// NewServer builds the fiber app and registers all routes up front, so
// Stop is safe from another goroutine at any point after construction.
func NewServer(addr string, b *bot.Bot) *Server {
	var (
		app          = fiber.New(config)
		checkHandler = api.NewCheckHandler()
		botHandler   = api.NewHandler(b)
		check        = app.Group("/check")
		apiv1        = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/chat", botHandler.HandleChat)
	apiv1.Post("/sources/add", botHandler.HandleAddSources)
	apiv1.Post("/sources/remove", botHandler.HandleRemoveSources)
	apiv1.Post("/model", botHandler.HandleChangeModel)
	apiv1.Post("/retriever", botHandler.HandleChangeRetriever)
	apiv1.Post("/prompt", botHandler.HandleChangePrompt)

	return &Server{
		listenAddr: addr,
		app:        app,
		logger:     slog.Default(),
	}
}

func (s *Server) Run() {
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("error to shut down server", "error", err.Error())
	}
	s.logger.Info("server stopped")
}
