package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ragchat/app/server"
	"ragchat/bot"
	"ragchat/config"
	"ragchat/index"
	"ragchat/model"
	"ragchat/store"
)

func init() {
	// Optional: env may come from the process environment instead.
	_ = godotenv.Load()
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("error loading config: ", err)
	}

	ctx := context.Background()

	embedder := model.NewOpenAIEmbedder("", "", cfg.EmbeddingsModel)

	var idx index.Store
	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN, embedder, 0)
		if err != nil {
			log.Fatal("error connecting to Postgres: ", err)
		}
		defer pg.Close()
		idx = pg
	} else {
		idx = index.NewFlat(embedder, cfg.SavePath)
	}

	var generator model.Generator
	if cfg.Model.Local {
		generator = model.NewOllamaModel("", cfg.Model.Name)
	} else {
		generator, err = model.NewGigaChat(model.GigaChatConfig{
			APIKey:                os.Getenv(cfg.Model.APIKeyEnv),
			Model:                 cfg.Model.Name,
			InsecureSkipTLSVerify: cfg.Model.InsecureSkipTLSVerify,
		})
		if err != nil {
			log.Fatal("error creating generation backend: ", err)
		}
	}

	b, err := bot.New(ctx, cfg.Bot(), generator, embedder, idx, cfg.Descriptors())
	if err != nil {
		log.Fatal("error creating chatbot: ", err)
	}

	s := server.NewServer(cfg.ListenAddr, b)

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}
