package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"ragchat/types"
)

// ModelConfig selects the generation backend. Local picks the Ollama
// backend; otherwise the GigaChat remote service is used with the API key
// read from APIKeyEnv.
type ModelConfig struct {
	Name                  string `yaml:"name"`
	Local                 bool   `yaml:"local"`
	APIKeyEnv             string `yaml:"api_key_env"`
	InsecureSkipTLSVerify bool   `yaml:"insecure_skip_tls_verify"`
}

// SourceConfig is the yaml form of a source descriptor.
type SourceConfig struct {
	Kind      string `yaml:"kind"`
	Path      string `yaml:"path,omitempty"`
	URL       string `yaml:"url,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Username  string `yaml:"username,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	SpaceKey  string `yaml:"space_key,omitempty"`
	PageLimit int    `yaml:"page_limit,omitempty"`
}

// AppConfig is the root application configuration. ChunkOverlap is a
// pointer so an explicit 0 is distinguishable from an absent key.
type AppConfig struct {
	ListenAddr      string         `yaml:"listen_addr"`
	Model           ModelConfig    `yaml:"model"`
	EmbeddingsModel string         `yaml:"embeddings_model"`
	ChunkSize       int            `yaml:"chunk_size"`
	ChunkOverlap    *int           `yaml:"chunk_overlap"`
	KRetriever      int            `yaml:"k_retriever"`
	SavePath        string         `yaml:"save_path"`
	SystemPrompt    string         `yaml:"system_prompt"`
	PostgresDSN     string         `yaml:"postgres_dsn"`
	Sources         []SourceConfig `yaml:"sources"`
}

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Bot converts the application config into the orchestrator config.
func (c *AppConfig) Bot() types.Config {
	cfg := types.Config{
		EmbeddingsModel: c.EmbeddingsModel,
		ChunkSize:       c.ChunkSize,
		ChunkOverlap:    *c.ChunkOverlap,
		KRetriever:      c.KRetriever,
		SavePath:        c.SavePath,
		SystemPrompt:    c.SystemPrompt,
	}
	cfg.ApplyDefaults()
	return cfg
}

// Descriptors resolves the configured sources, pulling confluence API keys
// from the environment.
func (c *AppConfig) Descriptors() []types.SourceDescriptor {
	var out []types.SourceDescriptor
	for _, s := range c.Sources {
		switch types.SourceKind(s.Kind) {
		case types.SourceURL:
			out = append(out, types.URLSource(s.URL))
		case types.SourceConfluence:
			out = append(out, types.ConfluenceSource(
				s.BaseURL, s.Username, os.Getenv(s.APIKeyEnv), s.SpaceKey, s.PageLimit))
		default:
			out = append(out, types.FileSource(s.Path))
		}
	}
	return out
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.EmbeddingsModel == "" {
		cfg.EmbeddingsModel = types.DefaultEmbeddingsModel
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = types.DefaultChunkSize
	}
	if cfg.ChunkOverlap == nil {
		overlap := types.DefaultChunkOverlap
		cfg.ChunkOverlap = &overlap
	}
	if cfg.KRetriever == 0 {
		cfg.KRetriever = types.DefaultKRetriever
	}
	if cfg.SavePath == "" {
		cfg.SavePath = types.DefaultSavePath
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = "GIGACHAT_API_KEY"
	}
}
