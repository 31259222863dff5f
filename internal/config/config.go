// Package config loads the server configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	Mode           string `yaml:"mode"` // "http" or "stdio"
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// PathsConfig names the startup corpus and the three stage directories.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir"`
	Received string `yaml:"received"`
	Ingested string `yaml:"ingested"`
	Queried  string `yaml:"queried"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type"` // "recursive" or "markdown"
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap *int   `yaml:"chunk_overlap"` // nil means derive from chunk_size
	MaxDepth     int    `yaml:"max_depth"`     // markdown only
}

// Overlap returns the configured chunk overlap, or 0 when unset.
func (c ChunkerConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string `yaml:"type"` // "hash" or "openai"
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type"` // "memory" or "qdrant"
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// GitHubSeedConfig names the repository directory the seed command copies.
type GitHubSeedConfig struct {
	Owner      string   `yaml:"owner"`
	Repo       string   `yaml:"repo"`
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
}

// SeedConfig configures corpus seeding.
type SeedConfig struct {
	GitHub GitHubSeedConfig `yaml:"github"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Paths       PathsConfig       `yaml:"paths"`
	NumResults  int               `yaml:"num_results"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Seed        SeedConfig        `yaml:"seed"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from path, applies environment overrides and defaults, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file and no environment is set.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// applyEnv overrides file values with the environment. Deployment platforms set
// PORT, QDRANT_HOST and QDRANT_PORT; the rest are DOCSIM_ prefixed.
func applyEnv(cfg *AppConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
	cfg.Server.Addr = getEnv("DOCSIM_ADDR", cfg.Server.Addr)
	cfg.Server.Mode = getEnv("DOCSIM_SERVER_MODE", cfg.Server.Mode)
	cfg.Paths.DataDir = getEnv("DOCSIM_DATA_DIR", cfg.Paths.DataDir)
	cfg.NumResults = getEnvInt("DOCSIM_NUM_RESULTS", cfg.NumResults)
	cfg.Chunker.Type = getEnv("DOCSIM_CHUNKER", cfg.Chunker.Type)
	cfg.Embedder.Type = getEnv("DOCSIM_EMBEDDER", cfg.Embedder.Type)
	cfg.VectorStore.Type = getEnv("DOCSIM_VECTOR_STORE", cfg.VectorStore.Type)
	cfg.VectorStore.Qdrant.Host = getEnv("QDRANT_HOST", cfg.VectorStore.Qdrant.Host)
	cfg.VectorStore.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.VectorStore.Qdrant.Port)
	cfg.Log.Level = getEnv("DOCSIM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("DOCSIM_LOG_FORMAT", cfg.Log.Format)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "0.0.0.0:8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "http"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = "data/corpus"
	}
	if cfg.Paths.Received == "" {
		cfg.Paths.Received = "data/received"
	}
	if cfg.Paths.Ingested == "" {
		cfg.Paths.Ingested = "data/ingested"
	}
	if cfg.Paths.Queried == "" {
		cfg.Paths.Queried = "data/queried"
	}
	if cfg.NumResults == 0 {
		cfg.NumResults = 4
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == nil {
		overlap := min(200, cfg.Chunker.ChunkSize/5)
		cfg.Chunker.ChunkOverlap = &overlap
	}
	if cfg.Chunker.MaxDepth == 0 {
		cfg.Chunker.MaxDepth = 2
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hash"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.Dimension == 0 {
		if cfg.Embedder.Type == "openai" {
			cfg.Embedder.Dimension = 1536
		} else {
			cfg.Embedder.Dimension = 512
		}
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 500
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = "documents"
	}
	if len(cfg.Seed.GitHub.Extensions) == 0 {
		cfg.Seed.GitHub.Extensions = []string{".txt"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Server.Mode == "http" || c.Server.Mode == "stdio", "server.mode must be http or stdio"},
		{c.NumResults >= 1, "num_results must be at least 1"},
		{c.Chunker.Type == "recursive" || c.Chunker.Type == "markdown", "chunker.type must be recursive or markdown"},
		{c.Chunker.ChunkSize > 0, "chunker.chunk_size must be positive"},
		{c.Chunker.Overlap() >= 0 && c.Chunker.Overlap() < c.Chunker.ChunkSize, "chunker.chunk_overlap must be in [0, chunk_size)"},
		{c.Chunker.MaxDepth >= 1 && c.Chunker.MaxDepth <= 6, "chunker.max_depth must be between 1 and 6"},
		{c.Embedder.Type == "hash" || c.Embedder.Type == "openai", "embedder.type must be hash or openai"},
		{c.Embedder.Dimension > 0, "embedder.dimension must be positive"},
		{c.VectorStore.Type == "memory" || c.VectorStore.Type == "qdrant", "vector_store.type must be memory or qdrant"},
		{c.Log.Format == "text" || c.Log.Format == "json", "log.format must be text or json"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("invalid config: %s", check.msg)
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]string, 3)
	for name, dir := range map[string]string{
		"paths.received": c.Paths.Received,
		"paths.ingested": c.Paths.Ingested,
		"paths.queried":  c.Paths.Queried,
	} {
		if other, dup := seen[dir]; dup {
			return fmt.Errorf("invalid config: %s and %s are the same directory", other, name)
		}
		seen[dir] = name
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// NewLogger builds the slog logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
