package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.NumResults)
	assert.Equal(t, "recursive", cfg.Chunker.Type)
	assert.Equal(t, 200, cfg.Chunker.Overlap())
	assert.Equal(t, "hash", cfg.Embedder.Type)
	assert.Equal(t, 512, cfg.Embedder.Dimension)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:9000
paths:
  data_dir: corpus
  received: in
  ingested: done
  queried: asked
num_results: 7
chunker:
  type: markdown
  chunk_size: 400
embedder:
  type: openai
vector_store:
  type: qdrant
  qdrant:
    host: qdrant.internal
seed:
  github:
    owner: acme
    repo: docs
    extensions: [".md"]
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "in", cfg.Paths.Received)
	assert.Equal(t, 7, cfg.NumResults)
	assert.Equal(t, "markdown", cfg.Chunker.Type)
	assert.Equal(t, 80, cfg.Chunker.Overlap(), "default overlap scales with chunk size")
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, 1536, cfg.Embedder.Dimension)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, "documents", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, []string{".md"}, cfg.Seed.GitHub.Extensions)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ZeroOverlapIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "chunker:\n  chunk_size: 300\n  chunk_overlap: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 0, cfg.Chunker.Overlap())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("QDRANT_HOST", "envhost")
	t.Setenv("QDRANT_PORT", "7334")
	t.Setenv("DOCSIM_NUM_RESULTS", "2")
	t.Setenv("DOCSIM_VECTOR_STORE", "qdrant")

	cfg, err := Load(writeConfig(t, "num_results: 9\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7070", cfg.Server.Addr)
	assert.Equal(t, "envhost", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 7334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, 2, cfg.NumResults)
	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "server: [",
		"num results":    "num_results: -1\n",
		"chunker":        "chunker:\n  type: sentences\n",
		"overlap":        "chunker:\n  chunk_size: 100\n  chunk_overlap: 100\n",
		"embedder":       "embedder:\n  type: bert\n",
		"store":          "vector_store:\n  type: faiss\n",
		"log level":      "log:\n  level: loud\n",
		"same directory": "paths:\n  received: x\n  ingested: x\n",
		"mode":           "server:\n  mode: grpc\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
