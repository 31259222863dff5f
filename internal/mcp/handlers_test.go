package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docsim/internal/coordinator"
	"github.com/bull/docsim/internal/embedding"
	"github.com/bull/docsim/internal/lifecycle"
	"github.com/bull/docsim/internal/storage"
	"github.com/bull/docsim/internal/textsplit"
)

type downBackend struct{}

func (downBackend) Health(ctx context.Context) error { return errors.New("unreachable") }

func newTestConfig(t *testing.T) (*Config, *lifecycle.Tracker) {
	t.Helper()
	root := t.TempDir()
	tracker, err := lifecycle.NewTracker(lifecycle.Layout{
		Received: filepath.Join(root, "received"),
		Ingested: filepath.Join(root, "ingested"),
		Queried:  filepath.Join(root, "queried"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, tracker.EnsureDirs())

	factory := storage.NewMemoryFactory()
	coord := coordinator.New(factory, textsplit.New(), embedding.NewHashEmbedder(128), tracker, nil)
	return &Config{Service: coord, Receiver: tracker, Backend: factory, NumResults: 3}, tracker
}

func TestNewServer_RegistersTools(t *testing.T) {
	cfg, _ := newTestConfig(t)
	s := NewServer(cfg)
	assert.NotNil(t, s.MCPServer())
	assert.NotNil(t, NewHTTPHandler(s, nil))
}

func TestIngestAndFindSimilar(t *testing.T) {
	cfg, tracker := newTestConfig(t)
	ctx := context.Background()
	ingest := makeIngestHandler(cfg)
	find := makeFindSimilarHandler(cfg)

	_, out, err := find(ctx, nil, FindSimilarInput{Content: "anything"})
	require.NoError(t, err)
	assert.Empty(t, out.Sources)
	assert.Contains(t, out.Message, "Ingest documents")

	_, ing, err := ingest(ctx, nil, IngestDocumentInput{Name: "tides.txt", Content: "the moon pulls the tides"})
	require.NoError(t, err)
	assert.Equal(t, 1, ing.Chunks)

	_, _, err = ingest(ctx, nil, IngestDocumentInput{Name: "bread.txt", Content: "flour water salt yeast"})
	require.NoError(t, err)

	_, out, err = find(ctx, nil, FindSimilarInput{Content: "flour water salt yeast", MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "bread.txt", filepath.Base(out.Sources[0]))

	// Probe files end up in the queried stage.
	matches, err := filepath.Glob(filepath.Join(tracker.Layout().Queried, "*", probeName))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIngest_RejectsNonText(t *testing.T) {
	cfg, _ := newTestConfig(t)
	_, _, err := makeIngestHandler(cfg)(context.Background(), nil, IngestDocumentInput{Name: "x.md", Content: "x"})
	assert.ErrorIs(t, err, coordinator.ErrValidation)
}

func TestIndexStatus(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()
	status := makeStatusHandler(cfg)

	_, out, err := status(ctx, nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.False(t, out.Initialized)
	assert.Equal(t, "connected", out.Backend)

	_, _, err = makeIngestHandler(cfg)(ctx, nil, IngestDocumentInput{Name: "a.txt", Content: "alpha"})
	require.NoError(t, err)

	_, out, err = status(ctx, nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.True(t, out.Initialized)
	assert.Equal(t, 1, out.Records)

	cfg.Backend = downBackend{}
	_, out, err = status(ctx, nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "disconnected", out.Backend)
}
