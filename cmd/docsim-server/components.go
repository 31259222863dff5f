package main

import (
	"fmt"

	"github.com/bull/docsim/internal/config"
	"github.com/bull/docsim/internal/coordinator"
	"github.com/bull/docsim/internal/embedding"
	"github.com/bull/docsim/internal/markdown"
	"github.com/bull/docsim/internal/storage"
	"github.com/bull/docsim/internal/textsplit"
)

func newChunker(cfg config.ChunkerConfig) (coordinator.Chunker, error) {
	splitter := textsplit.New(
		textsplit.WithChunkSize(cfg.ChunkSize),
		textsplit.WithOverlap(cfg.Overlap()),
	)
	switch cfg.Type {
	case "recursive":
		return splitter, nil
	case "markdown":
		return markdown.NewChunker(
			markdown.WithMaxDepth(cfg.MaxDepth),
			markdown.WithSplitter(splitter),
		), nil
	default:
		return nil, fmt.Errorf("unknown chunker type %q", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig) (storage.Embedder, error) {
	switch cfg.Type {
	case "hash":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	case "openai":
		client, err := embedding.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		return embedding.NewEmbedder(client, embedding.Options{
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

// newFactory returns the index factory and a cleanup function.
func newFactory(cfg config.VectorStoreConfig) (storage.Factory, func() error, error) {
	switch cfg.Type {
	case "memory":
		return storage.NewMemoryFactory(), func() error { return nil }, nil
	case "qdrant":
		f, err := storage.NewQdrantFactory(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}
