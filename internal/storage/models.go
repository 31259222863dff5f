// Package storage provides the vector index backends that hold embedded chunks.
package storage

import (
	"context"
	"fmt"

	"github.com/bull/docsim/internal/document"
)

// Embedder turns text into fixed-dimension vectors.
// The index calls it; the coordinator only passes it through.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// SearchResult is one match from a similarity search.
type SearchResult struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// Index is a searchable store of embedded chunks.
// Records are only ever appended; nothing is replaced or removed.
type Index interface {
	// Add embeds and appends chunks.
	Add(ctx context.Context, chunks []document.Chunk, embedder Embedder) error
	// Search returns up to k results ordered by descending similarity to query.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// Factory creates a new index seeded with an initial set of chunks.
type Factory interface {
	Create(ctx context.Context, chunks []document.Chunk, embedder Embedder) (Index, error)
	Health(ctx context.Context) error
}

// embedChunks generates one vector per chunk and checks their shape.
func embedChunks(ctx context.Context, embedder Embedder, chunks []document.Chunk) ([][]float32, error) {
	vectors, err := embedder.GenerateEmbeddings(ctx, document.Contents(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d for %d chunks", ErrEmbeddingCount, len(vectors), len(chunks))
	}
	for i, v := range vectors {
		if len(v) != embedder.Dimension() {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), embedder.Dimension())
		}
	}
	return vectors, nil
}

// embedQuery generates the vector for a single search probe.
func embedQuery(ctx context.Context, embedder Embedder, query string, dimension int) ([]float32, error) {
	vectors, err := embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d for 1 query", ErrEmbeddingCount, len(vectors))
	}
	if len(vectors[0]) != dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vectors[0]), dimension)
	}
	return vectors[0], nil
}
