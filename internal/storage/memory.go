package storage

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/bull/docsim/internal/document"
)

// MemoryFactory creates in-process indexes searched by brute-force cosine similarity.
type MemoryFactory struct{}

// NewMemoryFactory returns a factory for in-memory indexes.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{}
}

// Create builds a new in-memory index holding chunks.
func (f *MemoryFactory) Create(ctx context.Context, chunks []document.Chunk, embedder Embedder) (Index, error) {
	if embedder.Dimension() <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, embedder.Dimension())
	}
	idx := &MemoryIndex{
		embedder:  embedder,
		dimension: embedder.Dimension(),
	}
	if err := idx.Add(ctx, chunks, embedder); err != nil {
		return nil, err
	}
	return idx, nil
}

// Health always succeeds; there is no remote dependency.
func (f *MemoryFactory) Health(ctx context.Context) error {
	return nil
}

type memoryRecord struct {
	content  string
	metadata map[string]string
	vector   []float32 // L2-normalized
}

// MemoryIndex keeps records in insertion order. Add is all-or-nothing: every chunk
// is embedded before any record is appended.
type MemoryIndex struct {
	mu        sync.RWMutex
	embedder  Embedder
	dimension int
	records   []memoryRecord
}

// Add embeds chunks and appends them.
func (m *MemoryIndex) Add(ctx context.Context, chunks []document.Chunk, embedder Embedder) error {
	if len(chunks) == 0 {
		return nil
	}
	if embedder.Dimension() != m.dimension {
		return fmt.Errorf("%w: embedder has %d dimensions, index has %d",
			ErrDimensionMismatch, embedder.Dimension(), m.dimension)
	}

	vectors, err := embedChunks(ctx, embedder, chunks)
	if err != nil {
		return err
	}

	records := make([]memoryRecord, len(chunks))
	for i, c := range chunks {
		records[i] = memoryRecord{
			content:  c.Content,
			metadata: maps.Clone(c.Metadata),
			vector:   normalize(vectors[i]),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

// Search ranks every record by cosine similarity to query.
// Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid result limit %d", k)
	}

	probe, err := embedQuery(ctx, m.embedder, query, m.dimension)
	if err != nil {
		return nil, err
	}
	probe = normalize(probe)

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(m.records))
	for i, r := range m.records {
		scores[i] = scored{idx: i, score: dot(r.vector, probe)}
	}
	slices.SortStableFunc(scores, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	k = min(k, len(scores))
	results := make([]SearchResult, 0, k)
	for _, s := range scores[:k] {
		r := m.records[s.idx]
		results = append(results, SearchResult{
			Content:  r.content,
			Metadata: maps.Clone(r.metadata),
			Score:    s.score,
		})
	}
	return results, nil
}

// Count returns the number of stored records.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
