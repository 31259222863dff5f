// Package coordinator owns the single vector index and serializes every ingestion
// and similarity query against it.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/bull/docsim/internal/document"
	"github.com/bull/docsim/internal/lifecycle"
	"github.com/bull/docsim/internal/storage"
)

// Chunker splits loaded documents into an ordered sequence of chunks.
type Chunker interface {
	Split(docs []document.Document) ([]document.Chunk, error)
}

// Coordinator holds the lazily created index.
//
// The index is nil until the first successful ingestion, is created exactly once,
// and is only appended to afterwards. Create-or-add runs under the write lock as one
// critical section, so concurrent first ingestions cannot both create. Searches take
// the read lock and never overlap a write.
type Coordinator struct {
	mu    sync.RWMutex
	index storage.Index

	factory  storage.Factory
	chunker  Chunker
	embedder storage.Embedder
	tracker  *lifecycle.Tracker
	logger   *slog.Logger
}

// New creates a coordinator with no index.
func New(
	factory storage.Factory,
	chunker Chunker,
	embedder storage.Embedder,
	tracker *lifecycle.Tracker,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		factory:  factory,
		chunker:  chunker,
		embedder: embedder,
		tracker:  tracker,
		logger:   logger,
	}
}

// Initialized reports whether the index has been created.
func (c *Coordinator) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index != nil
}

// Count returns the number of records in the index, or 0 before it exists.
func (c *Coordinator) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return 0, nil
	}
	return c.index.Count(ctx)
}

// Ingest loads every *.txt document under path, chunks it and writes the chunks to
// the index, creating the index on first use. When path is in the received stage
// the loaded files are moved to the ingested stage before chunking.
//
// Returns the number of chunks added. On failure nothing is reported as added.
// Files already relocated are not moved back.
func (c *Coordinator) Ingest(ctx context.Context, path string) (n int, err error) {
	ctx, finish := startOperation(ctx, "ingest", path)
	defer func() { finish(err) }()

	docs, err := c.load(path)
	if err != nil {
		return 0, c.fail("ingest", path, err)
	}

	if c.tracker.Contains(lifecycle.Received, path) {
		if _, err := c.tracker.Relocate(document.Sources(docs), lifecycle.Received, lifecycle.Ingested); err != nil {
			return 0, c.fail("ingest", path, fmt.Errorf("relocate to %s: %w", lifecycle.Ingested, err))
		}
	}

	chunks, err := c.chunker.Split(docs)
	if err != nil {
		return 0, c.fail("ingest", path, fmt.Errorf("%w: chunk documents: %w", ErrIngestionFailed, err))
	}
	if len(chunks) == 0 {
		c.logger.Warn("Documents produced no chunks", "path", path, "documents", len(docs))
		return 0, nil
	}

	created, err := c.write(ctx, chunks)
	if err != nil {
		return 0, c.fail("ingest", path, fmt.Errorf("%w: %w", ErrIngestionFailed, err))
	}

	chunksIngested.Add(float64(len(chunks)))
	c.logger.Info("Ingested documents",
		"path", path,
		"documents", len(docs),
		"chunks", len(chunks),
		"created", created,
	)
	return len(chunks), nil
}

// write creates the index from chunks if it does not exist yet, or appends to it.
// Reports whether this call created the index.
func (c *Coordinator) write(ctx context.Context, chunks []document.Chunk) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		if err := c.index.Add(ctx, chunks, c.embedder); err != nil {
			return false, fmt.Errorf("append to index: %w", err)
		}
		return false, nil
	}

	idx, err := c.factory.Create(ctx, chunks, c.embedder)
	if err != nil {
		return false, fmt.Errorf("create index: %w", err)
	}
	c.index = idx
	indexCreations.Inc()
	return true, nil
}

// Query loads the documents under path and returns the sources of the k chunks most
// similar to the first document's text, most similar first. Only the first document
// is used as the probe even when several are loaded. When path is in the received
// stage the loaded files are moved to the queried stage before the index is checked,
// so a query that fails with ErrIndexNotInitialized still leaves received.
//
// Fewer than k sources come back when the index holds fewer than k records.
func (c *Coordinator) Query(ctx context.Context, path string, k int) (sources []string, err error) {
	ctx, finish := startOperation(ctx, "query", path)
	defer func() { finish(err) }()

	if k < 1 {
		return nil, c.fail("query", path, fmt.Errorf("%w: k must be at least 1, got %d", ErrValidation, k))
	}

	docs, err := c.load(path)
	if err != nil {
		return nil, c.fail("query", path, err)
	}

	// A query file left in received would be indexed by the next directory ingestion.
	if c.tracker.Contains(lifecycle.Received, path) {
		if _, err := c.tracker.Relocate(document.Sources(docs), lifecycle.Received, lifecycle.Queried); err != nil {
			return nil, c.fail("query", path, fmt.Errorf("relocate to %s: %w", lifecycle.Queried, err))
		}
	}

	if !c.Initialized() {
		return nil, c.fail("query", path, fmt.Errorf("%w: ingest documents before querying", ErrIndexNotInitialized))
	}

	results, err := c.search(ctx, docs[0].Text, k)
	if err != nil {
		return nil, c.fail("query", path, err)
	}

	// One source per matching chunk; a file with several close chunks is listed once per chunk.
	sources = make([]string, 0, min(len(results), k))
	for _, r := range results[:min(len(results), k)] {
		sources = append(sources, r.Metadata[document.MetadataSource])
	}

	c.logger.Info("Queried index", "path", path, "probe", docs[0].Source, "k", k, "results", len(sources))
	return sources, nil
}

func (c *Coordinator) search(ctx context.Context, probe string, k int) ([]storage.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.index == nil {
		return nil, ErrIndexNotInitialized
	}
	results, err := c.index.Search(ctx, probe, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	return results, nil
}

// load reads documents under path and rejects an empty result.
func (c *Coordinator) load(path string) ([]document.Document, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrValidation)
	}

	docs, err := document.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrValidation, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no %s files under %s", ErrNoDocumentsFound, document.TextExtension, path)
	}
	return docs, nil
}

func (c *Coordinator) fail(op, path string, err error) error {
	c.logger.Warn("Operation failed", "operation", op, "path", path, "kind", Kind(err), "error", err)
	return err
}
