package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docsim/internal/coordinator"
	"github.com/bull/docsim/internal/document"
)

const (
	defaultMaxResults = 4
	maxMaxResults     = 50
	probeName         = "probe.txt"
	noResultsMessage  = "No similar documents found."
)

// makeIngestHandler creates the ingest_document tool handler.
// The content is staged in its own received batch and ingested from there, so it
// follows the same file lifecycle as an HTTP upload.
func makeIngestHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, IngestDocumentInput,
) (*mcp.CallToolResult, IngestDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestDocumentInput) (
		*mcp.CallToolResult, IngestDocumentOutput, error,
	) {
		if !document.IsText(input.Name) {
			return nil, IngestDocumentOutput{}, fmt.Errorf("%w: name must end in %s", coordinator.ErrValidation, document.TextExtension)
		}

		batch, _, err := cfg.Receiver.Receive(input.Name, strings.NewReader(input.Content))
		if err != nil {
			return nil, IngestDocumentOutput{}, fmt.Errorf("failed to stage document: %w", err)
		}

		n, err := cfg.Service.Ingest(ctx, batch)
		if err != nil {
			return nil, IngestDocumentOutput{}, fmt.Errorf("failed to ingest document: %w", err)
		}

		cfg.logger().Info("Tool ingested document", "name", input.Name, "chunks", n)
		return nil, IngestDocumentOutput{Name: input.Name, Chunks: n}, nil
	}
}

// makeFindSimilarHandler creates the find_similar tool handler.
// Querying before anything is ingested is reported as a message, not a tool error.
func makeFindSimilarHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, FindSimilarInput,
) (*mcp.CallToolResult, FindSimilarOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindSimilarInput) (
		*mcp.CallToolResult, FindSimilarOutput, error,
	) {
		k := input.MaxResults
		if k <= 0 {
			k = cfg.NumResults
		}
		if k <= 0 {
			k = defaultMaxResults
		}
		k = min(k, maxMaxResults)

		if !cfg.Service.Initialized() {
			return nil, FindSimilarOutput{
				Sources: []string{},
				Message: "The index is empty. Ingest documents before searching.",
			}, nil
		}

		batch, _, err := cfg.Receiver.Receive(probeName, strings.NewReader(input.Content))
		if err != nil {
			return nil, FindSimilarOutput{}, fmt.Errorf("failed to stage probe: %w", err)
		}

		sources, err := cfg.Service.Query(ctx, batch, k)
		if err != nil {
			if errors.Is(err, coordinator.ErrIndexNotInitialized) {
				return nil, FindSimilarOutput{Sources: []string{}, Message: noResultsMessage}, nil
			}
			return nil, FindSimilarOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(sources) == 0 {
			return nil, FindSimilarOutput{Sources: []string{}, Message: noResultsMessage}, nil
		}
		return nil, FindSimilarOutput{Sources: sources}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		out := IndexStatusOutput{
			Initialized: cfg.Service.Initialized(),
			Backend:     "connected",
		}

		if cfg.Backend != nil {
			if err := cfg.Backend.Health(ctx); err != nil {
				out.Backend = "disconnected"
				return nil, out, nil
			}
		}

		n, err := cfg.Service.Count(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("failed to count records: %w", err)
		}
		out.Records = n
		return nil, out, nil
	}
}
