package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Service is the coordination layer the tools drive.
type Service interface {
	Ingest(ctx context.Context, path string) (int, error)
	Query(ctx context.Context, path string, k int) ([]string, error)
	Initialized() bool
	Count(ctx context.Context) (int, error)
}

// Receiver stages tool-supplied content as a file in the received stage.
type Receiver interface {
	Receive(name string, r io.Reader) (batchDir, path string, err error)
}

// HealthChecker reports whether the index backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Service    Service
	Receiver   Receiver
	Backend    HealthChecker
	NumResults int // default for find_similar when max_results is unset
	Logger     *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "docsim",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Add a plain text document to the similarity index. The index is created on first use.",
	}, makeIngestHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_similar",
		Description: "Find the documents most similar to the given text. Returns source paths, most similar first.",
	}, makeFindSimilarHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether the similarity index exists, how many chunks it holds, and backend connectivity.",
	}, makeStatusHandler(cfg))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
