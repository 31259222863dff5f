// Package main provides the document similarity server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/docsim/internal/api"
	"github.com/bull/docsim/internal/config"
	"github.com/bull/docsim/internal/coordinator"
	"github.com/bull/docsim/internal/lifecycle"
	mcpserver "github.com/bull/docsim/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	envErr := godotenv.Load()

	configPath := os.Getenv("DOCSIM_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	chunker, err := newChunker(cfg.Chunker)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}
	factory, closeFactory, err := newFactory(cfg.VectorStore)
	if err != nil {
		return err
	}
	defer closeFactory()

	tracker, err := lifecycle.NewTracker(lifecycle.Layout{
		Received: cfg.Paths.Received,
		Ingested: cfg.Paths.Ingested,
		Queried:  cfg.Paths.Queried,
	}, logger)
	if err != nil {
		return err
	}
	if err := tracker.EnsureDirs(); err != nil {
		return err
	}

	coord := coordinator.New(factory, chunker, embedder, tracker, logger)
	if err := ingestCorpus(ctx, coord, cfg.Paths.DataDir, logger); err != nil {
		return err
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Service:    coord,
		Receiver:   tracker,
		Backend:    factory,
		NumResults: cfg.NumResults,
		Logger:     logger,
	})

	mux := api.NewMux(api.Routes{
		Handler: &api.Handler{
			Service:        coord,
			Receiver:       tracker,
			NumResults:     cfg.NumResults,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Logger:         logger,
		},
		Backend: factory,
		Status:  coord,
		MCP:     mcpserver.NewHTTPHandler(server, nil),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.Mode == "stdio" {
		// Stdio mode: run MCP over stdin/stdout for local clients, HTTP in background.
		go func() {
			logger.Info("Starting HTTP server", "addr", cfg.Server.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
		defer shutdown(httpServer, logger)

		logger.Info("Starting MCP server (stdio mode)")
		return server.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.Server.Addr, "mcp", "/mcp", "health", "/health")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown(httpServer, logger)
		return nil
	}
}

// ingestCorpus loads the startup corpus. A missing or empty corpus leaves the index
// uninitialized; any other failure stops startup.
func ingestCorpus(ctx context.Context, coord *coordinator.Coordinator, dataDir string, logger *slog.Logger) error {
	n, err := coord.Ingest(ctx, dataDir)
	switch {
	case err == nil:
		logger.Info("Startup corpus ingested", "path", dataDir, "chunks", n)
		return nil
	case errors.Is(err, coordinator.ErrNoDocumentsFound), errors.Is(err, coordinator.ErrValidation):
		logger.Warn("No startup corpus; index stays empty until the first upload", "path", dataDir, "error", err)
		return nil
	default:
		return err
	}
}

func shutdown(s *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn("HTTP shutdown error", "error", err)
	}
}
