// Package seed copies a remote text corpus into the local data directory that the
// server ingests at startup.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/docsim/internal/document"
	"github.com/bull/docsim/internal/github"
)

// Source lists and fetches corpus files. *github.Fetcher implements it.
type Source interface {
	GetLatestCommitSHA(ctx context.Context) (string, error)
	ListDocs(ctx context.Context) ([]string, error)
	FetchDoc(ctx context.Context, relativePath string) (*github.FetchedDoc, error)
}

// Result contains statistics about a seed run.
type Result struct {
	TotalDocs  int
	Written    []string // Local paths, in listing order
	FailedDocs []FailedDoc
	CommitSHA  string
	Duration   time.Duration
}

// FailedDoc represents a document that could not be copied.
type FailedDoc struct {
	Path   string
	Reason string
}

// Pipeline fetches every document from a Source and writes it under destDir.
type Pipeline struct {
	source  Source
	destDir string
	logger  *slog.Logger
}

// NewPipeline creates a seed pipeline.
func NewPipeline(source Source, destDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: source, destDir: destDir, logger: logger}
}

// SyncAll copies every listed document. A document that fails is recorded and
// skipped; listing failures abort the run.
func (p *Pipeline) SyncAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	commitSHA, err := p.source.GetLatestCommitSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("get commit SHA: %w", err)
	}
	result.CommitSHA = commitSHA
	p.logger.Info("Starting seed", "commit", commitSHA, "dest", p.destDir)

	paths, err := p.source.ListDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "count", len(paths))

	if err := os.MkdirAll(p.destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", p.destDir, err)
	}

	for _, rel := range paths {
		local, err := p.copyDocument(ctx, rel)
		if err != nil {
			p.logger.Warn("Failed to copy document", "path", rel, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: rel, Reason: err.Error()})
			continue
		}
		result.Written = append(result.Written, local)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Seed complete",
		"written", len(result.Written),
		"failed", len(result.FailedDocs),
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) copyDocument(ctx context.Context, rel string) (string, error) {
	fetched, err := p.source.FetchDoc(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}

	local, err := LocalPath(p.destDir, rel)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(local, fetched.Content); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	p.logger.Debug("Copied document", "path", rel, "local", local, "size", len(fetched.Content))
	return local, nil
}

// LocalPath maps a remote relative path to its file under destDir. Files that are
// not already .txt get the extension appended, so the loader picks them up and
// "guide.md" cannot collide with "guide.txt".
func LocalPath(destDir, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing path %q outside the corpus", rel)
	}
	if !document.IsText(clean) {
		clean += document.TextExtension
	}
	return filepath.Join(destDir, clean), nil
}

// writeAtomic writes through a temporary file so a concurrent load never sees a
// partial document.
func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".seed-*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
