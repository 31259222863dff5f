package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

// uploadPattern names in-progress uploads. It never ends in .txt, so the document
// loader cannot pick up a half-written file.
const uploadPattern = ".upload-*.part"

// Tracker moves files between stage directories.
//
// Moves use rename-then-verify. When the stages sit on different filesystems the
// rename fails with EXDEV and the tracker falls back to copy-then-delete-then-verify.
// Either way a successful move leaves the file in exactly one stage.
type Tracker struct {
	layout Layout
	logger *slog.Logger
}

// NewTracker creates a tracker over the given layout.
func NewTracker(layout Layout, logger *slog.Logger) (*Tracker, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{layout: layout, logger: logger}, nil
}

// Layout returns the stage directories.
func (t *Tracker) Layout() Layout {
	return t.layout
}

// EnsureDirs creates every stage directory.
func (t *Tracker) EnsureDirs() error {
	for _, s := range []Stage{Received, Ingested, Queried} {
		if err := os.MkdirAll(t.layout.Dir(s), 0o755); err != nil {
			return fmt.Errorf("%w: create %s directory: %w", ErrFileLifecycle, s, err)
		}
	}
	return nil
}

// Contains reports whether path is the directory of stage s or lies beneath it.
func (t *Tracker) Contains(s Stage, path string) bool {
	_, ok := relativeTo(t.layout.Dir(s), path)
	return ok
}

// Receive writes an upload into a fresh batch directory under the received stage.
// The content is written to a temporary name first and renamed into place once
// complete. Returns the batch directory, which holds only this upload.
func (t *Tracker) Receive(name string, r io.Reader) (batchDir, path string, err error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", "", fmt.Errorf("%w: invalid file name %q", ErrFileLifecycle, name)
	}

	batchDir = filepath.Join(t.layout.Received, uuid.New().String())
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: create batch directory: %w", ErrFileLifecycle, err)
	}

	tmp, err := os.CreateTemp(batchDir, uploadPattern)
	if err != nil {
		return "", "", fmt.Errorf("%w: create upload file: %w", ErrFileLifecycle, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
			_ = os.Remove(batchDir)
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("%w: write upload: %w", ErrFileLifecycle, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("%w: sync upload: %w", ErrFileLifecycle, err)
	}
	if err = tmp.Close(); err != nil {
		return "", "", fmt.Errorf("%w: close upload: %w", ErrFileLifecycle, err)
	}

	path = filepath.Join(batchDir, base)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", "", fmt.Errorf("%w: finalize upload: %w", ErrFileLifecycle, err)
	}

	t.logger.Debug("Received upload", "path", path)
	return batchDir, path, nil
}

// Move relocates file from stage from to stage to, keeping its path relative to the
// stage directory. Missing destination directories are created. An existing
// destination is never overwritten. Returns the new path.
func (t *Tracker) Move(file string, from, to Stage) (string, error) {
	rel, ok := relativeTo(t.layout.Dir(from), file)
	if !ok || rel == "." {
		return "", fmt.Errorf("%w: %s is not a file in the %s stage", ErrFileLifecycle, file, from)
	}

	info, err := os.Lstat(file)
	if err != nil {
		return "", fmt.Errorf("%w: source %s: %w", ErrFileLifecycle, file, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: source %s is not a regular file", ErrFileLifecycle, file)
	}

	dst := filepath.Join(t.layout.Dir(to), rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrFileLifecycle, filepath.Dir(dst), err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("%w: destination %s: %w", ErrFileLifecycle, dst, fs.ErrExist)
	}

	if err := os.Rename(file, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("%w: rename %s: %w", ErrFileLifecycle, file, err)
		}
		if err := copyThenDelete(file, dst, info.Size()); err != nil {
			return "", fmt.Errorf("%w: move %s across devices: %w", ErrFileLifecycle, file, err)
		}
	}

	if err := verifyMoved(file, dst); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileLifecycle, err)
	}

	t.logger.Debug("Moved file", "from", from, "to", to, "path", dst)
	return dst, nil
}

// Relocate moves each file from one stage to another and prunes source directories
// that end up empty, stopping at the stage directory itself.
// It stops at the first failure; files moved before it stay moved.
func (t *Tracker) Relocate(files []string, from, to Stage) ([]string, error) {
	moved := make([]string, 0, len(files))
	dirs := make(map[string]struct{})
	for _, f := range files {
		dst, err := t.Move(f, from, to)
		if err != nil {
			return moved, err
		}
		moved = append(moved, dst)
		dirs[filepath.Dir(f)] = struct{}{}
	}

	for dir := range dirs {
		t.pruneEmpty(dir, t.layout.Dir(from))
	}

	t.logger.Info("Relocated files", "from", from, "to", to, "count", len(moved))
	return moved, nil
}

// pruneEmpty removes dir and its empty parents up to, but not including, root.
func (t *Tracker) pruneEmpty(dir, root string) {
	for {
		rel, ok := relativeTo(root, dir)
		if !ok || rel == "." {
			return
		}
		if err := os.Remove(dir); err != nil {
			return // not empty, or already gone
		}
		dir = filepath.Dir(dir)
	}
}

// relativeTo returns path relative to dir, and whether path is inside dir.
func relativeTo(dir, path string) (string, bool) {
	if dir == "" {
		return "", false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func copyThenDelete(src, dst string, size int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	written, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written != size {
		err = fmt.Errorf("copied %d of %d bytes", written, size)
	}
	if err != nil {
		_ = os.Remove(dst)
		return err
	}

	return os.Remove(src)
}

func verifyMoved(src, dst string) error {
	if _, err := os.Lstat(dst); err != nil {
		return fmt.Errorf("verify destination %s: %w", dst, err)
	}
	if _, err := os.Lstat(src); !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("verify source %s removed: still present", src)
	}
	return nil
}
