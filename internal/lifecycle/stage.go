// Package lifecycle tracks which pipeline stage an uploaded file is in.
// A file's stage is the directory it lives in; there is no separate manifest.
package lifecycle

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrFileLifecycle is returned when a file cannot be moved between stages.
var ErrFileLifecycle = errors.New("file lifecycle error")

// Stage is a file's position in the upload pipeline.
type Stage int

const (
	Received Stage = iota // Uploaded, not yet processed
	Ingested              // Content added to the index
	Queried               // Used as a similarity probe
)

func (s Stage) String() string {
	switch s {
	case Received:
		return "received"
	case Ingested:
		return "ingested"
	case Queried:
		return "queried"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Layout maps each stage to its directory.
type Layout struct {
	Received string
	Ingested string
	Queried  string
}

// Dir returns the directory for stage s.
func (l Layout) Dir(s Stage) string {
	switch s {
	case Received:
		return l.Received
	case Ingested:
		return l.Ingested
	case Queried:
		return l.Queried
	default:
		return ""
	}
}

// Validate checks that every stage has its own directory.
func (l Layout) Validate() error {
	seen := make(map[string]Stage, 3)
	for _, s := range []Stage{Received, Ingested, Queried} {
		dir := l.Dir(s)
		if dir == "" {
			return fmt.Errorf("%s directory not configured", s)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s directory: %w", s, err)
		}
		if other, dup := seen[abs]; dup {
			return fmt.Errorf("%s and %s share directory %s", other, s, abs)
		}
		seen[abs] = s
	}
	return nil
}
