// Package textsplit splits plain text into overlapping, size-bounded chunks.
package textsplit

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bull/docsim/internal/document"
)

const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 200
)

// Splitter cuts document text into windows of at most chunkSize characters.
// Windows end on whitespace where one is available in the back half of the window,
// so words are rarely split.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// Split chunks every document in order. Chunks of one document stay contiguous
// and ordered; documents follow each other in input order.
func (s *Splitter) Split(docs []document.Document) ([]document.Chunk, error) {
	var chunks []document.Chunk
	for _, doc := range docs {
		for i, text := range s.SplitText(doc.Text) {
			chunks = append(chunks, document.NewChunk(doc, i, text))
		}
	}
	return chunks, nil
}

// SplitText cuts text into trimmed, non-empty windows.
func (s *Splitter) SplitText(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := min(start+s.chunkSize, len(runes))
		if end < len(runes) {
			if cut := lastSpace(runes[start:end]); cut > s.chunkSize/2 {
				end = start + cut
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func (s *Splitter) String() string {
	return fmt.Sprintf("textsplit(size=%d, overlap=%d)", s.chunkSize, s.overlap)
}

// lastSpace returns the index of the last whitespace rune in r, or -1.
func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}
