// Package markdown chunks documents written in markdown at their heading boundaries.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"

	"github.com/bull/docsim/internal/document"
	"github.com/bull/docsim/internal/textsplit"
)

// MetadataHeaderPath is the chunk metadata key holding the heading hierarchy.
const MetadataHeaderPath = "header_path"

// DefaultMaxDepth splits at H1 and H2.
const DefaultMaxDepth = 2

// Section is the text under one heading, up to the next heading at the same or a
// shallower level that is within the split depth.
type Section struct {
	HeaderPath string // "# Doc Title > ## Section Name"; empty for text before the first heading
	Body       string // Text below the heading line, trimmed
}

// Chunker splits markdown documents at header boundaries while preserving context.
// Every chunk's content starts with its header path so retrieval sees where it came from.
type Chunker struct {
	parser   goldmark.Markdown
	maxDepth int
	splitter *textsplit.Splitter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxDepth sets the deepest heading level that starts a new section.
func WithMaxDepth(depth int) Option {
	return func(c *Chunker) {
		if depth >= 1 && depth <= 6 {
			c.maxDepth = depth
		}
	}
}

// WithSplitter further cuts long section bodies with s. Each piece keeps the header path.
func WithSplitter(s *textsplit.Splitter) Option {
	return func(c *Chunker) {
		c.splitter = s
	}
}

// NewChunker creates a chunker configured with a goldmark parser.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		parser:   goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID())),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split chunks every document in order. Chunk indexes restart at 0 for each document.
func (c *Chunker) Split(docs []document.Document) ([]document.Chunk, error) {
	var chunks []document.Chunk
	for _, doc := range docs {
		sections, err := c.Sections([]byte(doc.Text))
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Source, err)
		}

		index := 0
		for _, s := range sections {
			for _, body := range c.pieces(s.Body) {
				chunk := document.NewChunk(doc, index, withHeader(s.HeaderPath, body))
				if s.HeaderPath != "" {
					chunk.Metadata[MetadataHeaderPath] = s.HeaderPath
				}
				chunks = append(chunks, chunk)
				index++
			}
		}
	}
	return chunks, nil
}

func (c *Chunker) pieces(body string) []string {
	if c.splitter == nil {
		return []string{body}
	}
	return c.splitter.SplitText(body)
}

func withHeader(path, body string) string {
	if path == "" {
		return body
	}
	return path + "\n\n" + body
}

// Sections parses source and returns its sections in document order. Headings whose
// section has no body of its own are skipped. A document without headings is one
// section with an empty header path. Blank input has no sections.
func (c *Chunker) Sections(source []byte) ([]Section, error) {
	doc := c.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(c.maxDepth),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	headings := headingsByID(doc)
	var bounds []boundary
	flatten(tree.Items, nil, headings, source, &bounds)

	var sections []Section
	add := func(path string, body []byte) {
		if b := strings.TrimSpace(string(body)); b != "" {
			sections = append(sections, Section{HeaderPath: path, Body: b})
		}
	}

	if len(bounds) == 0 {
		add("", source)
		return sections, nil
	}

	add("", source[:bounds[0].lineStart])
	for i, b := range bounds {
		end := len(source)
		if i+1 < len(bounds) {
			end = bounds[i+1].lineStart
		}
		if b.bodyStart < end {
			add(b.path, source[b.bodyStart:end])
		}
	}
	return sections, nil
}

// boundary marks where a section's heading line and its body begin in the source.
type boundary struct {
	path      string
	lineStart int
	bodyStart int
}

// flatten walks the TOC depth-first, which is document order, and records a boundary
// for every heading it can locate.
func flatten(items toc.Items, ancestors []string, headings map[string]*ast.Heading, source []byte, out *[]boundary) {
	for _, item := range items {
		path := append(ancestors[:len(ancestors):len(ancestors)], string(item.Title))

		if h, ok := headings[string(item.ID)]; ok && h.Lines().Len() > 0 {
			first := h.Lines().At(0)
			last := h.Lines().At(h.Lines().Len() - 1)
			*out = append(*out, boundary{
				path:      formatHeaderPath(path),
				lineStart: lineStart(source, first.Start),
				bodyStart: bodyStart(source, last.Stop, h),
			})
		}

		flatten(item.Items, path, headings, source, out)
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + segment
	}
	return strings.Join(parts, " > ")
}

// headingsByID indexes every heading node by its auto-generated ID.
func headingsByID(doc ast.Node) map[string]*ast.Heading {
	found := make(map[string]*ast.Heading)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				found[string(b)] = h
			}
		}
		return ast.WalkSkipChildren, nil
	})
	return found
}

// lineStart returns the offset of the first byte of the line containing off.
func lineStart(source []byte, off int) int {
	return bytes.LastIndexByte(source[:off], '\n') + 1
}

// bodyStart returns the offset just past the heading's last line. Setext headings
// carry their underline on the following line, which is skipped too.
func bodyStart(source []byte, off int, h *ast.Heading) int {
	next := lineEnd(source, off)
	if isSetext(source, h) && next < len(source) {
		next = lineEnd(source, next)
	}
	return next
}

func lineEnd(source []byte, off int) int {
	if i := bytes.IndexByte(source[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(source)
}

// isSetext reports whether h was written as text over an === or --- underline.
func isSetext(source []byte, h *ast.Heading) bool {
	first := h.Lines().At(0)
	line := bytes.TrimLeft(source[lineStart(source, first.Start):first.Start], " ")
	return !bytes.HasPrefix(line, []byte("#"))
}
