package markdown

import (
	"strings"
	"testing"

	"github.com/bull/docsim/internal/document"
	"github.com/bull/docsim/internal/textsplit"
)

// TestSections_BasicHeaders tests sectioning with H1 and multiple H2s.
func TestSections_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	sections, err := NewChunker().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	want := []Section{
		{HeaderPath: "# Getting Started", Body: "Introduction text here."},
		{HeaderPath: "# Getting Started > ## Installation", Body: "Install steps here."},
		{HeaderPath: "# Getting Started > ## Configuration", Body: "Config details here."},
	}
	if len(sections) != len(want) {
		t.Fatalf("Expected %d sections, got %d: %+v", len(want), len(sections), sections)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Errorf("Section %d: expected %+v, got %+v", i, want[i], sections[i])
		}
	}
}

// TestSections_DeeperHeadingsStayInParent tests that H3 is not a split boundary.
func TestSections_DeeperHeadingsStayInParent(t *testing.T) {
	input := `# API Reference

Overview of the API.

## Methods

Available methods:

` + "```go" + `
func DoSomething() error {
    return nil
}
` + "```" + `

### Details

- List item 1
- List item 2
`

	sections, err := NewChunker().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}

	methods := sections[1].Body
	for _, want := range []string{"func DoSomething()", "### Details", "List item 1"} {
		if !strings.Contains(methods, want) {
			t.Errorf("Methods section missing %q", want)
		}
	}
	if strings.Contains(methods, "## Methods") {
		t.Errorf("Body should not repeat its own heading line")
	}
}

func TestSections_MaxDepth(t *testing.T) {
	input := `# Guide

Intro.

## Part

Part text.

### Step

Step text.
`

	sections, err := NewChunker(WithMaxDepth(3)).Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}
	if got := sections[2].HeaderPath; got != "# Guide > ## Part > ### Step" {
		t.Errorf("Unexpected header path %q", got)
	}
}

// TestSections_NoHeaders tests a document with no headers.
func TestSections_NoHeaders(t *testing.T) {
	input := "This is a document with no headers.\n\nJust plain text content.\n"

	sections, err := NewChunker().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].HeaderPath != "" {
		t.Errorf("Expected empty HeaderPath, got %q", sections[0].HeaderPath)
	}
	if !strings.HasPrefix(sections[0].Body, "This is a document") {
		t.Errorf("Section missing expected content")
	}
}

func TestSections_PreambleAndEmptyHeadings(t *testing.T) {
	input := `Lead paragraph before any heading.

# Title

## Empty Section

## Another Section

Some content here.
`

	sections, err := NewChunker().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	var paths []string
	for _, s := range sections {
		paths = append(paths, s.HeaderPath)
	}
	want := []string{"", "# Title > ## Another Section"}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("Expected paths %q, got %q", want, paths)
	}
}

func TestSections_Setext(t *testing.T) {
	input := "Title\n=====\n\nBody text.\n"

	sections, err := NewChunker().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 1 || sections[0].Body != "Body text." {
		t.Errorf("Unexpected sections %+v", sections)
	}
}

func TestSections_Blank(t *testing.T) {
	sections, err := NewChunker().Sections([]byte("  \n\n"))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 0 {
		t.Errorf("Expected no sections, got %d", len(sections))
	}
}

// TestSplit_PrependsHeaderPath verifies chunk content and metadata.
func TestSplit_PrependsHeaderPath(t *testing.T) {
	docs := []document.Document{
		{Source: "a.txt", Text: "# Title\n\nSome content.\n\n## Section\n\nSection content.\n"},
		{Source: "b.txt", Text: "plain"},
	}

	chunks, err := NewChunker().Split(docs)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	if chunks[1].Content != "# Title > ## Section\n\nSection content." {
		t.Errorf("Unexpected content %q", chunks[1].Content)
	}
	if chunks[1].Metadata[MetadataHeaderPath] != "# Title > ## Section" {
		t.Errorf("Missing header path metadata: %v", chunks[1].Metadata)
	}
	if chunks[1].Index != 1 || chunks[1].Source() != "a.txt" {
		t.Errorf("Unexpected position %d / %s", chunks[1].Index, chunks[1].Source())
	}

	// Index restarts per document; no header path without headings.
	if chunks[2].Index != 0 || chunks[2].Content != "plain" {
		t.Errorf("Unexpected chunk %+v", chunks[2])
	}
	if _, ok := chunks[2].Metadata[MetadataHeaderPath]; ok {
		t.Errorf("Unexpected header path metadata on headerless chunk")
	}
}

func TestSplit_LongSectionsAreWindowed(t *testing.T) {
	body := strings.Repeat("word ", 60)
	docs := []document.Document{{Source: "long.txt", Text: "# Long\n\n" + body}}

	chunker := NewChunker(WithSplitter(textsplit.New(textsplit.WithChunkSize(100), textsplit.WithOverlap(0))))
	chunks, err := chunker.Split(docs)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("Expected the section to be windowed, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c.Content, "# Long\n\n") {
			t.Errorf("Chunk %d lost its header path", i)
		}
		if c.Index != i {
			t.Errorf("Chunk %d has index %d", i, c.Index)
		}
	}
}
