// Package document defines the text documents and chunks that flow through ingestion.
package document

import "strconv"

// Metadata keys carried by every chunk.
const (
	MetadataSource     = "source"
	MetadataChunkIndex = "chunk_index"
)

// Document is a plain-text file loaded from disk.
// It is never modified after loading.
type Document struct {
	Source string // Path the document was loaded from
	Text   string // Full file content
}

// Chunk is a contiguous piece of a document's text, the unit of embedding and storage.
type Chunk struct {
	Index    int               // Position within the source document (0, 1, 2...)
	Content  string            // Chunk text
	Metadata map[string]string // Inherited from the document; always includes "source"
}

// NewChunk creates a chunk of doc at the given position.
func NewChunk(doc Document, index int, content string) Chunk {
	return Chunk{
		Index:   index,
		Content: content,
		Metadata: map[string]string{
			MetadataSource:     doc.Source,
			MetadataChunkIndex: strconv.Itoa(index),
		},
	}
}

// Source returns the originating file path of the chunk.
func (c Chunk) Source() string {
	return c.Metadata[MetadataSource]
}

// Contents returns the text of each chunk, in order.
func Contents(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}

// Sources returns the source path of each document, in order.
func Sources(docs []Document) []string {
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Source
	}
	return paths
}
