// Package mcp exposes ingestion and similarity search as Model Context Protocol tools.
package mcp

// IngestDocumentInput defines the input parameters for the ingest_document tool.
type IngestDocumentInput struct {
	// Name is the file name to store the document under. It must end in .txt.
	Name string `json:"name" jsonschema:"file name for the document, ending in .txt"`
	// Content is the full document text.
	Content string `json:"content" jsonschema:"plain text content of the document"`
}

// IngestDocumentOutput reports what was added to the index.
type IngestDocumentOutput struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

// FindSimilarInput defines the input parameters for the find_similar tool.
type FindSimilarInput struct {
	// Content is the probe text.
	Content string `json:"content" jsonschema:"text to find similar documents for"`
	// MaxResults is the maximum number of sources to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of similar documents to return, up to 50"`
}

// FindSimilarOutput contains the matching document sources, most similar first.
type FindSimilarOutput struct {
	Sources []string `json:"sources"`
	// Message provides informational context (e.g., "No similar documents found.").
	Message string `json:"message,omitempty"`
}

// IndexStatusInput takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput describes the index.
type IndexStatusOutput struct {
	Initialized bool   `json:"initialized"`
	Records     int    `json:"records"`
	Backend     string `json:"backend"`
}
