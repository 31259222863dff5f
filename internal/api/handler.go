// Package api serves the HTTP boundary: uploads for ingestion and similarity queries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bull/docsim/internal/coordinator"
	"github.com/bull/docsim/internal/document"
)

// DefaultMaxUploadBytes caps a single multipart request body.
const DefaultMaxUploadBytes = 32 << 20

// DefaultNumResults is the number of similar documents returned when unset.
const DefaultNumResults = 4

// NoResultsMessage is returned when a query matches nothing.
const NoResultsMessage = "No similar documents found."

// Service is the coordination layer the handlers drive.
type Service interface {
	Ingest(ctx context.Context, path string) (int, error)
	Query(ctx context.Context, path string, k int) ([]string, error)
}

// Receiver stages an upload into its own batch directory.
type Receiver interface {
	Receive(name string, r io.Reader) (batchDir, path string, err error)
}

// SimilarResponse is the JSON body of a successful query.
type SimilarResponse struct {
	SimilarDocuments []string `json:"similar_documents"`
}

// Handler serves /upload and /retrieve_similar.
type Handler struct {
	Service        Service
	Receiver       Receiver
	NumResults     int
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Upload stores the posted file and ingests it.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, batch, ok := h.receive(w, r)
	if !ok {
		return
	}

	n, err := h.Service.Ingest(r.Context(), batch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger().Info("Upload ingested", "file", name, "chunks", n)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "File '%s' uploaded and added to vector database.", name)
}

// RetrieveSimilar stores the posted file and returns the sources most similar to it.
func (h *Handler) RetrieveSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, batch, ok := h.receive(w, r)
	if !ok {
		return
	}

	k := h.NumResults
	if k <= 0 {
		k = DefaultNumResults
	}
	sources, err := h.Service.Query(r.Context(), batch, k)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(sources) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := io.WriteString(w, NoResultsMessage); err != nil {
			h.logger().Debug("Write response failed", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SimilarResponse{SimilarDocuments: sources}); err != nil {
		h.logger().Debug("Write response failed", "error", err)
	}
}

// receive validates the multipart "file" field and stages it. On failure it has
// already written the response.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request) (name, batch string, ok bool) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return "", "", false
		}
		http.Error(w, "a multipart file field named \"file\" is required", http.StatusBadRequest)
		return "", "", false
	}
	defer file.Close()

	if !document.IsText(header.Filename) {
		http.Error(w, "Only text files are supported.", http.StatusBadRequest)
		return "", "", false
	}

	batch, _, err = h.Receiver.Receive(header.Filename, file)
	if err != nil {
		h.writeError(w, err)
		return "", "", false
	}
	return header.Filename, batch, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger().Error("Request failed", "kind", coordinator.Kind(err), "error", err)
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// StatusFor maps a coordinator error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, coordinator.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrNoDocumentsFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coordinator.ErrIndexNotInitialized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
