package coordinator

import (
	"errors"

	"github.com/bull/docsim/internal/lifecycle"
)

// Error kinds returned by the coordinator. Every failure wraps exactly one of these,
// so callers can tell them apart with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrFileLifecycle       = lifecycle.ErrFileLifecycle
	ErrNoDocumentsFound    = errors.New("no documents found")
	ErrIndexNotInitialized = errors.New("index not initialized")
	ErrIngestionFailed     = errors.New("ingestion failed")
	ErrSearchFailed        = errors.New("search failed")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, "validation"},
	{ErrFileLifecycle, "file_lifecycle"},
	{ErrNoDocumentsFound, "no_documents"},
	{ErrIndexNotInitialized, "index_not_initialized"},
	{ErrIngestionFailed, "ingestion_failed"},
	{ErrSearchFailed, "search_failed"},
}

// Kind returns a short label for err's error kind, suitable for logs and metrics.
// It returns "ok" for nil and "unknown" for errors outside the taxonomy.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "unknown"
}
