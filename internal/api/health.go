package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Backend     string `json:"backend"`
	Initialized bool   `json:"initialized"`
	Records     int    `json:"records"`
	Timestamp   string `json:"timestamp"`
}

// HealthChecker reports whether the index backend is reachable.
// Every storage factory implements this via its Health method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// IndexStatus reports the state of the coordinator's index.
type IndexStatus interface {
	Initialized() bool
	Count(ctx context.Context) (int, error)
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It returns 503 when the backend is unreachable. An index that has not been created
// yet is still healthy.
func NewHealthHandler(backend HealthChecker, status IndexStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Initialized: status.Initialized(),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")

		if err := backend.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Backend = "disconnected"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		if n, err := status.Count(ctx); err == nil {
			response.Records = n
		}
		response.Status = "healthy"
		response.Backend = "connected"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
