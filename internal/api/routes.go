package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes holds everything the mux serves.
type Routes struct {
	Handler *Handler
	Backend HealthChecker
	Status  IndexStatus
	MCP     http.Handler // optional; mounted at /mcp when set
}

// NewMux registers every endpoint on a fresh ServeMux.
func NewMux(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", NewLandingHandler())
	mux.HandleFunc("/upload", rt.Handler.Upload)
	mux.HandleFunc("/retrieve_similar", rt.Handler.RetrieveSimilar)
	mux.HandleFunc("/health", NewHealthHandler(rt.Backend, rt.Status))
	mux.Handle("/metrics", promhttp.Handler())
	if rt.MCP != nil {
		mux.Handle("/mcp", rt.MCP)
	}
	return mux
}
