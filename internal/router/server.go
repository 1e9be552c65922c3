// Package router provides HTTP routing configuration for the brain API.
package router

import (
	"net/http"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/api"
)

// NewServer creates a new HTTP server with the router configured.
// WriteTimeout is left unset so the SSE stream endpoint can hold its
// connection open; slow stream consumers are bounded by the hub instead.
func NewServer(port string, h *api.Handlers) *http.Server {
	router := NewRouter(h)
	return &http.Server{
		Addr:        ":" + port,
		Handler:     router.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}
