package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, tokens TokenVerifier, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()
	authenticated := AuthMiddleware(tokens, logger)

	mux.HandleFunc("POST /api/login", h.Login)
	mux.Handle("POST /api/upload", authenticated(http.HandlerFunc(h.Upload)))
	mux.HandleFunc("GET /api/videos", h.ListVideos)
	mux.Handle("POST /api/delete", authenticated(http.HandlerFunc(h.Delete)))
	mux.HandleFunc("GET /api/health", h.Health)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
