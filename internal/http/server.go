package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/kiln/internal/config"
	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/http/middleware"
	"github.com/davidbz/kiln/internal/observability"
)

const artifactsPrefix = "/artifacts/"

// rootedStore is a durable store backed by a local directory.
type rootedStore interface {
	Root() string
}

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	durable     domain.DurableStore
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
	durable domain.DurableStore,
) *Server {
	s := &Server{
		config:      *cfg,
		handler:     handler,
		middlewares: middlewares,
		durable:     durable,
		srv:         nil,
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
	return s
}

// Routes returns the request router with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/audio", s.handler.HandleAudio)
	mux.HandleFunc("POST /v1/dialogues", s.handler.HandleDialogue)
	mux.HandleFunc("POST /v1/conversations/{id}/turns/{index}/audio", s.handler.HandleTurnAudio)
	mux.HandleFunc("POST /v1/conversations/{id}/audio", s.handler.HandleConversationAudio)
	mux.HandleFunc("GET /v1/cache/metrics", s.handler.HandleMetrics)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)

	// Filesystem artifacts are served directly so their locations resolve.
	if rooted, ok := s.durable.(rootedStore); ok {
		files := http.StripPrefix(artifactsPrefix, http.FileServer(http.Dir(rooted.Root())))
		mux.Handle("GET "+artifactsPrefix, files)
	}

	if s.middlewares == nil {
		return mux
	}
	return s.middlewares(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
