package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tipline/internal/auth"
	"tipline/internal/config"
	"tipline/internal/console"
	"tipline/internal/locale"
	"tipline/internal/logging"
	"tipline/internal/record"
)

// Server represents the HTTP API server
type Server struct {
	router   *http.ServeMux
	server   *http.Server
	addr     string
	logger   *logging.Logger
	store    *record.Store
	authMgr  *auth.Manager
	catalog  *locale.Catalog
	profiler *console.Profiler // nil unless debug console enabled
	cacheTTL time.Duration
}

// Options bundles the server's collaborators
type Options struct {
	Config   *config.Config
	Store    *record.Store
	AuthMgr  *auth.Manager
	Catalog  *locale.Catalog
	Profiler *console.Profiler
	Logger   *logging.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(opts Options) *Server {
	cfg := opts.Config

	s := &Server{
		addr:     cfg.Server.Addr,
		logger:   opts.Logger,
		store:    opts.Store,
		authMgr:  opts.AuthMgr,
		catalog:  opts.Catalog,
		profiler: opts.Profiler,
		cacheTTL: time.Duration(cfg.Cache.DefaultTtlSeconds) * time.Second,
		router:   http.NewServeMux(),
	}
	if s.catalog == nil {
		s.catalog = locale.Builtin()
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]any{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully", nil)
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
