// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passkeyblog/backend/internal/config"
	"github.com/passkeyblog/backend/pkg/metrics"
	"github.com/passkeyblog/backend/pkg/passkey"
)

// Server is the REST API server.
type Server struct {
	server   *http.Server
	router   *chi.Mux
	handlers *Handlers
	logger   *slog.Logger
	addr     string
}

// NewServer creates the REST API server from the loaded configuration and
// an initialized ceremony workflow.
func NewServer(cfg *config.Config, workflow *passkey.Workflow, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sessions := newSessionManager(cfg.Session)
	handlers := NewHandlers(workflow, sessions, logger)

	server := &Server{
		handlers: handlers,
		logger:   logger,
		addr:     fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	}
	server.router = server.setupRouter(cfg)

	server.server = &http.Server{
		Addr:         server.addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter(cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)

	// The browser sends the session cookie cross-origin, so CORS is
	// pinned to the single frontend origin with credentials allowed.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORS.Origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Correlation-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	r.Get("/health", s.handlers.HealthHandler)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/session", s.handlers.SessionHandler)
		r.Post("/logout", s.handlers.LogoutHandler)
		r.Post("/generate-registration-options", s.handlers.GenerateRegistrationOptionsHandler)
		r.Post("/verify-registration", s.handlers.VerifyRegistrationHandler)
		r.Post("/generate-authentication-options", s.handlers.GenerateAuthenticationOptionsHandler)
		r.Post("/verify-authentication", s.handlers.VerifyAuthenticationHandler)
	})

	return r
}

// Handler returns the router, for tests driving the server through
// httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
