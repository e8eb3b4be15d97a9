// Package web provides the console's JSON API server.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
	"github.com/JonMunkholm/formconsole/internal/web/middleware"
)

// Server is the HTTP API server.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with all routes registered.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled && s.cfg.Rate.RequestsPerMinute > 0 {
		s.router.Use(middleware.RateLimit(s.cfg.Rate.RequestsPerMinute, time.Minute))
	}

	s.router.Use(chimw.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.AdminIdentity(s.cfg.Auth))

		r.Group(func(r chi.Router) {
			r.Use(timeout(s.cfg.Server.RequestTimeout))

			r.Get("/dashboard", s.handleDashboard)

			r.Get("/users", s.handleListUsers)
			r.Post("/users/bulk/approve", s.handleBulkApproveUsers)
			r.Post("/users/bulk/reject", s.handleBulkRejectUsers)
			r.Get("/users/{uid}", s.handleGetUser)
			r.Post("/users/{uid}/approve", s.handleApproveUser)
			r.Post("/users/{uid}/reject", s.handleRejectUser)
			r.Delete("/users/{uid}", s.handleDeleteUser)

			r.Get("/templates", s.handleListTemplates)
			r.Post("/templates/bulk/approve", s.handleBulkApproveTemplates)
			r.Post("/templates/bulk/reject", s.handleBulkRejectTemplates)
			r.Get("/templates/{id}", s.handleGetTemplate)
			r.Post("/templates/{id}/approve", s.handleApproveTemplate)
			r.Post("/templates/{id}/reject", s.handleRejectTemplate)

			r.Get("/submissions", s.handleListSubmissions)
			r.Get("/submissions/statistics", s.handleStatistics)
			r.Get("/submissions/{id}", s.handleGetSubmission)

			r.Get("/activity", s.handleListActivity)
		})

		// Exports may outlive the regular request timeout.
		r.Group(func(r chi.Router) {
			r.Use(timeout(s.cfg.Export.Timeout))

			r.Get("/submissions/export", s.handleExportSubmissions)
			r.Get("/submissions/{id}/export", s.handleExportSubmission)
			r.Get("/activity/export", s.handleExportActivity)
		})
	})
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chimw.Timeout(d)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: max(s.cfg.Server.WriteTimeout, s.cfg.Export.Timeout),
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
