package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"visitnotes/internal/visit"
)

// Options configures a Server.
type Options struct {
	// SecureCookies marks the login cookie Secure. Enable behind TLS.
	SecureCookies bool
}

// Server exposes a visit.Service over the JSON API.
type Server struct {
	service *visit.Service
	logger  visit.Logger
	opts    Options
	router  chi.Router
}

// New creates a Server and builds its routes.
func New(service *visit.Service, logger visit.Logger, opts Options) *Server {
	s := &Server{
		service: service,
		logger:  logger,
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "API endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", s.handleListAppointments)
				r.Post("/", s.handleCreateAppointment)
				r.Delete("/{appointmentID}", s.handleDeleteAppointment)
			})

			r.Get("/profile", s.handleGetProfile)
			r.Post("/profile", s.handleSaveProfile)

			r.Get("/analyses", s.handleRecentAnalyses)
			r.Route("/analyses/{appointmentID}", func(r chi.Router) {
				r.Get("/", s.handleListAnalyses)
				r.Put("/", s.handlePutAnalysis)
				r.Delete("/{analysisID}", s.handleDeleteAnalysis)
			})

			// Older clients post analyses wrapped with their appointment id.
			r.Post("/simple-analysis", s.handleLegacySaveAnalysis)
			r.Get("/simple-analysis/{appointmentID}", s.handleListAnalyses)
			r.Delete("/simple-analysis/{appointmentID}/{analysisID}", s.handleDeleteAnalysis)
			r.Get("/simple-analysis-all", s.handleRecentAnalyses)

			r.Post("/process-audio", s.handleProcessAudio)
			r.Get("/audio-info", s.handleAudioInfo)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-errc
	s.logger.Info("server stopped")
	return nil
}
