// package server contains middleware & handlers for the Spotify session web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/spotlink/internal/services"
	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, sessions, panic recovery, request ids, etc.
type Middleware func(http.Handler) http.Handler

// Route is a method and path pattern served by a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Handler defines the interface for groups of HTTP endpoints (auth, session data, playback).
// Implementations return their routes so that definitions stay encapsulated within the implementation.
type Handler interface {
	Routes() []Route // Routes returns the method, pattern and handler of every endpoint served
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	Routes() []Route                                  // Routes lists registered routes, without handlers
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Options are the dependencies of a [Server].
type Options struct {
	Config     *shared.Config
	Store      session.Store
	Logger     *log.Logger
	HTTPClient *http.Client // outbound client for the token endpoint and the Web API
}

// Server serves the authorization handshake and the session-scoped API.
type Server struct {
	router Router
	addr   string
	logger *log.Logger
}

// New wires handlers, middleware and upstream clients from opts.
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Upstream.Timeout}
	}

	gateway := services.NewGateway(cfg.Upstream.APIURL,
		services.WithHTTPClient(client),
		services.WithRateLimit(cfg.Upstream.RateLimit),
		services.WithLogger(shared.WithLogger(logger, "component", "gateway")),
	)

	auth := NewAuthHandler(AuthConfig{
		OAuth:       NewOAuthConfig(cfg.Credentials.Spotify, cfg.Upstream),
		SuccessPath: cfg.Server.SuccessPath,
		ErrorPath:   cfg.Server.ErrorPath,
		StateTTL:    cfg.Session.StateTTL,
		HTTPClient:  client,
		Logger:      shared.WithLogger(logger, "component", "auth"),
	})

	data := NewSessionHandler(
		services.NewSpotifyService(gateway, cfg.Upstream.MaxPages),
		services.NewPlayback(gateway),
		shared.WithLogger(logger, "component", "session"),
	)

	router := NewRouter()
	router.Use(
		middleware.RequestID,
		RequestLogger(logger),
		middleware.Recoverer,
		session.Middleware(opts.Store),
	)
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(health))
	router.Handler(auth)
	router.Handler(data)

	return &Server{router: router, addr: cfg.Server.Addr(), logger: logger}
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Routes lists every registered route.
func (s *Server) Routes() []Route {
	return s.router.Routes()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-done
}
