package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/praghad/internal/session"
	"github.com/desertthunder/praghad/internal/shared"
	"github.com/desertthunder/praghad/internal/stream"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery, request ids, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the music server.
// Implementations serve GET (and HEAD) on every path they list.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Credentials CredentialFinder
	Tracks      TrackLister
	Lookup      stream.TrackLookup
	Sessions    *session.Store
}

// Server owns the router and the underlying [http.Server].
type Server struct {
	http    *http.Server
	router  *BasicRouter
	limiter *clientLimiter
	logger  *log.Logger
}

// New wires every route for cfg onto a fresh router.
func New(cfg *shared.Config, deps Deps, logger *log.Logger) *Server {
	router := NewBasicRouter()
	router.Use(RequestID(), Recovery(logger), Logging(logger))

	limiter := newClientLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	limiter.trustForwarded = cfg.RateLimit.TrustForwarded
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second

	dispatcher := NewDispatcher(deps.Credentials, deps.Tracks, deps.Sessions, ttl, cfg.Server.PublicURL, shared.WithLogger(logger, "component", "protocol"))
	router.Handle(http.MethodGet, dispatcher.Routes()[0], rateLimit(limiter, logger)(dispatcher))

	responder := stream.NewResponder(deps.Lookup, shared.WithLogger(logger, "component", "stream"))
	router.Handler(NewPlayHandler(deps.Sessions, responder, shared.WithLogger(logger, "component", "play")))
	router.Handler(NewPagesHandler())

	return &Server{
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout(),
		},
		router:  router,
		limiter: limiter,
		logger:  logger,
	}
}

// Handler returns the fully wired router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.limiter.sweep(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.http.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
