package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"measurement-simulator/internal/application/streaming"
	"measurement-simulator/internal/domain"
	"measurement-simulator/internal/infra"
)

// SourceFactory resolves request parameters into measurement sources.
type SourceFactory interface {
	Resolve(lookup streaming.Lookup) (streaming.Params, streaming.ValidationErrors)
	Source(p streaming.Params) (domain.MeasurementSource, error)
}

// Logger defines the logging behaviour required by the HTTP transport.
type Logger interface {
	Printf(ctx context.Context, format string, v ...any)
	Errorf(ctx context.Context, format string, v ...any)
}

// Server exposes the HTTP transport for the measurement simulator.
type Server struct {
	router chi.Router
}

// NewServer constructs a chi based HTTP server. A positive maxStream bounds
// the lifetime of every SSE stream.
func NewServer(factory SourceFactory, logger Logger, maxStream time.Duration) *Server {
	router := chi.NewRouter()
	router.Use(requestID, infra.HTTPMiddleware())

	h := &handler{factory: factory, logger: logger, maxStream: maxStream}
	registerRoutes(router, h)

	return &Server{router: router}
}

// Router returns the configured chi router for reuse in tests or external HTTP servers.
func (s *Server) Router() http.Handler {
	return s.router
}

// ServeHTTP allows Server to satisfy the http.Handler interface directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
