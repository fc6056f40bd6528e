// Package api provides the HTTP API server and handlers for the bookshelf
// catalog.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/bookshelf-server/internal/http/response"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/ratelimit"
)

// Pinger reports whether the metadata store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ObjectServer is the object store surface used by the signed object route
// and the health check.
type ObjectServer interface {
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadSeekCloser, *objectstore.ObjectInfo, error)
	Verify(token, key string) error
}

// Options configures the server.
type Options struct {
	CORSOrigins []string
	Version     string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          Pinger
	objects        ObjectServer
	services       *Services
	extractLimiter *ratelimit.KeyedRateLimiter
	router         *chi.Mux
	api            huma.API
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	db Pinger,
	objects ObjectServer,
	services *Services,
	extractLimiter *ratelimit.KeyedRateLimiter,
	opts Options,
	log *slog.Logger,
) *Server {
	s := &Server{
		store:          db,
		objects:        objects,
		services:       services,
		extractLimiter: extractLimiter,
		router:         chi.NewRouter(),
		logger:         logger.OrDiscard(log),
	}

	s.setupMiddleware(opts)

	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	humaConfig := huma.DefaultConfig("Bookshelf API", opts.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, used by tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(clientIPContext)
	s.router.Use(rawPathContext)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerGenreRoutes()
	s.registerFileRoutes()

	// Raw routes: streamed bodies and the Prometheus exposition format.
	s.router.Get(objectstore.ObjectsPath+"*", s.handleServeObject)
	s.router.Handle("/metrics", promhttp.Handler())
}
