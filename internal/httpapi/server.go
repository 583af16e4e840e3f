package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
)

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string

	IngestService  *service.IngestService
	SessionService *service.SessionService
	PersonService  *service.PersonService
	CameraRegistry *service.CameraRegistry

	CORSOrigins []string
	// RateLimitRequests caps POST /v1/access_log per client IP within
	// RateLimitWindow. Zero disables the limit.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger

	ingest   *service.IngestService
	sessions *service.SessionService
	people   *service.PersonService
	cameras  *service.CameraRegistry
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:   d.Logger,
		ingest:   d.IngestService,
		sessions: d.SessionService,
		people:   d.PersonService,
		cameras:  d.CameraRegistry,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.With(rateLimit(d.RateLimitRequests, d.RateLimitWindow)).
			Post("/access_log", s.handleAccessLog)

		r.Get("/sessions", s.handleSessions)
		r.Get("/sessions/export.csv", s.handleExport)
		r.Get("/stays", s.handleStays)

		r.Get("/people", s.handleListPeople)
		r.Post("/people", s.handleRegisterPerson)
		r.Get("/people/{id}", s.handleGetPerson)
		r.Put("/people/{id}", s.handleUpdatePerson)
		r.Delete("/people/{id}", s.handleDeletePerson)

		r.Get("/cameras", s.handleCameras)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		}),
	)
}
