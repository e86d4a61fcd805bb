// Package server provides the HTTP API for controlling training jobs and
// streaming their events.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/di"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	port      int
	devMode   bool
	container *di.Container
	hub       *Hub

	hubCancel context.CancelFunc
	hubDone   chan struct{}
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		devMode:   cfg.DevMode,
		container: cfg.Container,
		hub:       NewHub(cfg.Container.EventBus, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: event streams stay open for the life of a job.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the event fan-out.
func (s *Server) Hub() *Hub {
	return s.hub
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	origins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if s.devMode {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", c.Metrics.Handler())

	jobs := NewJobHandlers(c.Runner, s.log)
	algos := NewAlgorithmHandlers(c.Registry, c.Materializer, c.States, c.ResultsRepo, c.Metrics, s.log)
	runs := NewRunHandlers(c.RunRepo, s.log)
	stream := NewEventsStreamHandler(s.hub, s.devMode, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Streams are long-lived and must not be buffered or timed out.
		r.Get("/events/stream", stream.ServeSSE)
		r.Get("/events/ws", stream.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(middleware.Compress(5))

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", jobs.HandleStart)
				r.Get("/status", jobs.HandleStatus)
				r.Post("/stop", jobs.HandleStop)
				r.Post("/pause", jobs.HandlePause)
				r.Post("/resume", jobs.HandleResume)
			})

			r.Route("/algorithms", func(r chi.Router) {
				r.Get("/", algos.HandleList)
				r.Get("/{id}", algos.HandleGet)
				r.Get("/{id}/state", algos.HandleState)
				r.Get("/{id}/accuracy", algos.HandleAccuracy)
			})

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", runs.HandleList)
				r.Get("/{id}", runs.HandleGet)
			})
		})
	})
}

// StartHub begins draining the event bus. Start calls it; tests using
// Handler directly call it themselves.
func (s *Server) StartHub() {
	if s.hubCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	s.hubDone = make(chan struct{})
	go func() {
		defer close(s.hubDone)
		s.hub.Run(ctx)
	}()
}

// Start starts the event hub and the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.StartHub()
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	err := s.server.Shutdown(ctx)
	if s.hubCancel != nil {
		s.hubCancel()
		<-s.hubDone
	}
	return err
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
