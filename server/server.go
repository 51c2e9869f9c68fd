// Package server exposes navigation sessions, settings and feeds over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/feeds"
	"github.com/nwah/vagvisare/mapview"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/session"
	"github.com/nwah/vagvisare/settings"
)

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string      // empty allows all origins
	RequestTimeout time.Duration // per request, except the tracking socket
	SessionMaxIdle time.Duration
}

// Server wires the HTTP API to the domain packages
type Server struct {
	cfg        Config
	planner    nav.Service
	sessions   *session.Manager
	store      *settings.Store
	feeds      *feeds.Aggregator
	mapCfg     mapview.Config
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies
func New(cfg Config, planner nav.Service, sessions *session.Manager, store *settings.Store, agg *feeds.Aggregator, mapCfg mapview.Config, logger *zap.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.SessionMaxIdle <= 0 {
		cfg.SessionMaxIdle = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		planner:  planner,
		sessions: sessions,
		store:    store,
		feeds:    agg,
		mapCfg:   mapCfg.WithDefaults(),
		logger:   logger,
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// buildRouter creates and configures the chi router with all routes
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if len(corsOpts.AllowedOrigins) == 0 {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// everything but the tracking socket gets a deadline
	timeout := middleware.Timeout(s.cfg.RequestTimeout)

	r.Group(func(r chi.Router) {
		r.Use(timeout)

		nav.NewHandler(s.planner, s.logger).RegisterRoutes(r)

		r.Get("/api/map", s.handleMap)
		r.Get("/api/clients/{client}/settings", s.handleGetSettings)
		r.Put("/api/clients/{client}/settings", s.handlePutSettings)
		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/feeds/nearby", s.handleNearby)
	})

	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/track", s.handleTrack)

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/position", s.handlePosition)
			r.Post("/search", s.handleSearch)
			r.Post("/route", s.handleStartRoute)
			r.Delete("/route", s.handleCancelRoute)
			r.Get("/route.gpx", s.handleRouteGPX)
			r.Get("/directions", s.handleDirections)
			r.Post("/directions/next", s.handleNext)
			r.Post("/directions/prev", s.handlePrev)
		})
	})

	return r
}

// Router returns the chi router
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port
func (s *Server) Start() error {
	s.logger.Info("vagvisare listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// PruneSessions removes idle sessions every interval until ctx is done
func (s *Server) PruneSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.Prune(s.cfg.SessionMaxIdle)
		}
	}
}
