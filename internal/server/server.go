// Package server provides the HTTP server and routing for the report desk.
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

	"github.com/aristath/reportdesk/internal/database"
	"github.com/aristath/reportdesk/internal/events"
	"github.com/aristath/reportdesk/internal/modules/backup"
	backuphandlers "github.com/aristath/reportdesk/internal/modules/backup/handlers"
	"github.com/aristath/reportdesk/internal/modules/dashboard"
	dashboardhandlers "github.com/aristath/reportdesk/internal/modules/dashboard/handlers"
	"github.com/aristath/reportdesk/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	DB           *database.DB
	DataDir      string
	Port         int
	DevMode      bool
	EventManager *events.Manager
	Dashboard    *dashboard.Service
	Backup       *backup.Service
	RemoteBackup *backup.R2BackupService
	Scheduler    *scheduler.Scheduler
	Jobs         []scheduler.Job // Jobs that can be triggered through the API
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	eventManager   *events.Manager
	dashboard      *dashboard.Service
	backup         *backup.Service
	remoteBackup   *backup.R2BackupService
	db             *database.DB
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		port:         cfg.Port,
		eventManager: cfg.EventManager,
		dashboard:    cfg.Dashboard,
		backup:       cfg.Backup,
		remoteBackup: cfg.RemoteBackup,
		db:           cfg.DB,
	}
	if s.remoteBackup == nil && s.backup != nil {
		// Remote endpoints answer 503 until a bucket is configured
		s.remoteBackup = backup.NewR2BackupService(s.backup, nil, nil, 0)
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.DataDir, cfg.DB, cfg.Dashboard, cfg.Scheduler, cfg.Jobs)
	if cfg.DB != nil {
		s.statusMonitor = NewStatusMonitor(cfg.EventManager, cfg.DB, cfg.Log)
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: it would cut long-lived websocket connections.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Router returns the root router.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Event push lives outside the timeout group since connections stay open
		if s.eventManager != nil {
			eventsHandler := NewEventsWSHandler(s.eventManager.Bus(), s.log)
			r.Get("/events/ws", eventsHandler.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !devMode {
				r.Use(middleware.Compress(5))
			}

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/database", s.systemHandlers.HandleDatabaseStats)
				r.Get("/jobs", s.systemHandlers.HandleListJobs)
				r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
			})

			if s.dashboard != nil {
				dashboardhandlers.NewHandler(s.dashboard, s.log).RegisterRoutes(r)
			}
			if s.backup != nil {
				backuphandlers.NewHandler(s.backup, s.remoteBackup, s.log).RegisterRoutes(r)
			}
		})
	})
}

// Start starts the HTTP server and background monitors
func (s *Server) Start() error {
	if s.statusMonitor != nil {
		s.statusMonitor.Start(60 * time.Second)
		s.log.Info().Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.statusMonitor != nil {
		s.statusMonitor.Stop()
	}
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
