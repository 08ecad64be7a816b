package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/weightlog/internal/ingest/hevy"
	"github.com/claude/weightlog/internal/metrics"
	"github.com/claude/weightlog/internal/models"
	"github.com/claude/weightlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the storage surface the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error)
	ExportWorkouts(ctx context.Context, userID int) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*models.WorkoutRow, error)
	DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID int) error
	DeleteWorkouts(ctx context.Context, workoutIDs []uuid.UUID, userID int) (int64, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        Store
	hevy      *hevy.Provider
	metrics   *metrics.Manager
	log       *slog.Logger
	apiKey    string
	maxUpload int64
	whois     WhoIser
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, hevyProvider *hevy.Provider, m *metrics.Manager, apiKey string, maxUpload int64, log *slog.Logger) *Server {
	s := &Server{
		db:        db,
		hevy:      hevyProvider,
		metrics:   m,
		log:       log,
		apiKey:    apiKey,
		maxUpload: maxUpload,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identify)

	// Ingest endpoints (API key required)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/hevy", s.handleHevyIngest)
		r.Post("/records", s.handleRecordsIngest)
	})

	// Dashboard API endpoints. Access control is left to the tailnet.
	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/workouts", s.handleQueryWorkouts)
	s.router.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
	s.router.Delete("/api/v1/workouts/{id}", s.handleDeleteWorkout)
	s.router.Post("/api/v1/workouts/delete-multiple", s.handleDeleteWorkouts)
	s.router.Get("/api/v1/export", s.handleExport)
	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/import-logs", s.handleImportLogs)
}

// SetTailscale switches request identity from the dev user to Tailscale WhoIs.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// Mount attaches an extra handler (MCP, metrics) under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// identify resolves the caller once per request.
func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.db, s.log)(next).ServeHTTP(w, r)
	})
}
