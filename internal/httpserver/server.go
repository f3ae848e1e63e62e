package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/logandonley/typecore/internal/logger"
	"github.com/logandonley/typecore/pkg/fm"
)

// Deps are the shared dependencies of the handlers.
type Deps struct {
	Manager      fm.Manager
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	SyncLimit    int    // used when a sync request carries no limit
	GoogleAPIKey string // used when a google sync request carries no key
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New builds the control API server listening on addr.
func New(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	d.Logger = d.Logger.Named("http")

	s := &http.Server{
		Addr:              addr,
		Handler:           Router(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return &Server{http: s, logger: d.Logger}
}

// Router returns the chi router with every route registered.
func Router(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.StartTime.IsZero() {
		d.StartTime = time.Now()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Log(d.Logger))

	r.Get("/healthz", Healthz(d))

	r.Route("/api", func(r chi.Router) {
		r.Get("/fonts", ListFonts(d))
		r.Delete("/fonts", ClearFonts(d))
		r.Post("/fonts/activate", Activate(d))
		r.Post("/fonts/deactivate", Deactivate(d))
		r.Post("/fonts/toggle", Toggle(d))
		r.Post("/scan", Scan(d))
		r.Post("/sync", Sync(d))
	})
	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
