package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sozercan/vision-results/apimodels"
	"github.com/sozercan/vision-results/internal/actions"
	"github.com/sozercan/vision-results/internal/config"
	"github.com/sozercan/vision-results/internal/handoff"
	"github.com/sozercan/vision-results/internal/render"
)

// Analyzer runs the backend image analysis and returns the raw result
// document.
type Analyzer interface {
	Analyze(ctx context.Context, filepath string) (json.RawMessage, error)
}

// Uploader stores an uploaded image on the backend.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*apimodels.UploadResponse, error)
}

type Dependencies struct {
	Bridge   *handoff.Bridge
	Uploader Uploader
	Analyzer Analyzer
	Actions  *actions.Service
	Renderer *render.Renderer
	// Backend receives asset requests that are not served from disk
	Backend http.Handler
}

type Server struct {
	cfg         config.ServerConfig
	autoNarrate bool
	router      *chi.Mux
	server      *http.Server

	bridge   *handoff.Bridge
	uploader Uploader
	analyzer Analyzer
	actions  *actions.Service
	renderer *render.Renderer
	backend  http.Handler
}

func New(cfg config.Config, deps Dependencies) *Server {
	s := &Server{
		cfg:         cfg.Server,
		autoNarrate: cfg.Speech.AutoNarrate,
		router:      chi.NewRouter(),
		bridge:      deps.Bridge,
		uploader:    deps.Uploader,
		analyzer:    deps.Analyzer,
		actions:     deps.Actions,
		renderer:    deps.Renderer,
		backend:     deps.Backend,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Handle("/uploads/*", s.assets("/uploads/", s.cfg.UploadsDir))
	s.router.Handle("/static/*", s.assets("/static/", s.cfg.StaticDir))
	s.router.Handle("/api/audio/*", s.backend)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout()))
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleIndex)
		r.Post("/handoff", s.handleHandoff)
		r.Post("/upload", s.handleUpload)
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/results", s.handleResults)
		r.Post("/results/translate", s.handleTranslate)
		r.Post("/results/speak", s.handleSpeak)
		r.Post("/results/narrate", s.handleNarrate)
		r.Post("/results/save", s.handleSave)
		r.Post("/results/new", s.handleNew)
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.WriteTimeout > 0 {
		return s.cfg.WriteTimeout
	}
	return 30 * time.Second
}

// assets serves prefix from dir, or proxies it to the backend when no
// directory is configured.
func (s *Server) assets(prefix, dir string) http.Handler {
	if dir == "" {
		return s.backend
	}
	return http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		slog.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) Run() error {
	// Create a channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Create channel for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("Starting shutdown", "signal", sig)

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			// Force close if graceful shutdown fails
			s.server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Custom response writer to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// Flush lets streamed proxy responses through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
