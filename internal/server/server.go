// Package server exposes the analysis orchestrator over HTTP. It serves a
// JSON analyze endpoint, a liveness probe, and the Prometheus scrape
// endpoint for the run metrics.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/orchestrator"
	"github.com/repolens-dev/repolens/internal/report"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

// readTimeout bounds how long a client may take to send a request.
const readTimeout = 15 * time.Second

// shutdownTimeout bounds graceful shutdown when the serve context ends.
const shutdownTimeout = 10 * time.Second

// maxAnalyzeBody caps the analyze request body size.
const maxAnalyzeBody = 1 << 20

// ErrMissingPath indicates an analyze request without a repository path.
var ErrMissingPath = errors.New("path is required")

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// Server routes HTTP requests to the analysis orchestrator.
type Server struct {
	cfg            Config
	orch           *orchestrator.Orchestrator
	router         chi.Router
	metricsHandler http.Handler
	logger         *slog.Logger
}

// New creates a Server around an orchestrator. metricsHandler serves the
// Prometheus scrape endpoint; pass nil to disable /metrics.
func New(orch *orchestrator.Orchestrator, cfg Config, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		cfg:            cfg,
		orch:           orch,
		router:         chi.NewRouter(),
		metricsHandler: metricsHandler,
		logger:         logger,
	}

	srv.routes()

	return srv
}

func (srv *Server) routes() {
	router := srv.router

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	router.Get("/healthz", srv.handleHealth)

	if srv.metricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", srv.metricsHandler)
	}

	router.Route("/api/v1", func(api chi.Router) {
		api.Post("/analyze", srv.handleAnalyze)
	})
}

// Handler returns the root http.Handler, mainly for tests.
func (srv *Server) Handler() http.Handler {
	return srv.router
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:        srv.cfg.Addr,
		Handler:     srv.router,
		ReadTimeout: readTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		srv.logger.Info("http server listening", "addr", srv.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	return nil
}

// analyzeRequest is the POST /api/v1/analyze body. Path must point at an
// already-fetched local repository; the server never clones.
type analyzeRequest struct {
	Path    string   `json:"path"`
	Formats []string `json:"formats,omitempty"`
}

// analyzeResponse carries the aggregated report plus any inline renderings
// requested via Formats.
type analyzeResponse struct {
	Report   json.RawMessage   `json:"report"`
	Rendered map[string]string `json:"rendered,omitempty"`
}

func (srv *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (srv *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest

	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&req)
	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, ErrMissingPath.Error())
		return
	}

	snap, loadErr := snapshot.Load(req.Path)
	if loadErr != nil {
		srv.logger.Warn("snapshot load failed", "path", req.Path, "error", loadErr)
		writeError(w, http.StatusUnprocessableEntity, loadErr.Error())

		return
	}

	rep, runErr := srv.orch.Run(r.Context(), snap)
	if runErr != nil {
		srv.logger.Error("analysis run failed", "path", req.Path, "error", runErr)
		writeError(w, http.StatusInternalServerError, runErr.Error())

		return
	}

	resp, buildErr := buildAnalyzeResponse(&rep, req.Formats)
	if buildErr != nil {
		if errors.Is(buildErr, report.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, buildErr.Error())
			return
		}

		writeError(w, http.StatusInternalServerError, buildErr.Error())

		return
	}

	// A degraded or failed run is still a completed analysis; the overall
	// status travels inside the report body.
	writeJSON(w, http.StatusOK, resp)
}

func buildAnalyzeResponse(rep *aggregate.Report, formats []string) (*analyzeResponse, error) {
	raw, marshalErr := json.Marshal(rep)
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal report: %w", marshalErr)
	}

	resp := &analyzeResponse{Report: raw}

	if len(formats) == 0 {
		return resp, nil
	}

	resp.Rendered = make(map[string]string, len(formats))

	for _, format := range formats {
		var buf bytes.Buffer

		renderErr := report.Render(&buf, format, rep)
		if renderErr != nil {
			return nil, renderErr
		}

		resp.Rendered[format] = buf.String()
	}

	return resp, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
