// Package server exposes the census reports over a read-only HTTP surface.
// Every request regenerates its report from the live sources.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Guliveer/procwatch/internal/inventory"
	"github.com/Guliveer/procwatch/internal/report"
)

// Generator builds a report document of a given kind.
type Generator interface {
	Generate(ctx context.Context, kind report.Kind) (interface{}, error)
}

// ContainerLister lists runtime-managed containers.
type ContainerLister interface {
	List(ctx context.Context) ([]inventory.Container, error)
}

// Routes served for each report kind. The paths keep the names of the
// procfs entries the reports were originally published under.
var reportRoutes = map[string]report.Kind{
	"/procesos":             report.KindSummary,
	"/sysinfo":              report.KindSystem,
	"/continfo":             report.KindContainers,
	"/continfo/consumption": report.KindConsumption,
}

// Server is the HTTP front end for report generation.
type Server struct {
	gen       Generator
	inventory ContainerLister
	indent    bool
	logger    *zap.Logger
	router    *mux.Router
}

// New creates a server. inv may be nil when no container runtime is configured.
func New(gen Generator, inv ContainerLister, indent bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		gen:       gen,
		inventory: inv,
		indent:    indent,
		logger:    logger,
		router:    mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)

	methods := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	for path, kind := range reportRoutes {
		s.router.HandleFunc(path, s.reportHandler(kind)).Methods(methods...)
	}
	s.router.HandleFunc("/runtime/containers", s.handleRuntimeContainers).Methods(methods...)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(methods...)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Report server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down report server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) reportHandler(kind report.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.gen.Generate(r.Context(), kind)
		if err != nil {
			s.logger.Error("Report generation failed", zap.String("kind", string(kind)), zap.Error(err))
			s.sendError(w, http.StatusInternalServerError, err.Error())
			return
		}
		body, err := report.Marshal(doc, s.indent)
		if err != nil {
			s.logger.Error("Report encoding failed", zap.String("kind", string(kind)), zap.Error(err))
			s.sendError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

func (s *Server) handleRuntimeContainers(w http.ResponseWriter, r *http.Request) {
	if s.inventory == nil {
		s.sendError(w, http.StatusNotFound, "container runtime inventory disabled")
		return
	}
	containers, err := s.inventory.List(r.Context())
	if err != nil {
		s.logger.Warn("Container runtime unavailable", zap.Error(err))
		s.sendError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":  time.Now().Format(report.TimestampLayout),
		"containers": containers,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Handled request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if s.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().Format(report.TimestampLayout),
	})
}
