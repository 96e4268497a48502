// Package server exposes the dashboard over HTTP: indicator catalog, group
// variable lookup, and pull runs as JSON or CSV.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/pipeline"
)

// Server handles the HTTP API. Runs execute synchronously within the request.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// New wires a server around a run executor.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	return &Server{runner: runner, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/indicators", s.handleIndicators)
		r.Get("/groups/{group}/variables", s.handleGroupVariables)
		r.Get("/pull", s.handlePull)
		r.Get("/pull.csv", s.handlePullCSV)
	})
	return r
}

// ListenAndServe runs the HTTP server until it fails or the listener closes.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// writeError maps the structured error code to an HTTP status: validation
// failures are the caller's fault, missing resources are 404, and upstream
// trouble surfaces as 502.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch {
	case errors.IsValidation(err):
		status = http.StatusBadRequest
	case code == errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case code == errors.ErrCodeFetch, code == errors.ErrCodeMetadata, code == errors.ErrCodeNetwork:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.logger.Error("request failed", "code", code, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Code: string(code), Error: errors.UserMessage(err)})
}
