// Package server exposes the parser, splitter and grammar generator over
// HTTP, and whole-document translation when a pipeline is configured.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ltxtrans/internal/logger"
	"ltxtrans/internal/pipeline"
	"ltxtrans/internal/types"
)

// MaxBodyBytes limits request bodies.
const MaxBodyBytes = 8 << 20

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *types.Config
	runner *pipeline.Runner
}

// NewServer creates and configures the HTTP server. runner may be nil, in
// which case /v1/translate answers 503.
func NewServer(cfg *types.Config, runner *pipeline.Runner) *Server {
	s := &Server{cfg: cfg, runner: runner}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.RequestSize(MaxBodyBytes))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/split", s.handleSplit)
		r.Post("/grammar", s.handleGrammar)
		r.Post("/anchors", s.handleAnchors)
		r.Post("/translate", s.handleTranslate)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// RequestLogger logs incoming requests.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", sw.status),
			logger.Int64("durationMs", time.Since(start).Milliseconds()),
			logger.String("requestID", middleware.GetReqID(r.Context())))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
