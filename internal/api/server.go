// Package api exposes a dataset store over HTTP. Handlers only translate
// between requests and store calls; every store error kind maps to a fixed
// status and error code.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Server routes HTTP requests to a DatasetStore.
type Server struct {
	router    chi.Router
	store     types.DatasetStore
	logger    *zap.Logger
	maxUpload int64
}

// NewServer builds the router for store. Uploads larger than maxUpload bytes
// are refused; a non-positive maxUpload means types.DefaultMaxUploadBytes.
// A nil logger disables logging.
func NewServer(store types.DatasetStore, maxUpload int64, logger *zap.Logger) *Server {
	if maxUpload <= 0 {
		maxUpload = types.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		router:    chi.NewRouter(),
		store:     store,
		logger:    logger.Named("api"),
		maxUpload: maxUpload,
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/upload-file", s.handleUpload)
	s.router.Post("/execute-query", s.handleExecute)
	s.router.Get("/get-schema/{uuid}", s.handleSchema)
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("dur", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
