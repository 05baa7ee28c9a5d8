// Package handler exposes the ingestion pipeline over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"tripmail-service/internal/domain/repository"
	"tripmail-service/internal/usecase"
	"tripmail-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the HTTP boundary
type Options struct {
	// WebhookToken, when set, must be passed as the "token" query parameter
	WebhookToken string
	// OperatorTokens maps admin bearer tokens to operator names
	OperatorTokens map[string]string
	MaxUploadBytes int64
}

// Server routes webhook, upload and admin requests to the pipeline
type Server struct {
	orchestrator *usecase.IngestionOrchestrator
	quarantine   *usecase.QuarantineService
	uploadLogs   repository.UploadLogRepository
	gatherer     prometheus.Gatherer
	opts         Options
	logger       logger.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	orchestrator *usecase.IngestionOrchestrator,
	quarantine *usecase.QuarantineService,
	uploadLogs repository.UploadLogRepository,
	gatherer prometheus.Gatherer,
	opts Options,
	logger logger.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Server{
		orchestrator: orchestrator,
		quarantine:   quarantine,
		uploadLogs:   uploadLogs,
		gatherer:     gatherer,
		opts:         opts,
		logger:       logger,
	}
}

// Router builds the chi router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Post("/webhooks/inbound-email", s.handleInboundEmail)
	r.Post("/api/v1/uploads", s.handleUpload)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.operatorAuth)
		r.Get("/quarantine", s.handleListQuarantine)
		r.Get("/quarantine/export.csv", s.handleExportQuarantine)
		r.Get("/quarantine/{id}", s.handleGetQuarantine)
		r.Post("/quarantine/{id}/force", s.handleForceReplay)
		r.Get("/upload-logs", s.handleListUploadLogs)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"requestID", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
