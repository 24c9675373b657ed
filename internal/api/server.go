package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/deckrender/internal/domain"
	"github.com/dunamismax/deckrender/internal/storage"
)

// Exporter is the slice of the export pipeline the HTTP layer needs.
type Exporter interface {
	Export(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error)
	GetJob(jobID string) (domain.ExportJob, bool)
	ListJobs() []domain.ExportJob
	DeleteJob(jobID string) bool
}

// PresentationSource resolves presentation ids to fully loaded decks.
type PresentationSource interface {
	Get(id string) (domain.Presentation, bool)
}

type Server struct {
	logger                *log.Logger
	exporter              Exporter
	presentations         PresentationSource
	metrics               *metrics
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	tracer                trace.Tracer
	mux                   *http.ServeMux
}

type Option func(*Server)

// WithRateLimiter gates export submissions behind the limiter. The subject is
// taken from the X-User-ID header.
func WithRateLimiter(limiter RateLimiter) Option {
	return func(s *Server) { s.rateLimiter = limiter }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// WithMetricsRegistry merges the HTTP metric families into an existing
// registry so /metrics exposes the whole process in one scrape.
func WithMetricsRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) { s.metrics = newMetrics(registry) }
}

func NewServer(logger *log.Logger, exporter Exporter, presentations PresentationSource, opts ...Option) *Server {
	s := &Server{
		logger:                logger,
		exporter:              exporter,
		presentations:         presentations,
		rateLimitUserIDHeader: "X-User-ID",
		mux:                   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.withRateLimit(s.metrics.withHTTPMetrics(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/exports", s.handleCreateExport)
	s.mux.HandleFunc("GET /v1/exports", s.handleListExports)
	s.mux.HandleFunc("GET /v1/exports/{id}", s.handleGetExport)
	s.mux.HandleFunc("DELETE /v1/exports/{id}", s.handleDeleteExport)
	s.mux.HandleFunc("GET /v1/exports/{id}/download", s.handleDownloadExport)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createExportRequest struct {
	PresentationID string               `json:"presentationId"`
	Format         string               `json:"format"`
	Options        domain.ExportOptions `json:"options"`
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	var req createExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cfg := domain.ExportConfig{Format: req.Format, Options: req.Options}
	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	pres, ok := s.presentations.Get(strings.TrimSpace(req.PresentationID))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "presentation not found"})
		return
	}

	job, err := s.exporter.Export(pres, cfg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.metrics.exportsAccepted.WithLabelValues(job.Format).Inc()
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListExports(w http.ResponseWriter, _ *http.Request) {
	jobs := s.exporter.ListJobs()
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.exporter.GetJob(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteExport(w http.ResponseWriter, r *http.Request) {
	if !s.exporter.DeleteJob(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export job not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.exporter.GetJob(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export job not found"})
		return
	}
	if job.Status != domain.JobStatusCompleted || job.FilePath == "" {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "export is not ready for download",
			"status": job.Status,
		})
		return
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		s.logger.Printf("artifact missing for job %s: %v", job.ID, err)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artifact is no longer available"})
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeForPath(job.FilePath))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(job.FilePath)))
	http.ServeFile(w, r, job.FilePath)
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
