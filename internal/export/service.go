package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
	"github.com/dunamismax/deckrender/internal/id"
	"github.com/dunamismax/deckrender/internal/notify"
	"github.com/dunamismax/deckrender/internal/render"
	"github.com/dunamismax/deckrender/internal/store"
)

// Archiver pushes completed artifacts to long-term object storage. Archival
// is best effort; failures never fail the export.
type Archiver interface {
	ArchiveArtifact(ctx context.Context, path string) error
}

type Config struct {
	// MaxActive caps concurrently rendering jobs. Accepted jobs beyond the
	// cap queue inside their goroutines until a slot frees.
	MaxActive int
}

type Deps struct {
	Jobs      *store.MemoryJobStore
	Artifacts *artifacts.Manager
	Notifier  notify.Notifier
	Metrics   *Metrics
	Archiver  Archiver
	Logger    *log.Logger
	Renderers []render.Renderer
}

// Service owns the export job lifecycle: it accepts requests, spawns one
// rendering task per job, and is the only writer of job state transitions.
type Service struct {
	cfg       Config
	jobs      *store.MemoryJobStore
	artifacts *artifacts.Manager
	notifier  notify.Notifier
	metrics   *Metrics
	archiver  Archiver
	logger    *log.Logger
	renderers map[string]render.Renderer

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewService(cfg Config, deps Deps) *Service {
	if cfg.MaxActive < 1 {
		cfg.MaxActive = 2
	}

	renderers := make(map[string]render.Renderer, len(deps.Renderers))
	for _, r := range deps.Renderers {
		renderers[r.Format()] = r
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Fanout{}
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[export] ", log.LstdFlags|log.Lmicroseconds)
	}

	return &Service{
		cfg:       cfg,
		jobs:      deps.Jobs,
		artifacts: deps.Artifacts,
		notifier:  notifier,
		metrics:   deps.Metrics,
		archiver:  deps.Archiver,
		logger:    logger,
		renderers: renderers,
		sem:       make(chan struct{}, cfg.MaxActive),
	}
}

// Export validates the request, registers a pending job and kicks off its
// rendering task. The returned snapshot is the caller's receipt; all further
// progress arrives through GetJob or notifications.
func (s *Service) Export(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	if err := cfg.Validate(); err != nil {
		return domain.ExportJob{}, err
	}
	renderer, ok := s.renderers[cfg.Format]
	if !ok {
		return domain.ExportJob{}, fmt.Errorf("no renderer registered for format %q", cfg.Format)
	}

	job := domain.ExportJob{
		ID:             id.New(),
		PresentationID: pres.ID,
		Format:         cfg.Format,
		Status:         domain.JobStatusPending,
		Progress:       0,
		CreatedAt:      time.Now().UTC(),
	}
	s.jobs.Create(job)

	s.wg.Add(1)
	go s.run(job.ID, renderer, pres, cfg.Options)

	return job, nil
}

// Per-format entry points. Each rejects a config whose format disagrees with
// the method used to submit it.

func (s *Service) ExportPDF(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	return s.exportAs(domain.FormatPDF, pres, cfg)
}

func (s *Service) ExportPPTX(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	return s.exportAs(domain.FormatPPTX, pres, cfg)
}

func (s *Service) ExportHTML(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	return s.exportAs(domain.FormatHTML, pres, cfg)
}

func (s *Service) ExportVideo(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	return s.exportAs(domain.FormatVideo, pres, cfg)
}

func (s *Service) exportAs(format string, pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	if cfg.Format != format {
		return domain.ExportJob{}, fmt.Errorf("config format %q does not match %s export", cfg.Format, format)
	}
	return s.Export(pres, cfg)
}

func (s *Service) run(jobID string, renderer render.Renderer, pres domain.Presentation, opts domain.ExportOptions) {
	defer s.wg.Done()

	ctx := context.Background()
	tracer := otel.Tracer("deckrender/export")
	ctx, span := tracer.Start(ctx, "export.render")
	span.SetAttributes(
		attribute.String("export.job_id", jobID),
		attribute.String("export.format", renderer.Format()),
		attribute.String("export.presentation_id", pres.ID),
	)
	defer span.End()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	if s.metrics != nil {
		s.metrics.activeExports.Inc()
		defer s.metrics.activeExports.Dec()
	}
	started := time.Now()

	if job, ok := s.jobs.SetProcessing(jobID, initialProgress(renderer.Format())); ok {
		s.notifier.Notify(job)
	} else {
		// Deleted before the task started; nothing to render for.
		span.SetStatus(codes.Ok, "job removed before start")
		return
	}

	filePath, err := renderer.Render(ctx, jobID, pres, opts, func(progress int) {
		if job, ok := s.jobs.SetProgress(jobID, progress); ok {
			s.notifier.Notify(job)
		}
	})

	if s.metrics != nil {
		s.metrics.exportDuration.WithLabelValues(renderer.Format()).Observe(time.Since(started).Seconds())
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		s.logger.Printf("render failed job_id=%s format=%s err=%v", jobID, renderer.Format(), err)
		if s.metrics != nil {
			s.metrics.exportsTotal.WithLabelValues(renderer.Format(), domain.JobStatusFailed).Inc()
		}
		if job, ok := s.jobs.Fail(jobID, fmt.Sprintf("%s export failed: %v", renderer.Format(), err)); ok {
			s.notifier.Notify(job)
		}
		return
	}

	job, ok := s.jobs.Complete(jobID, filePath)
	if !ok {
		// Deleted while rendering. The record is gone, so the artifact has
		// no owner; remove it instead of leaking it.
		s.logger.Printf("job removed mid-render, discarding artifact job_id=%s path=%s", jobID, filePath)
		if err := s.artifacts.RemoveArtifact(filePath); err != nil {
			s.logger.Printf("discard artifact failed job_id=%s err=%v", jobID, err)
		}
		return
	}

	if s.metrics != nil {
		s.metrics.exportsTotal.WithLabelValues(renderer.Format(), domain.JobStatusCompleted).Inc()
	}
	s.recordArtifactSize(renderer.Format(), filePath)
	s.archive(ctx, jobID, filePath)
	s.notifier.Notify(job)
	s.logger.Printf("export complete job_id=%s format=%s path=%s duration=%s", jobID, renderer.Format(), filePath, time.Since(started).Round(time.Millisecond))
}

func (s *Service) archive(ctx context.Context, jobID, filePath string) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveArtifact(ctx, filePath); err != nil {
		s.logger.Printf("archive artifact failed job_id=%s path=%s err=%v", jobID, filePath, err)
	}
}

func (s *Service) recordArtifactSize(format, filePath string) {
	if s.metrics == nil {
		return
	}
	if info, err := os.Stat(filePath); err == nil {
		s.metrics.artifactBytes.WithLabelValues(format).Add(float64(info.Size()))
	}
}

func (s *Service) GetJob(jobID string) (domain.ExportJob, bool) {
	return s.jobs.Get(jobID)
}

func (s *Service) ListJobs() []domain.ExportJob {
	return s.jobs.List()
}

// DeleteJob removes the job record and, when an artifact was produced, the
// artifact itself. Deleting an in-flight job lets the task finish against a
// missing record; its terminal write becomes a no-op.
func (s *Service) DeleteJob(jobID string) bool {
	job, ok := s.jobs.Delete(jobID)
	if !ok {
		return false
	}
	if job.FilePath != "" {
		if err := s.artifacts.RemoveArtifact(job.FilePath); err != nil {
			s.logger.Printf("remove artifact failed job_id=%s path=%s err=%v", jobID, job.FilePath, err)
		}
	}
	return true
}

// Wait blocks until every in-flight export task has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// initialProgress is the progress value a job shows the moment rendering
// starts; video setup reports earlier because its capture phase is longer.
func initialProgress(format string) int {
	if format == domain.FormatVideo {
		return 5
	}
	return 10
}
