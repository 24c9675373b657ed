package store

import (
	"sync"
	"time"

	"github.com/dunamismax/deckrender/internal/domain"
)

// MemoryJobStore holds every export job for the process lifetime. Reads copy
// the record out, so callers never see a job mid-mutation. Mutations against
// a missing or terminal record are no-ops, which makes a late write from an
// in-flight job goroutine safe to race against Delete and keeps terminal
// states final.
type MemoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]domain.ExportJob
	order []string
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]domain.ExportJob),
	}
}

func (s *MemoryJobStore) Create(job domain.ExportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = job
}

func (s *MemoryJobStore) Get(id string) (domain.ExportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// List returns a snapshot of all jobs in insertion order.
func (s *MemoryJobStore) List() []domain.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ExportJob, 0, len(s.order))
	for _, id := range s.order {
		if job, ok := s.jobs[id]; ok {
			out = append(out, job)
		}
	}
	return out
}

// Delete removes the record and returns it. It never re-inserts: a job
// goroutine finishing after deletion hits the missing-record no-op path.
func (s *MemoryJobStore) Delete(id string) (domain.ExportJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ExportJob{}, false
	}
	delete(s.jobs, id)
	for i, jobID := range s.order {
		if jobID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return job, true
}

// SetProcessing transitions pending -> processing with the format's initial
// progress value.
func (s *MemoryJobStore) SetProcessing(id string, progress int) (domain.ExportJob, bool) {
	return s.mutate(id, func(job *domain.ExportJob) {
		job.Status = domain.JobStatusProcessing
		job.Progress = clampProgress(progress)
	})
}

// SetProgress raises the job's progress. Values below the current progress
// are ignored so observers always see a non-decreasing sequence.
func (s *MemoryJobStore) SetProgress(id string, progress int) (domain.ExportJob, bool) {
	return s.mutate(id, func(job *domain.ExportJob) {
		if p := clampProgress(progress); p > job.Progress {
			job.Progress = p
		}
	})
}

func (s *MemoryJobStore) Complete(id, filePath string) (domain.ExportJob, bool) {
	now := time.Now().UTC()
	return s.mutate(id, func(job *domain.ExportJob) {
		job.Status = domain.JobStatusCompleted
		job.Progress = 100
		job.FilePath = filePath
		job.CompletedAt = &now
	})
}

func (s *MemoryJobStore) Fail(id, message string) (domain.ExportJob, bool) {
	now := time.Now().UTC()
	return s.mutate(id, func(job *domain.ExportJob) {
		job.Status = domain.JobStatusFailed
		job.Error = message
		job.CompletedAt = &now
	})
}

func (s *MemoryJobStore) mutate(id string, apply func(*domain.ExportJob)) (domain.ExportJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Terminal() {
		return job, false
	}
	apply(&job)
	s.jobs[id] = job
	return job, true
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
