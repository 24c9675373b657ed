package notify

import (
	"log"

	"github.com/dunamismax/deckrender/internal/domain"
)

// Notifier receives every job state change. Implementations are transport
// adapters; the export pipeline neither knows nor cares where the event
// lands. Notify must not block the job for long and must never mutate the
// job.
type Notifier interface {
	Notify(job domain.ExportJob)
}

// Fanout delivers each event to every registered notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(job domain.ExportJob) {
	for _, n := range f {
		n.Notify(job)
	}
}

// LogNotifier writes job transitions to the process log.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(job domain.ExportJob) {
	if n.Logger == nil {
		return
	}
	if job.Status == domain.JobStatusFailed {
		n.Logger.Printf("export job_id=%s format=%s status=%s err=%q", job.ID, job.Format, job.Status, job.Error)
		return
	}
	n.Logger.Printf("export job_id=%s format=%s status=%s progress=%d", job.ID, job.Format, job.Status, job.Progress)
}

// EventForStatus names the notification event for a job state.
func EventForStatus(status string) string {
	switch status {
	case domain.JobStatusCompleted:
		return "export.completed"
	case domain.JobStatusFailed:
		return "export.failed"
	default:
		return "export.progress"
	}
}
