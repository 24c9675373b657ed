package render

import (
	"context"

	"github.com/dunamismax/deckrender/internal/domain"
)

// ProgressFunc reports format-specific progress in [0, 100]. Renderers only
// ever report increasing values; the store enforces monotonicity regardless.
type ProgressFunc func(progress int)

// Renderer produces one artifact format. Render writes the artifact to its
// final path and returns that path; on error no artifact path is returned and
// any scratch state must already be cleaned up.
type Renderer interface {
	Format() string
	Render(ctx context.Context, jobID string, pres domain.Presentation, opts domain.ExportOptions, progress ProgressFunc) (string, error)
}
