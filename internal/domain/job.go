package domain

import (
	"fmt"
	"time"
)

const (
	FormatPDF   = "pdf"
	FormatPPTX  = "pptx"
	FormatHTML  = "html"
	FormatVideo = "video"

	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"

	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"

	DefaultVideoFPS   = 30
	MinVideoFPS       = 10
	MaxVideoFPS       = 60
	DefaultVideoCodec = "libx264"
)

// ExportJob tracks one export request from creation to its terminal state.
// FilePath is set only on completion, Error only on failure; once the job is
// terminal it never changes again.
type ExportJob struct {
	ID             string     `json:"id"`
	PresentationID string     `json:"presentationId"`
	Format         string     `json:"format"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	FilePath       string     `json:"filePath,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

func (j ExportJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ExportConfig is caller supplied and immutable for the job's lifetime.
type ExportConfig struct {
	Format  string        `json:"format"`
	Options ExportOptions `json:"options"`
}

type ExportOptions struct {
	Quality      string  `json:"quality,omitempty"`
	IncludeNotes bool    `json:"includeNotes,omitempty"`
	SlideRange   *[2]int `json:"slideRange,omitempty"`
	VideoFPS     int     `json:"videoFps,omitempty"`
	VideoCodec   string  `json:"videoCodec,omitempty"`
}

func ValidFormat(format string) bool {
	switch format {
	case FormatPDF, FormatPPTX, FormatHTML, FormatVideo:
		return true
	}
	return false
}

func (c ExportConfig) Validate() error {
	if !ValidFormat(c.Format) {
		return fmt.Errorf("unsupported export format: %q", c.Format)
	}
	if c.Options.VideoFPS != 0 && (c.Options.VideoFPS < MinVideoFPS || c.Options.VideoFPS > MaxVideoFPS) {
		return fmt.Errorf("videoFps must be between %d and %d, got %d", MinVideoFPS, MaxVideoFPS, c.Options.VideoFPS)
	}
	return nil
}

// EffectiveQuality falls back to medium for unset or unrecognized values
// instead of failing the export.
func (o ExportOptions) EffectiveQuality() string {
	switch o.Quality {
	case QualityLow, QualityMedium, QualityHigh:
		return o.Quality
	}
	return QualityMedium
}

// QualityScale maps the quality level onto the raster fidelity multiplier
// applied to captured slide bitmaps.
func (o ExportOptions) QualityScale() float64 {
	switch o.EffectiveQuality() {
	case QualityLow:
		return 0.5
	case QualityHigh:
		return 1.0
	default:
		return 0.75
	}
}

func (o ExportOptions) EffectiveFPS() int {
	if o.VideoFPS == 0 {
		return DefaultVideoFPS
	}
	return o.VideoFPS
}

func (o ExportOptions) EffectiveCodec() string {
	if o.VideoCodec == "" {
		return DefaultVideoCodec
	}
	return o.VideoCodec
}

// Range resolves the effective slide range for a deck of slideCount slides.
// Defaults to the full deck, clamps both ends into [0, slideCount-1], and
// reports empty when no slide survives clamping (including end < start).
func (o ExportOptions) Range(slideCount int) (start, end int, empty bool) {
	if slideCount <= 0 {
		return 0, 0, true
	}
	start, end = 0, slideCount-1
	if o.SlideRange != nil {
		start, end = o.SlideRange[0], o.SlideRange[1]
	}
	if start < 0 {
		start = 0
	}
	if end > slideCount-1 {
		end = slideCount - 1
	}
	if end < start {
		return 0, 0, true
	}
	return start, end, false
}
