package render

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
)

func pdfFixture(t *testing.T, slides int) (*PDFRenderer, *fakeRasterizer, domain.Presentation) {
	t.Helper()
	mgr, err := artifacts.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	pres := themedPresentation()
	for i := 0; i < slides; i++ {
		pres.Slides = append(pres.Slides, domain.Slide{ID: "s", Notes: "note text"})
	}

	raster := &fakeRasterizer{}
	return NewPDFRenderer(raster, mgr), raster, pres
}

func TestPDFRenderProducesArtifact(t *testing.T) {
	r, raster, pres := pdfFixture(t, 3)

	var progress []int
	path, err := r.Render(context.Background(), "job-1", pres, domain.ExportOptions{Quality: domain.QualityHigh}, func(p int) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if raster.captureCount() != 3 {
		t.Fatalf("captured %d slides, want 3", raster.captureCount())
	}
	if !strings.HasSuffix(path, ".pdf") {
		t.Fatalf("artifact path = %q", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("artifact is empty")
	}

	want := []int{36, 63, 90}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress = %v, want %v", progress, want)
		}
	}
}

func TestPDFRenderHonorsSlideRange(t *testing.T) {
	r, raster, pres := pdfFixture(t, 5)

	rng := [2]int{1, 3}
	if _, err := r.Render(context.Background(), "job-2", pres, domain.ExportOptions{SlideRange: &rng, Quality: domain.QualityHigh}, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if raster.captureCount() != 3 {
		t.Fatalf("captured %d slides, want 3", raster.captureCount())
	}
}

func TestPDFRenderEmptyRangeYieldsBlankDocument(t *testing.T) {
	r, raster, pres := pdfFixture(t, 2)

	rng := [2]int{1, 0}
	path, err := r.Render(context.Background(), "job-3", pres, domain.ExportOptions{SlideRange: &rng}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if raster.captureCount() != 0 {
		t.Fatalf("captured slides despite empty range")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("blank document missing: %v", err)
	}
}

func TestPDFRenderLowQualityDownscales(t *testing.T) {
	r, _, pres := pdfFixture(t, 1)

	// The downscale path decodes and re-encodes the capture; a broken
	// pipeline would fail the render.
	if _, err := r.Render(context.Background(), "job-4", pres, domain.ExportOptions{Quality: domain.QualityLow}, nil); err != nil {
		t.Fatalf("Render with low quality: %v", err)
	}
}

func TestPDFRenderSessionFailure(t *testing.T) {
	mgr, err := artifacts.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	pres := themedPresentation()
	pres.Slides = []domain.Slide{{ID: "s1"}}

	r := NewPDFRenderer(&fakeRasterizer{failSession: true}, mgr)
	if _, err := r.Render(context.Background(), "job-5", pres, domain.ExportOptions{}, nil); err == nil {
		t.Fatalf("expected session error")
	}
}
