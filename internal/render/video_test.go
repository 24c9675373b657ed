package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
)

func writeFakeArtifact(path string) error {
	return os.WriteFile(path, []byte("mp4"), 0o644)
}

func videoFixture(t *testing.T, slides int) (*VideoRenderer, *fakeRasterizer, *fakeEncoder, *artifacts.Manager, domain.Presentation) {
	t.Helper()
	mgr, err := artifacts.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	pres := themedPresentation()
	for i := 0; i < slides; i++ {
		pres.Slides = append(pres.Slides, domain.Slide{ID: "s"})
	}

	raster := &fakeRasterizer{}
	encoder := &fakeEncoder{}
	return NewVideoRenderer(raster, encoder, mgr), raster, encoder, mgr, pres
}

func TestVideoRenderWritesFramesAndEncodes(t *testing.T) {
	r, raster, encoder, _, pres := videoFixture(t, 1)

	var progress []int
	opts := domain.ExportOptions{VideoFPS: 10}
	path, err := r.Render(context.Background(), "job-1", pres, opts, func(p int) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if raster.captureCount() != 1 {
		t.Fatalf("captured %d slides, want 1", raster.captureCount())
	}
	if len(encoder.reqs) != 1 {
		t.Fatalf("encoder called %d times, want 1", len(encoder.reqs))
	}

	req := encoder.reqs[0]
	// One slide held for 5 seconds at 10 fps.
	if req.TotalFrames != 50 {
		t.Fatalf("totalFrames = %d, want 50", req.TotalFrames)
	}
	if req.FPS != 10 {
		t.Fatalf("fps = %d, want 10", req.FPS)
	}
	if req.Codec != domain.DefaultVideoCodec {
		t.Fatalf("codec = %q", req.Codec)
	}
	if req.FramePattern != "frame_%06d.png" {
		t.Fatalf("framePattern = %q", req.FramePattern)
	}

	if !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("artifact path = %q, want .mp4", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	// Scratch frames are gone once the render returns.
	if _, err := os.Stat(req.FramesDir); !os.IsNotExist(err) {
		t.Fatalf("frames dir still exists: %s", req.FramesDir)
	}

	if len(progress) == 0 {
		t.Fatalf("no progress reported")
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress regressed: %v", progress)
		}
	}
	last := progress[len(progress)-1]
	if last != 95 {
		t.Fatalf("final progress = %d, want 95", last)
	}
}

func TestVideoRenderFrameSequenceOnDisk(t *testing.T) {
	mgr, err := artifacts.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	pres := themedPresentation()
	pres.Slides = []domain.Slide{{ID: "s1"}, {ID: "s2"}}

	// Inspect the frame listing before the renderer cleans up.
	var framePaths []string
	probe := &probeEncoder{inner: &fakeEncoder{}, observe: func(req EncodeRequest) {
		entries, err := os.ReadDir(req.FramesDir)
		if err != nil {
			t.Errorf("read frames dir: %v", err)
			return
		}
		for _, e := range entries {
			framePaths = append(framePaths, e.Name())
		}
	}}
	r := NewVideoRenderer(&fakeRasterizer{}, probe, mgr)

	if _, err := r.Render(context.Background(), "job-2", pres, domain.ExportOptions{VideoFPS: 10}, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Two slides at 10 fps for 5 seconds each, numbered globally.
	if len(framePaths) != 100 {
		t.Fatalf("wrote %d frames, want 100", len(framePaths))
	}
	want := map[string]bool{"frame_000000.png": false, "frame_000099.png": false}
	for _, name := range framePaths {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("frame %s missing from sequence", name)
		}
	}

	if _, err := os.Stat(filepath.Join(mgr.Dir(), "frames_job_2")); !os.IsNotExist(err) {
		t.Fatalf("scratch dir survived render")
	}
}

type probeEncoder struct {
	inner   Encoder
	observe func(EncodeRequest)
}

func (p *probeEncoder) Encode(ctx context.Context, req EncodeRequest) error {
	if p.observe != nil {
		p.observe(req)
	}
	return p.inner.Encode(ctx, req)
}

func TestVideoRenderEmptyRangeFails(t *testing.T) {
	r, raster, _, _, pres := videoFixture(t, 3)

	rng := [2]int{2, 1}
	_, err := r.Render(context.Background(), "job-3", pres, domain.ExportOptions{SlideRange: &rng}, nil)
	if err == nil {
		t.Fatalf("expected error for empty slide range")
	}
	if raster.captureCount() != 0 {
		t.Fatalf("captured slides despite empty range")
	}
}

func TestVideoRenderCaptureFailureCleansScratch(t *testing.T) {
	mgr, err := artifacts.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	pres := themedPresentation()
	pres.Slides = []domain.Slide{{ID: "s1"}}

	r := NewVideoRenderer(&fakeRasterizer{failCapture: true}, &fakeEncoder{}, mgr)
	if _, err := r.Render(context.Background(), "job-4", pres, domain.ExportOptions{}, nil); err == nil {
		t.Fatalf("expected capture error")
	}
	if _, err := os.Stat(filepath.Join(mgr.Dir(), "frames_job_4")); !os.IsNotExist(err) {
		t.Fatalf("scratch dir survived failed render")
	}
}
