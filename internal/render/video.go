package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
)

const (
	// Each slide holds on screen for a fixed duration.
	slideHoldSeconds = 5
	framePattern     = "frame_%06d.png"

	videoProgressBase = 5
	videoCaptureSpan  = 70
	videoEncodeBase   = 80
	videoEncodeSpan   = 15
)

// VideoRenderer captures each slide once, replicates the capture into a
// per-slide run of frames, and hands the sequence to the encoder.
type VideoRenderer struct {
	raster    Rasterizer
	encoder   Encoder
	artifacts *artifacts.Manager
}

func NewVideoRenderer(raster Rasterizer, encoder Encoder, artifacts *artifacts.Manager) *VideoRenderer {
	return &VideoRenderer{raster: raster, encoder: encoder, artifacts: artifacts}
}

func (r *VideoRenderer) Format() string { return domain.FormatVideo }

func (r *VideoRenderer) Render(ctx context.Context, jobID string, pres domain.Presentation, opts domain.ExportOptions, progress ProgressFunc) (string, error) {
	start, end, empty := opts.Range(len(pres.Slides))
	if empty {
		return "", errors.New("cannot encode a video from zero slides")
	}

	framesDir, err := r.artifacts.ScratchDir(jobID)
	if err != nil {
		return "", err
	}
	defer r.artifacts.RemoveScratch(jobID)

	fps := opts.EffectiveFPS()
	framesPerSlide := fps * slideHoldSeconds

	frameCount, err := r.captureFrames(ctx, framesDir, pres, start, end, framesPerSlide, progress)
	if err != nil {
		return "", err
	}

	if progress != nil {
		progress(videoEncodeBase)
	}

	outPath := r.artifacts.ArtifactPath(pres.Title, jobID, ".mp4")
	req := EncodeRequest{
		FramesDir:    framesDir,
		FramePattern: framePattern,
		FPS:          fps,
		Codec:        opts.EffectiveCodec(),
		TotalFrames:  frameCount,
		OutputPath:   outPath,
	}
	if progress != nil {
		req.Progress = func(percent int) {
			progress(videoEncodeBase + percent*videoEncodeSpan/100)
		}
	}
	if err := r.encoder.Encode(ctx, req); err != nil {
		return "", err
	}
	return outPath, nil
}

// captureFrames rasterizes the slide range into the frame directory. The
// browser session spans all slides and is torn down before encoding starts.
func (r *VideoRenderer) captureFrames(ctx context.Context, framesDir string, pres domain.Presentation, start, end, framesPerSlide int, progress ProgressFunc) (int, error) {
	session, err := r.raster.NewSession(ctx)
	if err != nil {
		return 0, err
	}
	defer session.Close()

	total := end - start + 1
	frameCount := 0
	for i := start; i <= end; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		shot, err := session.CapturePNG(slideDocument(pres, pres.Slides[i]))
		if err != nil {
			return 0, fmt.Errorf("capture slide %d: %w", i+1, err)
		}

		for frame := 0; frame < framesPerSlide; frame++ {
			framePath := filepath.Join(framesDir, fmt.Sprintf(framePattern, frameCount))
			if err := os.WriteFile(framePath, shot, 0o644); err != nil {
				return 0, fmt.Errorf("write frame %d: %w", frameCount, err)
			}
			frameCount++
		}

		if progress != nil {
			progress(videoProgressBase + (i-start+1)*videoCaptureSpan/total)
		}
	}
	return frameCount, nil
}
