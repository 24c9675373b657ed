package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Encoder turns a numbered frame sequence into a video artifact.
type Encoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
}

type EncodeRequest struct {
	FramesDir    string
	FramePattern string
	FPS          int
	Codec        string
	TotalFrames  int
	OutputPath   string
	// Progress receives encode progress in [0, 100].
	Progress func(percent int)
}

type FFmpegConfig struct {
	// BinaryPath defaults to "ffmpeg" on PATH.
	BinaryPath string
	// Timeout bounds one encode run.
	Timeout time.Duration
}

// FFmpegEncoder shells out to ffmpeg and tracks progress through its
// machine-readable -progress stream.
type FFmpegEncoder struct {
	cfg FFmpegConfig
}

func NewFFmpegEncoder(cfg FFmpegConfig) *FFmpegEncoder {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "ffmpeg"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &FFmpegEncoder{cfg: cfg}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, req EncodeRequest) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := []string{
		"-y",
		"-framerate", strconv.Itoa(req.FPS),
		"-i", filepath.Join(req.FramesDir, req.FramePattern),
		"-c:v", req.Codec,
		"-pix_fmt", "yuv420p",
		"-progress", "pipe:1",
		"-nostats",
		req.OutputPath,
	}

	cmd := exec.CommandContext(ctx, e.cfg.BinaryPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach ffmpeg stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	consumeProgress(stdout, req.TotalFrames, req.Progress)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg encode: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg encode: %w: %s", err, stderrTail(stderr.String()))
	}
	return nil
}

// consumeProgress reads ffmpeg's key=value progress stream and converts the
// frame counter into a percentage.
func consumeProgress(r io.Reader, totalFrames int, report func(int)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok || key != "frame" {
			continue
		}
		frame, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || totalFrames <= 0 || report == nil {
			continue
		}
		percent := frame * 100 / totalFrames
		if percent > 100 {
			percent = 100
		}
		report(percent)
	}
}

// stderrTail keeps the end of ffmpeg's stderr, where the actual error lands.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	const maxTail = 512
	if len(s) > maxTail {
		s = s[len(s)-maxTail:]
	}
	if s == "" {
		return "no ffmpeg output"
	}
	return s
}
