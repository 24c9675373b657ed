package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/dunamismax/deckrender/internal/domain"
)

// Rasterizer opens capture sessions against a headless browser. Sessions are
// expensive; renderers open one per job and reuse it across slides.
type Rasterizer interface {
	NewSession(ctx context.Context) (RasterSession, error)
}

// RasterSession captures full-canvas PNG screenshots of slide documents.
type RasterSession interface {
	CapturePNG(doc string) ([]byte, error)
	Close()
}

type ChromeConfig struct {
	// ExecPath overrides chromedp's browser discovery when set.
	ExecPath string
	// NoSandbox is required inside most containers.
	NoSandbox bool
	// LaunchTimeout bounds the browser startup handshake.
	LaunchTimeout time.Duration
	// CaptureTimeout bounds a single slide capture.
	CaptureTimeout time.Duration
}

// ChromeRasterizer drives a headless Chrome instance through the DevTools
// protocol.
type ChromeRasterizer struct {
	cfg ChromeConfig
}

func NewChromeRasterizer(cfg ChromeConfig) *ChromeRasterizer {
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = 30 * time.Second
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 30 * time.Second
	}
	return &ChromeRasterizer{cfg: cfg}
}

func (r *ChromeRasterizer) NewSession(ctx context.Context) (RasterSession, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(domain.CanvasWidth, domain.CanvasHeight),
	)
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}
	if r.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	tmpDir, err := os.MkdirTemp("", "deckrender-capture-")
	if err != nil {
		return nil, fmt.Errorf("create capture temp dir: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	teardown := func() {
		cancelBrowser()
		cancelAlloc()
		os.RemoveAll(tmpDir)
	}

	// Launch the browser eagerly so a misconfigured binary fails the job up
	// front instead of on the first slide. A binary that starts but never
	// exposes DevTools would otherwise block here indefinitely, so the
	// handshake gets its own deadline.
	launched := make(chan error, 1)
	go func() { launched <- chromedp.Run(browserCtx) }()

	select {
	case err := <-launched:
		if err != nil {
			teardown()
			return nil, fmt.Errorf("start headless browser: %w", err)
		}
	case <-time.After(r.cfg.LaunchTimeout):
		teardown()
		return nil, fmt.Errorf("start headless browser: no DevTools handshake within %s", r.cfg.LaunchTimeout)
	case <-ctx.Done():
		teardown()
		return nil, fmt.Errorf("start headless browser: %w", ctx.Err())
	}

	return &chromeSession{
		browserCtx:     browserCtx,
		cancelBrowser:  cancelBrowser,
		cancelAlloc:    cancelAlloc,
		tmpDir:         tmpDir,
		captureTimeout: r.cfg.CaptureTimeout,
	}, nil
}

type chromeSession struct {
	browserCtx     context.Context
	cancelBrowser  context.CancelFunc
	cancelAlloc    context.CancelFunc
	tmpDir         string
	captureTimeout time.Duration
	captureSeq     int
}

// CapturePNG loads the document from disk (file:// keeps relative asset
// resolution consistent with the HTML artifact) and screenshots the viewport.
func (s *chromeSession) CapturePNG(doc string) ([]byte, error) {
	s.captureSeq++
	docPath := filepath.Join(s.tmpDir, fmt.Sprintf("slide_%d.html", s.captureSeq))
	if err := os.WriteFile(docPath, []byte(doc), 0o644); err != nil {
		return nil, fmt.Errorf("write slide document: %w", err)
	}
	defer os.Remove(docPath)

	ctx, cancel := context.WithTimeout(s.browserCtx, s.captureTimeout)
	defer cancel()

	var shot []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(domain.CanvasWidth, domain.CanvasHeight),
		chromedp.Navigate("file://"+docPath),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("capture slide: %w", err)
	}
	return shot, nil
}

func (s *chromeSession) Close() {
	s.cancelBrowser()
	s.cancelAlloc()
	os.RemoveAll(s.tmpDir)
}
