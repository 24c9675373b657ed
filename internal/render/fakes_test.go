package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// testPNG renders a small solid bitmap so downstream decoders see real data.
func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 80, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type fakeRasterizer struct {
	failSession bool
	failCapture bool

	mu       sync.Mutex
	captures []string
	closed   int
}

func (f *fakeRasterizer) NewSession(_ context.Context) (RasterSession, error) {
	if f.failSession {
		return nil, errors.New("browser unavailable")
	}
	return &fakeSession{owner: f}, nil
}

func (f *fakeRasterizer) captureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.captures)
}

type fakeSession struct {
	owner *fakeRasterizer
}

func (s *fakeSession) CapturePNG(doc string) ([]byte, error) {
	if s.owner.failCapture {
		return nil, errors.New("capture blew up")
	}
	s.owner.mu.Lock()
	s.owner.captures = append(s.owner.captures, doc)
	s.owner.mu.Unlock()
	return testPNG(64, 36), nil
}

func (s *fakeSession) Close() {
	s.owner.mu.Lock()
	s.owner.closed++
	s.owner.mu.Unlock()
}

type fakeEncoder struct {
	err error

	mu   sync.Mutex
	reqs []EncodeRequest
}

func (f *fakeEncoder) Encode(_ context.Context, req EncodeRequest) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if req.Progress != nil {
		req.Progress(50)
		req.Progress(100)
	}
	// Produce the artifact the way a real encode would.
	return writeFakeArtifact(req.OutputPath)
}
